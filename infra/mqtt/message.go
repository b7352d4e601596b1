package mqtt

import "github.com/kilianp07/cityguard/core/model"

// TaskMessage is an order published on TaskTopic.
type TaskMessage struct {
	OrderID   string          `json:"order_id"`
	Order     model.TaskOrder `json:"order"`
	Timestamp int64           `json:"timestamp"`
}

// ReportMessage answers a TaskMessage. Error is set when the observer
// failed and Report is nil in that case.
type ReportMessage struct {
	OrderID    string        `json:"order_id"`
	ObserverID string        `json:"observer_id"`
	Report     *model.Report `json:"report,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// DiscoveryRequest asks agents for their snapshot. An empty ObserverID
// addresses the whole fleet.
type DiscoveryRequest struct {
	RequestID  string `json:"request_id"`
	ObserverID string `json:"observer_id,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// SnapshotMessage answers a DiscoveryRequest.
type SnapshotMessage struct {
	RequestID string                  `json:"request_id"`
	Snapshot  *model.ObserverSnapshot `json:"snapshot,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

package mqtt

// QoS keys looked up in Config.QoS.
const (
	QoSTask      = "task"
	QoSReport    = "report"
	QoSDiscovery = "discovery"
)

const (
	// DiscoveryTopic carries snapshot broadcasts to every agent.
	DiscoveryTopic = "fleet/discovery"
	// ResponseWildcard matches the snapshot answers of every agent.
	ResponseWildcard = "fleet/response/+"
	// ReportWildcard matches the reports of every agent.
	ReportWildcard = "observer/+/report"
)

// TaskTopic is where the observer with the given id receives task orders.
func TaskTopic(observerID string) string { return "observer/" + observerID + "/task" }

// ReportTopic is where the observer with the given id publishes its reports.
func ReportTopic(observerID string) string { return "observer/" + observerID + "/report" }

// ResponseTopic is where the observer with the given id answers discovery.
func ResponseTopic(observerID string) string { return "fleet/response/" + observerID }

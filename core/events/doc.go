// Package events defines the events emitted on the event bus while a query
// escalates.
//
// Available event types:
//   - TaskEvent: outcome of a single observer task
//   - RoundEvent: one controller round with its verdict
//   - DiscoveryEvent: a fleet discovery cycle
//   - OutcomeEvent: the end of a query
package events

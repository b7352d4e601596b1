// Package grid holds the static discrete world a query runs against: cell
// passability and congestion cost, the live observer positions and the single
// target point. It also provides the quadrant classification used to track
// which directions around the target have been investigated.
package grid

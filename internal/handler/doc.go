// Package handler serves the monitor's HTTP API: the latest snapshot, the
// dashboard view-model and the monitor's own health.
package handler

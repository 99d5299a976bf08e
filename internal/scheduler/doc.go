// Package scheduler drives aggregation cycles on a fixed cadence and
// publishes each result to the snapshot store.
//
// Cadence is measured start to start. A cycle that overruns the interval
// delays the next one instead of overlapping it, and at least a minimum gap
// separates the end of one cycle from the start of the next. Cycles are never
// cancelled mid-flight: Stop and parent cancellation take effect between
// cycles.
package scheduler

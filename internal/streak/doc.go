// Package streak tracks consecutive failed cycles per instance.
//
// An instance starts UP. A failed cycle moves it to DEGRADED; reaching the
// down threshold of consecutive failures moves it to DOWN. A single healthy
// cycle resets it to UP:
//
//	registry := streak.NewRegistry(3)
//	st := registry.Record("backend-1", false) // DEGRADED, 1 failure
//	st = registry.Record("backend-1", false)  // DEGRADED, 2 failures
//	st = registry.Record("backend-1", false)  // DOWN, 3 failures
//	st = registry.Record("backend-1", true)   // UP, 0 failures
//
// Streaks only annotate a snapshot for display. They never change whether an
// instance counts as active in the cycle that observed it.
package streak

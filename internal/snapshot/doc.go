// Package snapshot defines the aggregated, display-ready result of one
// monitoring cycle and the Store that exposes the latest one to readers.
//
// A Snapshot is immutable once published. The Store keeps exactly the current
// snapshot and the one before it; publishing swaps both atomically, so readers
// never observe a mix of two cycles and never block the publishing cycle.
//
//	store := snapshot.NewStore()
//	store.Publish(snap)
//	if cur, ok := store.Current(); ok {
//	    fmt.Println(cur.AvailabilityPercent)
//	}
package snapshot

package snapshot

import (
	"errors"
	"sync/atomic"
)

// ErrStaleSnapshot is returned by Publish when the snapshot is not newer than
// the current one.
var ErrStaleSnapshot = errors.New("snapshot: cycle sequence not newer than current")

type generation struct {
	current  Snapshot
	previous *Snapshot
}

// Store holds the latest snapshot and the one immediately before it.
// Publish is meant for a single writer; any number of readers may call
// Current and Previous concurrently.
type Store struct {
	gen atomic.Pointer[generation]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Publish replaces the current snapshot. The prior current snapshot becomes
// the previous one and anything older is dropped.
func (s *Store) Publish(snap Snapshot) error {
	snap = snap.Clone()

	for {
		old := s.gen.Load()
		next := &generation{current: snap}

		if old != nil {
			if snap.CycleSeq <= old.current.CycleSeq {
				return ErrStaleSnapshot
			}
			prev := old.current
			next.previous = &prev
		}

		if s.gen.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// Current returns the most recently published snapshot.
func (s *Store) Current() (Snapshot, bool) {
	g := s.gen.Load()
	if g == nil {
		return Snapshot{}, false
	}
	return g.current.Clone(), true
}

// Previous returns the snapshot published before the current one.
func (s *Store) Previous() (Snapshot, bool) {
	g := s.gen.Load()
	if g == nil || g.previous == nil {
		return Snapshot{}, false
	}
	return g.previous.Clone(), true
}

// Seq returns the cycle sequence of the current snapshot, or 0 if none.
func (s *Store) Seq() uint64 {
	g := s.gen.Load()
	if g == nil {
		return 0
	}
	return g.current.CycleSeq
}

package streak

import "sync"

type Registry struct {
	mutex     sync.RWMutex
	trackers  map[string]*Tracker
	threshold int
}

func NewRegistry(threshold int) *Registry {
	return &Registry{
		trackers:  make(map[string]*Tracker),
		threshold: threshold,
	}
}

func (r *Registry) Get(instanceID string) *Tracker {
	r.mutex.RLock()
	t, exists := r.trackers[instanceID]
	r.mutex.RUnlock()

	if exists {
		return t
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if t, exists = r.trackers[instanceID]; exists {
		return t
	}

	t = NewTracker(r.threshold)
	r.trackers[instanceID] = t
	return t
}

// Record applies one cycle's outcome for an instance.
func (r *Registry) Record(instanceID string, healthy bool) Streak {
	t := r.Get(instanceID)
	if healthy {
		return t.RecordSuccess()
	}
	return t.RecordFailure()
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.trackers = make(map[string]*Tracker)
}

func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.trackers))
	for id, t := range r.trackers {
		stats[id] = t.State()
	}
	return stats
}

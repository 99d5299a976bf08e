package streak

import "sync"

type State int

const (
	StateUp       State = iota // Last cycle healthy
	StateDegraded              // Failing, below threshold
	StateDown                  // Failing at or above threshold
)

func (s State) String() string {
	switch s {
	case StateUp:
		return "UP"
	case StateDegraded:
		return "DEGRADED"
	case StateDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// Tracker follows one instance across cycles.
type Tracker struct {
	mutex         sync.Mutex
	state         State
	failures      int
	downThreshold int
}

// Streak is a point-in-time view of a Tracker.
type Streak struct {
	State    State
	Failures int
	// Changed is set when this cycle moved the instance to a different state.
	Changed bool
}

func NewTracker(threshold int) *Tracker {
	if threshold < 1 {
		threshold = 1
	}
	return &Tracker{
		state:         StateUp,
		downThreshold: threshold,
	}
}

func (t *Tracker) RecordFailure() Streak {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	prev := t.state
	t.failures++

	if t.failures >= t.downThreshold {
		t.state = StateDown
	} else {
		t.state = StateDegraded
	}

	return Streak{State: t.state, Failures: t.failures, Changed: prev != t.state}
}

func (t *Tracker) RecordSuccess() Streak {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	prev := t.state
	t.failures = 0
	t.state = StateUp

	return Streak{State: t.state, Changed: prev != t.state}
}

func (t *Tracker) State() State {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.state
}

func (t *Tracker) Failures() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.failures
}

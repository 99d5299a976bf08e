package snapshot

import (
	"math"
	"time"
)

// Status classifies an instance for display, taking recent cycles into account.
type Status string

const (
	StatusUp          Status = "UP"
	StatusDegraded    Status = "DEGRADED"
	StatusDown        Status = "DOWN"
	StatusUnreachable Status = "UNREACHABLE"
)

// InstanceState is the per-instance part of a Snapshot.
type InstanceState struct {
	Reachable           bool          `json:"reachable"`
	Healthy             bool          `json:"healthy"`
	ActiveUsers         Users         `json:"active_users"`
	Latency             time.Duration `json:"latency"`
	Status              Status        `json:"status"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// Snapshot is one cycle's aggregated result.
type Snapshot struct {
	CycleSeq            uint64                   `json:"cycle_seq"`
	PerInstance         map[string]InstanceState `json:"per_instance"`
	ActiveInstanceCount int                      `json:"active_instance_count"`
	TotalInstanceCount  int                      `json:"total_instance_count"`
	AvailabilityPercent int                      `json:"availability_percent"`
	TotalActiveUsers    int64                    `json:"total_active_users"`
	GeneratedAt         time.Time                `json:"generated_at"`
	Duration            time.Duration            `json:"duration"`
}

// AvailabilityPercent returns round(active/total*100), clamped to [0, 100].
// A zero total yields 0.
func AvailabilityPercent(active, total int) int {
	if total <= 0 || active <= 0 {
		return 0
	}
	if active >= total {
		return 100
	}
	return int(math.Round(float64(active) / float64(total) * 100))
}

// IsZero reports whether the snapshot was never produced by a cycle.
func (s Snapshot) IsZero() bool {
	return s.CycleSeq == 0
}

// AllDown reports whether every configured instance failed this cycle.
func (s Snapshot) AllDown() bool {
	return s.TotalInstanceCount > 0 && s.ActiveInstanceCount == 0
}

// Clone returns a copy that shares no mutable state with s.
func (s Snapshot) Clone() Snapshot {
	clone := s
	if s.PerInstance != nil {
		clone.PerInstance = make(map[string]InstanceState, len(s.PerInstance))
		for id, st := range s.PerInstance {
			clone.PerInstance[id] = st
		}
	}
	return clone
}

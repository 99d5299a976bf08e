package display

import (
	"sort"
	"strconv"
	"time"

	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
)

type Tone string

const (
	ToneOK   Tone = "ok"
	ToneWarn Tone = "warn"
	ToneDown Tone = "down"
)

const (
	HeadlineWaiting     = "Waiting for first cycle"
	HeadlineOperational = "All servers operational"
	HeadlinePartial     = "Some servers unavailable"
	HeadlineAllDown     = "All servers down"
)

// placeholder is shown wherever a value is not known.
const placeholder = "-"

// Badge is the per-instance status chip.
type Badge struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Tone     Tone   `json:"tone"`
	Users    string `json:"users"`
	Latency  string `json:"latency"`
	Failures int    `json:"consecutive_failures"`
}

type ViewModel struct {
	PerInstanceBadges      []Badge   `json:"per_instance_badges"`
	AvailabilityGaugeValue int       `json:"availability_gauge_value"`
	AvailabilityLabel      string    `json:"availability_label"`
	TotalUsersLabel        string    `json:"total_users_label"`
	ActiveServersLabel     string    `json:"active_servers_label"`
	Headline               string    `json:"headline"`
	HeadlineTone           Tone      `json:"headline_tone"`
	AllDown                bool      `json:"all_down"`
	Waiting                bool      `json:"waiting"`
	CycleSeq               uint64    `json:"cycle_seq"`
	GeneratedAt            time.Time `json:"generated_at"`
}

// ToViewModel maps s to its view-model. A snapshot that no cycle produced
// yields the waiting view.
func ToViewModel(s snapshot.Snapshot) ViewModel {
	if s.IsZero() {
		return waiting()
	}

	gauge := clamp(s.AvailabilityPercent)

	vm := ViewModel{
		PerInstanceBadges:      badges(s.PerInstance),
		AvailabilityGaugeValue: gauge,
		AvailabilityLabel:      strconv.Itoa(gauge) + "%",
		TotalUsersLabel:        strconv.FormatInt(s.TotalActiveUsers, 10),
		ActiveServersLabel:     strconv.Itoa(s.ActiveInstanceCount) + "/" + strconv.Itoa(s.TotalInstanceCount),
		AllDown:                s.AllDown(),
		CycleSeq:               s.CycleSeq,
		GeneratedAt:            s.GeneratedAt,
	}

	switch {
	case vm.AllDown:
		vm.Headline, vm.HeadlineTone = HeadlineAllDown, ToneDown
	case s.ActiveInstanceCount < s.TotalInstanceCount:
		vm.Headline, vm.HeadlineTone = HeadlinePartial, ToneWarn
	default:
		vm.Headline, vm.HeadlineTone = HeadlineOperational, ToneOK
	}

	return vm
}

// Stale reports whether the view-model is older than maxAge at now. The
// waiting view and a non-positive maxAge are never stale.
func (vm ViewModel) Stale(now time.Time, maxAge time.Duration) bool {
	if vm.Waiting || maxAge <= 0 {
		return false
	}
	return now.Sub(vm.GeneratedAt) > maxAge
}

func waiting() ViewModel {
	return ViewModel{
		PerInstanceBadges:  []Badge{},
		AvailabilityLabel:  placeholder,
		TotalUsersLabel:    placeholder,
		ActiveServersLabel: placeholder,
		Headline:           HeadlineWaiting,
		HeadlineTone:       ToneWarn,
		Waiting:            true,
	}
}

func badges(states map[string]snapshot.InstanceState) []Badge {
	ids := make([]string, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Badge, 0, len(ids))
	for _, id := range ids {
		st := states[id]
		status := statusOf(st)

		b := Badge{
			ID:       id,
			Label:    string(status),
			Tone:     toneOf(status),
			Users:    placeholder,
			Latency:  placeholder,
			Failures: st.ConsecutiveFailures,
		}
		if n, ok := st.ActiveUsers.Value(); ok {
			b.Users = strconv.FormatInt(n, 10)
		}
		if st.Reachable {
			b.Latency = strconv.FormatInt(st.Latency.Milliseconds(), 10) + "ms"
		}
		out = append(out, b)
	}

	return out
}

// statusOf falls back to the raw probe flags for states recorded without a
// status.
func statusOf(st snapshot.InstanceState) snapshot.Status {
	if st.Status != "" {
		return st.Status
	}
	switch {
	case st.Healthy:
		return snapshot.StatusUp
	case st.Reachable:
		return snapshot.StatusDegraded
	default:
		return snapshot.StatusUnreachable
	}
}

func toneOf(status snapshot.Status) Tone {
	switch status {
	case snapshot.StatusUp:
		return ToneOK
	case snapshot.StatusDegraded:
		return ToneWarn
	default:
		return ToneDown
	}
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

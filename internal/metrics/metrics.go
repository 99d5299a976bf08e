package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxLatencySamples = 1000

type Metrics struct {
	mutex          sync.RWMutex
	probes         map[string]int64
	probeFailures  map[string]int64
	unreachable    map[string]int64
	samples        map[string]int64
	unknownSamples map[string]int64
	latencies      map[string][]time.Duration
	healthStatus   map[string]bool
	cycles         int64
	lastCycleSeq   uint64
	lastCycle      time.Duration
	availability   int
	activeUsers    int64
	startTime      time.Time
}

type Summary struct {
	Cycles              int64                      `json:"cycles"`
	LastCycleSeq        uint64                     `json:"last_cycle_seq"`
	LastCycleDuration   time.Duration              `json:"last_cycle_duration"`
	AvailabilityPercent int                        `json:"availability_percent"`
	TotalActiveUsers    int64                      `json:"total_active_users"`
	Uptime              time.Duration              `json:"uptime"`
	Instances           map[string]InstanceMetrics `json:"instances"`
}

type InstanceMetrics struct {
	Probes         int64         `json:"probes"`
	Failures       int64         `json:"failures"`
	Unreachable    int64         `json:"unreachable"`
	Samples        int64         `json:"samples"`
	UnknownSamples int64         `json:"unknown_samples"`
	Healthy        bool          `json:"healthy"`
	AvgLatency     time.Duration `json:"avg_latency"`
	P50Latency     time.Duration `json:"p50_latency"`
	P95Latency     time.Duration `json:"p95_latency"`
	P99Latency     time.Duration `json:"p99_latency"`
}

func (m *Metrics) RecordProbe(instance string, latency time.Duration, reachable, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.probes[instance]++
	if !healthy {
		m.probeFailures[instance]++
	}
	if !reachable {
		m.unreachable[instance]++
	}

	m.latencies[instance] = append(m.latencies[instance], latency)
	if len(m.latencies[instance]) > maxLatencySamples {
		m.latencies[instance] = m.latencies[instance][1:]
	}
}

func (m *Metrics) RecordSample(instance string, known bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.samples[instance]++
	if !known {
		m.unknownSamples[instance]++
	}
}

func (m *Metrics) RecordCycle(seq uint64, duration time.Duration, availability int, activeUsers int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.cycles++
	m.lastCycleSeq = seq
	m.lastCycle = duration
	m.availability = availability
	m.activeUsers = activeUsers
}

func (m *Metrics) UpdateHealthStatus(instance string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[instance] = healthy
}

func (m *Metrics) Summary() Summary {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	sum := Summary{
		Cycles:              m.cycles,
		LastCycleSeq:        m.lastCycleSeq,
		LastCycleDuration:   m.lastCycle,
		AvailabilityPercent: m.availability,
		TotalActiveUsers:    m.activeUsers,
		Uptime:              time.Since(m.startTime),
		Instances:           make(map[string]InstanceMetrics),
	}

	// Collect all known instance IDs
	all := make(map[string]bool)
	for id := range m.probes {
		all[id] = true
	}
	for id := range m.samples {
		all[id] = true
	}
	for id := range m.healthStatus {
		all[id] = true
	}

	for id := range all {
		im := InstanceMetrics{
			Probes:         m.probes[id],
			Failures:       m.probeFailures[id],
			Unreachable:    m.unreachable[id],
			Samples:        m.samples[id],
			UnknownSamples: m.unknownSamples[id],
			Healthy:        m.healthStatus[id],
		}

		durations := m.latencies[id]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			im.AvgLatency = average(sorted)
			im.P50Latency = percentile(sorted, 0.50)
			im.P95Latency = percentile(sorted, 0.95)
			im.P99Latency = percentile(sorted, 0.99)
		}

		sum.Instances[id] = im
	}

	return sum
}

func NewMetrics() *Metrics {
	return &Metrics{
		probes:         make(map[string]int64),
		probeFailures:  make(map[string]int64),
		unreachable:    make(map[string]int64),
		samples:        make(map[string]int64),
		unknownSamples: make(map[string]int64),
		latencies:      make(map[string][]time.Duration),
		healthStatus:   make(map[string]bool),
		startTime:      time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}

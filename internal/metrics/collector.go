package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventProbeCompleted  EventType = "probe_completed"
	EventSampleCompleted EventType = "sample_completed"
	EventCycleCompleted  EventType = "cycle_completed"
	EventHealthObserved  EventType = "health_observed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Instance  string
	Duration  time.Duration
	Reachable bool
	Healthy   bool
	// UsersKnown is set on sample events when active_users could be read.
	UsersKnown bool

	// Cycle events only.
	CycleSeq            uint64
	ActiveInstances     int
	TotalInstances      int
	AvailabilityPercent int
	TotalActiveUsers    int64
}

type Collector struct {
	eventCh    chan Event
	metrics    *Metrics
	prometheus *promMetrics
	logger     *slog.Logger
}

const defaultBufferSize = 1024

// NewCollector returns a collector whose event queue holds bufferSize
// events; a non-positive size uses the default.
func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Collector{
		eventCh:    make(chan Event, bufferSize),
		metrics:    NewMetrics(),
		prometheus: newPromMetrics(),
		logger:     logger,
	}
}

// Emit queues an event without blocking. It reports whether the event was
// accepted.
func (c *Collector) Emit(event Event) bool {
	if c == nil {
		return false
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
		return true
	default:
		return false
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventProbeCompleted:
		c.metrics.RecordProbe(event.Instance, event.Duration, event.Reachable, event.Healthy)
		c.prometheus.observeProbe(event)

	case EventSampleCompleted:
		c.metrics.RecordSample(event.Instance, event.UsersKnown)
		c.prometheus.observeSample(event)

	case EventCycleCompleted:
		c.metrics.RecordCycle(event.CycleSeq, event.Duration, event.AvailabilityPercent, event.TotalActiveUsers)
		c.prometheus.observeCycle(event)

	case EventHealthObserved:
		c.metrics.UpdateHealthStatus(event.Instance, event.Healthy)
		c.prometheus.observeHealth(event)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Summary() Summary {
	return c.metrics.Summary()
}

package aggregator

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/angeloszaimis/siglab-monitor/internal/instance"
	"github.com/angeloszaimis/siglab-monitor/internal/metrics"
	"github.com/angeloszaimis/siglab-monitor/internal/probe"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
	"github.com/angeloszaimis/siglab-monitor/internal/streak"
)

// HealthProber is satisfied by *probe.Prober.
type HealthProber interface {
	Probe(ctx context.Context, inst instance.Instance, timeout time.Duration) probe.Result
}

// TrafficSampler is satisfied by *probe.Sampler.
type TrafficSampler interface {
	Sample(ctx context.Context, inst instance.Instance, timeout time.Duration) probe.Sample
}

// Aggregator produces one snapshot per RunCycle call. Sequence numbers are
// private to the aggregator and increase by one per successful cycle.
type Aggregator struct {
	prober    HealthProber
	sampler   TrafficSampler
	opts      Options
	streaks   *streak.Registry
	collector *metrics.Collector
	logger    *slog.Logger
	now       func() time.Time
	seq       atomic.Uint64
}

type Option func(*Aggregator)

// WithCollector reports probe, sample and cycle events to c.
func WithCollector(c *metrics.Collector) Option {
	return func(a *Aggregator) { a.collector = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New validates opts and returns an Aggregator.
func New(prober HealthProber, sampler TrafficSampler, opts Options, options ...Option) (*Aggregator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	a := &Aggregator{
		prober:  prober,
		sampler: sampler,
		opts:    opts,
		streaks: streak.NewRegistry(opts.DownThreshold),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, o := range options {
		o(a)
	}

	if opts.SampleTimeout < opts.ProbeTimeout {
		a.logger.Warn("Sample timeout is shorter than probe timeout",
			slog.Duration("probe_timeout", opts.ProbeTimeout),
			slog.Duration("sample_timeout", opts.SampleTimeout))
	}

	return a, nil
}

// Options returns the validated options in use.
func (a *Aggregator) Options() Options {
	return a.opts
}

// RunCycle probes every instance, samples the healthy ones and folds the
// results into a new snapshot. It fails only on configuration errors, in
// which case no sequence number is consumed.
func (a *Aggregator) RunCycle(ctx context.Context, instances []instance.Instance) (snapshot.Snapshot, error) {
	if err := validateInstances(instances); err != nil {
		return snapshot.Snapshot{}, err
	}

	start := time.Now()

	results := a.probeAll(ctx, instances)

	healthy := make([]instance.Instance, 0, len(instances))
	for i, inst := range instances {
		if results[i].Reachable && results[i].Healthy {
			healthy = append(healthy, inst)
		}
	}

	samples := a.sampleAll(ctx, healthy)

	snap := a.fold(instances, results, samples)
	snap.CycleSeq = a.seq.Add(1)
	snap.GeneratedAt = a.now()
	snap.Duration = time.Since(start)

	a.collector.Emit(metrics.Event{
		Type:                metrics.EventCycleCompleted,
		CycleSeq:            snap.CycleSeq,
		Duration:            snap.Duration,
		ActiveInstances:     snap.ActiveInstanceCount,
		TotalInstances:      snap.TotalInstanceCount,
		AvailabilityPercent: snap.AvailabilityPercent,
		TotalActiveUsers:    snap.TotalActiveUsers,
	})

	a.logger.Debug("Cycle completed",
		slog.Uint64("cycle_seq", snap.CycleSeq),
		slog.Int("active", snap.ActiveInstanceCount),
		slog.Int("total", snap.TotalInstanceCount),
		slog.Int("availability_percent", snap.AvailabilityPercent),
		slog.Int64("total_active_users", snap.TotalActiveUsers),
		slog.Duration("duration", snap.Duration))

	return snap, nil
}

func (a *Aggregator) probeAll(ctx context.Context, instances []instance.Instance) []probe.Result {
	mapper := iter.Mapper[instance.Instance, probe.Result]{MaxGoroutines: a.width(len(instances))}

	return mapper.Map(instances, func(inst *instance.Instance) probe.Result {
		target := *inst
		res := settle(ctx, a.opts.ProbeTimeout,
			func(callCtx context.Context) probe.Result {
				return a.prober.Probe(callCtx, target, a.opts.ProbeTimeout)
			},
			func() probe.Result {
				return probe.Result{
					InstanceID: target.ID,
					Latency:    a.opts.ProbeTimeout,
					ObservedAt: time.Now(),
					Err:        "probe did not settle before timeout",
				}
			})

		a.collector.Emit(metrics.Event{
			Type:      metrics.EventProbeCompleted,
			Instance:  target.ID,
			Duration:  res.Latency,
			Reachable: res.Reachable,
			Healthy:   res.Reachable && res.Healthy,
		})

		return res
	})
}

func (a *Aggregator) sampleAll(ctx context.Context, healthy []instance.Instance) []probe.Sample {
	if len(healthy) == 0 {
		return nil
	}

	mapper := iter.Mapper[instance.Instance, probe.Sample]{MaxGoroutines: a.width(len(healthy))}

	return mapper.Map(healthy, func(inst *instance.Instance) probe.Sample {
		target := *inst
		s := settle(ctx, a.opts.SampleTimeout,
			func(callCtx context.Context) probe.Sample {
				return a.sampler.Sample(callCtx, target, a.opts.SampleTimeout)
			},
			func() probe.Sample {
				return probe.Sample{
					InstanceID:  target.ID,
					ActiveUsers: snapshot.Unknown,
					Latency:     a.opts.SampleTimeout,
					ObservedAt:  time.Now(),
				}
			})

		a.collector.Emit(metrics.Event{
			Type:       metrics.EventSampleCompleted,
			Instance:   target.ID,
			Duration:   s.Latency,
			UsersKnown: s.ActiveUsers.Known,
		})

		return s
	})
}

// fold combines one cycle's probe results and samples. Only instances that
// were healthy in this cycle contribute users; unknown counts add zero.
func (a *Aggregator) fold(instances []instance.Instance, results []probe.Result, samples []probe.Sample) snapshot.Snapshot {
	snap := snapshot.Snapshot{
		PerInstance:        make(map[string]snapshot.InstanceState, len(instances)),
		TotalInstanceCount: len(instances),
	}

	for i, inst := range instances {
		res := results[i]
		healthy := res.Reachable && res.Healthy
		st := a.streaks.Record(inst.ID, healthy)

		if healthy {
			snap.ActiveInstanceCount++
		}

		snap.PerInstance[inst.ID] = snapshot.InstanceState{
			Reachable:           res.Reachable,
			Healthy:             healthy,
			ActiveUsers:         snapshot.Unknown,
			Latency:             res.Latency,
			Status:              statusOf(res, st),
			ConsecutiveFailures: st.Failures,
		}

		a.collector.Emit(metrics.Event{
			Type:     metrics.EventHealthObserved,
			Instance: inst.ID,
			Healthy:  healthy,
		})

		if st.Changed {
			a.logTransition(inst, res, st)
		}
	}

	for _, s := range samples {
		state, ok := snap.PerInstance[s.InstanceID]
		if !ok || !state.Healthy {
			continue
		}

		state.ActiveUsers = s.ActiveUsers
		snap.PerInstance[s.InstanceID] = state

		if n, known := s.ActiveUsers.Value(); known {
			snap.TotalActiveUsers = addUsers(snap.TotalActiveUsers, n)
		}
	}

	snap.AvailabilityPercent = snapshot.AvailabilityPercent(snap.ActiveInstanceCount, snap.TotalInstanceCount)

	return snap
}

func (a *Aggregator) logTransition(inst instance.Instance, res probe.Result, st streak.Streak) {
	switch st.State {
	case streak.StateUp:
		a.logger.Info("Server is back up",
			slog.String("instance", inst.ID))
	case streak.StateDegraded:
		a.logger.Warn("Server is failing",
			slog.String("instance", inst.ID),
			slog.Bool("reachable", res.Reachable),
			slog.String("error", res.Err))
	case streak.StateDown:
		a.logger.Warn("Server is down",
			slog.String("instance", inst.ID),
			slog.Int("consecutive_failures", st.Failures),
			slog.String("error", res.Err))
	}
}

func statusOf(res probe.Result, st streak.Streak) snapshot.Status {
	switch {
	case res.Reachable && res.Healthy:
		return snapshot.StatusUp
	case st.State == streak.StateDown:
		return snapshot.StatusDown
	case !res.Reachable:
		return snapshot.StatusUnreachable
	default:
		return snapshot.StatusDegraded
	}
}

func (a *Aggregator) width(n int) int {
	if a.opts.MaxConcurrency > 0 && a.opts.MaxConcurrency < n {
		return a.opts.MaxConcurrency
	}
	return n
}

// addUsers sums non-negative counts, saturating at math.MaxInt64.
func addUsers(total, n int64) int64 {
	if n > math.MaxInt64-total {
		return math.MaxInt64
	}
	return total + n
}

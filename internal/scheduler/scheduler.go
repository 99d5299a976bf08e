package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/angeloszaimis/siglab-monitor/internal/instance"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
)

const DefaultMinGap = 10 * time.Millisecond

var (
	ErrInvalidInterval = errors.New("scheduler: interval must be positive")
	ErrAlreadyStarted  = errors.New("scheduler: already started")
	ErrStopped         = errors.New("scheduler: stopped")
)

// CycleRunner is satisfied by *aggregator.Aggregator.
type CycleRunner interface {
	RunCycle(ctx context.Context, instances []instance.Instance) (snapshot.Snapshot, error)
}

// Publisher is satisfied by *snapshot.Store.
type Publisher interface {
	Publish(s snapshot.Snapshot) error
}

// Observer is told about every published snapshot. Notify runs on the
// scheduler goroutine and must return promptly.
type Observer interface {
	Notify(s snapshot.Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s snapshot.Snapshot)

func (f ObserverFunc) Notify(s snapshot.Snapshot) { f(s) }

type Option func(*Scheduler)

// WithMinGap sets the minimum pause between the end of one cycle and the
// start of the next.
func WithMinGap(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.minGap = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observers = append(s.observers, o) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

type Scheduler struct {
	runner    CycleRunner
	store     Publisher
	instances []instance.Instance
	interval  time.Duration
	minGap    time.Duration
	observers []Observer
	logger    *slog.Logger

	mu       sync.Mutex
	started  bool
	stopped  bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error
}

// New returns a scheduler that runs cycles over instances every interval.
// The instance set is copied and fixed for the scheduler's lifetime.
func New(runner CycleRunner, store Publisher, instances []instance.Instance, interval time.Duration, opts ...Option) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidInterval, interval)
	}

	s := &Scheduler{
		runner:    runner,
		store:     store,
		instances: append([]instance.Instance(nil), instances...),
		interval:  interval,
		minGap:    DefaultMinGap,
		logger:    slog.Default(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	return s, nil
}

// Start launches the cycle loop and returns immediately. The first cycle
// starts at once. Cancelling ctx stops the loop like Stop does.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	s.logger.Info("Scheduler started",
		slog.Int("instances", len(s.instances)),
		slog.Duration("interval", s.interval),
		slog.Duration("min_gap", s.minGap))

	go s.loop(ctx)

	return nil
}

// Run starts the loop and blocks until it ends. It returns nil after a
// graceful stop and the halting error after a configuration failure.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-s.done
	return s.Err()
}

// Stop asks the loop to end and waits for any in-flight cycle to finish and
// be published. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	started := s.started
	s.stopped = true
	s.mu.Unlock()

	s.stopOnce.Do(func() {
		close(s.stop)
		if !started {
			close(s.done)
		}
	})

	<-s.done
}

// Done is closed once the loop has ended.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Err reports the configuration error that halted the loop, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	cycleCtx := context.WithoutCancel(ctx)

	for {
		if s.halted(ctx) {
			return
		}

		start := time.Now()
		snap, err := s.runner.RunCycle(cycleCtx, s.instances)
		end := time.Now()

		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()

			s.logger.Error("Scheduler halted",
				slog.String("error", err.Error()))
			return
		}

		s.publish(snap)

		next := start.Add(s.interval)
		if floor := end.Add(s.minGap); floor.After(next) {
			if end.Sub(start) > s.interval {
				s.logger.Warn("Cycle overran interval",
					slog.Uint64("cycle_seq", snap.CycleSeq),
					slog.Duration("duration", end.Sub(start)),
					slog.Duration("interval", s.interval))
			}
			next = floor
		}

		if s.halted(ctx) {
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.stop:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// halted reports whether Stop was called or ctx is done. A stop request
// always wins over a timer that is already due.
func (s *Scheduler) halted(ctx context.Context) bool {
	select {
	case <-s.stop:
		s.logger.Info("Scheduler stopped")
		return true
	default:
	}

	select {
	case <-ctx.Done():
		s.logger.Info("Scheduler stopped",
			slog.String("reason", ctx.Err().Error()))
		return true
	default:
	}

	return false
}

func (s *Scheduler) publish(snap snapshot.Snapshot) {
	if err := s.store.Publish(snap); err != nil {
		s.logger.Warn("Snapshot rejected",
			slog.Uint64("cycle_seq", snap.CycleSeq),
			slog.String("error", err.Error()))
		return
	}

	for _, o := range s.observers {
		s.notify(o, snap)
	}
}

func (s *Scheduler) notify(o Observer, snap snapshot.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Observer panicked",
				slog.Any("panic", r))
		}
	}()
	o.Notify(snap.Clone())
}

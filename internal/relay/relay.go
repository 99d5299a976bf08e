package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angeloszaimis/siglab-monitor/internal/display"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
)

const DefaultSendTimeout = time.Second

// Sink receives encoded messages.
type Sink interface {
	Name() string
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Message is the wire form of one relayed snapshot.
type Message struct {
	Snapshot snapshot.Snapshot `json:"snapshot"`
	View     display.ViewModel `json:"view"`
}

// Encode renders s as a JSON Message.
func Encode(s snapshot.Snapshot) ([]byte, error) {
	data, err := json.Marshal(Message{Snapshot: s, View: display.ToViewModel(s)})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %d: %w", s.CycleSeq, err)
	}
	return data, nil
}

// Stats counts relay outcomes since start.
type Stats struct {
	Delivered uint64 `json:"delivered"`
	Replaced  uint64 `json:"replaced"`
	Failed    uint64 `json:"failed"`
}

type Relay struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
	pending chan snapshot.Snapshot
	done    chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool

	delivered atomic.Uint64
	replaced  atomic.Uint64
	failed    atomic.Uint64
}

// New returns a relay that sends to sinks, giving each send at most timeout.
func New(logger *slog.Logger, timeout time.Duration, sinks ...Sink) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	return &Relay{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "relay")),
		pending: make(chan snapshot.Snapshot, 1),
		done:    make(chan struct{}),
	}
}

// Notify queues s for delivery, replacing any snapshot still waiting. It
// never blocks.
func (r *Relay) Notify(s snapshot.Snapshot) {
	for {
		select {
		case r.pending <- s:
			return
		default:
		}

		select {
		case <-r.pending:
			r.replaced.Add(1)
		default:
		}
	}
}

// Start runs the delivery loop in the background until ctx is done or the
// relay is closed. Calls after the first are ignored.
func (r *Relay) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	go r.run(ctx)
}

// Done is closed when the delivery loop has exited.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

func (r *Relay) run(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-r.pending:
			r.deliver(ctx, s)
		}
	}
}

func (r *Relay) deliver(ctx context.Context, s snapshot.Snapshot) {
	payload, err := Encode(s)
	if err != nil {
		r.failed.Add(1)
		r.logger.Error("Failed to encode snapshot",
			slog.String("error", err.Error()))
		return
	}

	for _, sink := range r.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := sink.Send(sendCtx, payload)
		cancel()

		if err != nil {
			r.failed.Add(1)
			r.logger.Warn("Failed to relay snapshot",
				slog.String("sink", sink.Name()),
				slog.Uint64("cycle_seq", s.CycleSeq),
				slog.String("error", err.Error()))
			continue
		}
		r.delivered.Add(1)
	}
}

func (r *Relay) Stats() Stats {
	return Stats{
		Delivered: r.delivered.Load(),
		Replaced:  r.replaced.Load(),
		Failed:    r.failed.Load(),
	}
}

// Close stops the delivery loop, waits for any send in progress to return,
// then closes every sink.
func (r *Relay) Close() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-r.done
	}

	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/angeloszaimis/siglab-monitor/internal/instance"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
)

// Sample is the outcome of one traffic statistics request.
type Sample struct {
	InstanceID  string
	ActiveUsers snapshot.Users
	Latency     time.Duration
	ObservedAt  time.Time
}

type statsBody struct {
	ActiveUsers json.RawMessage `json:"active_users"`
}

// Sampler reads instance traffic statistics.
type Sampler struct {
	client *http.Client
	logger *slog.Logger
}

// NewSampler returns a Sampler using client, or a polling client if nil.
func NewSampler(client *http.Client, logger *slog.Logger) *Sampler {
	if client == nil {
		client = NewHTTPClient()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Sampler{client: client, logger: logger}
}

// Sample sends one GET to the instance's stats URL and reads active_users.
// Any failure leaves the count unknown rather than zero.
func (s *Sampler) Sample(ctx context.Context, inst instance.Instance, timeout time.Duration) Sample {
	start := time.Now()
	res, err := fetch(ctx, s.client, inst.StatsURL, timeout)

	sample := Sample{
		InstanceID:  inst.ID,
		ActiveUsers: snapshot.Unknown,
		Latency:     time.Since(start),
		ObservedAt:  time.Now(),
	}

	if err == nil && !res.ok() {
		err = fmt.Errorf("unexpected status %d", res.statusCode)
	}
	if err != nil {
		s.logger.Debug("Traffic sample unavailable",
			slog.String("instance", inst.ID),
			slog.String("url", inst.StatsURL),
			slog.String("error", err.Error()))
		return sample
	}

	var body statsBody
	if err := json.Unmarshal(res.body, &body); err != nil {
		return sample
	}

	if n, ok := parseActiveUsers(body.ActiveUsers); ok {
		sample.ActiveUsers = snapshot.KnownUsers(n)
	}

	return sample
}

// parseActiveUsers accepts only a non-negative integral JSON number.
func parseActiveUsers(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}

	f, ok := v.(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f >= 1<<63 {
		return 0, false
	}

	return int64(f), true
}

package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/siglab-monitor/internal/instance"
)

const statusOK = "ok"

// Result is the outcome of one health probe. Healthy is meaningful only when
// Reachable is true.
type Result struct {
	InstanceID string
	Reachable  bool
	Healthy    bool
	StatusCode int
	Latency    time.Duration
	ObservedAt time.Time
	Err        string
}

type healthBody struct {
	Status *string `json:"status"`
}

// Prober checks instance health endpoints.
type Prober struct {
	client *http.Client
	logger *slog.Logger
}

// NewProber returns a Prober using client, or a polling client if nil.
func NewProber(client *http.Client, logger *slog.Logger) *Prober {
	if client == nil {
		client = NewHTTPClient()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Prober{client: client, logger: logger}
}

// Probe sends one GET to the instance's health URL. The instance is healthy
// only if it answers 2xx with a JSON body whose status field is "ok".
func (p *Prober) Probe(ctx context.Context, inst instance.Instance, timeout time.Duration) Result {
	start := time.Now()
	res, err := fetch(ctx, p.client, inst.HealthURL, timeout)

	result := Result{
		InstanceID: inst.ID,
		Latency:    time.Since(start),
		ObservedAt: time.Now(),
	}

	if res == nil {
		result.Err = err.Error()
		p.logger.Debug("Health probe failed",
			slog.String("instance", inst.ID),
			slog.String("url", inst.HealthURL),
			slog.String("error", result.Err))
		return result
	}

	result.Reachable = true
	result.StatusCode = res.statusCode

	if err != nil {
		result.Err = err.Error()
		return result
	}

	if !res.ok() {
		result.Err = fmt.Sprintf("unexpected status %d", res.statusCode)
		return result
	}

	var body healthBody
	if err := json.Unmarshal(res.body, &body); err != nil {
		result.Err = fmt.Sprintf("decode health body: %v", err)
		return result
	}

	if body.Status == nil || *body.Status != statusOK {
		result.Err = "status field is not ok"
		return result
	}

	result.Healthy = true
	return result
}

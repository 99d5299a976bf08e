package scheduler_test

import (
	"context"
	"time"

	"github.com/angeloszaimis/siglab-monitor/internal/instance"
	"github.com/angeloszaimis/siglab-monitor/internal/probe"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
)

// stubBackend answers every probe as healthy with three users.
type stubBackend struct{}

func (stubBackend) Probe(_ context.Context, inst instance.Instance, _ time.Duration) probe.Result {
	return probe.Result{InstanceID: inst.ID, Reachable: true, Healthy: true}
}

func (stubBackend) Sample(_ context.Context, inst instance.Instance, _ time.Duration) probe.Sample {
	return probe.Sample{InstanceID: inst.ID, ActiveUsers: snapshot.KnownUsers(3)}
}

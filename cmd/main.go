package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/siglab-monitor/config"
	"github.com/angeloszaimis/siglab-monitor/internal/aggregator"
	"github.com/angeloszaimis/siglab-monitor/internal/handler"
	"github.com/angeloszaimis/siglab-monitor/internal/httpserver"
	"github.com/angeloszaimis/siglab-monitor/internal/metrics"
	"github.com/angeloszaimis/siglab-monitor/internal/probe"
	"github.com/angeloszaimis/siglab-monitor/internal/relay"
	"github.com/angeloszaimis/siglab-monitor/internal/scheduler"
	"github.com/angeloszaimis/siglab-monitor/internal/snapshot"
	"github.com/angeloszaimis/siglab-monitor/internal/tui"
	"github.com/angeloszaimis/siglab-monitor/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search ./config and .)")
	withTUI := flag.Bool("tui", false, "draw the terminal dashboard")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}
	if *withTUI {
		cfg.Display.TUI = true
	}

	out, closeOut, err := logOutput(cfg)
	if err != nil {
		slog.Error("failed to open log file", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeOut()

	log := logger.New(cfg.Logging.Level, cfg.Logging.AddSource, cfg.Server.Environment, out)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize monitor", slog.Any("err", err))
		os.Exit(1)
	}

	if err := a.run(ctx); err != nil {
		log.Error("Monitor stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

// logOutput picks where logs go. The terminal dashboard owns stdout, so
// without a log file its logs are discarded.
func logOutput(cfg *config.Config) (io.Writer, func(), error) {
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}
	if cfg.Display.TUI {
		return io.Discard, func() {}, nil
	}
	return os.Stdout, func() {}, nil
}

type app struct {
	log       *slog.Logger
	store     *snapshot.Store
	collector *metrics.Collector
	scheduler *scheduler.Scheduler
	relay     *relay.Relay
	server    *httpserver.Server
	ui        *tui.UI
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	timings, err := cfg.MonitorTimings()
	if err != nil {
		return nil, err
	}

	instances, err := cfg.InstanceSet()
	if err != nil {
		return nil, err
	}

	a := &app{
		log:       log,
		store:     snapshot.NewStore(),
		collector: metrics.NewCollector(cfg.Monitor.MetricsBuffer, logger.Component(log, "metrics")),
	}

	client := probe.NewHTTPClient()
	agg, err := aggregator.New(
		probe.NewProber(client, logger.Component(log, "probe")),
		probe.NewSampler(client, logger.Component(log, "sampler")),
		aggregator.Options{
			ProbeTimeout:   timings.ProbeTimeout,
			SampleTimeout:  timings.SampleTimeout,
			MaxConcurrency: cfg.Monitor.MaxConcurrency,
			DownThreshold:  cfg.Monitor.DownThreshold,
		},
		aggregator.WithCollector(a.collector),
		aggregator.WithLogger(logger.Component(log, "aggregator")),
	)
	if err != nil {
		return nil, err
	}

	schedOpts := []scheduler.Option{
		scheduler.WithMinGap(timings.MinCycleGap),
		scheduler.WithLogger(logger.Component(log, "scheduler")),
	}

	sinks := buildSinks(ctx, cfg, timings, log)
	if len(sinks) > 0 {
		a.relay = relay.New(log, timings.ProbeTimeout+timings.SampleTimeout, sinks...)
		schedOpts = append(schedOpts, scheduler.WithObserver(a.relay))
	}

	a.scheduler, err = scheduler.New(agg, a.store, instances, timings.CycleInterval, schedOpts...)
	if err != nil {
		return nil, err
	}

	api := handler.NewAPIHandler(logger.Component(log, "api"), a.store, timings.StaleAfter)
	router := setupRouter(api, a.collector, logger.Component(log, "http"), cfg.Server.CORSOrigin)

	a.server, err = httpserver.New(cfg.Server.Address, router)
	if err != nil {
		return nil, fmt.Errorf("server address: %w", err)
	}

	if cfg.Display.TUI {
		a.ui = tui.New(a.store, timings.DisplayRefresh, timings.StaleAfter)
	}

	log.Info("Monitor configured",
		slog.Int("instances", len(instances)),
		slog.Duration("cycle_interval", timings.CycleInterval),
		slog.Duration("probe_timeout", timings.ProbeTimeout),
		slog.Duration("sample_timeout", timings.SampleTimeout),
		slog.Int("sinks", len(sinks)))

	return a, nil
}

// buildSinks connects the enabled relay sinks. A sink that cannot connect
// is skipped so the monitor still runs without it.
func buildSinks(ctx context.Context, cfg *config.Config, timings config.Timings, log *slog.Logger) []relay.Sink {
	var sinks []relay.Sink

	if cfg.Redis.Enabled {
		client, err := relay.DialRedis(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("Running without Redis mirror", slog.Any("err", err))
		} else {
			log.Info("Connected to Redis", slog.String("address", cfg.Redis.Address))
			sinks = append(sinks, relay.NewRedisSink(client, cfg.Redis.Key, timings.RedisTTL))
		}
	}

	if cfg.NATS.Enabled {
		conn, err := relay.DialNATS(cfg.NATS.URL, logger.Component(log, "nats"))
		if err != nil {
			log.Warn("Running without NATS relay", slog.Any("err", err))
		} else {
			sinks = append(sinks, relay.NewNATSSink(conn, cfg.NATS.Subject))
		}
	}

	return sinks
}

func (a *app) run(ctx context.Context) error {
	a.collector.Start(ctx)
	if a.relay != nil {
		a.relay.Start(ctx)
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}

	srvErrCh := make(chan error, 1)
	go func() {
		a.log.Info("API listening", slog.String("address", a.server.Addr()))
		srvErrCh <- a.server.Start()
	}()

	uiDone := make(chan error, 1)
	if a.ui != nil {
		go func() { uiDone <- a.ui.Run(ctx) }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("Shutting down gracefully...")
	case err := <-srvErrCh:
		if err != nil {
			runErr = fmt.Errorf("api server: %w", err)
		}
	case <-a.scheduler.Done():
		runErr = a.scheduler.Err()
	case err := <-uiDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = fmt.Errorf("terminal dashboard: %w", err)
		}
		a.log.Info("Terminal dashboard closed")
	}

	return errors.Join(runErr, a.shutdown())
}

func (a *app) shutdown() error {
	a.scheduler.Stop()

	var errs []error
	if err := a.server.Shutdown(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("api shutdown: %w", err))
	}
	if a.relay != nil {
		if err := a.relay.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

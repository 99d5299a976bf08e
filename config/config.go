package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/siglab-monitor/internal/instance"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
	CORSOrigin  string `mapstructure:"cors_origin"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
	// File receives log output instead of stdout. The terminal dashboard
	// needs this because it owns the screen.
	File string `mapstructure:"file"`
}

type MonitorConfig struct {
	CycleInterval  string `mapstructure:"cycle_interval"`
	ProbeTimeout   string `mapstructure:"probe_timeout"`
	SampleTimeout  string `mapstructure:"sample_timeout"`
	MinCycleGap    string `mapstructure:"min_cycle_gap"`
	StaleAfter     string `mapstructure:"stale_after"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	DownThreshold  int    `mapstructure:"down_threshold"`
	MetricsBuffer  int    `mapstructure:"metrics_buffer"`
}

// InstanceConfig names one backend. Either URL (with optional paths) or both
// explicit endpoint URLs must be set; explicit URLs win.
type InstanceConfig struct {
	ID         string `mapstructure:"id"`
	URL        string `mapstructure:"url"`
	HealthPath string `mapstructure:"health_path"`
	StatsPath  string `mapstructure:"stats_path"`
	HealthURL  string `mapstructure:"health_url"`
	StatsURL   string `mapstructure:"stats_url"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
	TTL      string `mapstructure:"ttl"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type DisplayConfig struct {
	TUI     bool   `mapstructure:"tui"`
	Refresh string `mapstructure:"refresh"`
}

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Monitor   MonitorConfig    `mapstructure:"monitor"`
	Instances []InstanceConfig `mapstructure:"instances"`
	Redis     RedisConfig      `mapstructure:"redis"`
	NATS      NATSConfig       `mapstructure:"nats"`
	Display   DisplayConfig    `mapstructure:"display"`
}

// Timings holds the parsed monitor durations.
type Timings struct {
	CycleInterval  time.Duration
	ProbeTimeout   time.Duration
	SampleTimeout  time.Duration
	MinCycleGap    time.Duration
	StaleAfter     time.Duration
	RedisTTL       time.Duration
	DisplayRefresh time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8090")
	v.SetDefault("server.cors_origin", "")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.file", "")

	v.SetDefault("monitor.cycle_interval", "1500ms")
	v.SetDefault("monitor.probe_timeout", "200ms")
	v.SetDefault("monitor.sample_timeout", "200ms")
	v.SetDefault("monitor.min_cycle_gap", "10ms")
	v.SetDefault("monitor.stale_after", "5s")
	v.SetDefault("monitor.max_concurrency", 0)
	v.SetDefault("monitor.down_threshold", 3)
	v.SetDefault("monitor.metrics_buffer", 1024)

	v.SetDefault("instances", []map[string]any{
		{"id": "backend-1", "url": "http://localhost/api1"},
		{"id": "backend-2", "url": "http://localhost/api2"},
		{"id": "backend-3", "url": "http://localhost/api3"},
	})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "siglab:health:snapshot")
	v.SetDefault("redis.ttl", "30s")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "siglab.health.snapshot")
	v.SetDefault("display.tui", false)
	v.SetDefault("display.refresh", "500ms")
}

// Load reads config.yaml from ./config or the working directory, then
// applies environment overrides such as MONITOR_CYCLE_INTERVAL.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit file. An empty path searches the
// default locations and tolerates a missing file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server, validation.Required, validation.By(validateServer)),
		validation.Field(&c.Logging, validation.Required, validation.By(validateLogging)),
		validation.Field(&c.Monitor, validation.Required, validation.By(validateMonitor)),
		validation.Field(&c.Instances,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateInstanceConfig)),
			validation.By(uniqueInstanceIDs),
		),
		validation.Field(&c.Redis, validation.By(validateRedis)),
		validation.Field(&c.NATS, validation.By(validateNATS)),
		validation.Field(&c.Display, validation.By(validateDisplay)),
	)
}

// MonitorTimings parses every configured duration. It only fails on a
// config that did not pass Validate.
func (c *Config) MonitorTimings() (Timings, error) {
	var (
		t    Timings
		errs []string
	)
	parse := func(name, value string, dst *time.Duration) {
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*dst = d
	}

	parse("monitor.cycle_interval", c.Monitor.CycleInterval, &t.CycleInterval)
	parse("monitor.probe_timeout", c.Monitor.ProbeTimeout, &t.ProbeTimeout)
	parse("monitor.sample_timeout", c.Monitor.SampleTimeout, &t.SampleTimeout)
	parse("monitor.min_cycle_gap", c.Monitor.MinCycleGap, &t.MinCycleGap)
	parse("monitor.stale_after", c.Monitor.StaleAfter, &t.StaleAfter)
	parse("redis.ttl", c.Redis.TTL, &t.RedisTTL)
	parse("display.refresh", c.Display.Refresh, &t.DisplayRefresh)

	if len(errs) > 0 {
		return Timings{}, fmt.Errorf("invalid durations: %s", strings.Join(errs, "; "))
	}
	return t, nil
}

// InstanceSet builds the validated instance list in configuration order.
func (c *Config) InstanceSet() ([]instance.Instance, error) {
	out := make([]instance.Instance, 0, len(c.Instances))
	for _, ic := range c.Instances {
		inst, err := ic.build()
		if err != nil {
			return nil, fmt.Errorf("instance %q: %w", ic.ID, err)
		}
		out = append(out, inst)
	}
	return out, nil
}

func (ic InstanceConfig) build() (instance.Instance, error) {
	if ic.HealthURL != "" && ic.StatsURL != "" {
		return instance.New(ic.ID, ic.HealthURL, ic.StatsURL)
	}
	return instance.FromBase(ic.ID, ic.URL, ic.HealthPath, ic.StatsPath)
}

func validateServer(value interface{}) error {
	sc, ok := value.(ServerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ServerConfig")
	}
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&sc.Address,
			validation.Required,
			validation.By(validateHostPort),
		),
	)
}

func validateLogging(value interface{}) error {
	lc, ok := value.(LoggingConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
	}
	return validation.ValidateStruct(&lc,
		validation.Field(&lc.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func validateMonitor(value interface{}) error {
	mc, ok := value.(MonitorConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a MonitorConfig")
	}
	return validation.ValidateStruct(&mc,
		validation.Field(&mc.CycleInterval, validation.Required, validation.By(positiveDuration)),
		validation.Field(&mc.ProbeTimeout, validation.Required, validation.By(positiveDuration)),
		validation.Field(&mc.SampleTimeout, validation.Required, validation.By(positiveDuration)),
		validation.Field(&mc.MinCycleGap, validation.By(validateDuration)),
		validation.Field(&mc.StaleAfter, validation.By(validateDuration)),
		validation.Field(&mc.MaxConcurrency, validation.Min(0)),
		validation.Field(&mc.DownThreshold, validation.Required, validation.Min(1)),
		validation.Field(&mc.MetricsBuffer, validation.Min(0)),
	)
}

func validateInstanceConfig(value interface{}) error {
	ic, ok := value.(InstanceConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an InstanceConfig")
	}

	explicit := ic.HealthURL != "" || ic.StatsURL != ""
	err := validation.ValidateStruct(&ic,
		validation.Field(&ic.ID, validation.Required),
		validation.Field(&ic.URL,
			validation.When(!explicit, validation.Required),
			validation.By(validateServerURL),
		),
		validation.Field(&ic.HealthURL,
			validation.When(explicit, validation.Required),
			validation.By(validateServerURL),
		),
		validation.Field(&ic.StatsURL,
			validation.When(explicit, validation.Required),
			validation.By(validateServerURL),
		),
	)
	if err != nil {
		return err
	}

	if _, err := ic.build(); err != nil {
		return validation.NewError("validation_invalid_instance", err.Error())
	}
	return nil
}

func uniqueInstanceIDs(value interface{}) error {
	instances, ok := value.([]InstanceConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of instances")
	}

	seen := make(map[string]struct{}, len(instances))
	for _, ic := range instances {
		id := strings.TrimSpace(ic.ID)
		if _, dup := seen[id]; dup {
			return validation.NewError("validation_duplicate_id", fmt.Sprintf("duplicate instance id %q", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

func validateRedis(value interface{}) error {
	rc, ok := value.(RedisConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RedisConfig")
	}
	return validation.ValidateStruct(&rc,
		validation.Field(&rc.Address,
			validation.When(rc.Enabled, validation.Required, validation.By(validateHostPort)),
		),
		validation.Field(&rc.Key, validation.When(rc.Enabled, validation.Required)),
		validation.Field(&rc.TTL, validation.By(validateDuration)),
		validation.Field(&rc.DB, validation.Min(0)),
	)
}

func validateNATS(value interface{}) error {
	nc, ok := value.(NATSConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a NATSConfig")
	}
	return validation.ValidateStruct(&nc,
		validation.Field(&nc.URL,
			validation.When(nc.Enabled, validation.Required, validation.By(validateNATSURL)),
		),
		validation.Field(&nc.Subject,
			validation.When(nc.Enabled, validation.Required),
		),
	)
}

// validateNATSURL accepts the client's comma-separated server list.
func validateNATSURL(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	for _, server := range strings.Split(raw, ",") {
		u, err := url.Parse(strings.TrimSpace(server))
		if err != nil || u.Host == "" {
			return validation.NewError("validation_invalid_url", "must be a list of nats://host:port URLs")
		}
		switch u.Scheme {
		case "nats", "tls", "ws", "wss":
		default:
			return validation.NewError("validation_invalid_scheme", "URL must use nats, tls, ws or wss scheme")
		}
	}
	return nil
}

func validateDisplay(value interface{}) error {
	dc, ok := value.(DisplayConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a DisplayConfig")
	}
	return validation.ValidateStruct(&dc,
		validation.Field(&dc.Refresh, validation.By(validateDuration)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if durationStr == "" {
		return nil
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 200ms, 2s, 5m)")
	}
	if d < 0 {
		return validation.NewError("validation_negative_duration", "must not be negative")
	}

	return nil
}

func positiveDuration(value interface{}) error {
	if err := validateDuration(value); err != nil {
		return err
	}
	if d, _ := time.ParseDuration(value.(string)); d <= 0 {
		return validation.NewError("validation_nonpositive_duration", "must be greater than zero")
	}
	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if serverURL == "" {
		return nil
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

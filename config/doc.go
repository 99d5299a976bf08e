// Package config loads the monitor's configuration from a YAML file and
// environment variables and validates it. Durations are kept as strings in
// the file and parsed once through MonitorTimings.
package config

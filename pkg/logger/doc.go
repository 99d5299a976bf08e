// Package logger builds the application's structured slog logger. Production
// environments get JSON output, everything else gets text.
package logger

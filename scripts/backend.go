// Backend is a stand-in SIGLAB API instance for exercising the monitor.
// It serves /api/health and /api/traffic/stats and can misbehave on demand.
//
// Usage:
//
//	go run ./scripts -port 8081 -users 25
//	go run ./scripts -port 8082 -down
//	go run ./scripts -port 8083 -slow 500ms
//	go run ./scripts -port 8084 -malformed
//
// Sending SIGUSR1 toggles the down flag of a running backend.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/angeloszaimis/siglab-monitor/pkg/logger"
)

type backend struct {
	log       *slog.Logger
	down      atomic.Bool
	slow      time.Duration
	malformed bool
	users     int
	jitter    int
}

func (b *backend) health(w http.ResponseWriter, r *http.Request) {
	b.pause()

	status := "ok"
	if b.down.Load() {
		status = "down"
	}

	b.log.Debug("health request", slog.String("from", r.RemoteAddr), slog.String("status", status))
	writeJSON(w, map[string]string{"status": status})
}

func (b *backend) stats(w http.ResponseWriter, r *http.Request) {
	b.pause()

	if b.malformed {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"active_users": "many"`))
		return
	}

	users := b.users
	if b.jitter > 0 {
		users += rand.Intn(2*b.jitter+1) - b.jitter
		users = max(users, 0)
	}

	writeJSON(w, map[string]any{
		"active_users": users,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (b *backend) pause() {
	if b.slow > 0 {
		time.Sleep(b.slow)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	down := flag.Bool("down", false, `report status "down" on /api/health`)
	slow := flag.Duration("slow", 0, "delay every response by this long")
	malformed := flag.Bool("malformed", false, "serve a truncated stats body")
	users := flag.Int("users", 10, "active users to report")
	jitter := flag.Int("jitter", 0, "vary the user count by up to this much")
	flag.Parse()

	b := &backend{
		log:       logger.New("debug", false, "dev", os.Stdout),
		slow:      *slow,
		malformed: *malformed,
		users:     *users,
		jitter:    *jitter,
	}
	b.down.Store(*down)

	toggle := make(chan os.Signal, 1)
	signal.Notify(toggle, syscall.SIGUSR1)
	go func() {
		for range toggle {
			now := !b.down.Load()
			b.down.Store(now)
			b.log.Info("toggled down flag", slog.Bool("down", now))
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", b.health)
	mux.HandleFunc("GET /api/traffic/stats", b.stats)

	addr := fmt.Sprintf(":%d", *port)
	b.log.Info("starting backend",
		slog.String("address", addr),
		slog.Bool("down", *down),
		slog.Duration("slow", *slow),
		slog.Bool("malformed", *malformed))

	if err := http.ListenAndServe(addr, mux); err != nil {
		b.log.Error("server failed", slog.Any("err", err))
		os.Exit(1)
	}
}

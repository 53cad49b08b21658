package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/bitway/bitway-api/internal/api/problem"
	"github.com/redis/go-redis/v9"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type dependency struct {
	name  string
	check Pinger
}

// HealthHandler serves liveness and readiness probes. Readiness reports each dependency.
type HealthHandler struct {
	deps    []dependency
	timeout time.Duration
}

// NewHealthHandler checks Postgres and, when the cache is enabled, Redis.
func NewHealthHandler(db Pinger, cache *redis.Client) *HealthHandler {
	h := &HealthHandler{deps: []dependency{{name: "postgres", check: db}}, timeout: time.Second}
	if cache != nil {
		h.deps = append(h.deps, dependency{name: "redis", check: PingFunc(func(ctx context.Context) error {
			return cache.Ping(ctx).Err()
		})})
	}
	return h
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, r, http.StatusOK, "alive", map[string]string{"status": "alive"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	ready := true
	for _, d := range h.deps {
		if err := d.check.Ping(ctx); err != nil {
			checks[d.name] = "unavailable"
			ready = false
			continue
		}
		checks[d.name] = "ok"
	}
	if !ready {
		problem.Write(w, r, http.StatusServiceUnavailable, "health/not-ready", "Service not ready", checks)
		return
	}
	RespondJSON(w, r, http.StatusOK, "ready", map[string]any{"status": "ready", "checks": checks})
}

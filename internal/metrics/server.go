package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus is the /healthz response body.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker aggregates named health checks, each reporting nil for
// healthy or an error describing why it isn't.
type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]func() error
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: map[string]func() error{}}
}

func (h *HealthChecker) Register(name string, check func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *HealthChecker) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		defer h.mu.RUnlock()

		status := HealthStatus{Status: "healthy", Timestamp: time.Now().UTC().Format(time.RFC3339), Checks: map[string]string{}}
		for name, check := range h.checks {
			if err := check(); err != nil {
				status.Status = "unhealthy"
				status.Checks[name] = err.Error()
			} else {
				status.Checks[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}

// Server exposes /healthz and /metrics on a small admin HTTP surface,
// separate from the per-record EMF path sinks consume.
type Server struct {
	http   *http.Server
	health *HealthChecker
}

func NewServer(addr string, health *HealthChecker) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", health.handler())
	r.Handle("/metrics", promhttp.Handler())

	return &Server{
		http:   &http.Server{Addr: addr, Handler: r},
		health: health,
	}
}

// ListenAndServe blocks until the server stops or ctx's parent cancels it
// via Shutdown; errors other than http.ErrServerClosed are returned.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

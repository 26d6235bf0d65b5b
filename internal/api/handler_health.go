package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ryanbastic/go-chronos/internal/metrics"
)

const readinessTimeout = 3 * time.Second

// Pinger is satisfied by *pgxpool.Pool, the Redis revocation store, and the
// Cloudinary avatar store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend is a dependency checked by /api/readyz. A failing optional
// backend marks the service degraded; a failing required one makes it
// unavailable.
type Backend struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

// Readiness states.
const (
	StatusOK          = "ok"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	backends []Backend
	logger   *slog.Logger
}

func NewHealthHandler(backends []Backend, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{backends: backends, logger: logger}
}

type backendStatus struct {
	Status    string `json:"status"`
	Optional  bool   `json:"optional,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type readyzResponse struct {
	Status   string                   `json:"status"`
	Backends map[string]backendStatus `json:"backends,omitempty"`
}

// Livez reports that the process is serving HTTP.
func (h *HealthHandler) Livez(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": StatusOK})
}

// Readyz pings every backend concurrently. Any required backend failing
// answers 503; only optional ones failing answers 200 with status degraded.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	statuses := make([]backendStatus, len(h.backends))
	var wg sync.WaitGroup
	for i, b := range h.backends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses[i] = ping(ctx, b)
		}()
	}
	wg.Wait()

	resp := readyzResponse{Status: StatusOK}
	if len(h.backends) > 0 {
		resp.Backends = make(map[string]backendStatus, len(h.backends))
	}
	var failed []string
	for i, b := range h.backends {
		st := statuses[i]
		resp.Backends[b.Name] = st
		metrics.BackendUp(b.Name, st.Status == StatusOK)
		if st.Status == StatusOK {
			continue
		}
		failed = append(failed, b.Name)
		switch {
		case !b.Optional:
			resp.Status = StatusUnavailable
		case resp.Status == StatusOK:
			resp.Status = StatusDegraded
		}
	}

	status := http.StatusOK
	switch resp.Status {
	case StatusUnavailable:
		status = http.StatusServiceUnavailable
		h.logger.Warn("readiness check failed", "failed", failed, "backends", resp.Backends)
	case StatusDegraded:
		h.logger.Info("readiness degraded", "failed", failed)
	}
	writeJSON(w, status, resp)
}

func ping(ctx context.Context, b Backend) backendStatus {
	start := time.Now()
	err := b.Pinger.Ping(ctx)
	st := backendStatus{
		Status:    StatusOK,
		Optional:  b.Optional,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		st.Status = "error"
		st.Error = err.Error()
	}
	return st
}

package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"
)

const healthCheckTimeout = 2 * time.Second

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Probe checks one backing component. Its error text is never sent to clients.
type Probe func(ctx context.Context) error

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	DurationMs int64        `json:"duration_ms"`
}

type HealthHandler struct {
	names  []string
	probes map[string]Probe
}

// NewHealthHandler always probes the database. extra adds components such as
// the shared module cache.
func NewHealthHandler(db *sql.DB, extra map[string]Probe) *HealthHandler {
	probes := map[string]Probe{"database": pingDB(db)}
	for name, p := range extra {
		probes[name] = p
	}
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return &HealthHandler{names: names, probes: probes}
}

func pingDB(db *sql.DB) Probe {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("no database configured")
		}
		return db.PingContext(ctx)
	}
}

func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]string{"status": "OK"})
}

// healthCheckHandler runs every probe in turn; any failure makes the whole
// service unhealthy.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     HealthHealthy,
		Components: make(map[string]CheckEntry, len(h.names)),
	}
	for _, name := range h.names {
		entry := h.run(r.Context(), name)
		if entry.Status == HealthUnhealthy {
			resp.Status = HealthUnhealthy
		}
		resp.Components[name] = entry
	}
	resp.CheckedAt = time.Now()

	status := http.StatusOK
	if resp.Status == HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeHealth(w, status, resp)
}

func (h *HealthHandler) run(ctx context.Context, name string) CheckEntry {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	started := time.Now()
	err := h.probes[name](ctx)
	entry := CheckEntry{Status: HealthHealthy, DurationMs: time.Since(started).Milliseconds()}
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		entry.Status, entry.Message = HealthUnhealthy, name+" check timed out"
	default:
		entry.Status, entry.Message = HealthUnhealthy, name+" unreachable"
	}
	return entry
}

func writeHealth(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/frahmantamala/docflow/internal/platform/database"
)

const (
	ReadinessReady       = "ready"
	ReadinessUnavailable = "unavailable"
)

// Readiness is the /health body. The service is ready when the document
// store answers a ping within the probe timeout.
type Readiness struct {
	Status    string      `json:"status"`
	CheckedAt time.Time   `json:"checked_at"`
	Store     StoreReport `json:"store"`
}

// StoreReport describes the backend database.Open selected.
type StoreReport struct {
	Backend         string `json:"backend"`
	Reachable       bool   `json:"reachable"`
	LatencyMs       int64  `json:"latency_ms"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Error           string `json:"error,omitempty"`
}

type HealthHandler struct {
	db      *database.DB
	timeout time.Duration
}

func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db, timeout: 2 * time.Second}
}

func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	report := h.probe(r.Context())

	resp := Readiness{
		Status:    ReadinessReady,
		CheckedAt: time.Now().UTC(),
		Store:     report,
	}
	statusCode := http.StatusOK
	if !report.Reachable {
		resp.Status = ReadinessUnavailable
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *HealthHandler) probe(ctx context.Context) StoreReport {
	if h.db == nil || h.db.SQLX == nil {
		return StoreReport{Backend: "none", Error: "document store not configured"}
	}

	report := StoreReport{Backend: h.db.Dialect}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.db.SQLX.PingContext(ctx)
	report.LatencyMs = time.Since(start).Milliseconds()

	stats := h.db.SQLX.Stats()
	report.OpenConnections = stats.OpenConnections
	report.InUse = stats.InUse

	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Reachable = true
	return report
}

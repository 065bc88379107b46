package handlers

import (
	"net/http"
	"time"

	domain "github.com/vintora/catalog-api/internal/domain"
	"github.com/vintora/catalog-api/internal/platform/httpx"
	"github.com/vintora/catalog-api/internal/services"
)

// HealthHandlers exposes liveness and readiness probes. Liveness never touches
// downstream dependencies; readiness runs the dependency checks.
type HealthHandlers struct {
	system services.SystemService
	start  time.Time
}

// NewHealthHandlers constructs the health handler set.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{system: system, start: time.Now()}
}

type healthCheckView struct {
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latencyMs"`
	CheckedAt time.Time `json:"checkedAt"`
}

type healthReportView struct {
	Status      string                     `json:"status"`
	Version     string                     `json:"version,omitempty"`
	Environment string                     `json:"environment,omitempty"`
	Uptime      string                     `json:"uptime"`
	Checks      map[string]healthCheckView `json:"checks,omitempty"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}

// Healthz is the liveness probe.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteOK(r.Context(), w, "ok", map[string]string{
		"status": domain.HealthStatusOK,
		"uptime": time.Since(h.start).String(),
	})
}

// Readyz is the readiness probe. A report with errored dependencies turns into
// a 503 so load balancers drain the instance.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		httpx.WriteError(ctx, w, http.StatusServiceUnavailable, "health checks unavailable")
		return
	}

	report, err := h.system.Health(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, http.StatusServiceUnavailable, "health checks failed")
		return
	}

	view := healthReportView{
		Status:      report.Status,
		Version:     report.Version,
		Environment: report.Environment,
		Uptime:      time.Since(h.start).String(),
		GeneratedAt: report.GeneratedAt,
	}
	if len(report.Checks) > 0 {
		view.Checks = make(map[string]healthCheckView, len(report.Checks))
		for name, check := range report.Checks {
			view.Checks[name] = healthCheckView{
				Status:    check.Status,
				Detail:    check.Detail,
				Error:     check.Error,
				LatencyMS: check.Latency.Milliseconds(),
				CheckedAt: check.CheckedAt,
			}
		}
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	httpx.Write(ctx, w, status, httpx.Envelope{
		Success: report.Status != domain.HealthStatusError,
		Message: report.Status,
		Payload: view,
	})
}

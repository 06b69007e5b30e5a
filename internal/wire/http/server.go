// Package http is the thin HTTP translator over internal/wire/dispatch
// (spec §6): POST /v1/tools/{tool} decodes a JSON body onto the named
// operation's argument struct and re-encodes its envelope-wrapped
// result, GET /healthz reports cached health status without touching
// an adapter, GET /metrics serves the Prometheus registry. No business
// logic lives here - it is pure argument marshaling and status-code
// translation, grounded on the teacher's gorilla/mux router
// (internal/api/router.go) and its request-id/logging middleware shape
// (pkg/logger.LoggingMiddleware, reused verbatim rather than
// reimplemented).
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/health"
	"github.com/relentless-ops/runbook-engine/internal/wire/dispatch"
	"github.com/relentless-ops/runbook-engine/pkg/logger"
	"github.com/relentless-ops/runbook-engine/pkg/metrics"
)

// StatusSource is the subset of engine.Engine the health endpoint reads.
type StatusSource interface {
	AdapterNames() []string
	RemoteCacheAvailable() bool
}

// NewRouter builds the full HTTP surface.
func NewRouter(d *dispatch.Dispatcher, mon *health.Monitor, status StatusSource, mets *metrics.MetricsRegistry, log *slog.Logger) *mux.Router {
	if log == nil {
		log = slog.Default()
	}
	router := mux.NewRouter()
	router.Use(logger.LoggingMiddleware(log))

	router.HandleFunc("/v1/tools/{tool}", toolHandler(d)).Methods(http.MethodPost)
	router.HandleFunc("/healthz", healthHandler(mon, status)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(mets.Gatherer(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return router
}

func toolHandler(d *dispatch.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tool := mux.Vars(r)["tool"]

		var raw json.RawMessage
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
				writeToolError(w, domain.Validation("malformed JSON body"))
				return
			}
		}
		defer r.Body.Close()

		result, toolErr := d.Call(r.Context(), tool, raw)
		if toolErr != nil {
			writeToolError(w, toolErr)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// healthHandler reads cached health snapshots only (spec §6 "responds
// in under 1 second regardless of adapter state") - it never calls
// HealthCheck on an adapter inline.
func healthHandler(mon *health.Monitor, status StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := status.AdapterNames()
		engineStatus := mon.EngineStatus(names, status.RemoteCacheAvailable())

		adapters := make(map[string]domain.HealthSnapshot, len(names))
		for _, name := range names {
			adapters[name] = mon.Status(name)
		}

		code := http.StatusOK
		if engineStatus == domain.HealthUnhealthy {
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]any{
			"status":    engineStatus,
			"adapters":  adapters,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// toolErrorStatus maps the closed ToolError vocabulary (spec §7) onto
// HTTP status codes.
func toolErrorStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrCircuitOpen:
		return http.StatusServiceUnavailable
	case domain.ErrDegraded:
		return http.StatusOK
	case domain.ErrConfiguration, domain.ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeToolError(w http.ResponseWriter, toolErr *domain.ToolError) {
	writeJSON(w, toolErrorStatus(toolErr.Code), map[string]any{
		"error": map[string]any{
			"code":           toolErr.Code,
			"message":        toolErr.Message,
			"details":        toolErr.Details,
			"correlation_id": toolErr.CorrelationID,
		},
	})
}

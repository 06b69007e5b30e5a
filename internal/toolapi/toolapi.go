// Package toolapi implements the engine's seven-operation public
// surface (spec §4.6): the closed dispatch both wire protocols
// translate onto.
package toolapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/cache"
	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/health"
	"github.com/relentless-ops/runbook-engine/internal/index"
	"github.com/relentless-ops/runbook-engine/internal/matcher"
	"github.com/relentless-ops/runbook-engine/internal/resilience"
	"github.com/relentless-ops/runbook-engine/pkg/logger"
	"github.com/relentless-ops/runbook-engine/pkg/metrics"
)

// RegisteredAdapter is what the Tool API needs per enabled adapter: the
// adapter itself, its configured fan-out priority, and the breaker that
// gates every call to it (spec §4.2). Health-based exclusion/degradation
// is resolved per call from the health monitor.
type RegisteredAdapter struct {
	Adapter  adapter.Adapter
	Priority int
	Breaker  *resilience.Breaker
}

// API wires the cache, matcher, corpus indices, adapters, and health
// monitor into the seven named operations.
type API struct {
	cache    *cache.Cache
	matcher  *matcher.Matcher
	docs     *index.SnapshotStore
	runbooks *index.RunbookIndex
	health   *health.Monitor
	logger   *slog.Logger
	mets     *metrics.ToolMetrics
	validate *validator.Validate

	adapters func() []RegisteredAdapter // live view, resolved per-call

	feedback *feedbackSerializer
}

// Deps bundles API's collaborators.
type Deps struct {
	Cache    *cache.Cache
	Matcher  *matcher.Matcher
	Docs     *index.SnapshotStore
	Runbooks *index.RunbookIndex
	Health   *health.Monitor
	Logger   *slog.Logger
	Metrics  *metrics.ToolMetrics
	Adapters func() []RegisteredAdapter
}

// New builds an API.
func New(d Deps) *API {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	_ = v.RegisterValidation("severity_enum", validateSeverityEnum)
	return &API{
		cache:    d.Cache,
		matcher:  d.Matcher,
		docs:     d.Docs,
		runbooks: d.Runbooks,
		health:   d.Health,
		logger:   logger,
		mets:     d.Metrics,
		validate: v,
		adapters: d.Adapters,
		feedback: newFeedbackSerializer(),
	}
}

// validateSeverityEnum implements the severity_enum validator tag,
// grounded on the teacher's webhook severity validator
// (internal/infrastructure/webhook/validator.go).
func validateSeverityEnum(fl validator.FieldLevel) bool {
	switch domain.Severity(fl.Field().String()) {
	case "", domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow:
		return true
	default:
		return false
	}
}

// enabledHandles returns the matcher.AdapterHandle view over every
// registered adapter, excluding those the health monitor currently
// reports unhealthy (spec §4.7: excluded from fan-out only when
// unhealthy; degraded adapters are still queried, tagged degraded).
func (a *API) enabledHandles() []matcher.AdapterHandle {
	var out []matcher.AdapterHandle
	for _, r := range a.adapters() {
		name := r.Adapter.Name()
		status := domain.HealthHealthy
		if a.health != nil {
			status = a.health.Status(name).Status
		}
		if status == domain.HealthUnhealthy {
			continue
		}
		out = append(out, matcher.AdapterHandle{
			Adapter:  r.Adapter,
			Priority: r.Priority,
			Degraded: status == domain.HealthDegraded,
			Breaker:  r.Breaker,
		})
	}
	return out
}

func (a *API) allAdapters() []RegisteredAdapter {
	if a.adapters == nil {
		return nil
	}
	return a.adapters()
}

func (a *API) corpusEpoch() uint64 {
	if a.docs == nil {
		return 0
	}
	return a.docs.Load().Epoch
}

func (a *API) recordCall(tool string, start time.Time, degraded bool, err error) {
	if a.mets == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	a.mets.RecordCall(tool, status, time.Since(start).Seconds(), degraded)
}

// newCorrelationID resolves the id this call's Envelope/ToolError should
// carry: the inbound HTTP request's id when ctx has one (see
// pkg/logger.CorrelationID), otherwise a freshly generated one.
func newCorrelationID(ctx context.Context) string {
	return logger.CorrelationID(ctx)
}

func envelope(ctx context.Context, start time.Time, degraded bool, partials []domain.PartialFailure, epoch uint64, deadlineExceeded, cacheHit bool) domain.Envelope {
	return domain.Envelope{
		RetrievalTimeMs:  float64(time.Since(start).Microseconds()) / 1000.0,
		Degraded:         degraded,
		PartialFailures:  partials,
		CorpusEpoch:      epoch,
		DeadlineExceeded: deadlineExceeded,
		CacheHit:         cacheHit,
		CorrelationID:    newCorrelationID(ctx),
	}
}

// validationErr translates a go-playground/validator error into the
// engine's closed ToolError vocabulary (spec §7), naming every
// offending field path.
func (a *API) validationErr(err error) *domain.ToolError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return domain.Validation(err.Error())
	}
	paths := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		paths = append(paths, fe.Namespace())
	}
	return domain.Validation(paths...)
}

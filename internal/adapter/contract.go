// Package adapter defines the source adapter contract (spec §4.1): the
// uniform interface every concrete documentation source implements, a
// process-wide type registry, and the in-process reference adapter used
// for tests and demos.
package adapter

import (
	"context"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// SearchFilters narrows a plain-text search call.
type SearchFilters struct {
	Types         []string
	Categories    []string
	MaxResults    int
	MinConfidence float64
}

// RunbookQuery is the structured input to search_runbooks (spec §4.5).
type RunbookQuery struct {
	AlertType       string
	Severity        domain.Severity
	AffectedSystems []string
	Context         map[string]any
}

// RunbookMatch pairs a candidate Runbook with the adapter's own opinion
// of its relevance to the query that produced it (spec §4.5 step 4:
// "Base score = adapter's own relevance score, normalized to [0,1]").
// This mirrors Search's use of domain.SearchResult.Confidence for the
// same purpose on the plain-text path.
type RunbookMatch struct {
	Runbook   domain.Runbook
	Relevance float64 // normalized [0,1]; the matcher clamps out-of-range values defensively
}

// Metadata is the get_metadata response (spec §4.1 table).
type Metadata struct {
	Name          string
	Type          string
	DocumentCount int
	LastUpdated   string
	Status        domain.AdapterStatus
}

// Adapter is the uniform contract every concrete documentation source
// implements (spec §4.1's operation table). Implementations must make
// health_check safe to call at any lifecycle stage and must never panic
// across this boundary - no caller recovers a panic. The matcher routes
// Search and SearchRunbooks through the adapter's breaker; the other
// methods are called directly.
type Adapter interface {
	// Name returns the adapter's configured, process-unique name.
	Name() string

	// Initialize transitions the adapter from uninitialized to ready
	// (or returns an error that leaves it failed).
	Initialize(ctx context.Context, cfg domain.SourceConfig) error

	// Search performs a plain-text query with optional filters.
	Search(ctx context.Context, query string, filters SearchFilters) ([]domain.SearchResult, error)

	// GetDocument fetches one document by id, or a not_found ToolError.
	GetDocument(ctx context.Context, id string) (domain.Document, error)

	// SearchRunbooks performs a structured runbook query (spec §4.5),
	// returning each candidate alongside this adapter's own relevance
	// opinion for it.
	SearchRunbooks(ctx context.Context, query RunbookQuery) ([]RunbookMatch, error)

	// ListRunbooks returns every runbook this adapter currently owns,
	// with decision trees, procedures, and escalation paths intact.
	// This extends the spec's literal eight-operation table (§4.1): the
	// table does not name a corpus-wide enumeration primitive, but
	// get_decision_tree, get_procedure, and get_escalation_path (§4.6)
	// all require resolving by scenario/procedure_id/severity across
	// the whole corpus rather than by a single alert_type query, so the
	// engine needs a way to build that index. SearchRunbooks alone
	// cannot serve it without a free-text alert_type, and Enumerate
	// deliberately returns plain Documents for fingerprinting. See
	// DESIGN.md for the full rationale.
	ListRunbooks(ctx context.Context) ([]domain.Runbook, error)

	// HealthCheck must return within a bounded time and must not
	// itself fail the call - internal errors are reported as an
	// unhealthy HealthSnapshot, not as a returned error.
	HealthCheck(ctx context.Context) domain.HealthSnapshot

	// GetMetadata reports the adapter's summary for list_sources.
	GetMetadata(ctx context.Context) Metadata

	// Enumerate lists the adapter's current document inventory, for
	// the indexer (satisfies index.Enumerator structurally).
	Enumerate(ctx context.Context) ([]domain.Document, error)

	// RefreshIndex asks the adapter to refresh and report a ChangeSet
	// restricted to itself. force bypasses any internal debounce.
	RefreshIndex(ctx context.Context, force bool) (domain.ChangeSet, error)

	// Cleanup releases all owned resources. Idempotent.
	Cleanup(ctx context.Context) error
}

// FeedbackWriter is implemented by adapters capable of persisting
// resolution feedback (spec §4.6 record_resolution_feedback routes to
// "all write-capable adapters or a dedicated feedback adapter").
type FeedbackWriter interface {
	RecordFeedback(ctx context.Context, fb domain.Feedback) error
}

// Package matcher implements the query-to-runbook matching pipeline
// (spec §4.5): intent classification, context enhancement, concurrent
// adapter fan-out with deadlines, confidence scoring, dedup/merge, and
// ranking.
package matcher

import (
	"strings"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/resilience"
)

// AliasMap expands an affected_system name to its known aliases
// (spec §4.5 step 2, configurable).
type AliasMap map[string][]string

// Config tunes the matcher pipeline.
type Config struct {
	MinConfidence       float64
	MaxResults          int
	SimilarityThreshold float64 // dedup threshold for title+alert_types overlap
	Aliases             AliasMap
	PerCallConcurrency  int
	AdapterDeadline     time.Duration

	// RetryPolicy is the template the fan-out copies per adapter call,
	// overriding OperationName to the adapter's name (spec §4.2). Nil
	// falls back to resilience.AdapterRetryPolicy scaled to
	// AdapterDeadline with no metrics recording.
	RetryPolicy *resilience.RetryPolicy
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence:       0.3,
		MaxResults:          10,
		SimilarityThreshold: 0.85,
		PerCallConcurrency:  10,
		AdapterDeadline:     2 * time.Second,
	}
}

// classifyIntent normalizes the query before matching (spec §4.5 step
// 1): it trims and lowercases the alert type and lowercases the
// severity. It never rejects a query and attaches no derived tags.
func classifyIntent(q adapter.RunbookQuery) adapter.RunbookQuery {
	q.AlertType = strings.TrimSpace(strings.ToLower(q.AlertType))
	if q.Severity != "" {
		q.Severity = domain.Severity(strings.ToLower(string(q.Severity)))
	}
	return q
}

// enhanceContext expands context's affected_systems with configured
// aliases (spec §4.5 step 2).
func enhanceContext(q adapter.RunbookQuery, aliases AliasMap) adapter.RunbookQuery {
	if len(aliases) == 0 || len(q.AffectedSystems) == 0 {
		return q
	}
	expanded := make([]string, 0, len(q.AffectedSystems))
	seen := make(map[string]struct{})
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		expanded = append(expanded, s)
	}
	for _, sys := range q.AffectedSystems {
		add(sys)
		for _, alias := range aliases[sys] {
			add(alias)
		}
	}
	q.AffectedSystems = expanded
	return q
}

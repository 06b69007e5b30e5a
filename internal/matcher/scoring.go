package matcher

import (
	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// candidate pairs a Runbook with its originating adapter and the
// adapter's own relevance score, ahead of confidence scoring.
type candidate struct {
	runbook       domain.Runbook
	adapterName   string
	adapterPriority int
	baseRelevance float64 // normalized [0,1]
	degraded      bool
}

// score computes the spec §4.5 step-4 confidence for one candidate
// against the (already classified/enhanced) query, and returns the
// match reasons that fired.
func score(q adapter.RunbookQuery, c candidate, aliases AliasMap) (float64, []domain.MatchReason) {
	s := c.baseRelevance
	reasons := []domain.MatchReason{domain.ReasonBaseRelevance}

	switch alertTypeMatch(q.AlertType, c.runbook.AlertTypes, aliases) {
	case matchExact:
		s += 0.35
		reasons = append(reasons, domain.ReasonExactAlertType)
	case matchAlias:
		s += 0.20
		reasons = append(reasons, domain.ReasonAliasAlertType)
	}

	if q.Severity != "" {
		if severityIn(q.Severity, c.runbook.Severities) {
			s += 0.20
			reasons = append(reasons, domain.ReasonSeverityMatch)
		} else if dist := nearestSeverityDistance(q.Severity, c.runbook.Severities); dist > 0 {
			s -= 0.05 * float64(dist)
			reasons = append(reasons, domain.ReasonSeverityAdjacent)
		}
	}

	if overlap := countOverlap(q.AffectedSystems, c.runbook.AffectedSystems); overlap > 0 {
		bonus := 0.10 * float64(overlap)
		if bonus > 0.25 {
			bonus = 0.25
		}
		s += bonus
		reasons = append(reasons, domain.ReasonAffectedSystem)
	}

	if matches := countContextMatches(q.Context, c.runbook.Metadata); matches > 0 {
		bonus := 0.05 * float64(matches)
		if bonus > 0.10 {
			bonus = 0.10
		}
		s += bonus
		reasons = append(reasons, domain.ReasonContextMatch)
	}

	multiplier := 0.9
	if c.runbook.HasSuccessRate {
		multiplier = c.runbook.SuccessRate
	}
	s *= multiplier

	if c.degraded {
		reasons = append(reasons, domain.ReasonDegradedSource)
	}

	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return s, reasons
}

type alertTypeMatchKind int

const (
	matchNone alertTypeMatchKind = iota
	matchAlias
	matchExact
)

func alertTypeMatch(alertType string, candidates []string, aliases AliasMap) alertTypeMatchKind {
	for _, c := range candidates {
		if c == alertType {
			return matchExact
		}
	}
	for _, aliasList := range aliases[alertType] {
		for _, c := range candidates {
			if c == aliasList {
				return matchAlias
			}
		}
	}
	return matchNone
}

func severityIn(sev domain.Severity, list []domain.Severity) bool {
	for _, s := range list {
		if s == sev {
			return true
		}
	}
	return false
}

// nearestSeverityDistance returns the minimum rank distance from sev to
// any severity in list, or 0 if list is empty (no penalty applies when
// the runbook declares no severities).
func nearestSeverityDistance(sev domain.Severity, list []domain.Severity) int {
	if len(list) == 0 {
		return 0
	}
	best := -1
	for _, s := range list {
		d := domain.SeverityDistance(sev, s)
		if best == -1 || d < best {
			best = d
		}
	}
	return best
}

func countOverlap(a, b []string) int {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	n := 0
	for _, v := range a {
		if _, ok := set[v]; ok {
			n++
		}
	}
	return n
}

// countContextMatches counts context keys whose value (stringified)
// equals the runbook's metadata value for the same key.
func countContextMatches(context map[string]any, metadata map[string]string) int {
	if len(context) == 0 || len(metadata) == 0 {
		return 0
	}
	n := 0
	for k, v := range context {
		if mv, ok := metadata[k]; ok && mv == toComparable(v) {
			n++
		}
	}
	return n
}

func toComparable(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

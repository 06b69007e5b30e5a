package matcher

import (
	"context"
	"sort"
	"strings"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// Matcher runs the full runbook-matching pipeline (spec §4.5) over a set
// of enabled adapter handles.
type Matcher struct {
	cfg Config
}

// New builds a Matcher.
func New(cfg Config) *Matcher {
	if cfg.MaxResults <= 0 {
		cfg = DefaultConfig()
	}
	return &Matcher{cfg: cfg}
}

// Result is the pipeline's output: ranked results plus the envelope
// fields the Tool API layer needs.
type Result struct {
	Results          []domain.SearchResult
	Degraded         bool
	PartialFailures  []domain.PartialFailure
	DeadlineExceeded bool
	MatchReasons     []domain.MatchReason // top-level reasons (e.g. no_sources_available)
}

// SearchRunbooks runs the full pipeline for a structured runbook query
// against the given enabled adapters.
func (m *Matcher) SearchRunbooks(ctx context.Context, handles []AdapterHandle, query adapter.RunbookQuery) Result {
	if len(handles) == 0 {
		return Result{MatchReasons: []domain.MatchReason{domain.ReasonNoSourcesAvailable}, Degraded: true}
	}

	q := enhanceContext(classifyIntent(query), m.cfg.Aliases)

	fanoutResults, partials, deadlineExceeded := fanOutRunbooks(ctx, handles, q, m.cfg.PerCallConcurrency, m.cfg.AdapterDeadline, m.cfg.RetryPolicy)

	degradedByAdapter := make(map[string]bool, len(handles))
	priorityByAdapter := make(map[string]int, len(handles))
	for _, h := range handles {
		degradedByAdapter[h.Adapter.Name()] = h.Degraded
		priorityByAdapter[h.Adapter.Name()] = h.Priority
	}

	var candidates []candidate
	for _, fr := range fanoutResults {
		if fr.adapterName == "" {
			continue // slot never filled (adapter excluded/errored)
		}
		for _, m := range fr.matches {
			candidates = append(candidates, candidate{
				runbook:         m.Runbook,
				adapterName:     fr.adapterName,
				adapterPriority: priorityByAdapter[fr.adapterName],
				baseRelevance:   clamp01(m.Relevance),
				degraded:        degradedByAdapter[fr.adapterName],
			})
		}
	}

	if len(candidates) == 0 {
		reasons := []domain.MatchReason{domain.ReasonNoSourcesAvailable}
		return Result{
			MatchReasons:     reasons,
			Degraded:         true,
			PartialFailures:  partials,
			DeadlineExceeded: deadlineExceeded,
		}
	}

	scored := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		conf, reasons := score(q, c, m.cfg.Aliases)
		scored = append(scored, domain.SearchResult{
			DocumentRef:   domain.DocRef{AdapterName: c.adapterName, ID: c.runbook.ID},
			Confidence:    conf,
			MatchReasons:  reasons,
			SourceAdapter: c.adapterName,
			Runbook:       runbookPtr(c.runbook),
		})
	}

	deduped := dedupMerge(scored, candidates, m.cfg.SimilarityThreshold)
	ranked := rank(deduped, priorityByAdapter)
	final := applyCutoff(ranked, m.cfg.MinConfidence, m.cfg.MaxResults)

	return Result{
		Results:          final,
		Degraded:         len(partials) > 0,
		PartialFailures:  partials,
		DeadlineExceeded: deadlineExceeded,
	}
}

func runbookPtr(r domain.Runbook) *domain.Runbook {
	v := r
	return &v
}

// clamp01 defends scoring against an adapter reporting a relevance
// outside [0,1]; score() assumes baseRelevance already sits in range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// dedupMerge collapses results referring to the same logical runbook
// (same title + overlapping alert_types above the similarity threshold)
// across adapters, keeping the highest-confidence instance and recording
// the rest as alternate_sources (spec §4.5 step 5).
func dedupMerge(results []domain.SearchResult, candidates []candidate, threshold float64) []domain.SearchResult {
	kept := make([]domain.SearchResult, 0, len(results))
	consumed := make([]bool, len(results))

	for i := range results {
		if consumed[i] {
			continue
		}
		best := i
		for j := i + 1; j < len(results); j++ {
			if consumed[j] {
				continue
			}
			if similar(candidates[i], candidates[j], threshold) {
				consumed[j] = true
				if results[j].Confidence > results[best].Confidence {
					results[j].AlternateSources = append(results[j].AlternateSources, results[best].AlternateSources...)
					results[j].AlternateSources = append(results[j].AlternateSources, results[best].DocumentRef)
					best = j
				} else {
					results[best].AlternateSources = append(results[best].AlternateSources, results[j].DocumentRef)
				}
			}
		}
		kept = append(kept, results[best])
	}
	return kept
}

func similar(a, b candidate, threshold float64) bool {
	if a.adapterName == b.adapterName {
		return false // same adapter's own results are never "the same runbook from another source"
	}
	if !strings.EqualFold(a.runbook.Title, b.runbook.Title) {
		return false
	}
	overlap := jaccard(a.runbook.AlertTypes, b.runbook.AlertTypes)
	return overlap >= threshold
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	inter := 0
	for _, v := range b {
		if _, ok := set[v]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// rank orders results by confidence desc, then adapter priority asc,
// then avg_resolution_time asc, then lexicographic id (spec §4.5
// step 6).
func rank(results []domain.SearchResult, priorityByAdapter map[string]int) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		pa, pb := priorityByAdapter[a.SourceAdapter], priorityByAdapter[b.SourceAdapter]
		if pa != pb {
			return pa < pb
		}
		ra, rb := resolutionTime(a), resolutionTime(b)
		if ra != rb {
			return ra < rb
		}
		return a.DocumentRef.ID < b.DocumentRef.ID
	})
	return results
}

func resolutionTime(r domain.SearchResult) int64 {
	if r.Runbook == nil {
		return 0
	}
	return int64(r.Runbook.AvgResolutionTime)
}

// applyCutoff applies min_confidence and max_results (spec §4.5 step 7),
// with the two documented edge-case exceptions: a single result between
// half the threshold and the threshold is kept and tagged
// below_threshold_best_effort, and ties at the max_results boundary are
// all kept rather than arbitrarily dropped.
func applyCutoff(results []domain.SearchResult, minConfidence float64, maxResults int) []domain.SearchResult {
	above := make([]domain.SearchResult, 0, len(results))
	var nearMiss *domain.SearchResult
	nearMissCount := 0

	for i := range results {
		r := results[i]
		switch {
		case r.Confidence >= minConfidence:
			above = append(above, r)
		case r.Confidence >= minConfidence/2:
			nearMissCount++
			nearMiss = &results[i]
		}
	}

	if len(above) == 0 && nearMissCount == 1 {
		r := *nearMiss
		r.MatchReasons = append(r.MatchReasons, domain.ReasonBelowThresholdKept)
		above = append(above, r)
	}

	if maxResults <= 0 || len(above) <= maxResults {
		return above
	}

	cutoffConfidence := above[maxResults-1].Confidence
	end := maxResults
	for end < len(above) && above[end].Confidence == cutoffConfidence {
		end++
	}
	return above[:end]
}

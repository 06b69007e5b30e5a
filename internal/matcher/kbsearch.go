package matcher

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/resilience"
)

// SearchKnowledgeBase fans Search out to every handle, ranks the merged
// results by the confidence each adapter reported (then by id), and
// applies the min_confidence/max_results cutoff. It applies no scoring
// of its own (no textual or tag scoring, no runbook-specific bonuses)
// and does not dedup results across adapters.
func (m *Matcher) SearchKnowledgeBase(ctx context.Context, handles []AdapterHandle, query string, filters adapter.SearchFilters) Result {
	if len(handles) == 0 {
		return Result{MatchReasons: []domain.MatchReason{domain.ReasonNoSourcesAvailable}, Degraded: true}
	}

	results, partials, deadlineExceeded := fanOutSearch(ctx, handles, query, filters, m.cfg.PerCallConcurrency, m.cfg.AdapterDeadline, m.cfg.RetryPolicy)

	var all []domain.SearchResult
	for _, r := range results {
		all = append(all, r...)
	}

	if len(all) == 0 {
		return Result{
			MatchReasons:     []domain.MatchReason{domain.ReasonNoSourcesAvailable},
			Degraded:         true,
			PartialFailures:  partials,
			DeadlineExceeded: deadlineExceeded,
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Confidence != all[j].Confidence {
			return all[i].Confidence > all[j].Confidence
		}
		return all[i].DocumentRef.ID < all[j].DocumentRef.ID
	})

	maxResults := filters.MaxResults
	if maxResults <= 0 {
		maxResults = m.cfg.MaxResults
	}
	minConfidence := filters.MinConfidence
	if minConfidence <= 0 {
		minConfidence = m.cfg.MinConfidence
	}
	final := applyCutoff(all, minConfidence, maxResults)

	return Result{
		Results:          final,
		Degraded:         len(partials) > 0,
		PartialFailures:  partials,
		DeadlineExceeded: deadlineExceeded,
	}
}

// callSearch runs h.Adapter.Search through h.Breaker (if set) wrapped in
// one retry attempt, mirroring callSearchRunbooks's composition (spec
// §4.2).
func callSearch(ctx context.Context, h AdapterHandle, query string, filters adapter.SearchFilters, policy *resilience.RetryPolicy) ([]domain.SearchResult, string) {
	out, err := resilience.WithRetryFunc(ctx, policy, func() ([]domain.SearchResult, error) {
		if h.Breaker == nil {
			return h.Adapter.Search(ctx, query, filters)
		}
		var res []domain.SearchResult
		callErr := h.Breaker.Call(ctx, func(cctx context.Context) error {
			r, rerr := h.Adapter.Search(cctx, query, filters)
			res = r
			return rerr
		})
		return res, callErr
	})
	if err == nil {
		return out, ""
	}
	switch {
	case domain.IsKind(err, domain.ErrCircuitOpen):
		return nil, "breaker_open"
	case ctx.Err() == context.DeadlineExceeded:
		return nil, "timeout"
	default:
		return nil, "remote_error"
	}
}

func fanOutSearch(ctx context.Context, handles []AdapterHandle, query string, filters adapter.SearchFilters, perCallConcurrency int, adapterDeadline time.Duration, retryPolicy *resilience.RetryPolicy) ([][]domain.SearchResult, []domain.PartialFailure, bool) {
	if perCallConcurrency <= 0 {
		perCallConcurrency = 10
	}
	results := make([][]domain.SearchResult, len(handles))
	sem := make(chan struct{}, perCallConcurrency)

	var grp errgroup.Group
	var mu sync.Mutex
	var partials []domain.PartialFailure
	deadlineExceeded := false

	for i, h := range handles {
		i, h := i, h
		grp.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				partials = append(partials, domain.PartialFailure{AdapterName: h.Adapter.Name(), Reason: "deadline_exceeded"})
				deadlineExceeded = true
				mu.Unlock()
				return nil
			}

			callCtx := ctx
			var cancel context.CancelFunc
			if adapterDeadline > 0 {
				callCtx, cancel = context.WithTimeout(ctx, adapterDeadline)
				defer cancel()
			}

			policy := perAdapterRetryPolicy(retryPolicy, adapterDeadline, h.Adapter.Name())
			out, reason := callSearch(callCtx, h, query, filters, policy)
			if reason != "" {
				mu.Lock()
				if reason == "timeout" {
					deadlineExceeded = true
				}
				partials = append(partials, domain.PartialFailure{AdapterName: h.Adapter.Name(), Reason: reason})
				mu.Unlock()
				return nil
			}
			if h.Degraded {
				for i := range out {
					out[i].MatchReasons = append(out[i].MatchReasons, domain.ReasonDegradedSource)
				}
			}
			results[i] = out
			return nil
		})
	}
	_ = grp.Wait()
	return results, partials, deadlineExceeded
}

// textMatchScore gives a simple tokenized-substring score of query
// against a document's title and body. Nothing in the engine calls it;
// SearchKnowledgeBase and get_decision_tree use their own scoring.
func textMatchScore(query string, doc domain.Document) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	body := strings.ToLower(doc.Body)
	title := strings.ToLower(doc.Title)
	score := 0.0
	if strings.Contains(title, q) {
		score += 0.5
	}
	if strings.Contains(body, q) {
		score += 0.3
	}
	for _, tok := range strings.Fields(q) {
		if strings.Contains(body, tok) {
			score += 0.05
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

package matcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/resilience"
)

// AdapterHandle is what the matcher needs to know about one enabled
// adapter beyond the Adapter interface itself, to drive priority
// tiebreaking, degraded tagging, and breaker-gated fan-out without
// re-querying the health monitor or breaker registry per candidate.
type AdapterHandle struct {
	Adapter  adapter.Adapter
	Priority int
	Degraded bool // excluded only when unhealthy, not when merely degraded (spec §4.7)

	// Breaker gates every fan-out call to Adapter (spec §4.2, §4.5 step
	// 3: "fan-out gated by breakers"). Nil disables breaker gating -
	// used by tests that construct a handle directly against a
	// fixture adapter with nothing to trip.
	Breaker *resilience.Breaker
}

// fanoutResult collects one adapter's outcome.
type fanoutResult struct {
	adapterName string
	matches     []adapter.RunbookMatch
	err         error
	timedOut    bool
}

// perAdapterRetryPolicy returns tmpl scoped to one adapter's operation
// name, or a fresh AdapterRetryPolicy scaled to deadline if tmpl is nil
// (matcher.Config.RetryPolicy is an optional override; most callers rely
// on the default).
func perAdapterRetryPolicy(tmpl *resilience.RetryPolicy, deadline time.Duration, operation string) *resilience.RetryPolicy {
	var p resilience.RetryPolicy
	if tmpl != nil {
		p = *tmpl
	} else {
		p = *resilience.AdapterRetryPolicy(deadline, &resilience.DomainErrorChecker{}, nil, operation)
	}
	p.OperationName = operation
	return &p
}

// callSearchRunbooks runs h.Adapter.SearchRunbooks through h.Breaker (if
// set) wrapped in one retry attempt (spec §4.2's retry-wraps-breaker
// composition), classifying an open breaker as its own partial-failure
// reason rather than a generic remote_error.
func callSearchRunbooks(ctx context.Context, h AdapterHandle, q adapter.RunbookQuery, policy *resilience.RetryPolicy) ([]adapter.RunbookMatch, string) {
	matches, err := resilience.WithRetryFunc(ctx, policy, func() ([]adapter.RunbookMatch, error) {
		if h.Breaker == nil {
			return h.Adapter.SearchRunbooks(ctx, q)
		}
		var out []adapter.RunbookMatch
		callErr := h.Breaker.Call(ctx, func(cctx context.Context) error {
			res, rerr := h.Adapter.SearchRunbooks(cctx, q)
			out = res
			return rerr
		})
		return out, callErr
	})
	if err == nil {
		return matches, ""
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

// fanOutRunbooks queries every handle concurrently, bounded by
// perCallConcurrency, each under its own adapterDeadline, and collects
// whatever completes before ctx is done (spec §4.5 step 3, §4.6
// "Cancellation"). partials reports adapters excluded from the result.
func fanOutRunbooks(ctx context.Context, handles []AdapterHandle, q adapter.RunbookQuery, perCallConcurrency int, adapterDeadline time.Duration, retryPolicy *resilience.RetryPolicy) ([]fanoutResult, []domain.PartialFailure, bool) {
	if perCallConcurrency <= 0 {
		perCallConcurrency = 10
	}

	results := make([]fanoutResult, len(handles))
	sem := make(chan struct{}, perCallConcurrency)

	var grp errgroup.Group // no WithContext: adapter errors are captured per-result, never propagated as group cancellation
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
			matches, reason := callSearchRunbooks(callCtx, h, q, policy)
			if reason != "" {
				mu.Lock()
				if reason == "timeout" {
					deadlineExceeded = true
				}
				partials = append(partials, domain.PartialFailure{AdapterName: h.Adapter.Name(), Reason: reason})
				mu.Unlock()
				return nil
			}
			results[i] = fanoutResult{adapterName: h.Adapter.Name(), matches: matches}
			return nil
		})
	}

	_ = grp.Wait() // adapter errors are captured per-result, not propagated
	return results, partials, deadlineExceeded
}

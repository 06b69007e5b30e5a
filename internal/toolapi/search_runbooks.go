package toolapi

import (
	"context"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/cache"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// SearchRunbooks runs the matcher pipeline over every enabled adapter
// (spec §4.5/§4.6), reading through the cache keyed on normalized
// arguments plus corpus_epoch. The cache stores the full envelope
// alongside the results so a replayed hit reports the same
// degraded/partial_failures state the original produce did, rather than
// silently claiming success.
func (a *API) SearchRunbooks(ctx context.Context, args SearchRunbooksArgs) (SearchRunbooksResult, *domain.ToolError) {
	start := time.Now()
	if err := a.validate.Struct(args); err != nil {
		return SearchRunbooksResult{}, a.validationErr(err)
	}

	epoch := a.corpusEpoch()
	cacheArgs := map[string]any{
		"alert_type":       args.AlertType,
		"severity":         string(args.Severity),
		"affected_systems": args.AffectedSystems,
		"context":          args.Context,
	}
	key := cache.Key("search_runbooks", cacheArgs, epoch)

	raw, hit, _, perr := a.cache.GetOrProduce(ctx, key, "runbooks", epoch, func(ctx context.Context) ([]byte, error) {
		q := adapter.RunbookQuery{
			AlertType:       args.AlertType,
			Severity:        args.Severity,
			AffectedSystems: args.AffectedSystems,
			Context:         args.Context,
		}
		res := a.matcher.SearchRunbooks(ctx, a.enabledHandles(), q)
		return marshalCachedResult(res.Results, res.Degraded, res.PartialFailures, res.DeadlineExceeded)
	})
	if perr != nil {
		a.recordCall("search_runbooks", start, true, perr)
		return SearchRunbooksResult{}, domain.Internal(newCorrelationID(ctx), perr)
	}

	var results []domain.SearchResult
	cr, err := unmarshalCachedResult(raw, &results)
	if err != nil {
		a.recordCall("search_runbooks", start, true, err)
		return SearchRunbooksResult{}, domain.Internal(newCorrelationID(ctx), err)
	}

	env := envelope(ctx, start, cr.Degraded, cr.PartialFailures, epoch, cr.DeadlineExceeded, hit)
	a.recordCall("search_runbooks", start, cr.Degraded, nil)
	return SearchRunbooksResult{Data: results, Envelope: env}, nil
}

package toolapi

import (
	"context"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/cache"
	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/matcher"
)

// SearchKnowledgeBase runs the matcher's plain-text search pipeline over
// every enabled adapter (spec §4.5/§4.6), caching the full envelope
// alongside the results (see envelope_cache.go) so a cache hit reports
// the same degraded/partial_failures state the producing call did.
func (a *API) SearchKnowledgeBase(ctx context.Context, args SearchKnowledgeBaseArgs) (SearchKnowledgeBaseResult, *domain.ToolError) {
	start := time.Now()
	if err := a.validate.Struct(args); err != nil {
		return SearchKnowledgeBaseResult{}, a.validationErr(err)
	}

	filters := adapter.SearchFilters{}
	cacheArgs := map[string]any{"query": args.Query}
	if args.Filters != nil {
		filters.Types = nonEmpty(args.Filters.DocumentType)
		filters.MaxResults = args.Filters.MaxResults
		filters.MinConfidence = args.Filters.MinConfidence
		cacheArgs["document_type"] = args.Filters.DocumentType
		cacheArgs["source"] = args.Filters.Source
		cacheArgs["max_results"] = args.Filters.MaxResults
		cacheArgs["min_confidence"] = args.Filters.MinConfidence
	}

	epoch := a.corpusEpoch()
	key := cache.Key("search_knowledge_base", cacheArgs, epoch)

	raw, hit, _, perr := a.cache.GetOrProduce(ctx, key, "knowledge_base", epoch, func(ctx context.Context) ([]byte, error) {
		handles := a.enabledHandles()
		if args.Filters != nil && args.Filters.Source != "" {
			handles = filterBySource(handles, args.Filters.Source)
		}
		res := a.matcher.SearchKnowledgeBase(ctx, handles, args.Query, filters)
		return marshalCachedResult(res.Results, res.Degraded, res.PartialFailures, res.DeadlineExceeded)
	})
	if perr != nil {
		a.recordCall("search_knowledge_base", start, true, perr)
		return SearchKnowledgeBaseResult{}, domain.Internal(newCorrelationID(ctx), perr)
	}

	var results []domain.SearchResult
	cr, err := unmarshalCachedResult(raw, &results)
	if err != nil {
		a.recordCall("search_knowledge_base", start, true, err)
		return SearchKnowledgeBaseResult{}, domain.Internal(newCorrelationID(ctx), err)
	}

	a.recordCall("search_knowledge_base", start, cr.Degraded, nil)
	env := envelope(ctx, start, cr.Degraded, cr.PartialFailures, epoch, cr.DeadlineExceeded, hit)
	return SearchKnowledgeBaseResult{Data: results, Envelope: env}, nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func filterBySource(handles []matcher.AdapterHandle, source string) []matcher.AdapterHandle {
	out := make([]matcher.AdapterHandle, 0, len(handles))
	for _, h := range handles {
		if h.Adapter.Name() == source {
			out = append(out, h)
		}
	}
	return out
}

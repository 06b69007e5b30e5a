package toolapi

import (
	"context"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// ListSources reports every configured adapter's summary, never cached
// since it reads live health state (spec §4.6).
func (a *API) ListSources(ctx context.Context, args ListSourcesArgs) (ListSourcesResult, *domain.ToolError) {
	start := time.Now()

	regs := a.allAdapters()
	summaries := make([]domain.SourceSummary, 0, len(regs))
	for _, r := range regs {
		md := r.Adapter.GetMetadata(ctx)
		summary := domain.SourceSummary{
			Name:          md.Name,
			Type:          md.Type,
			DocumentCount: md.DocumentCount,
			Status:        md.Status,
		}
		if t, err := time.Parse(time.RFC3339, md.LastUpdated); err == nil {
			summary.LastUpdated = t
		}
		if args.IncludeHealth && a.health != nil {
			snap := a.health.Status(r.Adapter.Name())
			summary.Health = &snap
		}
		summaries = append(summaries, summary)
	}

	a.recordCall("list_sources", start, false, nil)
	return ListSourcesResult{Data: summaries, Envelope: envelope(ctx, start, false, nil, a.corpusEpoch(), false, false)}, nil
}

package toolapi

import (
	"encoding/json"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// cachedResult is what actually gets stored in the cache tiers: not just
// the ranked results, but the envelope metadata a served-from-cache
// response must still carry. A cache hit replays the same produce
// outcome a miss would have recorded, degraded/partial_failures
// included - caching only the bare results payload would silently
// report degraded=false and drop partial_failures on every hit after a
// degraded produce (spec §4.3, §4.6).
type cachedResult struct {
	Results          json.RawMessage         `json:"results"`
	Degraded         bool                    `json:"degraded"`
	PartialFailures  []domain.PartialFailure `json:"partial_failures,omitempty"`
	DeadlineExceeded bool                    `json:"deadline_exceeded"`
}

// marshalCachedResult is the Producer return value for every tool whose
// result envelope carries degraded/partial-failure state.
func marshalCachedResult(results any, degraded bool, partials []domain.PartialFailure, deadlineExceeded bool) ([]byte, error) {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cachedResult{
		Results:          resultsJSON,
		Degraded:         degraded,
		PartialFailures:  partials,
		DeadlineExceeded: deadlineExceeded,
	})
}

// unmarshalCachedResult decodes a Producer payload - whether it was just
// produced or served from a cache tier - into results and the envelope
// fields that travelled alongside it. An empty raw payload (the
// cacheable-empty-result case) decodes to a zero-value cachedResult
// rather than an error.
func unmarshalCachedResult(raw []byte, results any) (cachedResult, error) {
	var cr cachedResult
	if len(raw) == 0 {
		return cr, nil
	}
	if err := json.Unmarshal(raw, &cr); err != nil {
		return cr, err
	}
	if len(cr.Results) > 0 {
		if err := json.Unmarshal(cr.Results, results); err != nil {
			return cr, err
		}
	}
	return cr, nil
}

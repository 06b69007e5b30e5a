package toolapi

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/cache"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// GetEscalationPath resolves the escalation chain for a severity,
// merging every adapter's contribution and deduping by role (spec
// §4.6). business_hours, when given, keeps only steps that apply to
// that variant (nil BusinessHoursOnly steps always apply).
func (a *API) GetEscalationPath(ctx context.Context, args GetEscalationPathArgs) (GetEscalationPathResult, *domain.ToolError) {
	start := time.Now()
	if err := a.validate.Struct(args); err != nil {
		return GetEscalationPathResult{}, a.validationErr(err)
	}

	epoch := a.corpusEpoch()
	cacheArgs := map[string]any{"severity": string(args.Severity)}
	if args.BusinessHours != nil {
		cacheArgs["business_hours"] = *args.BusinessHours
	}
	key := cache.Key("get_escalation_path", cacheArgs, epoch)

	raw, hit, _, perr := a.cache.GetOrProduce(ctx, key, "runbooks", epoch, func(context.Context) ([]byte, error) {
		snap := a.runbooks.Load()
		steps := snap.BySeverity[args.Severity]
		merged := mergeEscalationSteps(steps, args.BusinessHours)
		if len(merged) == 0 {
			return nil, domain.NotFound("escalation_path", string(args.Severity))
		}
		path := domain.EscalationPath{Severity: args.Severity, BusinessHours: args.BusinessHours, Steps: merged}
		return json.Marshal(path)
	})
	if perr != nil {
		a.recordCall("get_escalation_path", start, false, perr)
		if te, ok := perr.(*domain.ToolError); ok {
			return GetEscalationPathResult{}, te
		}
		return GetEscalationPathResult{}, domain.Internal(newCorrelationID(ctx), perr)
	}

	var path domain.EscalationPath
	if err := json.Unmarshal(raw, &path); err != nil {
		a.recordCall("get_escalation_path", start, false, err)
		return GetEscalationPathResult{}, domain.Internal(newCorrelationID(ctx), err)
	}

	a.recordCall("get_escalation_path", start, false, nil)
	return GetEscalationPathResult{Data: path, Envelope: envelope(ctx, start, false, nil, epoch, false, hit)}, nil
}

// mergeEscalationSteps merges steps from every contributing adapter,
// filters by the requested business-hours variant, dedups by role
// (first/highest-priority occurrence wins), and orders by Order.
func mergeEscalationSteps(steps []domain.EscalationStep, businessHours *bool) []domain.EscalationStep {
	byRole := make(map[string]domain.EscalationStep)
	order := make([]string, 0, len(steps))

	for _, s := range steps {
		if businessHours != nil && s.BusinessHoursOnly != nil && *s.BusinessHoursOnly != *businessHours {
			continue
		}
		existing, ok := byRole[s.Role]
		if !ok {
			byRole[s.Role] = s
			order = append(order, s.Role)
			continue
		}
		if s.Order < existing.Order {
			byRole[s.Role] = s
		}
	}

	merged := make([]domain.EscalationStep, 0, len(order))
	for _, role := range order {
		merged = append(merged, byRole[role])
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Order < merged[j].Order })
	return merged
}

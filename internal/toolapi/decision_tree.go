package toolapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/cache"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// GetDecisionTree resolves a decision tree by scenario tag across every
// adapter's published runbooks, returning the single best match by a
// lightweight context-overlap score (spec §4.6).
func (a *API) GetDecisionTree(ctx context.Context, args GetDecisionTreeArgs) (GetDecisionTreeResult, *domain.ToolError) {
	start := time.Now()
	if err := a.validate.Struct(args); err != nil {
		return GetDecisionTreeResult{}, a.validationErr(err)
	}

	epoch := a.corpusEpoch()
	key := cache.Key("get_decision_tree", map[string]any{"scenario": args.Scenario, "context": args.Context}, epoch)

	raw, hit, _, perr := a.cache.GetOrProduce(ctx, key, "decision_trees", epoch, func(context.Context) ([]byte, error) {
		snap := a.runbooks.Load()
		candidates := snap.ByScenario[args.Scenario]
		if len(candidates) == 0 {
			return nil, domain.NotFound("decision_tree", args.Scenario)
		}
		best := candidates[0]
		bestScore := scenarioContextScore(best, args.Context)
		for _, c := range candidates[1:] {
			if s := scenarioContextScore(c, args.Context); s > bestScore {
				best, bestScore = c, s
			}
		}
		return json.Marshal(best.DecisionTree)
	})
	if perr != nil {
		a.recordCall("get_decision_tree", start, false, perr)
		if te, ok := perr.(*domain.ToolError); ok {
			return GetDecisionTreeResult{}, te
		}
		return GetDecisionTreeResult{}, domain.Internal(newCorrelationID(ctx), perr)
	}

	var tree *domain.DecisionTree
	if err := json.Unmarshal(raw, &tree); err != nil {
		a.recordCall("get_decision_tree", start, false, err)
		return GetDecisionTreeResult{}, domain.Internal(newCorrelationID(ctx), err)
	}

	a.recordCall("get_decision_tree", start, false, nil)
	return GetDecisionTreeResult{Data: tree, Envelope: envelope(ctx, start, false, nil, epoch, false, hit)}, nil
}

// scenarioContextScore ranks candidate runbooks sharing a scenario tag
// by how much of the caller's context overlaps their affected_systems
// and alert_types, falling back to quality score as a tiebreaker.
func scenarioContextScore(rb domain.Runbook, context map[string]any) float64 {
	score := rb.QualityScore / 10.0

	systems, _ := context["affected_systems"].([]string)
	if len(systems) > 0 {
		set := make(map[string]struct{}, len(rb.AffectedSystems))
		for _, s := range rb.AffectedSystems {
			set[s] = struct{}{}
		}
		for _, s := range systems {
			if _, ok := set[s]; ok {
				score += 0.5
			}
		}
	}

	if alertType, ok := context["alert_type"].(string); ok && alertType != "" {
		for _, at := range rb.AlertTypes {
			if at == alertType {
				score += 0.5
				break
			}
		}
	}

	return score
}

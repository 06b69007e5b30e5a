package toolapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/cache"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

type procedureCacheValue struct {
	Procedure domain.Procedure
}

// GetProcedure resolves a procedure by id, returning either the full
// Procedure or a single ProcedureStep when step is given (spec §4.6).
func (a *API) GetProcedure(ctx context.Context, args GetProcedureArgs) (GetProcedureResult, *domain.ToolError) {
	start := time.Now()
	if err := a.validate.Struct(args); err != nil {
		return GetProcedureResult{}, a.validationErr(err)
	}

	epoch := a.corpusEpoch()
	key := cache.Key("get_procedure", map[string]any{"procedure_id": args.ProcedureID}, epoch)

	raw, hit, _, perr := a.cache.GetOrProduce(ctx, key, "procedures", epoch, func(context.Context) ([]byte, error) {
		snap := a.runbooks.Load()
		entry, ok := snap.ByProcedureID[args.ProcedureID]
		if !ok {
			return nil, domain.NotFound("procedure", args.ProcedureID)
		}
		return json.Marshal(procedureCacheValue{Procedure: entry.Procedure})
	})
	if perr != nil {
		a.recordCall("get_procedure", start, false, perr)
		if te, ok := perr.(*domain.ToolError); ok {
			return GetProcedureResult{}, te
		}
		return GetProcedureResult{}, domain.Internal(newCorrelationID(ctx), perr)
	}

	var cached procedureCacheValue
	if err := json.Unmarshal(raw, &cached); err != nil {
		a.recordCall("get_procedure", start, false, err)
		return GetProcedureResult{}, domain.Internal(newCorrelationID(ctx), err)
	}
	proc := cached.Procedure

	env := envelope(ctx, start, false, nil, epoch, false, hit)
	a.recordCall("get_procedure", start, false, nil)

	if args.Step == nil {
		return GetProcedureResult{Procedure: &proc, Envelope: env}, nil
	}
	step, ok := proc.Step(*args.Step)
	if !ok {
		return GetProcedureResult{}, domain.NotFound("procedure_step", args.ProcedureID)
	}
	return GetProcedureResult{StepResult: &step, Envelope: env}, nil
}

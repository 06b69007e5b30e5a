// Package dispatch implements the closed seven-operation tool-call
// switch both wire protocols translate onto (Design Notes §9 "dynamic
// tool dispatch"): a tool name plus a raw JSON argument payload maps to
// exactly one of the seven internal/toolapi operations, decoded into
// that operation's concrete argument type and re-encoded as a generic
// response. This is the one place both internal/wire/http and
// internal/wire/rpc share, so the two wire surfaces can never drift on
// which tool names exist or how their arguments decode.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/toolapi"
)

// Names is the closed set of tool names the engine serves (spec §4.6).
var Names = []string{
	"search_runbooks",
	"get_decision_tree",
	"get_procedure",
	"get_escalation_path",
	"list_sources",
	"search_knowledge_base",
	"record_resolution_feedback",
}

// Dispatcher closes over a toolapi.API and routes by tool name.
type Dispatcher struct {
	api *toolapi.API
}

// New builds a Dispatcher over api.
func New(api *toolapi.API) *Dispatcher {
	return &Dispatcher{api: api}
}

// Call decodes raw into the named tool's argument type, invokes it, and
// returns the result as a generic JSON-marshalable value. An unknown
// tool name is itself a validation error (spec §7's closed error
// vocabulary - there is no separate "unknown tool" kind).
func (d *Dispatcher) Call(ctx context.Context, tool string, raw json.RawMessage) (any, *domain.ToolError) {
	switch tool {
	case "search_runbooks":
		var args toolapi.SearchRunbooksArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return d.api.SearchRunbooks(ctx, args)
	case "get_decision_tree":
		var args toolapi.GetDecisionTreeArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return d.api.GetDecisionTree(ctx, args)
	case "get_procedure":
		var args toolapi.GetProcedureArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return d.api.GetProcedure(ctx, args)
	case "get_escalation_path":
		var args toolapi.GetEscalationPathArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return d.api.GetEscalationPath(ctx, args)
	case "list_sources":
		var args toolapi.ListSourcesArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return d.api.ListSources(ctx, args)
	case "search_knowledge_base":
		var args toolapi.SearchKnowledgeBaseArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return d.api.SearchKnowledgeBase(ctx, args)
	case "record_resolution_feedback":
		var args toolapi.RecordResolutionFeedbackArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return d.api.RecordResolutionFeedback(ctx, args)
	default:
		return nil, domain.Validation(fmt.Sprintf("tool %q is not a recognized operation", tool))
	}
}

func decode(raw json.RawMessage, out any) *domain.ToolError {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.Validation(fmt.Sprintf("malformed arguments: %v", err))
	}
	return nil
}

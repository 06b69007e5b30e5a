package resilience

import (
	"context"
	"errors"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// classifyError labels an error for retry/breaker metrics. A
// *domain.ToolError classifies as its own Code - the engine's closed
// error taxonomy (spec §7) - so retry_attempts_total carries
// "timeout"/"circuit_open"/"not_found"/etc. directly instead of a
// metrics-only vocabulary that would need a second mapping to reconcile
// against domain.ErrorKind.
func classifyError(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, context.Canceled) {
		return "context_cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "context_deadline"
	}
	var toolErr *domain.ToolError
	if errors.As(err, &toolErr) {
		return string(toolErr.Code)
	}
	return "unknown"
}

package resilience

import (
	"context"
	"errors"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// ErrNonRetryable marks an error as explicitly non-retryable regardless
// of how DomainErrorChecker would otherwise classify it.
var ErrNonRetryable = errors.New("error is not retryable")

// DomainErrorChecker classifies retry eligibility from this engine's own
// closed error taxonomy (domain.ErrorKind) rather than from raw
// network/DNS/syscall internals. A *domain.ToolError is classified by
// its kind; any other error (a plain adapter error such as memorydoc's
// injected failure, or a context deadline) is treated as retryable.
type DomainErrorChecker struct{}

// IsRetryable implements RetryableErrorChecker.
func (c *DomainErrorChecker) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNonRetryable) || errors.Is(err, context.Canceled) {
		return false
	}
	switch {
	case domain.IsKind(err, domain.ErrTimeout):
		return true // one more attempt may land inside the next adapter_deadline window
	case domain.IsKind(err, domain.ErrCircuitOpen):
		return false // Allow() already failed fast; retrying an open breaker only burns the attempt budget
	case domain.IsKind(err, domain.ErrNotFound),
		domain.IsKind(err, domain.ErrValidation),
		domain.IsKind(err, domain.ErrConfiguration):
		return false // these never change outcome on retry
	case domain.IsKind(err, domain.ErrDegraded):
		return false // a degraded_result already carries the adapter's best effort
	}
	// Untyped errors come straight from the adapter (or are context
	// errors) - worth one retry rather than failing the whole fan-out
	// slot outright.
	return true
}

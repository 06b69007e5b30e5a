package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/pkg/metrics"
)

// BreakerState is the circuit breaker's three-state machine (spec §4.2).
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerConfig configures one named breaker.
type BreakerConfig struct {
	FailureThreshold  int           `mapstructure:"failure_threshold"`
	Window            time.Duration `mapstructure:"window"`
	OpenDuration      time.Duration `mapstructure:"open_duration"`
	HalfOpenMaxProbes int           `mapstructure:"half_open_max_probes"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// DefaultBreakerConfig is the single fixed default named in spec §9's
// Open Question on remote-cache breaker thresholds: threshold=5 within a
// 30s window, open for 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:  5,
		Window:            30 * time.Second,
		OpenDuration:      30 * time.Second,
		HalfOpenMaxProbes: 1,
		Timeout:           2 * time.Second,
	}
}

// Breaker is one named upstream's circuit breaker. Safe for concurrent
// use; state transitions are serialized per breaker (spec §5).
type Breaker struct {
	name   string
	config BreakerConfig
	logger *slog.Logger
	mets   *metrics.BreakerMetrics

	mu            sync.Mutex
	state         BreakerState
	failures      []time.Time // sliding window of failure timestamps
	openedAt      time.Time
	halfOpenCalls int
}

func newBreaker(name string, cfg BreakerConfig, logger *slog.Logger, mets *metrics.BreakerMetrics) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Breaker{name: name, config: cfg, logger: logger, mets: mets, state: StateClosed}
	if mets != nil {
		mets.SetState(name, 0)
	}
	return b
}

// Allow reports whether a call may proceed, transitioning Open->HalfOpen
// when open_duration has elapsed. Returns domain.ErrCircuitOpen wrapped
// in a *domain.ToolError when the call must fail fast.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) >= b.config.OpenDuration {
			b.transitionTo(StateHalfOpen)
			b.halfOpenCalls = 1
			return nil
		}
		if b.mets != nil {
			b.mets.RecordBlocked(b.name)
		}
		return domain.CircuitOpen(b.name)
	case StateHalfOpen:
		if b.halfOpenCalls >= b.config.HalfOpenMaxProbes {
			if b.mets != nil {
				b.mets.RecordBlocked(b.name)
			}
			return domain.CircuitOpen(b.name)
		}
		b.halfOpenCalls++
		return nil
	default:
		return nil
	}
}

// RecordSuccess reports a successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.transitionTo(StateClosed)
	case StateClosed:
		// nothing to do; failures window only tracks failures
	}
}

// RecordFailure reports a failed or timed-out call outcome.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	switch b.state {
	case StateHalfOpen:
		b.transitionTo(StateOpen)
		return
	case StateClosed:
		b.failures = append(b.failures, now)
		b.failures = pruneBefore(b.failures, now.Add(-b.config.Window))
		if len(b.failures) >= b.config.FailureThreshold {
			b.transitionTo(StateOpen)
		}
	}
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(ts); i++ {
		if ts[i].After(cutoff) {
			break
		}
	}
	return ts[i:]
}

// transitionTo must be called with b.mu held.
func (b *Breaker) transitionTo(next BreakerState) {
	prev := b.state
	b.state = next
	b.halfOpenCalls = 0
	if next == StateOpen {
		b.openedAt = time.Now()
	}
	if next == StateClosed {
		b.failures = nil
	}
	b.logger.Info("circuit breaker transition",
		"upstream", b.name, "before", prev.String(), "after", next.String())
	if b.mets != nil {
		b.mets.RecordTransition(b.name, prev.String(), next.String())
		b.mets.SetState(b.name, float64(next))
	}
}

// State returns the current state (thread-safe snapshot).
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CircuitState is a DTO mirroring the spec's CircuitState entity.
type CircuitState struct {
	Name                  string
	State                 BreakerState
	FailureCount          int
	OpenedAt              time.Time
	HalfOpenProbesInflight int
}

// Snapshot returns the CircuitState DTO for this breaker.
func (b *Breaker) Snapshot() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return CircuitState{
		Name:                  b.name,
		State:                 b.state,
		FailureCount:          len(b.failures),
		OpenedAt:              b.openedAt,
		HalfOpenProbesInflight: b.halfOpenCalls,
	}
}

// Call executes fn through the breaker, applying the breaker's own
// timeout T as a context deadline (spec §4.2) and recording the outcome.
// It never retries; pair with resilience.WithRetry around Call for the
// full breaker+retry wrapper.
func (b *Breaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := b.Allow(); err != nil {
		return err
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if b.config.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// Registry is the process-wide map of named breakers (one per adapter,
// plus one for the remote cache, per spec §4.2). Breakers are created
// lazily on first use with either a per-name override config or the
// registry's default.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	defaults BreakerConfig
	overrides map[string]BreakerConfig
	logger   *slog.Logger
	mets     *metrics.BreakerMetrics
}

// NewRegistry builds a breaker registry with the given default config.
func NewRegistry(defaults BreakerConfig, logger *slog.Logger, mets *metrics.BreakerMetrics) *Registry {
	return &Registry{
		breakers:  make(map[string]*Breaker),
		defaults:  defaults,
		overrides: make(map[string]BreakerConfig),
		logger:    logger,
		mets:      mets,
	}
}

// Configure installs a per-name override, used before the breaker is
// first created (e.g. from SourceConfig or cache.remote.breaker).
func (r *Registry) Configure(name string, cfg BreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[name] = cfg
}

// Get returns (creating if necessary) the named breaker.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	cfg := r.defaults
	if override, ok := r.overrides[name]; ok {
		cfg = override
	}
	b = newBreaker(name, cfg, r.logger, r.mets)
	r.breakers[name] = b
	return b
}

// Snapshots returns a CircuitState for every breaker created so far,
// used by the health monitor.
func (r *Registry) Snapshots() []CircuitState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CircuitState, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Snapshot())
	}
	return out
}

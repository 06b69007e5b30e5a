// Package engine wires every component into a single running process
// and owns the startup/shutdown lifecycle (spec §4.8): load config,
// build the metrics/logging/breaker plumbing, resolve and initialize
// adapters, warm the corpus, start the health monitor, serve, and drain
// on signal. Grounded on the teacher's cmd/server/main.go, generalized
// from inline main() logic into a reusable Engine type so cmd/server
// stays a thin flag-parsing shell.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/adapter/memorydoc"
	"github.com/relentless-ops/runbook-engine/internal/cache"
	"github.com/relentless-ops/runbook-engine/internal/config"
	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/health"
	"github.com/relentless-ops/runbook-engine/internal/index"
	"github.com/relentless-ops/runbook-engine/internal/matcher"
	"github.com/relentless-ops/runbook-engine/internal/resilience"
	"github.com/relentless-ops/runbook-engine/internal/toolapi"
	"github.com/relentless-ops/runbook-engine/pkg/logger"
	"github.com/relentless-ops/runbook-engine/pkg/metrics"
)

// warmupDeadline bounds the initial synchronous indexing pass (spec
// §4.8 step 6 "warmup failures degrade startup, never block past the
// deadline").
const warmupDeadline = 30 * time.Second

// Engine owns every long-lived collaborator and the goroutines that
// keep them refreshed. Construct with New, run with Start.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger
	mets   *metrics.MetricsRegistry

	breakers *resilience.Registry
	cacheSvc *cache.Cache
	remote   cache.RemoteTier

	registry *adapter.Registry
	adapters []toolapi.RegisteredAdapter

	docs     *index.SnapshotStore
	indexer  *index.Indexer
	runbooks *index.RunbookIndex
	matcher  *matcher.Matcher
	monitor  *health.Monitor

	API *toolapi.API

	stopTicks context.CancelFunc
	wg        sync.WaitGroup

	mu      sync.Mutex
	serving bool
}

// New loads and validates configuration (step 1), then builds every
// stateless collaborator (steps 2-4). It does not start any goroutine
// or touch an adapter; call Start for that.
func New(configPath string) (*Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	mets := metrics.NewMetricsRegistry("runbook_engine")

	breakers := resilience.NewRegistry(resilience.BreakerConfig{
		FailureThreshold:  5,
		Window:            30 * time.Second,
		OpenDuration:      30 * time.Second,
		HalfOpenMaxProbes: 1,
		Timeout:           cfg.Performance.AdapterDeadline,
	}, log, mets.Breaker())

	var remote cache.RemoteTier
	if cfg.Cache.Strategy == "hybrid" && cfg.Cache.Remote.Enabled {
		breakers.Configure("remote_cache", resilience.BreakerConfig{
			FailureThreshold:  cfg.Cache.Remote.Breaker.FailureThreshold,
			Window:            cfg.Cache.Remote.Breaker.Window,
			OpenDuration:      cfg.Cache.Remote.Breaker.OpenDuration,
			HalfOpenMaxProbes: 1,
			Timeout:           cfg.Performance.AdapterDeadline,
		})
		remote = cache.NewRedisTier(cache.RedisConfig{
			Addr:        cfg.Cache.Remote.Addr,
			Password:    cfg.Cache.Remote.Password,
			DB:          cfg.Cache.Remote.DB,
			PoolSize:    cfg.Cache.Remote.PoolSize,
			DialTimeout: cfg.Cache.Remote.DialTimeout,
		})
	}

	contentTTL := make(map[string]time.Duration, len(cfg.ContentTypes))
	for name, ct := range cfg.ContentTypes {
		contentTTL[name] = ct.TTL
	}
	if len(contentTTL) == 0 {
		contentTTL = cache.DefaultContentTypeTTL()
	}

	cacheSvc := cache.New(cache.Config{
		Strategy:        cache.Strategy(cfg.Cache.Strategy),
		MemoryMaxItems:  cfg.Cache.Memory.MaxEntries,
		CleanupInterval: cfg.Cache.Memory.CleanupInterval,
		ContentTypeTTL:  contentTTL,
	}, remote, breakers.Get("remote_cache"), log, mets.Cache())

	registry := adapter.NewRegistry()
	if err := registry.Register("memorydoc", memorydoc.Factory(nil, memorydoc.FaultConfig{})); err != nil {
		return nil, fmt.Errorf("register memorydoc factory: %w", err)
	}

	docs := index.NewSnapshotStore()
	runbooks := index.NewRunbookIndex()

	e := &Engine{
		cfg:      cfg,
		logger:   log,
		mets:     mets,
		breakers: breakers,
		cacheSvc: cacheSvc,
		remote:   remote,
		registry: registry,
		docs:     docs,
		runbooks: runbooks,
		monitor: health.New(health.Config{
			CheckInterval: 30 * time.Second,
			WindowSize:    5 * time.Minute,
			Targets:       health.Targets{DefaultP95Target: 500 * time.Millisecond},
		}, breakers, log, mets.Adapter()),
		matcher: matcher.New(matcher.Config{
			MinConfidence:       cfg.Matcher.MinConfidence,
			MaxResults:          cfg.Matcher.MaxResults,
			SimilarityThreshold: cfg.Matcher.SimilarityThreshold,
			Aliases:             matcher.AliasMap(cfg.Matcher.AliasMap),
			PerCallConcurrency:  cfg.Performance.PerCallConcurrencyLimit,
			AdapterDeadline:     cfg.Performance.AdapterDeadline,
			RetryPolicy: resilience.AdapterRetryPolicy(
				cfg.Performance.AdapterDeadline, &resilience.DomainErrorChecker{}, mets.Retry(), "adapter_call"),
		}),
	}

	e.indexer = index.New(index.Config{
		DeletionGraceWindow: cfg.Indexer.DeletionGraceWindow,
	}, docs, log, mets.Corpus(), e.onCorpusChange)

	return e, nil
}

// onCorpusChange invalidates nothing directly - cache entries are keyed
// by corpus_epoch (spec §4.3), so a new epoch makes every prior entry
// unreachable without an explicit purge. It exists as an Indexer hook
// so a future eager-invalidation strategy has somewhere to attach.
func (e *Engine) onCorpusChange(cs domain.ChangeSet) {
	e.logger.Info("corpus changed",
		"added", len(cs.Additions), "updated", len(cs.Updates), "deleted", len(cs.Deletions))
}

// RegisterAdapterFactory exposes the adapter registry for additional
// source types beyond the built-in memorydoc reference adapter.
func (e *Engine) RegisterAdapterFactory(adapterType string, factory adapter.Factory) error {
	return e.registry.Register(adapterType, factory)
}

// Start resolves every configured source against the registry (step 4),
// initializes each adapter with a startup deadline (step 5), runs one
// synchronous warmup indexing pass bounded by warmupDeadline (step 6,
// part 1), builds the Tool API, then launches the background refresh
// and health-check tickers (steps 6-7). It returns once the engine is
// ready to serve; warmup failures are logged and degrade readiness
// rather than aborting startup.
func (e *Engine) Start(ctx context.Context) error {
	e.registry.Freeze()

	enabled := make([]adapter.Adapter, 0, len(e.cfg.Sources))
	for _, sc := range e.cfg.Sources {
		if !sc.Enabled {
			continue
		}
		a, err := e.registry.Build(sc)
		if err != nil {
			e.logger.Error("failed to build adapter", "source", sc.Name, "error", err)
			continue
		}

		initCtx, cancel := context.WithTimeout(ctx, e.cfg.Performance.AdapterDeadline)
		err = a.Initialize(initCtx, sc)
		cancel()
		if err != nil {
			e.logger.Error("adapter failed to initialize", "source", sc.Name, "error", err)
			continue
		}

		e.monitor.Register(a.Name(), sc.Type)
		br := e.breakers.Get(a.Name())
		e.adapters = append(e.adapters, toolapi.RegisteredAdapter{Adapter: a, Priority: sc.Priority, Breaker: br})
		enabled = append(enabled, a)
	}

	warmCtx, cancel := context.WithTimeout(ctx, warmupDeadline)
	e.warmup(warmCtx, enabled)
	cancel()

	e.API = toolapi.New(toolapi.Deps{
		Cache:    e.cacheSvc,
		Matcher:  e.matcher,
		Docs:     e.docs,
		Runbooks: e.runbooks,
		Health:   e.monitor,
		Logger:   e.logger,
		Metrics:  e.mets.Tool(),
		Adapters: e.allAdapters,
	})

	tickCtx, stop := context.WithCancel(context.Background())
	e.stopTicks = stop
	e.startRefreshLoop(tickCtx, enabled)
	e.startHealthLoop(tickCtx, enabled)

	e.mu.Lock()
	e.serving = true
	e.mu.Unlock()

	e.logger.Info("engine started", "adapters", len(e.adapters))
	return nil
}

func (e *Engine) allAdapters() []toolapi.RegisteredAdapter {
	return e.adapters
}

// warmup runs one synchronous indexing pass per adapter plus a
// corpus-wide runbook refresh, each independently bounded by the
// warmup context so one slow adapter cannot stall the rest (spec §4.8
// step 6).
func (e *Engine) warmup(ctx context.Context, adapters []adapter.Adapter) {
	var wg sync.WaitGroup
	for _, a := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()
			if _, err := e.indexer.RefreshOne(ctx, a); err != nil {
				e.logger.Warn("warmup indexing failed", "adapter", a.Name(), "error", err)
			}
		}(a)
	}
	wg.Wait()

	listers := make([]index.RunbookLister, len(adapters))
	for i, a := range adapters {
		listers[i] = a
	}
	e.runbooks.Refresh(ctx, listers)
}

// startRefreshLoop runs one ticking goroutine per adapter, each on its
// own refresh_interval (spec §4.4), bounded in aggregate by
// performance.global_concurrency_limit via a shared semaphore.
func (e *Engine) startRefreshLoop(ctx context.Context, adapters []adapter.Adapter) {
	sem := make(chan struct{}, max(1, e.cfg.Performance.GlobalConcurrencyLimit))
	for _, a := range adapters {
		a := a
		interval := 5 * time.Minute
		for _, sc := range e.cfg.Sources {
			if sc.Name == a.Name() && sc.RefreshEach > 0 {
				interval = sc.RefreshEach
			}
		}
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					sem <- struct{}{}
					_, err := e.indexer.RefreshOne(ctx, a)
					<-sem
					if err != nil {
						e.logger.Warn("refresh pass failed", "adapter", a.Name(), "error", err)
						continue
					}
					listers := make([]index.RunbookLister, len(e.adaptersSnapshot()))
					for i, ra := range e.adaptersSnapshot() {
						listers[i] = ra
					}
					e.runbooks.Refresh(ctx, listers)
				}
			}
		}()
	}
}

func (e *Engine) adaptersSnapshot() []adapter.Adapter {
	out := make([]adapter.Adapter, len(e.adapters))
	for i, ra := range e.adapters {
		out[i] = ra.Adapter
	}
	return out
}

// startHealthLoop runs the health monitor's check_interval ticker
// against every enabled adapter (spec §4.7).
func (e *Engine) startHealthLoop(ctx context.Context, adapters []adapter.Adapter) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.monitorInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, a := range adapters {
					checkCtx, cancel := context.WithTimeout(ctx, e.cfg.Performance.AdapterDeadline)
					snap := a.HealthCheck(checkCtx)
					cancel()
					e.monitor.RecordCall(a.Name(), time.Duration(snap.LatencyMsP50)*time.Millisecond, snap.Status != domain.HealthUnhealthy)
				}
			}
		}
	}()
}

func (e *Engine) monitorInterval() time.Duration {
	return 30 * time.Second
}

// Shutdown stops accepting new ticks, waits for in-flight background
// work, calls Cleanup on every adapter, and closes the remote cache tier
// (spec §4.8 step 9). It respects the caller's context deadline rather
// than blocking indefinitely.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.serving = false
	e.mu.Unlock()

	if e.stopTicks != nil {
		e.stopTicks()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		e.logger.Warn("shutdown deadline exceeded waiting for background loops")
	}

	var errs []error
	for _, ra := range e.adapters {
		cleanupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := ra.Adapter.Cleanup(cleanupCtx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", ra.Adapter.Name(), err))
		}
	}

	if err := e.cacheSvc.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}

	e.logger.Info("engine shut down", "errors", len(errs))
	if len(errs) > 0 {
		return fmt.Errorf("shutdown encountered %d error(s): %v", len(errs), errs[0])
	}
	return nil
}

// Logger returns the engine's structured logger, for the wire layer to
// share.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Config returns the loaded, validated configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Metrics returns the metrics registry, for a promhttp handler.
func (e *Engine) Metrics() *metrics.MetricsRegistry { return e.mets }

// Health returns the health monitor, for the /healthz handler.
func (e *Engine) Health() *health.Monitor { return e.monitor }

// AdapterNames lists every currently registered adapter's name, for
// EngineStatus aggregation.
func (e *Engine) AdapterNames() []string {
	names := make([]string, len(e.adapters))
	for i, ra := range e.adapters {
		names[i] = ra.Adapter.Name()
	}
	return names
}

// RemoteCacheAvailable reports whether the remote cache tier is
// configured and its breaker is not open.
func (e *Engine) RemoteCacheAvailable() bool {
	if e.remote == nil {
		return false
	}
	return e.breakers.Get("remote_cache").State() != resilience.StateOpen
}

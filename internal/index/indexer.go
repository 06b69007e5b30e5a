package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/pkg/metrics"
)

// Enumerator is the subset of the adapter contract the indexer depends
// on: the ability to list the adapter's current document inventory.
// internal/adapter.Adapter satisfies this structurally.
type Enumerator interface {
	Name() string
	Enumerate(ctx context.Context) ([]domain.Document, error)
}

// Config configures one indexer run.
type Config struct {
	// DeletionGraceWindow is the number of consecutive passes a
	// document must be absent for before its deletion is confirmed
	// (spec §4.4 "two-pass deletion").
	DeletionGraceWindow int
}

// DefaultConfig returns the spec's two-pass deletion default.
func DefaultConfig() Config {
	return Config{DeletionGraceWindow: 2}
}

// Indexer maintains per-adapter fingerprint state, computes ChangeSets
// on each refresh pass, and publishes an atomically-swapped corpus
// Snapshot for the matcher (spec §4.4).
type Indexer struct {
	cfg     Config
	logger  *slog.Logger
	mets    *metrics.CorpusMetrics
	store   *SnapshotStore
	fp      *Fingerprinter

	mu         sync.Mutex
	perAdapter map[string]*adapterState
	epoch      atomic.Uint64

	onChange func(domain.ChangeSet)
}

// New builds an Indexer. onChange, if non-nil, is invoked synchronously
// after each pass that produces a nonempty ChangeSet (the engine's hook
// logs the change; cache entries keyed to the old epoch are not purged,
// they simply stop being looked up).
func New(cfg Config, store *SnapshotStore, logger *slog.Logger, mets *metrics.CorpusMetrics, onChange func(domain.ChangeSet)) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DeletionGraceWindow <= 0 {
		cfg = DefaultConfig()
	}
	return &Indexer{
		cfg:        cfg,
		logger:     logger,
		mets:       mets,
		store:      store,
		fp:         NewFingerprinter(),
		perAdapter: make(map[string]*adapterState),
		onChange:   onChange,
	}
}

// Epoch returns the current corpus epoch.
func (ix *Indexer) Epoch() uint64 {
	return ix.epoch.Load()
}

// RefreshOne runs a single pass against one adapter (spec §4.4 steps
// 1-5), merges the result into the corpus, and republishes the snapshot
// if anything changed. An adapter enumeration failure retains the prior
// snapshot for that adapter untouched (spec "Failure policy").
func (ix *Indexer) RefreshOne(ctx context.Context, adapter Enumerator) (domain.ChangeSet, error) {
	docs, err := adapter.Enumerate(ctx)
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("enumerate %s: %w", adapter.Name(), err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	st, ok := ix.perAdapter[adapter.Name()]
	if !ok {
		st = newAdapterState()
		ix.perAdapter[adapter.Name()] = st
	}

	entries, stats := diffPass(adapter.Name(), docs, st, ix.cfg.DeletionGraceWindow)
	cs := newChangeSet(time.Now())
	mergeChangeSet(&cs, adapter.Name(), entries, stats)

	ix.publishLocked(cs)
	return cs, nil
}

// RefreshAll runs a pass against every given adapter and returns the
// merged engine-wide ChangeSet. Adapters that fail enumeration are
// skipped (logged) rather than aborting the whole pass.
func (ix *Indexer) RefreshAll(ctx context.Context, adapters []Enumerator) domain.ChangeSet {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	cs := newChangeSet(time.Now())
	for _, adapter := range adapters {
		docs, err := adapter.Enumerate(ctx)
		if err != nil {
			ix.logger.Warn("adapter enumeration failed, retaining prior snapshot", "adapter", adapter.Name(), "error", err)
			continue
		}
		st, ok := ix.perAdapter[adapter.Name()]
		if !ok {
			st = newAdapterState()
			ix.perAdapter[adapter.Name()] = st
		}
		entries, stats := diffPass(adapter.Name(), docs, st, ix.cfg.DeletionGraceWindow)
		mergeChangeSet(&cs, adapter.Name(), entries, stats)
	}

	ix.publishLocked(cs)
	return cs
}

// publishLocked bumps the epoch and republishes the snapshot if cs is
// nonempty, and invokes onChange. Must be called with ix.mu held.
func (ix *Indexer) publishLocked(cs domain.ChangeSet) {
	if cs.Empty() {
		return
	}
	epoch := ix.epoch.Add(1)
	snap := buildSnapshot(epoch, ix.perAdapter)
	ix.store.Publish(snap)

	if ix.mets != nil {
		ix.mets.Set(len(snap.Documents), epoch)
	}
	ix.logger.Info("corpus changed",
		"epoch", epoch,
		"additions", len(cs.Additions),
		"updates", len(cs.Updates),
		"deletions", len(cs.Deletions))

	if ix.onChange != nil {
		ix.onChange(cs)
	}
}

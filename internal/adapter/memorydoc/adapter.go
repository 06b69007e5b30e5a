// Package memorydoc implements an in-process, fixture-backed reference
// adapter. It exists to exercise the adapter contract, matcher, indexer,
// and cache layers in tests and local demos without a real documentation
// backend; it supports artificial latency and failure injection so
// fan-out degradation, breaker tripping, and timeout handling can be
// exercised deterministically.
package memorydoc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/index"
)

// Fixture seeds one runbook or knowledge-base document at construction.
type Fixture struct {
	Runbook *domain.Runbook
	Doc     *domain.Document // used for plain knowledge-base entries

	// Relevance is this adapter's own opinion of Runbook's relevance,
	// reported to the matcher as RunbookMatch.Relevance (spec §4.5 step
	// 4's "adapter's own relevance score"). Zero defaults to 1.0, since
	// a fixture-backed adapter has nothing upstream to derive a lesser
	// score from unless a test deliberately sets one - see
	// TestMatcher_BaseRelevanceComesFromAdapter for a fixture that does.
	Relevance float64
}

// FaultConfig injects artificial latency and failures for resilience
// testing. All fields are optional.
type FaultConfig struct {
	Latency        time.Duration
	FailEveryNCall int // 0 disables; every Nth call to Search/GetDocument/SearchRunbooks/ListRunbooks fails
}

// Adapter is the in-process reference Adapter implementation.
type Adapter struct {
	name   string
	status domain.AdapterStatus
	fault  FaultConfig

	mu        sync.RWMutex
	runbooks  map[string]domain.Runbook
	relevance map[string]float64 // by runbook id, see Fixture.Relevance
	documents map[string]domain.Document
	callCount int

	priority int
}

// New builds a memorydoc Adapter from a fixed set of fixtures. priority
// comes from the owning SourceConfig once Initialize runs.
func New(name string, fixtures []Fixture, fault FaultConfig) *Adapter {
	a := &Adapter{
		name:      name,
		status:    domain.AdapterUninitialized,
		fault:     fault,
		runbooks:  make(map[string]domain.Runbook),
		relevance: make(map[string]float64),
		documents: make(map[string]domain.Document),
	}
	for _, f := range fixtures {
		if f.Runbook != nil {
			a.runbooks[f.Runbook.ID] = *f.Runbook
			if f.Relevance > 0 {
				a.relevance[f.Runbook.ID] = f.Relevance
			}
		}
		if f.Doc != nil {
			a.documents[f.Doc.ID] = *f.Doc
		}
	}
	return a
}

// Factory adapts New to the adapter.Factory signature: every adapter it
// builds is seeded with the same fixtures and fault config, named after
// cfg.Name. cfg.Extra is not read.
func Factory(fixtures []Fixture, fault FaultConfig) adapter.Factory {
	return func(cfg domain.SourceConfig) (adapter.Adapter, error) {
		a := New(cfg.Name, fixtures, fault)
		a.priority = cfg.Priority
		return a, nil
	}
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) Initialize(ctx context.Context, cfg domain.SourceConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = domain.AdapterInitializing
	a.priority = cfg.Priority
	a.status = domain.AdapterReady
	return nil
}

func (a *Adapter) simulateFault(ctx context.Context) error {
	if a.fault.Latency > 0 {
		select {
		case <-time.After(a.fault.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if a.fault.FailEveryNCall > 0 {
		a.mu.Lock()
		a.callCount++
		shouldFail := a.callCount%a.fault.FailEveryNCall == 0
		a.mu.Unlock()
		if shouldFail {
			return fmt.Errorf("memorydoc %s: injected failure", a.name)
		}
	}
	return nil
}

func (a *Adapter) Search(ctx context.Context, query string, filters adapter.SearchFilters) ([]domain.SearchResult, error) {
	if err := a.simulateFault(ctx); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	var results []domain.SearchResult
	for _, doc := range a.documents {
		if !containsFold(doc.Body, query) && !containsFold(doc.Title, query) {
			continue
		}
		d := doc
		results = append(results, domain.SearchResult{
			DocumentRef:   domain.DocRef{AdapterName: a.name, ID: doc.ID},
			Confidence:    0.6,
			MatchReasons:  []domain.MatchReason{domain.ReasonTextMatch},
			SourceAdapter: a.name,
			Document:      &d,
		})
	}
	return results, nil
}

func (a *Adapter) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	if err := a.simulateFault(ctx); err != nil {
		return domain.Document{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if d, ok := a.documents[id]; ok {
		return d, nil
	}
	if rb, ok := a.runbooks[id]; ok {
		return rb.Document, nil
	}
	return domain.Document{}, domain.NotFound("document", id)
}

func (a *Adapter) SearchRunbooks(ctx context.Context, query adapter.RunbookQuery) ([]adapter.RunbookMatch, error) {
	if err := a.simulateFault(ctx); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []adapter.RunbookMatch
	for _, rb := range a.runbooks {
		if !containsString(rb.AlertTypes, query.AlertType) {
			continue
		}
		rel := a.relevance[rb.ID]
		if rel == 0 {
			rel = 1.0
		}
		out = append(out, adapter.RunbookMatch{Runbook: rb, Relevance: rel})
	}
	return out, nil
}

func (a *Adapter) ListRunbooks(ctx context.Context) ([]domain.Runbook, error) {
	if err := a.simulateFault(ctx); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.Runbook, 0, len(a.runbooks))
	for _, rb := range a.runbooks {
		out = append(out, rb)
	}
	return out, nil
}

func (a *Adapter) HealthCheck(ctx context.Context) domain.HealthSnapshot {
	a.mu.RLock()
	status := a.status
	a.mu.RUnlock()

	hs := domain.HealthSnapshot{
		Name:          a.name,
		LastCheckAt:   time.Now(),
		LastSuccessAt: time.Now(),
	}
	switch status {
	case domain.AdapterReady:
		hs.Status = domain.HealthHealthy
	case domain.AdapterDegraded:
		hs.Status = domain.HealthDegraded
	default:
		hs.Status = domain.HealthUnhealthy
	}
	return hs
}

func (a *Adapter) GetMetadata(ctx context.Context) adapter.Metadata {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return adapter.Metadata{
		Name:          a.name,
		Type:          "memorydoc",
		DocumentCount: len(a.documents) + len(a.runbooks),
		LastUpdated:   time.Now().Format(time.RFC3339),
		Status:        a.status,
	}
}

// Enumerate lists every fixture document (runbooks included, as their
// embedded Document) for the indexer.
func (a *Adapter) Enumerate(ctx context.Context) ([]domain.Document, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	docs := make([]domain.Document, 0, len(a.documents)+len(a.runbooks))
	for _, d := range a.documents {
		docs = append(docs, d)
	}
	for _, rb := range a.runbooks {
		docs = append(docs, rb.Document)
	}
	return docs, nil
}

func (a *Adapter) RefreshIndex(ctx context.Context, force bool) (domain.ChangeSet, error) {
	// the in-memory fixture set never changes on its own; a caller
	// wanting to exercise a change pushes a mutation directly (see
	// PutRunbook/DeleteDocument) and then drives indexing through
	// index.Indexer.RefreshOne, which calls Enumerate.
	return domain.ChangeSet{}, nil
}

func (a *Adapter) Cleanup(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = domain.AdapterShuttingDown
	return nil
}

// PutRunbook inserts or replaces a fixture runbook, for tests exercising
// change detection.
func (a *Adapter) PutRunbook(rb domain.Runbook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runbooks[rb.ID] = rb
}

// DeleteDocument removes a fixture document or runbook by id.
func (a *Adapter) DeleteDocument(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.documents, id)
	delete(a.runbooks, id)
}

var _ index.Enumerator = (*Adapter)(nil)

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

package index

import (
	"context"
	"sync/atomic"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// RunbookLister is the subset of the adapter contract the runbook index
// depends on. internal/adapter.Adapter satisfies this structurally.
type RunbookLister interface {
	Name() string
	ListRunbooks(ctx context.Context) ([]domain.Runbook, error)
}

// RunbookSnapshot is a point-in-time, multi-key view over every
// adapter's runbooks, built to serve get_decision_tree, get_procedure,
// and get_escalation_path without a free-text query (spec §4.6).
type RunbookSnapshot struct {
	ByProcedureID map[string]procedureEntry
	ByScenario    map[string][]domain.Runbook // decision_tree.scenario -> candidate runbooks
	BySeverity    map[domain.Severity][]domain.EscalationStep
}

type procedureEntry struct {
	AdapterName string
	Procedure   domain.Procedure
}

// RunbookIndex holds the current RunbookSnapshot, refreshed on the same
// cadence as the document index.
type RunbookIndex struct {
	ptr atomic.Pointer[RunbookSnapshot]
}

// NewRunbookIndex builds an index seeded with an empty snapshot.
func NewRunbookIndex() *RunbookIndex {
	ix := &RunbookIndex{}
	ix.ptr.Store(emptyRunbookSnapshot())
	return ix
}

func emptyRunbookSnapshot() *RunbookSnapshot {
	return &RunbookSnapshot{
		ByProcedureID: make(map[string]procedureEntry),
		ByScenario:    make(map[string][]domain.Runbook),
		BySeverity:    make(map[domain.Severity][]domain.EscalationStep),
	}
}

// Load returns the currently published RunbookSnapshot.
func (ix *RunbookIndex) Load() *RunbookSnapshot {
	return ix.ptr.Load()
}

// Refresh lists runbooks from every given adapter and republishes a new
// snapshot. Adapters that fail are skipped, retaining no contribution
// from them this pass (their runbooks drop out of the index until they
// recover - unlike the document Indexer, which keeps a failing adapter's
// prior documents).
func (ix *RunbookIndex) Refresh(ctx context.Context, adapters []RunbookLister) *RunbookSnapshot {
	snap := emptyRunbookSnapshot()

	for _, a := range adapters {
		runbooks, err := a.ListRunbooks(ctx)
		if err != nil {
			continue
		}
		for _, rb := range runbooks {
			for _, proc := range rb.Procedures {
				snap.ByProcedureID[proc.ID] = procedureEntry{AdapterName: a.Name(), Procedure: proc}
			}
			if rb.DecisionTree != nil && rb.DecisionTree.Scenario != "" {
				snap.ByScenario[rb.DecisionTree.Scenario] = append(snap.ByScenario[rb.DecisionTree.Scenario], rb)
			}
			for _, sev := range rb.Severities {
				snap.BySeverity[sev] = append(snap.BySeverity[sev], rb.Escalation...)
			}
		}
	}

	ix.ptr.Store(snap)
	return snap
}

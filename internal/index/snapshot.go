package index

import (
	"sync/atomic"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// Snapshot is the matcher's read-only view of the corpus: all documents
// known across all adapters as of the most recently completed refresh
// pass, tagged with the epoch that produced it (spec §4.4 "Ordering").
type Snapshot struct {
	Epoch     uint64
	Documents []domain.Document // flattened across adapters
	ByAdapter map[string][]domain.Document
}

// SnapshotStore holds the single currently-published Snapshot, swapped
// atomically after each refresh pass so the matcher never observes a
// partially-updated corpus.
type SnapshotStore struct {
	ptr atomic.Pointer[Snapshot]
}

// NewSnapshotStore builds a store seeded with an empty, epoch-0 snapshot.
func NewSnapshotStore() *SnapshotStore {
	s := &SnapshotStore{}
	s.ptr.Store(&Snapshot{ByAdapter: make(map[string][]domain.Document)})
	return s
}

// Load returns the currently published snapshot.
func (s *SnapshotStore) Load() *Snapshot {
	return s.ptr.Load()
}

// Publish atomically replaces the current snapshot.
func (s *SnapshotStore) Publish(snap *Snapshot) {
	s.ptr.Store(snap)
}

// buildSnapshot flattens every adapter's current document set into a
// single Snapshot at the given epoch.
func buildSnapshot(epoch uint64, perAdapter map[string]*adapterState) *Snapshot {
	snap := &Snapshot{Epoch: epoch, ByAdapter: make(map[string][]domain.Document, len(perAdapter))}
	for name, st := range perAdapter {
		docs := make([]domain.Document, 0, len(st.documents))
		for _, d := range st.documents {
			docs = append(docs, d)
		}
		snap.ByAdapter[name] = docs
		snap.Documents = append(snap.Documents, docs...)
	}
	return snap
}

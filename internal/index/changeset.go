package index

import (
	"time"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// deletionGrace tracks how many consecutive passes an id has been
// absent for, implementing the spec's two-pass deletion tolerance:
// a document missing from one enumeration pass is a candidate
// deletion, confirmed only if still absent on the following pass.
type deletionGrace struct {
	missingPasses int
}

// adapterState is the indexer's per-adapter bookkeeping: the last known
// fingerprint per document id, plus in-flight deletion candidates.
type adapterState struct {
	fingerprints map[string]domain.Fingerprint // id -> fingerprint
	documents    map[string]domain.Document    // id -> last known document
	candidates   map[string]*deletionGrace     // id -> grace tracker
}

func newAdapterState() *adapterState {
	return &adapterState{
		fingerprints: make(map[string]domain.Fingerprint),
		documents:    make(map[string]domain.Document),
		candidates:   make(map[string]*deletionGrace),
	}
}

// diffPass computes the ChangeSet for one adapter's enumeration pass
// against its prior state, and advances that state in place (spec
// §4.4 steps 2-3). A document that arrives without a fingerprint is
// fingerprinted here from its body and metadata. graceWindow is the
// number of consecutive missing passes required before a deletion is
// confirmed.
func diffPass(adapterName string, seen []domain.Document, st *adapterState, graceWindow int) ([]domain.ChangeEntry, domain.AdapterChangeStats) {
	var entries []domain.ChangeEntry
	var stats domain.AdapterChangeStats

	seenIDs := make(map[string]struct{}, len(seen))
	for _, doc := range seen {
		if doc.Fingerprint.Equal(domain.Fingerprint{}) {
			doc.Fingerprint = NewFingerprinter().Fingerprint(doc.Body, doc.Metadata, nil)
		}
		seenIDs[doc.ID] = struct{}{}
		ref := domain.DocRef{AdapterName: adapterName, ID: doc.ID}

		prior, existed := st.fingerprints[doc.ID]
		switch {
		case !existed:
			entries = append(entries, domain.ChangeEntry{
				Kind:        domain.ChangeAddition,
				Ref:         ref,
				Document:    docPtr(doc),
				NewFingerprint: doc.Fingerprint,
			})
			stats.Additions++
		case !prior.Equal(doc.Fingerprint):
			entries = append(entries, domain.ChangeEntry{
				Kind:           domain.ChangeUpdate,
				Ref:            ref,
				Document:       docPtr(doc),
				OldFingerprint: prior,
				NewFingerprint: doc.Fingerprint,
				ChangedParts:   prior.DiffParts(doc.Fingerprint),
			})
			stats.Updates++
		}

		st.fingerprints[doc.ID] = doc.Fingerprint
		st.documents[doc.ID] = doc
		delete(st.candidates, doc.ID) // reappeared: clear any deletion grace
	}

	// anything previously known but absent from this pass is a deletion
	// candidate; confirm once it has been missing graceWindow times.
	for id, fp := range st.fingerprints {
		if _, present := seenIDs[id]; present {
			continue
		}
		grace, tracked := st.candidates[id]
		if !tracked {
			st.candidates[id] = &deletionGrace{missingPasses: 1}
			continue
		}
		grace.missingPasses++
		if grace.missingPasses < graceWindow {
			continue
		}

		entries = append(entries, domain.ChangeEntry{
			Kind:           domain.ChangeDeletion,
			Ref:            domain.DocRef{AdapterName: adapterName, ID: id},
			OldFingerprint: fp,
		})
		stats.Deletions++
		delete(st.fingerprints, id)
		delete(st.documents, id)
		delete(st.candidates, id)
	}

	stats.Total = stats.Additions + stats.Updates + stats.Deletions
	return entries, stats
}

func docPtr(d domain.Document) *domain.Document {
	v := d
	return &v
}

// mergeChangeSet folds one adapter's pass results into an
// engine-wide ChangeSet.
func mergeChangeSet(cs *domain.ChangeSet, adapterName string, entries []domain.ChangeEntry, stats domain.AdapterChangeStats) {
	for _, e := range entries {
		switch e.Kind {
		case domain.ChangeAddition:
			cs.Additions = append(cs.Additions, e)
		case domain.ChangeUpdate:
			cs.Updates = append(cs.Updates, e)
		case domain.ChangeDeletion:
			cs.Deletions = append(cs.Deletions, e)
		}
	}
	if cs.PerAdapterStat == nil {
		cs.PerAdapterStat = make(map[string]domain.AdapterChangeStats)
	}
	cs.PerAdapterStat[adapterName] = stats
}

// newChangeSet starts an empty ChangeSet stamped with the current time.
func newChangeSet(now time.Time) domain.ChangeSet {
	return domain.ChangeSet{ComputedAt: now, PerAdapterStat: make(map[string]domain.AdapterChangeStats)}
}

package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

type fakeAdapter struct {
	name string
	docs []domain.Document
	err  error
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Enumerate(ctx context.Context) ([]domain.Document, error) {
	return f.docs, f.err
}

func doc(id, body string, meta map[string]string) domain.Document {
	fp := NewFingerprinter().Fingerprint(body, meta, nil)
	return domain.Document{ID: id, Body: body, Metadata: meta, Fingerprint: fp}
}

func TestIndexer_FirstPassIsAllAdditions(t *testing.T) {
	store := NewSnapshotStore()
	ix := New(DefaultConfig(), store, nil, nil, nil)

	a := &fakeAdapter{name: "confluence", docs: []domain.Document{
		doc("d1", "body one", map[string]string{"k": "v"}),
		doc("d2", "body two", nil),
	}}

	cs, err := ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)
	assert.Len(t, cs.Additions, 2)
	assert.Empty(t, cs.Updates)
	assert.Empty(t, cs.Deletions)
	assert.Equal(t, uint64(1), ix.Epoch())
	assert.Len(t, store.Load().Documents, 2)
}

func TestIndexer_UnchangedPassProducesNoChangeSet(t *testing.T) {
	store := NewSnapshotStore()
	ix := New(DefaultConfig(), store, nil, nil, nil)
	a := &fakeAdapter{name: "confluence", docs: []domain.Document{doc("d1", "body", nil)}}

	_, err := ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)
	epochAfterFirst := ix.Epoch()

	cs, err := ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, cs.Empty())
	assert.Equal(t, epochAfterFirst, ix.Epoch(), "epoch must not advance when nothing changed")
}

func TestIndexer_ContentChangeIsUpdate(t *testing.T) {
	store := NewSnapshotStore()
	ix := New(DefaultConfig(), store, nil, nil, nil)
	a := &fakeAdapter{name: "confluence", docs: []domain.Document{doc("d1", "body v1", nil)}}

	_, err := ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)

	a.docs = []domain.Document{doc("d1", "body v2 changed", nil)}
	cs, err := ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, cs.Updates, 1)
	assert.Contains(t, cs.Updates[0].ChangedParts, "content")
}

func TestIndexer_TwoPassDeletion(t *testing.T) {
	store := NewSnapshotStore()
	ix := New(Config{DeletionGraceWindow: 2}, store, nil, nil, nil)
	a := &fakeAdapter{name: "confluence", docs: []domain.Document{doc("d1", "body", nil), doc("d2", "other", nil)}}

	_, err := ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)

	// d2 missing from this pass: candidate deletion, not yet confirmed.
	a.docs = []domain.Document{doc("d1", "body", nil)}
	cs, err := ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)
	assert.Empty(t, cs.Deletions, "first missing pass should not confirm deletion yet")

	// still missing on the second consecutive pass: deletion confirmed.
	cs, err = ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, cs.Deletions, 1)
	assert.Equal(t, "d2", cs.Deletions[0].Ref.ID)
}

func TestIndexer_ReappearanceClearsDeletionGrace(t *testing.T) {
	store := NewSnapshotStore()
	ix := New(Config{DeletionGraceWindow: 2}, store, nil, nil, nil)
	a := &fakeAdapter{name: "confluence", docs: []domain.Document{doc("d1", "body", nil)}}

	_, err := ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)

	a.docs = nil
	_, err = ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)

	a.docs = []domain.Document{doc("d1", "body", nil)}
	cs, err := ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, cs.Empty(), "reappearing before grace window elapses must not register as a change")
}

func TestIndexer_FailedEnumerationRetainsPriorSnapshot(t *testing.T) {
	store := NewSnapshotStore()
	ix := New(DefaultConfig(), store, nil, nil, nil)
	a := &fakeAdapter{name: "confluence", docs: []domain.Document{doc("d1", "body", nil)}}

	_, err := ix.RefreshOne(context.Background(), a)
	require.NoError(t, err)
	before := store.Load()

	failing := &fakeAdapter{name: "confluence", err: assertErr("boom")}
	cs := ix.RefreshAll(context.Background(), []Enumerator{failing})
	assert.True(t, cs.Empty())
	assert.Same(t, before, store.Load(), "snapshot must not change when enumeration fails")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

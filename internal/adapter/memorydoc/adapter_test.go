package memorydoc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

func sampleRunbook(id string, alertTypes ...string) domain.Runbook {
	return domain.Runbook{
		Document:   domain.Document{ID: id, Title: "Runbook " + id, Body: "remediate " + id},
		AlertTypes: alertTypes,
		Severities: []domain.Severity{domain.SeverityHigh},
	}
}

func TestAdapter_SearchRunbooksFiltersByAlertType(t *testing.T) {
	rb1 := sampleRunbook("rb1", "disk_full")
	rb2 := sampleRunbook("rb2", "memory_leak")
	a := New("confluence", []Fixture{{Runbook: &rb1}, {Runbook: &rb2}}, FaultConfig{})

	out, err := a.SearchRunbooks(context.Background(), adapter.RunbookQuery{AlertType: "disk_full"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "rb1", out[0].Runbook.ID)
}

func TestAdapter_SearchRunbooksReportsFixtureRelevance(t *testing.T) {
	rb1 := sampleRunbook("rb1", "disk_full")
	rb2 := sampleRunbook("rb2", "disk_full")
	a := New("confluence", []Fixture{
		{Runbook: &rb1, Relevance: 0.4},
		{Runbook: &rb2}, // defaults to 1.0
	}, FaultConfig{})

	out, err := a.SearchRunbooks(context.Background(), adapter.RunbookQuery{AlertType: "disk_full"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	byID := map[string]float64{}
	for _, m := range out {
		byID[m.Runbook.ID] = m.Relevance
	}
	assert.Equal(t, 0.4, byID["rb1"])
	assert.Equal(t, 1.0, byID["rb2"])
}

func TestAdapter_GetDocumentNotFound(t *testing.T) {
	a := New("confluence", nil, FaultConfig{})
	_, err := a.GetDocument(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))
}

func TestAdapter_FaultInjectionFailsEveryNthCall(t *testing.T) {
	rb := sampleRunbook("rb1", "disk_full")
	a := New("confluence", []Fixture{{Runbook: &rb}}, FaultConfig{FailEveryNCall: 2})

	_, err1 := a.SearchRunbooks(context.Background(), adapter.RunbookQuery{AlertType: "disk_full"})
	require.NoError(t, err1)
	_, err2 := a.SearchRunbooks(context.Background(), adapter.RunbookQuery{AlertType: "disk_full"})
	require.Error(t, err2, "every second call should be injected as a failure")
}

func TestAdapter_LatencyInjectionRespectsContextCancellation(t *testing.T) {
	a := New("confluence", nil, FaultConfig{Latency: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := a.Search(ctx, "anything", adapter.SearchFilters{})
	require.Error(t, err)
}

func TestAdapter_EnumerateIncludesRunbooksAndDocs(t *testing.T) {
	rb := sampleRunbook("rb1", "disk_full")
	doc := domain.Document{ID: "doc1", Title: "kb doc", Body: "body"}
	a := New("confluence", []Fixture{{Runbook: &rb}, {Doc: &doc}}, FaultConfig{})

	docs, err := a.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

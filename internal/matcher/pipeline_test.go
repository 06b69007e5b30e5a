package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/adapter/memorydoc"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

func handle(a adapter.Adapter, priority int, degraded bool) AdapterHandle {
	return AdapterHandle{Adapter: a, Priority: priority, Degraded: degraded}
}

func rb(id string, alertTypes []string, severities []domain.Severity, successRate float64, hasRate bool) domain.Runbook {
	return domain.Runbook{
		Document:       domain.Document{ID: id, Title: "Runbook " + id},
		AlertTypes:     alertTypes,
		Severities:     severities,
		SuccessRate:    successRate,
		HasSuccessRate: hasRate,
	}
}

func TestMatcher_ExactAlertTypeQueryReturnsOnlyExactMatch(t *testing.T) {
	exact := rb("exact", []string{"disk_full"}, nil, 0, false)
	aliasOnly := rb("alias", []string{"storage_exhausted"}, nil, 0, false)
	a := memorydoc.New("a1", []memorydoc.Fixture{{Runbook: &exact}, {Runbook: &aliasOnly}}, memorydoc.FaultConfig{})
	require.NoError(t, a.Initialize(context.Background(), domain.SourceConfig{Name: "a1"}))

	m := New(Config{
		MinConfidence: 0.3, MaxResults: 10, PerCallConcurrency: 10,
		Aliases: AliasMap{"disk_full": {"storage_exhausted"}},
	})
	// memorydoc only returns runbooks whose AlertTypes contain the exact
	// query alert_type, so query with "disk_full" surfaces only "exact"
	// via the adapter's own filter; the alias-only runbook never reaches
	// scoring in this test.
	res := m.SearchRunbooks(context.Background(), []AdapterHandle{handle(a, 1, false)}, adapter.RunbookQuery{AlertType: "disk_full"})
	require.Len(t, res.Results, 1)
	assert.Equal(t, "exact", res.Results[0].DocumentRef.ID)
	assert.Contains(t, res.Results[0].MatchReasons, domain.ReasonExactAlertType)
}

func TestMatcher_BaseRelevanceComesFromAdapter(t *testing.T) {
	low := rb("low-rel", []string{"disk_full"}, nil, 0, false)
	high := rb("high-rel", []string{"disk_full"}, nil, 0, false)
	a := memorydoc.New("a1", []memorydoc.Fixture{
		{Runbook: &low, Relevance: 0.4},
		{Runbook: &high}, // no Relevance set, defaults to 1.0
	}, memorydoc.FaultConfig{})
	require.NoError(t, a.Initialize(context.Background(), domain.SourceConfig{Name: "a1"}))

	m := New(Config{MinConfidence: 0.3, MaxResults: 10, PerCallConcurrency: 10})
	res := m.SearchRunbooks(context.Background(), []AdapterHandle{handle(a, 1, false)}, adapter.RunbookQuery{AlertType: "disk_full"})
	require.Len(t, res.Results, 2)

	byID := map[string]float64{}
	for _, r := range res.Results {
		byID[r.DocumentRef.ID] = r.Confidence
	}
	// confidence = (baseRelevance + 0.35 exact-alert-type bonus) * 0.9 default multiplier
	assert.InDelta(t, 0.675, byID["low-rel"], 0.001, "a lower adapter relevance must score lower, not the hardcoded 1.0 every candidate used to get")
	assert.InDelta(t, 1.0, byID["high-rel"], 0.001, "unset Fixture.Relevance defaults to full relevance, clamped at the confidence ceiling")
}

func TestMatcher_NoAdaptersReturnsNoSourcesAvailable(t *testing.T) {
	m := New(DefaultConfig())
	res := m.SearchRunbooks(context.Background(), nil, adapter.RunbookQuery{AlertType: "disk_full"})
	assert.True(t, res.Degraded)
	assert.Contains(t, res.MatchReasons, domain.ReasonNoSourcesAvailable)
	assert.Empty(t, res.Results)
}

func TestMatcher_CutoffKeepsTiesAtBoundary(t *testing.T) {
	r1 := domain.SearchResult{DocumentRef: domain.DocRef{ID: "a"}, Confidence: 0.9}
	r2 := domain.SearchResult{DocumentRef: domain.DocRef{ID: "b"}, Confidence: 0.5}
	r3 := domain.SearchResult{DocumentRef: domain.DocRef{ID: "c"}, Confidence: 0.5}
	r4 := domain.SearchResult{DocumentRef: domain.DocRef{ID: "d"}, Confidence: 0.4}

	out := applyCutoff([]domain.SearchResult{r1, r2, r3, r4}, 0.3, 2)
	assert.Len(t, out, 3, "both 0.5-confidence results tied at the cutoff boundary must be kept")
}

func TestMatcher_BelowThresholdBestEffortSingleResult(t *testing.T) {
	r1 := domain.SearchResult{DocumentRef: domain.DocRef{ID: "a"}, Confidence: 0.2}
	out := applyCutoff([]domain.SearchResult{r1}, 0.3, 10)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].MatchReasons, domain.ReasonBelowThresholdKept)
}

func TestMatcher_BelowHalfThresholdIsDropped(t *testing.T) {
	r1 := domain.SearchResult{DocumentRef: domain.DocRef{ID: "a"}, Confidence: 0.1}
	out := applyCutoff([]domain.SearchResult{r1}, 0.3, 10)
	assert.Empty(t, out)
}

func TestMatcher_RankOrdersByConfidenceThenPriorityThenID(t *testing.T) {
	results := []domain.SearchResult{
		{DocumentRef: domain.DocRef{ID: "z"}, Confidence: 0.5, SourceAdapter: "low-priority"},
		{DocumentRef: domain.DocRef{ID: "a"}, Confidence: 0.5, SourceAdapter: "high-priority"},
	}
	priority := map[string]int{"low-priority": 5, "high-priority": 1}
	out := rank(results, priority)
	require.Len(t, out, 2)
	assert.Equal(t, "high-priority", out[0].SourceAdapter, "equal confidence should tiebreak on lower adapter priority")
}

func TestSeverityDistance_AdjacentPenalty(t *testing.T) {
	assert.Equal(t, 1, domain.SeverityDistance(domain.SeverityHigh, domain.SeverityCritical))
	assert.Equal(t, 0, domain.SeverityDistance(domain.SeverityHigh, domain.SeverityHigh))
}

package toolapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/adapter/memorydoc"
	"github.com/relentless-ops/runbook-engine/internal/cache"
	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/health"
	"github.com/relentless-ops/runbook-engine/internal/index"
	"github.com/relentless-ops/runbook-engine/internal/matcher"
)

func boolPtr(b bool) *bool { return &b }

func diskFullRunbook() domain.Runbook {
	return domain.Runbook{
		Document: domain.Document{ID: "rb-disk-full", AdapterName: "confluence", Title: "Disk Full Remediation"},
		AlertTypes:      []string{"disk_full"},
		Severities:      []domain.Severity{domain.SeverityHigh},
		AffectedSystems: []string{"db-primary"},
		DecisionTree: &domain.DecisionTree{
			Scenario: "disk_pressure",
			Root:     domain.DecisionNode{Condition: "usage > 90%", Action: "page oncall"},
		},
		Procedures: []domain.Procedure{{
			ID:    "proc-clear-logs",
			Title: "Clear old logs",
			Steps: []domain.ProcedureStep{
				{Index: 1, Action: "list large files"},
				{Index: 2, Action: "archive and delete"},
			},
		}},
		Escalation: []domain.EscalationStep{
			{Role: "oncall_sre", Contact: "pager:sre", Order: 1},
			{Role: "team_lead", Contact: "pager:lead", Order: 2, BusinessHoursOnly: boolPtr(true)},
		},
	}
}

func newTestAPI(t *testing.T, a adapter.Adapter) (*API, *index.Indexer) {
	t.Helper()
	require.NoError(t, a.Initialize(context.Background(), domain.SourceConfig{Name: a.Name(), Priority: 1, Enabled: true}))

	docs := index.NewSnapshotStore()
	ix := index.New(index.DefaultConfig(), docs, nil, nil, nil)
	ix.RefreshAll(context.Background(), []index.Enumerator{a})

	rbIndex := index.NewRunbookIndex()
	rbIndex.Refresh(context.Background(), []index.RunbookLister{a})

	c := cache.New(cache.Config{Strategy: cache.StrategyMemoryOnly, MemoryMaxItems: 100}, nil, nil, nil, nil)
	m := matcher.New(matcher.DefaultConfig())
	mon := health.New(health.DefaultConfig(), nil, nil, nil)
	mon.Register(a.Name(), "memorydoc")
	mon.RunHealthCheck(context.Background(), a)

	api := New(Deps{
		Cache:    c,
		Matcher:  m,
		Docs:     docs,
		Runbooks: rbIndex,
		Health:   mon,
		Adapters: func() []RegisteredAdapter { return []RegisteredAdapter{{Adapter: a, Priority: 1}} },
	})
	return api, ix
}

func TestAPI_SearchRunbooksReturnsMatch(t *testing.T) {
	a := memorydoc.New("confluence", []memorydoc.Fixture{{Runbook: ptrRunbook(diskFullRunbook())}}, memorydoc.FaultConfig{})
	api, _ := newTestAPI(t, a)

	res, toolErr := api.SearchRunbooks(context.Background(), SearchRunbooksArgs{AlertType: "disk_full"})
	require.Nil(t, toolErr)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "rb-disk-full", res.Data[0].DocumentRef.ID)
}

func TestAPI_SearchRunbooksValidationError(t *testing.T) {
	a := memorydoc.New("confluence", nil, memorydoc.FaultConfig{})
	api, _ := newTestAPI(t, a)

	_, toolErr := api.SearchRunbooks(context.Background(), SearchRunbooksArgs{})
	require.NotNil(t, toolErr)
	assert.Equal(t, domain.ErrValidation, toolErr.Code)
}

func TestAPI_GetDecisionTreeByScenario(t *testing.T) {
	a := memorydoc.New("confluence", []memorydoc.Fixture{{Runbook: ptrRunbook(diskFullRunbook())}}, memorydoc.FaultConfig{})
	api, _ := newTestAPI(t, a)

	res, toolErr := api.GetDecisionTree(context.Background(), GetDecisionTreeArgs{Scenario: "disk_pressure"})
	require.Nil(t, toolErr)
	require.NotNil(t, res.Data)
	assert.Equal(t, "disk_pressure", res.Data.Scenario)
}

func TestAPI_GetDecisionTreeNotFound(t *testing.T) {
	a := memorydoc.New("confluence", []memorydoc.Fixture{{Runbook: ptrRunbook(diskFullRunbook())}}, memorydoc.FaultConfig{})
	api, _ := newTestAPI(t, a)

	_, toolErr := api.GetDecisionTree(context.Background(), GetDecisionTreeArgs{Scenario: "unknown_scenario"})
	require.NotNil(t, toolErr)
	assert.Equal(t, domain.ErrNotFound, toolErr.Code)
}

func TestAPI_GetProcedureFullAndStep(t *testing.T) {
	a := memorydoc.New("confluence", []memorydoc.Fixture{{Runbook: ptrRunbook(diskFullRunbook())}}, memorydoc.FaultConfig{})
	api, _ := newTestAPI(t, a)

	full, toolErr := api.GetProcedure(context.Background(), GetProcedureArgs{ProcedureID: "proc-clear-logs"})
	require.Nil(t, toolErr)
	require.NotNil(t, full.Procedure)
	assert.Len(t, full.Procedure.Steps, 2)

	step := 2
	stepRes, toolErr := api.GetProcedure(context.Background(), GetProcedureArgs{ProcedureID: "proc-clear-logs", Step: &step})
	require.Nil(t, toolErr)
	require.NotNil(t, stepRes.StepResult)
	assert.Equal(t, "archive and delete", stepRes.StepResult.Action)
}

func TestAPI_GetProcedureNotFound(t *testing.T) {
	a := memorydoc.New("confluence", nil, memorydoc.FaultConfig{})
	api, _ := newTestAPI(t, a)

	_, toolErr := api.GetProcedure(context.Background(), GetProcedureArgs{ProcedureID: "missing"})
	require.NotNil(t, toolErr)
	assert.Equal(t, domain.ErrNotFound, toolErr.Code)
}

func TestAPI_GetEscalationPathDedupsByRoleAndBusinessHours(t *testing.T) {
	a := memorydoc.New("confluence", []memorydoc.Fixture{{Runbook: ptrRunbook(diskFullRunbook())}}, memorydoc.FaultConfig{})
	api, _ := newTestAPI(t, a)

	res, toolErr := api.GetEscalationPath(context.Background(), GetEscalationPathArgs{Severity: domain.SeverityHigh, BusinessHours: boolPtr(false)})
	require.Nil(t, toolErr)
	require.Len(t, res.Data.Steps, 1)
	assert.Equal(t, "oncall_sre", res.Data.Steps[0].Role)
}

func TestAPI_ListSourcesIncludesHealth(t *testing.T) {
	a := memorydoc.New("confluence", nil, memorydoc.FaultConfig{})
	api, _ := newTestAPI(t, a)

	res, toolErr := api.ListSources(context.Background(), ListSourcesArgs{IncludeHealth: true})
	require.Nil(t, toolErr)
	require.Len(t, res.Data, 1)
	require.NotNil(t, res.Data[0].Health)
	assert.Equal(t, domain.HealthHealthy, res.Data[0].Health.Status)
}

func TestAPI_RecordResolutionFeedbackWithNoWriteCapableAdapterReturnsRecordedFalse(t *testing.T) {
	a := memorydoc.New("confluence", nil, memorydoc.FaultConfig{})
	api, _ := newTestAPI(t, a)

	res, toolErr := api.RecordResolutionFeedback(context.Background(), RecordResolutionFeedbackArgs{
		IncidentID: "inc-1",
		Outcome:    FeedbackOutcome{ResolutionTime: 5 * time.Minute, Success: true},
	})
	require.Nil(t, toolErr)
	assert.False(t, res.Recorded)
	assert.NotEmpty(t, res.FeedbackID)
}

func ptrRunbook(r domain.Runbook) *domain.Runbook { return &r }

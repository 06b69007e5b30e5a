package main

import (
	"time"

	"github.com/relentless-ops/runbook-engine/internal/adapter/memorydoc"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// demoFixtures returns a small, self-contained set of runbooks and
// knowledge-base documents for --seed-demo, so the engine can be
// exercised end-to-end without wiring a real documentation backend.
func demoFixtures() []memorydoc.Fixture {
	businessHoursOnly := true
	return []memorydoc.Fixture{
		{
			Runbook: &domain.Runbook{
				Document: domain.Document{
					ID:          "rb-high-cpu",
					AdapterName: "demo",
					Title:       "High CPU Utilization",
					Body:        "Diagnose and remediate sustained high CPU utilization on application hosts.",
					ContentType: "runbook",
					Metadata:    map[string]string{"owner": "platform-team"},
					LastSeenAt:  time.Now().UTC(),
				},
				AlertTypes:      []string{"high_cpu", "cpu_saturation"},
				Severities:      []domain.Severity{domain.SeverityHigh, domain.SeverityCritical},
				AffectedSystems: []string{"app-server"},
				DecisionTree: &domain.DecisionTree{
					Scenario: "high_cpu",
					Root: domain.DecisionNode{
						Condition: "is load balanced across replicas evenly?",
						Branches: []domain.DecisionNode{
							{Condition: "yes", Action: "scale out additional replicas", Confidence: 0.8},
							{Condition: "no", Action: "investigate hot replica for a runaway process", Confidence: 0.75},
						},
					},
				},
				Procedures: []domain.Procedure{
					{
						ID:    "proc-high-cpu-triage",
						Title: "Triage high CPU",
						Steps: []domain.ProcedureStep{
							{Index: 1, Action: "identify top CPU consumers", Command: "top -o %CPU", TimeEstimate: 2 * time.Minute},
							{Index: 2, Action: "check for recent deploys", TimeEstimate: 1 * time.Minute},
							{Index: 3, Action: "scale out or restart the offending process", TimeEstimate: 5 * time.Minute},
						},
						Rollback: "revert the most recent deploy if CPU correlates with it",
					},
				},
				Escalation: []domain.EscalationStep{
					{Role: "on-call-sre", Contact: "#oncall-sre", Order: 1},
					{Role: "platform-lead", Contact: "#platform-leads", Order: 2, BusinessHoursOnly: &businessHoursOnly},
				},
				HasSuccessRate: true,
				SuccessRate:    0.82,
			},
		},
		{
			Runbook: &domain.Runbook{
				Document: domain.Document{
					ID:          "rb-db-connection-exhaustion",
					AdapterName: "demo",
					Title:       "Database Connection Pool Exhaustion",
					Body:        "Respond to application errors caused by an exhausted database connection pool.",
					ContentType: "runbook",
					Metadata:    map[string]string{"owner": "data-team"},
					LastSeenAt:  time.Now().UTC(),
				},
				AlertTypes:      []string{"db_connection_exhaustion", "connection_pool_full"},
				Severities:      []domain.Severity{domain.SeverityCritical},
				AffectedSystems: []string{"postgres", "app-server"},
				Procedures: []domain.Procedure{
					{
						ID:    "proc-db-pool-recover",
						Title: "Recover connection pool",
						Steps: []domain.ProcedureStep{
							{Index: 1, Action: "check active connection count against pool max", TimeEstimate: 1 * time.Minute},
							{Index: 2, Action: "kill long-running idle-in-transaction queries", TimeEstimate: 3 * time.Minute},
							{Index: 3, Action: "raise pool max temporarily if headroom exists", TimeEstimate: 2 * time.Minute},
						},
					},
				},
				Escalation: []domain.EscalationStep{
					{Role: "on-call-dba", Contact: "#oncall-dba", Order: 1},
				},
			},
		},
		{
			Doc: &domain.Document{
				ID:          "kb-retry-budget-explainer",
				AdapterName: "demo",
				Title:       "What is a retry budget?",
				Body:        "A retry budget caps the fraction of calls that may be retried in a window, preventing retry storms from amplifying an outage.",
				ContentType: "knowledge_base",
				Metadata:    map[string]string{"category": "resilience"},
				LastSeenAt:  time.Now().UTC(),
			},
		},
	}
}

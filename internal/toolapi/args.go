package toolapi

import (
	"time"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// Argument and response types for the seven operations (spec §6). Field
// names and optionality mirror the external schema exactly.

// SearchRunbooksArgs is search_runbooks's argument record.
type SearchRunbooksArgs struct {
	AlertType       string         `json:"alert_type" validate:"required"`
	Severity        domain.Severity `json:"severity,omitempty" validate:"severity_enum"`
	AffectedSystems []string       `json:"affected_systems,omitempty"`
	Context         map[string]any `json:"context,omitempty"`
}

// SearchRunbooksResult is search_runbooks's response.
type SearchRunbooksResult struct {
	Data     []domain.SearchResult `json:"data"`
	Envelope domain.Envelope        `json:"envelope"`
}

// GetDecisionTreeArgs is get_decision_tree's argument record.
type GetDecisionTreeArgs struct {
	Scenario string         `json:"scenario" validate:"required"`
	Context  map[string]any `json:"context,omitempty"`
}

// GetDecisionTreeResult is get_decision_tree's response.
type GetDecisionTreeResult struct {
	Data     *domain.DecisionTree `json:"data"`
	Envelope domain.Envelope       `json:"envelope"`
}

// GetProcedureArgs is get_procedure's argument record.
type GetProcedureArgs struct {
	ProcedureID string `json:"procedure_id" validate:"required"`
	Step        *int   `json:"step,omitempty" validate:"omitempty,min=1"`
}

// GetProcedureResult is get_procedure's response: Procedure is set when
// Step is omitted from the args, StepResult when present (spec §4.6's
// Procedure | ProcedureStep union).
type GetProcedureResult struct {
	Procedure  *domain.Procedure     `json:"procedure,omitempty"`
	StepResult *domain.ProcedureStep `json:"step,omitempty"`
	Envelope   domain.Envelope        `json:"envelope"`
}

// GetEscalationPathArgs is get_escalation_path's argument record.
type GetEscalationPathArgs struct {
	Severity      domain.Severity `json:"severity" validate:"required,severity_enum"`
	Context       map[string]any  `json:"context,omitempty"`
	BusinessHours *bool           `json:"business_hours,omitempty"`
}

// GetEscalationPathResult is get_escalation_path's response.
type GetEscalationPathResult struct {
	Data     domain.EscalationPath `json:"data"`
	Envelope domain.Envelope        `json:"envelope"`
}

// ListSourcesArgs is list_sources's argument record.
type ListSourcesArgs struct {
	IncludeHealth bool `json:"include_health,omitempty"`
}

// ListSourcesResult is list_sources's response.
type ListSourcesResult struct {
	Data     []domain.SourceSummary `json:"data"`
	Envelope domain.Envelope          `json:"envelope"`
}

// SearchFilters is search_knowledge_base's optional filters object.
type SearchFilters struct {
	DocumentType  string  `json:"document_type,omitempty"`
	Source        string  `json:"source,omitempty"`
	MaxResults    int     `json:"max_results,omitempty" validate:"omitempty,min=1"`
	MinConfidence float64 `json:"min_confidence,omitempty" validate:"omitempty,min=0,max=1"`
}

// SearchKnowledgeBaseArgs is search_knowledge_base's argument record.
type SearchKnowledgeBaseArgs struct {
	Query   string         `json:"query" validate:"required"`
	Filters *SearchFilters `json:"filters,omitempty"`
}

// SearchKnowledgeBaseResult is search_knowledge_base's response.
type SearchKnowledgeBaseResult struct {
	Data     []domain.SearchResult `json:"data"`
	Envelope domain.Envelope        `json:"envelope"`
}

// FeedbackOutcome is the nested outcome object of
// record_resolution_feedback.
type FeedbackOutcome struct {
	ResolutionTime time.Duration `json:"resolution_time" validate:"required"`
	Success        bool          `json:"success"`
	Method         string        `json:"method,omitempty"`
}

// RecordResolutionFeedbackArgs is record_resolution_feedback's argument
// record.
type RecordResolutionFeedbackArgs struct {
	IncidentID string          `json:"incident_id" validate:"required"`
	Outcome    FeedbackOutcome `json:"outcome" validate:"required"`
	Feedback   map[string]any  `json:"feedback,omitempty"`
}

// RecordResolutionFeedbackResult is record_resolution_feedback's
// response.
type RecordResolutionFeedbackResult struct {
	Recorded   bool            `json:"recorded"`
	FeedbackID string          `json:"feedback_id"`
	Envelope   domain.Envelope `json:"envelope"`
}

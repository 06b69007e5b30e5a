package toolapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// feedbackSerializer guarantees feedback writes for a given incident_id
// are applied in the order record_resolution_feedback was called (spec
// §5 "Feedback writes are serialized per incident_id").
type feedbackSerializer struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFeedbackSerializer() *feedbackSerializer {
	return &feedbackSerializer{locks: make(map[string]*sync.Mutex)}
}

func (s *feedbackSerializer) lockFor(incidentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[incidentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[incidentID] = l
	}
	return l
}

// RecordResolutionFeedback appends an outcome record, routed to every
// write-capable adapter (spec §4.6). Never cached.
func (a *API) RecordResolutionFeedback(ctx context.Context, args RecordResolutionFeedbackArgs) (RecordResolutionFeedbackResult, *domain.ToolError) {
	start := time.Now()
	if err := a.validate.Struct(args); err != nil {
		return RecordResolutionFeedbackResult{}, a.validationErr(err)
	}

	incidentLock := a.feedback.lockFor(args.IncidentID)
	incidentLock.Lock()
	defer incidentLock.Unlock()

	fb := domain.Feedback{
		IncidentID:     args.IncidentID,
		ResolutionTime: args.Outcome.ResolutionTime,
		Success:        args.Outcome.Success,
		Method:         args.Outcome.Method,
		Notes:          args.Feedback,
		RecordedAt:     time.Now(),
	}

	var partials []domain.PartialFailure
	wrote := false
	for _, r := range a.allAdapters() {
		writer, ok := r.Adapter.(adapter.FeedbackWriter)
		if !ok {
			continue
		}
		if err := writer.RecordFeedback(ctx, fb); err != nil {
			partials = append(partials, domain.PartialFailure{AdapterName: r.Adapter.Name(), Reason: "remote_error"})
			continue
		}
		wrote = true
	}

	feedbackID := uuid.NewString()
	a.recordCall("record_resolution_feedback", start, len(partials) > 0, nil)
	env := envelope(ctx, start, len(partials) > 0, partials, a.corpusEpoch(), false, false)
	return RecordResolutionFeedbackResult{Recorded: wrote, FeedbackID: feedbackID, Envelope: env}, nil
}

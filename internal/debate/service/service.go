// Package service scores debate submissions against the fixed outcome table.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ateneo/internal/domain"
	"ateneo/internal/events"
	"ateneo/internal/platform/metrics"
	"ateneo/internal/storage"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/sentinel"
	"ateneo/pkg/requestcontext"
)

var tracer = otel.Tracer("ateneo/debate")

// SubmitRequest is one reviewer's debate on a case.
type SubmitRequest struct {
	ReviewerEmail string
	CaseID        string
	Diagnosis     string
	Outcome       domain.Outcome
}

// Result is the reviewer's score after the debate and a summary line.
type Result struct {
	NewScore       int    `json:"new_score"`
	SummaryMessage string `json:"summary_message"`
}

type Service struct {
	tx      storage.Tx
	events  events.Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithEvents(e events.Emitter) Option {
	return func(s *Service) {
		s.events = e
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(tx storage.Tx, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		tx:     tx,
		events: events.Discard{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitDebate appends the debate to the case log, closes the reviewer's
// assignment when one is open and applies the outcome's score delta.
func (s *Service) SubmitDebate(ctx context.Context, req SubmitRequest) (Result, error) {
	reviewer, err := domain.ValidateEmail(req.ReviewerEmail)
	if err != nil {
		return Result{}, err
	}
	caseID := strings.TrimSpace(req.CaseID)
	if caseID == "" {
		return Result{}, dErrors.New(dErrors.CodeValidation, "case_id is required")
	}
	outcome := domain.Outcome(strings.ToLower(strings.TrimSpace(string(req.Outcome))))
	delta := domain.ScoreDelta(outcome)

	ctx, span := tracer.Start(ctx, "debate.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("debate.case_id", caseID),
		attribute.String("debate.outcome", string(outcome)),
	)

	now := requestcontext.Now(ctx)
	var profile domain.Profile
	err = s.tx.RunInTx(ctx, reviewer, func(stores storage.Stores) error {
		profile, err = stores.Profiles.FindByEmail(ctx, reviewer)
		if err != nil {
			return storage.Translate(err, "profile not found")
		}
		if _, err := stores.Cases.FindByID(ctx, caseID); err != nil {
			return storage.Translate(err, "case not found")
		}
		if err := stores.Cases.AppendDebate(ctx, caseID, domain.DebateEntry{
			ReviewerEmail: reviewer,
			DiagnosisText: strings.TrimSpace(req.Diagnosis),
			Outcome:       outcome,
			Timestamp:     now,
		}); err != nil {
			return storage.Translate(err, "case not found")
		}
		if err := stores.Assignments.Resolve(ctx, caseID, reviewer, now); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return storage.Translate(err, "assignment not found")
		}

		profile.Score += delta
		profile.UpdatedAt = now
		if err := stores.Profiles.Update(ctx, profile); err != nil {
			return storage.Translate(err, "profile not found")
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return Result{}, err
	}

	s.metrics.IncrementDebateOutcome(string(outcome))
	s.events.Emit(ctx, events.New(events.DebateScored, reviewer, map[string]any{
		"case_id":   caseID,
		"outcome":   outcome,
		"delta":     delta,
		"new_score": profile.Score,
	}, now))
	s.logger.InfoContext(ctx, "debate scored",
		"case_id", caseID,
		"outcome", outcome,
		"delta", delta,
		"request_id", requestcontext.RequestID(ctx),
	)

	return Result{
		NewScore:       profile.Score,
		SummaryMessage: summary(profile, caseID, delta),
	}, nil
}

func summary(p domain.Profile, caseID string, delta int) string {
	name := p.Name
	if name == "" {
		name = p.Email
	}
	return fmt.Sprintf("%s debated case %s: %s points, score now %d.", name, caseID, domain.FormatDelta(delta), p.Score)
}

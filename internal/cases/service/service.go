// Package service runs the case pool: volunteers submit cases, reviewers draw
// them one credit at a time, and the Diagnosis Provider writes hypotheses back.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ateneo/internal/domain"
	"ateneo/internal/events"
	"ateneo/internal/ledger"
	"ateneo/internal/platform/metrics"
	"ateneo/internal/storage"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/email"
	"ateneo/pkg/platform/sentinel"
	"ateneo/pkg/requestcontext"
)

const drawCost = 1

var tracer = otel.Tracer("ateneo/cases")

// Picker returns an index in [0, n).
type Picker func(n int) int

// SubmitRequest is a case as received from the submitter.
type SubmitRequest struct {
	OwnerEmail          string
	Summary             string
	History             string
	AttachmentReference string
}

// SubmitResult carries the new case id and a shareable notification line.
type SubmitResult struct {
	CaseID       string `json:"case_id"`
	Notification string `json:"notification"`
}

type Service struct {
	tx            storage.Tx
	stores        storage.Stores
	pick          Picker
	requireWaiver bool
	events        events.Emitter
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type Option func(*Service)

// WithPicker replaces the uniform random choice among eligible cases.
func WithPicker(p Picker) Option {
	return func(s *Service) {
		if p != nil {
			s.pick = p
		}
	}
}

// WithWaiverRequired toggles the liability-waiver gate on submit and draw.
// The gate is on by default.
func WithWaiverRequired(required bool) Option {
	return func(s *Service) {
		s.requireWaiver = required
	}
}

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

func New(tx storage.Tx, stores storage.Stores, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		tx:            tx,
		stores:        stores,
		pick:          rand.IntN,
		requireWaiver: true,
		events:        events.Discard{},
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit adds a case to the pool with a pending hypothesis.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	owner, err := domain.ValidateEmail(req.OwnerEmail)
	if err != nil {
		return SubmitResult{}, err
	}
	history := strings.TrimSpace(req.History)
	if history == "" {
		return SubmitResult{}, dErrors.New(dErrors.CodeValidation, "case description is required")
	}
	attachment := strings.TrimSpace(req.AttachmentReference)
	if attachment == "" {
		return SubmitResult{}, dErrors.New(dErrors.CodeValidation, "attachment reference is required")
	}
	summary := strings.TrimSpace(req.Summary)
	if summary == "" {
		summary, _, _ = strings.Cut(history, "\n")
		summary = strings.TrimSpace(summary)
	}

	name, err := s.submitter(ctx, owner)
	if err != nil {
		return SubmitResult{}, err
	}

	now := requestcontext.Now(ctx)
	c := domain.Case{
		ID:                  uuid.NewString(),
		OwnerEmail:          owner,
		Summary:             summary,
		History:             history,
		AttachmentReference: attachment,
		DiagnosisHypothesis: domain.HypothesisPending,
		CreatedAt:           now,
	}
	if err := s.stores.Cases.Create(ctx, c); err != nil {
		return SubmitResult{}, storage.Translate(err, "case not found")
	}

	s.metrics.IncrementCaseSubmitted()
	s.events.Emit(ctx, events.New(events.CaseSubmitted, owner, map[string]any{"case_id": c.ID}, now))
	s.logger.InfoContext(ctx, "case submitted",
		"case_id", c.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return SubmitResult{
		CaseID:       c.ID,
		Notification: fmt.Sprintf("%s submitted clinical case %s to Ateneo Clínico IA. The AI hypothesis is pending review.", name, c.ID),
	}, nil
}

// submitter resolves the display name of owner. With the waiver gate on, the
// owner must be registered and have signed; otherwise an unknown owner gets a
// name derived from the address.
func (s *Service) submitter(ctx context.Context, owner string) (string, error) {
	p, err := s.stores.Profiles.FindByEmail(ctx, owner)
	switch {
	case err == nil:
		if s.requireWaiver {
			if err := p.CheckWaiver(); err != nil {
				return "", err
			}
		}
		if p.Name != "" {
			return p.Name, nil
		}
	case errors.Is(err, sentinel.ErrNotFound):
		if s.requireWaiver {
			return "", dErrors.New(dErrors.CodeWaiverRequired, "register and sign the liability waiver before submitting a case")
		}
	case s.requireWaiver:
		return "", storage.Translate(err, "profile not found")
	default:
		s.logger.WarnContext(ctx, "profile lookup failed, deriving submitter name",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return email.DisplayName(owner), nil
}

// Draw assigns the caller a case they neither authored nor drew before and
// charges one credit. Every check runs before the first write, and all writes
// share the caller's transaction, so a failed draw leaves no trace.
func (s *Service) Draw(ctx context.Context, reviewer string) (domain.Case, error) {
	reviewer, err := domain.ValidateEmail(reviewer)
	if err != nil {
		return domain.Case{}, err
	}
	ctx, span := tracer.Start(ctx, "cases.Draw")
	defer span.End()

	now := requestcontext.Now(ctx)
	var (
		drawn   domain.Case
		charged bool
	)
	err = s.tx.RunInTx(ctx, reviewer, func(stores storage.Stores) error {
		profile, err := stores.Profiles.FindByEmail(ctx, reviewer)
		if err != nil {
			return storage.Translate(err, "profile not found")
		}
		if s.requireWaiver {
			if err := profile.CheckWaiver(); err != nil {
				return err
			}
		}
		if !profile.IsAdmin && profile.Credits < drawCost {
			return dErrors.New(dErrors.CodeInsufficientCredits, "insufficient credits to draw a case")
		}

		assigned, err := stores.Assignments.CaseIDsFor(ctx, reviewer)
		if err != nil {
			return storage.Translate(err, "profile not found")
		}
		eligible, err := stores.Cases.ListEligible(ctx, reviewer, assigned)
		if err != nil {
			return storage.Translate(err, "case not found")
		}
		if len(eligible) == 0 {
			return dErrors.New(dErrors.CodeNoCasesAvailable, "no cases available")
		}
		caseID := eligible[s.pick(len(eligible))]

		if _, err := ledger.DebitIn(ctx, stores.Profiles, reviewer, drawCost, now); err != nil {
			return err
		}
		if err := stores.Assignments.Record(ctx, domain.Assignment{
			CaseID:        caseID,
			ReviewerEmail: reviewer,
			AssignedAt:    now,
		}); err != nil {
			return storage.Translate(err, "case not found")
		}
		drawn, err = stores.Cases.FindByID(ctx, caseID)
		if err != nil {
			return storage.Translate(err, "case not found")
		}
		charged = !profile.IsAdmin
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.metrics.IncrementCaseDraw(string(dErrors.CodeOf(err)))
		return domain.Case{}, err
	}

	span.SetAttributes(
		attribute.String("draw.case_id", drawn.ID),
		attribute.Bool("draw.charged", charged),
	)
	s.metrics.IncrementCaseDraw("assigned")
	if charged {
		s.metrics.AddCreditsDebited(drawCost)
	}
	s.events.Emit(ctx, events.New(events.CaseDrawn, reviewer, map[string]any{"case_id": drawn.ID}, now))
	return drawn, nil
}

// ListOwned returns the cases submitted by owner, oldest first.
func (s *Service) ListOwned(ctx context.Context, owner string) ([]domain.Case, error) {
	owner, err := domain.ValidateEmail(owner)
	if err != nil {
		return nil, err
	}
	cases, err := s.stores.Cases.ListByOwner(ctx, owner)
	if err != nil {
		return nil, storage.Translate(err, "case not found")
	}
	if cases == nil {
		cases = []domain.Case{}
	}
	return cases, nil
}

// AttachHypothesis records the Diagnosis Provider's hypothesis on a case.
func (s *Service) AttachHypothesis(ctx context.Context, caseID, hypothesis string) (domain.Case, error) {
	hypothesis = strings.TrimSpace(hypothesis)
	if hypothesis == "" {
		return domain.Case{}, dErrors.New(dErrors.CodeValidation, "hypothesis is required")
	}
	if err := s.stores.Cases.SetHypothesis(ctx, caseID, hypothesis); err != nil {
		return domain.Case{}, storage.Translate(err, "case not found")
	}
	c, err := s.stores.Cases.FindByID(ctx, caseID)
	if err != nil {
		return domain.Case{}, storage.Translate(err, "case not found")
	}
	return c, nil
}

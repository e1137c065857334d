// Package service reconciles hosted checkout sessions with the credit ledger.
// A session is created pending and latches once, to completed (granting its
// credits in the same transaction) or to failed.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ateneo/internal/domain"
	"ateneo/internal/events"
	"ateneo/internal/ledger"
	"ateneo/internal/payment/gateway"
	"ateneo/internal/platform/metrics"
	"ateneo/internal/storage"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/sentinel"
	"ateneo/pkg/requestcontext"
)

var tracer = otel.Tracer("ateneo/payment")

// PurchaseRequest is a purchase as received from the buyer. Price is whole USD.
type PurchaseRequest struct {
	Email   string
	Credits int
	Price   int
	Plan    domain.Plan
}

// SessionResult tells the buyer where to pay.
type SessionResult struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

type Service struct {
	gateway gateway.Gateway
	tx      storage.Tx
	stores  storage.Stores
	baseURL string
	events  events.Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

// WithPublicBaseURL sets the origin used for checkout success and cancel pages.
func WithPublicBaseURL(url string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(url, "/")
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

func New(gw gateway.Gateway, tx storage.Tx, stores storage.Stores, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		gateway: gw,
		tx:      tx,
		stores:  stores,
		baseURL: "http://localhost:8080",
		events:  events.Discard{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession validates the purchase against the pricing schema, opens a
// checkout with the gateway and stores the session as pending.
func (s *Service) CreateSession(ctx context.Context, role domain.Role, req PurchaseRequest) (SessionResult, error) {
	addr, err := domain.ValidateEmail(req.Email)
	if err != nil {
		return SessionResult{}, err
	}
	profile, err := s.stores.Profiles.FindByEmail(ctx, addr)
	if err != nil {
		return SessionResult{}, storage.Translate(err, "profile not found")
	}
	if profile.Role != role {
		return SessionResult{}, dErrors.New(dErrors.CodeValidation, "profile is registered as "+string(profile.Role))
	}
	quote, err := domain.PriceFor(role, req.Credits, req.Price, req.Plan)
	if err != nil {
		return SessionResult{}, dErrors.Wrap(err, dErrors.CodeInvalidAmount, err.Error())
	}

	ctx, span := tracer.Start(ctx, "payment.CreateSession")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.role", string(role)),
		attribute.Int("payment.credits", quote.Credits),
		attribute.Int("payment.amount", quote.Amount),
	)

	session, err := s.gateway.CreateSession(ctx, gateway.SessionRequest{
		OwnerEmail: addr,
		Role:       string(role),
		Credits:    quote.Credits,
		Amount:     quote.Amount,
		Plan:       string(quote.Plan),
		Label:      quote.Label,
		SuccessURL: s.baseURL + "/" + string(role) + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.baseURL + "/" + string(role) + "/payment/cancel",
	})
	if err != nil {
		span.SetStatus(codes.Error, "gateway")
		s.logger.WarnContext(ctx, "payment gateway rejected session",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return SessionResult{}, dErrors.Wrap(err, dErrors.CodeGateway, "payment gateway unavailable")
	}

	if err := s.stores.Payments.Create(ctx, domain.PaymentSession{
		ID:               session.ID,
		OwnerEmail:       addr,
		RequestedCredits: quote.Credits,
		Amount:           quote.Amount,
		Plan:             quote.Plan,
		Status:           domain.PaymentPending,
		CreatedAt:        requestcontext.Now(ctx),
	}); err != nil {
		return SessionResult{}, storage.Translate(err, "payment session not found")
	}

	s.metrics.IncrementPaymentSession(string(role))
	s.logger.InfoContext(ctx, "payment session created",
		"session_id", session.ID,
		"credits", quote.Credits,
		"amount", quote.Amount,
		"request_id", requestcontext.RequestID(ctx),
	)
	return SessionResult{SessionID: session.ID, RedirectURL: session.URL}, nil
}

// OnWebhook verifies a provider callback and applies it. Only a bad signature
// is returned to the caller; anything after verification is logged and
// acknowledged so the provider stops retrying.
func (s *Service) OnWebhook(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.gateway.ParseWebhook(payload, signature)
	if errors.Is(err, gateway.ErrMalformedEvent) {
		s.metrics.IncrementWebhookEvent("unknown", "malformed")
		s.logger.WarnContext(ctx, "signed webhook could not be decoded",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	if err != nil {
		s.metrics.IncrementWebhookEvent("unknown", "rejected")
		s.logger.WarnContext(ctx, "webhook rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeBadSignature, "invalid webhook signature")
	}

	ctx, span := tracer.Start(ctx, "payment.OnWebhook")
	defer span.End()
	span.SetAttributes(
		attribute.String("webhook.type", evt.RawType),
		attribute.String("webhook.session_id", evt.SessionID),
	)

	var result string
	switch evt.Type {
	case gateway.EventCompleted:
		result, err = s.complete(ctx, evt.SessionID)
	case gateway.EventFailed:
		result, err = s.fail(ctx, evt.SessionID)
	default:
		result = "ignored"
		s.logger.InfoContext(ctx, "webhook event ignored",
			"event_type", evt.RawType,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if err != nil {
		result = "error"
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.logger.WarnContext(ctx, "webhook reconciliation failed",
			"event_type", evt.RawType,
			"session_id", evt.SessionID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	s.metrics.IncrementWebhookEvent(evt.RawType, result)
	return nil
}

// complete latches the session and grants its credits in one transaction.
func (s *Service) complete(ctx context.Context, sessionID string) (string, error) {
	session, ok, err := s.lookup(ctx, sessionID)
	if !ok || err != nil {
		return "unknown_session", err
	}
	if session.Status != domain.PaymentPending {
		return "duplicate", nil
	}

	now := requestcontext.Now(ctx)
	var (
		profile   domain.Profile
		duplicate bool
	)
	err = s.tx.RunInTx(ctx, session.OwnerEmail, func(stores storage.Stores) error {
		err := stores.Payments.Transition(ctx, sessionID, domain.PaymentPending, domain.PaymentCompleted, now)
		if errors.Is(err, sentinel.ErrInvalidState) {
			duplicate = true
			return nil
		}
		if err != nil {
			return storage.Translate(err, "payment session not found")
		}
		profile, err = ledger.GrantIn(ctx, stores.Profiles, session.OwnerEmail, session.RequestedCredits, now)
		if err != nil {
			return err
		}
		if session.Plan != "" {
			profile.Tier = session.Plan
			if err := stores.Profiles.Update(ctx, profile); err != nil {
				return storage.Translate(err, "profile not found")
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if duplicate {
		return "duplicate", nil
	}

	s.metrics.AddCreditsGranted(ledger.ReasonPurchase, session.RequestedCredits)
	s.events.Emit(ctx, events.New(events.PaymentCompleted, session.OwnerEmail, map[string]any{
		"session_id": sessionID,
		"amount":     session.Amount,
	}, now))
	s.events.Emit(ctx, events.New(events.CreditsGranted, session.OwnerEmail, map[string]any{
		"credits": session.RequestedCredits,
		"reason":  ledger.ReasonPurchase,
		"balance": profile.Credits,
	}, now))
	s.logger.InfoContext(ctx, "payment completed",
		"session_id", sessionID,
		"credits", session.RequestedCredits,
		"request_id", requestcontext.RequestID(ctx),
	)
	return "completed", nil
}

func (s *Service) fail(ctx context.Context, sessionID string) (string, error) {
	session, ok, err := s.lookup(ctx, sessionID)
	if !ok || err != nil {
		return "unknown_session", err
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, session.OwnerEmail, func(stores storage.Stores) error {
		return stores.Payments.Transition(ctx, sessionID, domain.PaymentPending, domain.PaymentFailed, now)
	})
	if errors.Is(err, sentinel.ErrInvalidState) {
		return "duplicate", nil
	}
	if err != nil {
		return "", storage.Translate(err, "payment session not found")
	}
	s.events.Emit(ctx, events.New(events.PaymentFailed, session.OwnerEmail, map[string]any{"session_id": sessionID}, now))
	return "failed", nil
}

func (s *Service) lookup(ctx context.Context, sessionID string) (domain.PaymentSession, bool, error) {
	session, err := s.stores.Payments.FindByID(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "webhook for unknown session",
			"session_id", sessionID,
			"request_id", requestcontext.RequestID(ctx),
		)
		return domain.PaymentSession{}, false, nil
	}
	if err != nil {
		return domain.PaymentSession{}, false, storage.Translate(err, "payment session not found")
	}
	return session, true, nil
}

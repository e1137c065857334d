// Package service runs the admin bypass path and the operator read models.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"ateneo/internal/admin"
	"ateneo/internal/domain"
	"ateneo/internal/events"
	"ateneo/internal/ledger"
	"ateneo/internal/platform/metrics"
	"ateneo/internal/storage"
	"ateneo/pkg/platform/sentinel"
	"ateneo/pkg/requestcontext"
)

// TokenIssuer signs admin bearer tokens.
type TokenIssuer interface {
	GenerateAdminToken(email string) (string, error)
}

type Service struct {
	authority admin.Verifier
	tokens    TokenIssuer
	tx        storage.Tx
	stores    storage.Stores
	ledger    *ledger.Ledger
	events    events.Emitter
	metrics   *metrics.Metrics
	logger    *slog.Logger
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

func New(authority admin.Verifier, tokens TokenIssuer, tx storage.Tx, stores storage.Stores, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		authority: authority,
		tokens:    tokens,
		tx:        tx,
		stores:    stores,
		events:    events.Discard{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.New(tx, ledger.WithMetrics(s.metrics))
	return s
}

// Authenticate checks key and, when addr names an existing profile, elevates
// it to admin. A mismatched key never touches the store.
func (s *Service) Authenticate(ctx context.Context, key, addr string) (admin.AuthResponse, error) {
	if !s.authority.Verify(key) {
		s.metrics.IncrementAdminAuth("rejected")
		return admin.AuthResponse{Success: false, Message: "invalid admin key"}, nil
	}

	resp := admin.AuthResponse{Success: true}
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr != "" {
		profile, elevated, err := s.elevate(ctx, addr)
		if err != nil {
			return admin.AuthResponse{}, err
		}
		if elevated {
			score := profile.Score
			resp.Score = &score
		}
	}

	token, err := s.tokens.GenerateAdminToken(addr)
	if err != nil {
		return admin.AuthResponse{}, err
	}
	resp.Token = token
	s.metrics.IncrementAdminAuth("granted")
	return resp, nil
}

func (s *Service) elevate(ctx context.Context, addr string) (domain.Profile, bool, error) {
	now := requestcontext.Now(ctx)
	var (
		profile  domain.Profile
		elevated bool
	)
	err := s.tx.RunInTx(ctx, addr, func(stores storage.Stores) error {
		p, err := stores.Profiles.FindByEmail(ctx, addr)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return storage.Translate(err, "profile not found")
		}
		p.Elevate(now)
		if err := stores.Profiles.Update(ctx, p); err != nil {
			return storage.Translate(err, "profile not found")
		}
		profile, elevated = p, true
		return nil
	})
	if err != nil {
		return domain.Profile{}, false, err
	}
	if elevated {
		s.events.Emit(ctx, events.New(events.ProfileElevated, addr, map[string]any{"score": profile.Score}, now))
	} else {
		s.logger.InfoContext(ctx, "admin key accepted for unknown profile",
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return profile, elevated, nil
}

// GrantCredits tops up a profile by hand, outside the purchase flow.
func (s *Service) GrantCredits(ctx context.Context, addr string, credits int) (domain.Profile, error) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	profile, err := s.ledger.Grant(ctx, addr, credits, ledger.ReasonAdjustment)
	if err != nil {
		return domain.Profile{}, err
	}
	s.events.Emit(ctx, events.New(events.CreditsGranted, addr, map[string]any{
		"credits": credits,
		"reason":  ledger.ReasonAdjustment,
	}, requestcontext.Now(ctx)))
	s.logger.InfoContext(ctx, "credits adjusted",
		"credits", credits,
		"balance", profile.Credits,
		"request_id", requestcontext.RequestID(ctx),
	)
	return profile, nil
}

// Stats reads profiles, cases and payments in parallel.
func (s *Service) Stats(ctx context.Context) (admin.StatsResponse, error) {
	var (
		stats    admin.StatsResponse
		profiles []domain.Profile
		payments []domain.PaymentSession
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.stores.Profiles.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalCases, stats.CasesPending, err = s.stores.Cases.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.stores.Payments.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return admin.StatsResponse{}, storage.Translate(err, "not found")
	}

	stats.CasesAnalyzed = stats.TotalCases - stats.CasesPending
	stats.TotalProfiles = len(profiles)
	for _, p := range profiles {
		switch p.Role {
		case domain.RoleVolunteer:
			stats.Volunteers++
		case domain.RoleProfessional:
			stats.Professionals++
		}
		if p.IsAdmin {
			stats.Admins++
		}
	}
	for _, p := range payments {
		switch p.Status {
		case domain.PaymentPending:
			stats.PaymentsPending++
		case domain.PaymentCompleted:
			stats.PaymentsCompleted++
			stats.CreditsSold += p.RequestedCredits
			stats.Revenue += p.Amount
		case domain.PaymentFailed:
			stats.PaymentsFailed++
		}
	}
	return stats, nil
}

func (s *Service) Payments(ctx context.Context) ([]domain.PaymentSession, error) {
	payments, err := s.stores.Payments.List(ctx)
	if err != nil {
		return nil, storage.Translate(err, "payment session not found")
	}
	if payments == nil {
		payments = []domain.PaymentSession{}
	}
	return payments, nil
}

func (s *Service) Profiles(ctx context.Context) ([]domain.Profile, error) {
	profiles, err := s.stores.Profiles.List(ctx)
	if err != nil {
		return nil, storage.Translate(err, "profile not found")
	}
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	return profiles, nil
}

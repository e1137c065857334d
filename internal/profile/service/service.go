// Package service registers participants and reads their profiles.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ateneo/internal/domain"
	"ateneo/internal/events"
	"ateneo/internal/ledger"
	"ateneo/internal/platform/metrics"
	"ateneo/internal/storage"
	"ateneo/pkg/email"
	"ateneo/pkg/platform/sentinel"
	"ateneo/pkg/requestcontext"
)

// RegisterRequest is the registration payload after transport decoding.
type RegisterRequest struct {
	Email        string
	Name         string
	Specialty    string
	AcceptWaiver bool
}

type Service struct {
	tx             storage.Tx
	profiles       storage.ProfileStore
	events         events.Emitter
	metrics        *metrics.Metrics
	logger         *slog.Logger
	welcomeCredits int
}

type Option func(*Service)

// WithWelcomeCredits sets the credits granted to a newly registered professional.
func WithWelcomeCredits(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.welcomeCredits = n
		}
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

func New(tx storage.Tx, profiles storage.ProfileStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		tx:             tx,
		profiles:       profiles,
		events:         events.Discard{},
		logger:         logger,
		welcomeCredits: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the profile for req.Email. Registering an email that
// already exists returns the stored profile untouched and created=false.
func (s *Service) Register(ctx context.Context, role domain.Role, req RegisterRequest) (domain.Profile, bool, error) {
	addr, err := domain.ValidateEmail(req.Email)
	if err != nil {
		return domain.Profile{}, false, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = email.DisplayName(addr)
	}
	now := requestcontext.Now(ctx)

	var (
		profile domain.Profile
		created bool
	)
	err = s.tx.RunInTx(ctx, addr, func(stores storage.Stores) error {
		existing, err := stores.Profiles.FindByEmail(ctx, addr)
		switch {
		case err == nil:
			profile = existing
			return nil
		case !errors.Is(err, sentinel.ErrNotFound):
			return storage.Translate(err, "profile not found")
		}

		profile = domain.Profile{
			Email:     addr,
			Name:      name,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if role == domain.RoleProfessional {
			profile.Specialty = strings.TrimSpace(req.Specialty)
		}
		if req.AcceptWaiver {
			profile.SignWaiver(now)
		}
		if err := stores.Profiles.Create(ctx, profile); err != nil {
			return storage.Translate(err, "profile not found")
		}
		created = true

		if role == domain.RoleProfessional && s.welcomeCredits > 0 {
			profile, err = ledger.GrantIn(ctx, stores.Profiles, addr, s.welcomeCredits, now)
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Profile{}, false, err
	}

	if created {
		s.logger.InfoContext(ctx, "profile registered",
			"role", role,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.events.Emit(ctx, events.New(events.ProfileRegistered, addr, map[string]any{"role": role}, now))
		if profile.WaiverSignedAt != nil {
			s.events.Emit(ctx, events.New(events.WaiverSigned, addr, nil, now))
		}
		if profile.Credits > 0 {
			s.metrics.AddCreditsGranted(ledger.ReasonRegistration, profile.Credits)
			s.events.Emit(ctx, events.New(events.CreditsGranted, addr, map[string]any{
				"credits": profile.Credits,
				"reason":  ledger.ReasonRegistration,
			}, now))
		}
	}
	return profile, created, nil
}

// Get returns the profile of addr.
func (s *Service) Get(ctx context.Context, addr string) (domain.Profile, error) {
	addr, err := domain.ValidateEmail(addr)
	if err != nil {
		return domain.Profile{}, err
	}
	p, err := s.profiles.FindByEmail(ctx, addr)
	if err != nil {
		return domain.Profile{}, storage.Translate(err, "profile not found")
	}
	return p, nil
}

// SignWaiver records that addr accepted the liability waiver. Signing an
// already signed waiver returns the profile unchanged.
func (s *Service) SignWaiver(ctx context.Context, addr string) (domain.Profile, error) {
	addr, err := domain.ValidateEmail(addr)
	if err != nil {
		return domain.Profile{}, err
	}
	now := requestcontext.Now(ctx)

	var (
		profile domain.Profile
		signed  bool
	)
	err = s.tx.RunInTx(ctx, addr, func(stores storage.Stores) error {
		p, err := stores.Profiles.FindByEmail(ctx, addr)
		if err != nil {
			return storage.Translate(err, "profile not found")
		}
		profile = p
		if signed = profile.SignWaiver(now); !signed {
			return nil
		}
		return storage.Translate(stores.Profiles.Update(ctx, profile), "profile not found")
	})
	if err != nil {
		return domain.Profile{}, err
	}
	if signed {
		s.logger.InfoContext(ctx, "waiver signed",
			"role", profile.Role,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.events.Emit(ctx, events.New(events.WaiverSigned, addr, nil, now))
	}
	return profile, nil
}

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ateneo/internal/admin"
	"ateneo/internal/domain"
	"ateneo/internal/events"
	"ateneo/internal/storage/memory"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/requestcontext"
)

type stubIssuer struct {
	emails []string
	err    error
}

func (s *stubIssuer) GenerateAdminToken(email string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.emails = append(s.emails, email)
	return "token-for-" + email, nil
}

type AdminServiceSuite struct {
	suite.Suite
	store    *memory.Store
	issuer   *stubIssuer
	recorder *events.Recorder
	service  *Service
	ctx      context.Context
}

func TestAdminServiceSuite(t *testing.T) {
	suite.Run(t, new(AdminServiceSuite))
}

func (s *AdminServiceSuite) SetupTest() {
	s.store = memory.New()
	s.issuer = &stubIssuer{}
	s.recorder = events.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(admin.NewAuthority("bypass"), s.issuer, s.store, s.store.Stores(), logger, WithEvents(s.recorder))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC))

	s.Require().NoError(s.store.Stores().Profiles.Create(s.ctx, domain.Profile{
		Email: "ana@x.com", Name: "Ana", Role: domain.RoleProfessional, Credits: 2, Score: 40,
	}))
}

func (s *AdminServiceSuite) profile(addr string) domain.Profile {
	p, err := s.store.Stores().Profiles.FindByEmail(s.ctx, addr)
	s.Require().NoError(err)
	return p
}

func (s *AdminServiceSuite) TestAuthenticate() {
	s.Run("mismatch leaves the profile untouched", func() {
		before := s.profile("ana@x.com")
		resp, err := s.service.Authenticate(s.ctx, "wrong", "ana@x.com")
		s.Require().NoError(err)
		s.False(resp.Success)
		s.NotEmpty(resp.Message)
		s.Empty(resp.Token)
		s.Equal(before, s.profile("ana@x.com"))
		s.Empty(s.issuer.emails)
	})

	s.Run("match elevates the profile", func() {
		resp, err := s.service.Authenticate(s.ctx, "bypass", " ANA@x.com ")
		s.Require().NoError(err)
		s.True(resp.Success)
		s.Require().NotNil(resp.Score)
		s.Equal(domain.AdminScoreFloor, *resp.Score)
		s.Equal("token-for-ana@x.com", resp.Token)

		p := s.profile("ana@x.com")
		s.True(p.IsAdmin)
		s.Equal(domain.PlanLevel3, p.Tier)
		s.Equal(domain.AdminScoreFloor, p.Score)
		s.Equal(2, p.Credits)
		s.Len(s.recorder.OfType(events.ProfileElevated), 1)
	})

	s.Run("higher scores are kept", func() {
		p := s.profile("ana@x.com")
		p.Score = 1500
		s.Require().NoError(s.store.Stores().Profiles.Update(s.ctx, p))

		resp, err := s.service.Authenticate(s.ctx, "bypass", "ana@x.com")
		s.Require().NoError(err)
		s.Equal(1500, *resp.Score)
	})

	s.Run("match without a profile issues a token only", func() {
		resp, err := s.service.Authenticate(s.ctx, "bypass", "nobody@x.com")
		s.Require().NoError(err)
		s.True(resp.Success)
		s.Nil(resp.Score)
		s.NotEmpty(resp.Token)
	})

	s.Run("token failure surfaces", func() {
		s.issuer.err = errors.New("sign failed")
		_, err := s.service.Authenticate(s.ctx, "bypass", "")
		s.Error(err)
	})
}

func (s *AdminServiceSuite) TestStats() {
	stores := s.store.Stores()
	s.Require().NoError(stores.Profiles.Create(s.ctx, domain.Profile{Email: "vol@x.com", Role: domain.RoleVolunteer, IsAdmin: true}))
	s.Require().NoError(stores.Cases.Create(s.ctx, domain.Case{ID: "c1", OwnerEmail: "vol@x.com", DiagnosisHypothesis: domain.HypothesisPending}))
	s.Require().NoError(stores.Cases.Create(s.ctx, domain.Case{ID: "c2", OwnerEmail: "vol@x.com", DiagnosisHypothesis: "Asthma"}))
	s.Require().NoError(stores.Payments.Create(s.ctx, domain.PaymentSession{ID: "p1", OwnerEmail: "vol@x.com", RequestedCredits: 2, Amount: 100, Status: domain.PaymentCompleted}))
	s.Require().NoError(stores.Payments.Create(s.ctx, domain.PaymentSession{ID: "p2", OwnerEmail: "vol@x.com", RequestedCredits: 1, Amount: 50, Status: domain.PaymentPending}))

	stats, err := s.service.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(admin.StatsResponse{
		TotalProfiles:     2,
		Volunteers:        1,
		Professionals:     1,
		Admins:            1,
		TotalCases:        2,
		CasesPending:      1,
		CasesAnalyzed:     1,
		PaymentsPending:   1,
		PaymentsCompleted: 1,
		CreditsSold:       2,
		Revenue:           100,
	}, stats)
}

func (s *AdminServiceSuite) TestPaymentsEmpty() {
	payments, err := s.service.Payments(s.ctx)
	s.Require().NoError(err)
	s.NotNil(payments)
	s.Empty(payments)
}

func (s *AdminServiceSuite) TestGrantCredits() {
	s.Run("tops up an existing profile", func() {
		p, err := s.service.GrantCredits(s.ctx, "Ana@x.com", 5)
		s.Require().NoError(err)
		s.Equal(7, p.Credits)
		s.Equal(7, s.profile("ana@x.com").Credits)
		s.Len(s.recorder.OfType(events.CreditsGranted), 1)
	})

	s.Run("non-positive amount is refused", func() {
		_, err := s.service.GrantCredits(s.ctx, "ana@x.com", 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown profile", func() {
		_, err := s.service.GrantCredits(s.ctx, "ghost@x.com", 1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

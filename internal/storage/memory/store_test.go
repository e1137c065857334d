package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ateneo/internal/domain"
	"ateneo/internal/storage"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/sentinel"

	"github.com/stretchr/testify/suite"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
	now   time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) seedProfile(email string, credits int) {
	s.Require().NoError(s.store.Stores().Profiles.Create(s.ctx, domain.Profile{
		Email: email, Role: domain.RoleVolunteer, Credits: credits, CreatedAt: s.now,
	}))
}

func (s *MemoryStoreSuite) seedCase(id, owner string) {
	s.Require().NoError(s.store.Stores().Cases.Create(s.ctx, domain.Case{
		ID: id, OwnerEmail: owner, DiagnosisHypothesis: domain.HypothesisPending, CreatedAt: s.now,
	}))
}

// =============================================================================
// Profiles
// =============================================================================

func (s *MemoryStoreSuite) TestProfiles() {
	s.Run("create rejects duplicate email", func() {
		s.seedProfile("dup@x.com", 0)
		err := s.store.Stores().Profiles.Create(s.ctx, domain.Profile{Email: "dup@x.com"})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("update of unknown profile is not found", func() {
		err := s.store.Stores().Profiles.Update(s.ctx, domain.Profile{Email: "ghost@x.com"})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("list is ordered by email", func() {
		s.seedProfile("b@x.com", 0)
		s.seedProfile("a@x.com", 0)
		list, err := s.store.Stores().Profiles.List(s.ctx)
		s.Require().NoError(err)
		s.Require().GreaterOrEqual(len(list), 2)
		s.Equal("a@x.com", list[0].Email)
	})
}

// =============================================================================
// Cases and assignments
// =============================================================================

func (s *MemoryStoreSuite) TestEligibility() {
	s.seedCase("c1", "owner@x.com")
	s.seedCase("c2", "owner@x.com")
	s.seedCase("c3", "rev@x.com")

	s.Run("excludes own cases and the exclusion set", func() {
		ids, err := s.store.Stores().Cases.ListEligible(s.ctx, "rev@x.com", []string{"c1"})
		s.Require().NoError(err)
		s.Equal([]string{"c2"}, ids)
	})

	s.Run("repeat assignment conflicts", func() {
		a := domain.Assignment{CaseID: "c1", ReviewerEmail: "rev@x.com", AssignedAt: s.now}
		s.Require().NoError(s.store.Stores().Assignments.Record(s.ctx, a))
		s.ErrorIs(s.store.Stores().Assignments.Record(s.ctx, a), sentinel.ErrConflict)
	})

	s.Run("resolve stamps once", func() {
		s.Require().NoError(s.store.Stores().Assignments.Resolve(s.ctx, "c1", "rev@x.com", s.now))
		err := s.store.Stores().Assignments.Resolve(s.ctx, "c1", "rev@x.com", s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("found case is a copy", func() {
		s.Require().NoError(s.store.Stores().Cases.AppendDebate(s.ctx, "c2", domain.DebateEntry{ReviewerEmail: "rev@x.com"}))
		c, err := s.store.Stores().Cases.FindByID(s.ctx, "c2")
		s.Require().NoError(err)
		c.DebateLog[0].ReviewerEmail = "mutated"
		again, err := s.store.Stores().Cases.FindByID(s.ctx, "c2")
		s.Require().NoError(err)
		s.Equal("rev@x.com", again.DebateLog[0].ReviewerEmail)
	})

	s.Run("count reports pending hypotheses", func() {
		s.Require().NoError(s.store.Stores().Cases.SetHypothesis(s.ctx, "c3", "pneumonia"))
		total, pending, err := s.store.Stores().Cases.Count(s.ctx)
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Equal(2, pending)
	})
}

// =============================================================================
// Payments
// =============================================================================

func (s *MemoryStoreSuite) TestPaymentTransition() {
	s.Require().NoError(s.store.Stores().Payments.Create(s.ctx, domain.PaymentSession{
		ID: "cs_1", OwnerEmail: "bob@x.com", RequestedCredits: 2, Amount: 100, Status: domain.PaymentPending,
	}))

	s.Require().NoError(s.store.Stores().Payments.Transition(s.ctx, "cs_1", domain.PaymentPending, domain.PaymentCompleted, s.now))
	err := s.store.Stores().Payments.Transition(s.ctx, "cs_1", domain.PaymentPending, domain.PaymentCompleted, s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	session, err := s.store.Stores().Payments.FindByID(s.ctx, "cs_1")
	s.Require().NoError(err)
	s.Equal(domain.PaymentCompleted, session.Status)
	s.Require().NotNil(session.CompletedAt)
}

// =============================================================================
// Transactions
// =============================================================================

func (s *MemoryStoreSuite) TestRunInTxRollsBackOnError() {
	s.seedProfile("bob@x.com", 3)
	s.seedCase("c1", "owner@x.com")
	s.Require().NoError(s.store.Stores().Payments.Create(s.ctx, domain.PaymentSession{
		ID: "cs_1", OwnerEmail: "bob@x.com", Status: domain.PaymentPending,
	}))
	boom := errors.New("boom")

	err := s.store.RunInTx(s.ctx, "bob@x.com", func(st storage.Stores) error {
		p, err := st.Profiles.FindByEmail(s.ctx, "bob@x.com")
		s.Require().NoError(err)
		p.Credits = 0
		s.Require().NoError(st.Profiles.Update(s.ctx, p))
		s.Require().NoError(st.Assignments.Record(s.ctx, domain.Assignment{CaseID: "c1", ReviewerEmail: "bob@x.com"}))
		s.Require().NoError(st.Cases.AppendDebate(s.ctx, "c1", domain.DebateEntry{ReviewerEmail: "bob@x.com", Timestamp: s.now}))
		s.Require().NoError(st.Payments.Transition(s.ctx, "cs_1", domain.PaymentPending, domain.PaymentCompleted, s.now))
		s.Require().NoError(st.Profiles.Create(s.ctx, domain.Profile{Email: "new@x.com"}))
		return boom
	})
	s.ErrorIs(err, boom)

	p, err := s.store.Stores().Profiles.FindByEmail(s.ctx, "bob@x.com")
	s.Require().NoError(err)
	s.Equal(3, p.Credits)

	ids, err := s.store.Stores().Assignments.CaseIDsFor(s.ctx, "bob@x.com")
	s.Require().NoError(err)
	s.Empty(ids)

	c, err := s.store.Stores().Cases.FindByID(s.ctx, "c1")
	s.Require().NoError(err)
	s.Empty(c.DebateLog)

	session, err := s.store.Stores().Payments.FindByID(s.ctx, "cs_1")
	s.Require().NoError(err)
	s.Equal(domain.PaymentPending, session.Status)

	_, err = s.store.Stores().Profiles.FindByEmail(s.ctx, "new@x.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestRunInTxCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	called := false
	err := s.store.RunInTx(ctx, "bob@x.com", func(storage.Stores) error {
		called = true
		return nil
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.False(called)
}

// Read-modify-write inside the same key never loses an update.
func (s *MemoryStoreSuite) TestRunInTxSerializesSameKey() {
	s.seedProfile("bob@x.com", 0)
	const workers = 50
	var wg sync.WaitGroup
	var failures atomic.Int32

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.RunInTx(s.ctx, "bob@x.com", func(st storage.Stores) error {
				p, err := st.Profiles.FindByEmail(s.ctx, "bob@x.com")
				if err != nil {
					return err
				}
				p.Credits++
				return st.Profiles.Update(s.ctx, p)
			})
			if err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Zero(failures.Load())
	p, err := s.store.Stores().Profiles.FindByEmail(s.ctx, "bob@x.com")
	s.Require().NoError(err)
	s.Equal(workers, p.Credits)
}

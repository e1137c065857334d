package memory

import (
	"context"
	"sync"
	"time"

	"ateneo/internal/domain"
	"ateneo/internal/storage"
	dErrors "ateneo/pkg/domain-errors"
)

// numShards spreads per-email transactions over independent locks so that
// unrelated profiles do not contend.
const numShards = 128

const defaultTxTimeout = 5 * time.Second

// Store bundles the in-memory stores with a sharded per-email transaction.
// Writes inside RunInTx are journaled and undone when fn returns an error.
type Store struct {
	profiles    *ProfileStore
	cases       *CaseStore
	assignments *AssignmentStore
	payments    *PaymentStore

	shards  [numShards]sync.Mutex
	timeout time.Duration
}

type Option func(*Store)

// WithTxTimeout bounds how long RunInTx waits for and holds a shard.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		profiles:    NewProfileStore(),
		cases:       NewCaseStore(),
		assignments: NewAssignmentStore(),
		payments:    NewPaymentStore(),
		timeout:     defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stores exposes the stores for reads and writes outside a transaction.
func (s *Store) Stores() storage.Stores {
	return storage.Stores{
		Profiles:    s.profiles,
		Cases:       s.cases,
		Assignments: s.assignments,
		Payments:    s.payments,
	}
}

func (s *Store) RunInTx(ctx context.Context, key string, fn func(stores storage.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	shard := &s.shards[hashKey(key)%numShards]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	j := &journal{}
	err := fn(storage.Stores{
		Profiles:    &txProfiles{ProfileStore: s.profiles, j: j},
		Cases:       &txCases{CaseStore: s.cases, j: j},
		Assignments: &txAssignments{AssignmentStore: s.assignments, j: j},
		Payments:    &txPayments{PaymentStore: s.payments, j: j},
	})
	if err != nil {
		j.rollback()
	}
	return err
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

type journal struct {
	undo []func()
}

func (j *journal) record(fn func()) {
	j.undo = append(j.undo, fn)
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

type txProfiles struct {
	*ProfileStore
	j *journal
}

func (t *txProfiles) Create(ctx context.Context, profile domain.Profile) error {
	if err := t.ProfileStore.Create(ctx, profile); err != nil {
		return err
	}
	t.j.record(func() { t.ProfileStore.remove(profile.Email) })
	return nil
}

func (t *txProfiles) Update(ctx context.Context, profile domain.Profile) error {
	prev, err := t.ProfileStore.FindByEmail(ctx, profile.Email)
	if err != nil {
		return err
	}
	if err := t.ProfileStore.Update(ctx, profile); err != nil {
		return err
	}
	t.j.record(func() { t.ProfileStore.put(prev) })
	return nil
}

type txCases struct {
	*CaseStore
	j *journal
}

func (t *txCases) Create(ctx context.Context, c domain.Case) error {
	if err := t.CaseStore.Create(ctx, c); err != nil {
		return err
	}
	t.j.record(func() { t.CaseStore.remove(c.ID) })
	return nil
}

func (t *txCases) AppendDebate(ctx context.Context, caseID string, entry domain.DebateEntry) error {
	if err := t.CaseStore.AppendDebate(ctx, caseID, entry); err != nil {
		return err
	}
	t.j.record(func() { t.CaseStore.removeDebate(caseID, entry) })
	return nil
}

func (t *txCases) SetHypothesis(ctx context.Context, caseID, hypothesis string) error {
	prev, err := t.CaseStore.FindByID(ctx, caseID)
	if err != nil {
		return err
	}
	if err := t.CaseStore.SetHypothesis(ctx, caseID, hypothesis); err != nil {
		return err
	}
	t.j.record(func() { _ = t.CaseStore.SetHypothesis(context.Background(), caseID, prev.DiagnosisHypothesis) })
	return nil
}

type txAssignments struct {
	*AssignmentStore
	j *journal
}

func (t *txAssignments) Record(ctx context.Context, a domain.Assignment) error {
	if err := t.AssignmentStore.Record(ctx, a); err != nil {
		return err
	}
	t.j.record(func() { t.AssignmentStore.remove(a.CaseID, a.ReviewerEmail) })
	return nil
}

func (t *txAssignments) Resolve(ctx context.Context, caseID, reviewer string, at time.Time) error {
	prev, ok := t.AssignmentStore.find(caseID, reviewer)
	if err := t.AssignmentStore.Resolve(ctx, caseID, reviewer, at); err != nil {
		return err
	}
	if ok {
		t.j.record(func() { t.AssignmentStore.put(prev) })
	}
	return nil
}

type txPayments struct {
	*PaymentStore
	j *journal
}

func (t *txPayments) Create(ctx context.Context, session domain.PaymentSession) error {
	if err := t.PaymentStore.Create(ctx, session); err != nil {
		return err
	}
	t.j.record(func() { t.PaymentStore.remove(session.ID) })
	return nil
}

func (t *txPayments) Transition(ctx context.Context, sessionID string, from, to domain.PaymentStatus, at time.Time) error {
	prev, err := t.PaymentStore.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := t.PaymentStore.Transition(ctx, sessionID, from, to, at); err != nil {
		return err
	}
	t.j.record(func() { t.PaymentStore.put(prev) })
	return nil
}

var (
	_ storage.Tx              = (*Store)(nil)
	_ storage.ProfileStore    = (*txProfiles)(nil)
	_ storage.CaseStore       = (*txCases)(nil)
	_ storage.AssignmentStore = (*txAssignments)(nil)
	_ storage.PaymentStore    = (*txPayments)(nil)
)

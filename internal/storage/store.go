// Package storage defines the Profile Store boundary: the stores the core reads
// and mutates, and the per-key transaction every credit mutation runs in.
//
// Stores return pkg/platform/sentinel errors; services translate them.
package storage

import (
	"context"
	"time"

	"ateneo/internal/domain"
)

type ProfileStore interface {
	// Create inserts a new profile; sentinel.ErrConflict when the email exists.
	Create(ctx context.Context, profile domain.Profile) error
	FindByEmail(ctx context.Context, email string) (domain.Profile, error)
	// Update replaces a stored profile; sentinel.ErrNotFound when absent.
	Update(ctx context.Context, profile domain.Profile) error
	List(ctx context.Context) ([]domain.Profile, error)
}

type CaseStore interface {
	Create(ctx context.Context, c domain.Case) error
	FindByID(ctx context.Context, caseID string) (domain.Case, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]domain.Case, error)
	// ListEligible returns ids of cases not owned by reviewer and not in exclude.
	ListEligible(ctx context.Context, reviewer string, exclude []string) ([]string, error)
	AppendDebate(ctx context.Context, caseID string, entry domain.DebateEntry) error
	SetHypothesis(ctx context.Context, caseID, hypothesis string) error
	Count(ctx context.Context) (total int, pending int, err error)
}

type AssignmentStore interface {
	// Record stores a new assignment; sentinel.ErrConflict on a repeat draw.
	Record(ctx context.Context, a domain.Assignment) error
	CaseIDsFor(ctx context.Context, reviewer string) ([]string, error)
	// Resolve stamps an open assignment; sentinel.ErrNotFound when none is open.
	Resolve(ctx context.Context, caseID, reviewer string, at time.Time) error
}

type PaymentStore interface {
	Create(ctx context.Context, session domain.PaymentSession) error
	FindByID(ctx context.Context, sessionID string) (domain.PaymentSession, error)
	// Transition moves a session from one status to another; sentinel.ErrInvalidState
	// when the session is not currently in from.
	Transition(ctx context.Context, sessionID string, from, to domain.PaymentStatus, at time.Time) error
	List(ctx context.Context) ([]domain.PaymentSession, error)
}

// Stores groups the stores visible inside one transaction.
type Stores struct {
	Profiles    ProfileStore
	Cases       CaseStore
	Assignments AssignmentStore
	Payments    PaymentStore
}

// Tx runs fn with exclusive access to everything keyed by key (a profile email).
// Writes made through the provided Stores commit together or not at all.
type Tx interface {
	RunInTx(ctx context.Context, key string, fn func(stores Stores) error) error
}

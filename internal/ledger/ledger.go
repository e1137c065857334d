// Package ledger owns every change to a profile's credit balance. Balances are
// read-modify-written inside the per-email transaction, so two concurrent debits
// on one profile can never both spend the same credit.
package ledger

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ateneo/internal/domain"
	"ateneo/internal/platform/metrics"
	"ateneo/internal/storage"
	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/requestcontext"
)

const (
	ReasonRegistration = "registration"
	ReasonPurchase     = "purchase"
	ReasonDraw         = "draw"
	ReasonAdjustment   = "adjustment"
)

var tracer = otel.Tracer("ateneo/ledger")

type Ledger struct {
	tx      storage.Tx
	metrics *metrics.Metrics
}

type Option func(*Ledger)

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

func New(tx storage.Tx, opts ...Option) *Ledger {
	l := &Ledger{tx: tx}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Grant adds delta credits to the profile of email.
func (l *Ledger) Grant(ctx context.Context, email string, delta int, reason string) (domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "ledger.Grant", trace.WithAttributes(
		attribute.Int("ledger.delta", delta),
		attribute.String("ledger.reason", reason),
	))
	defer span.End()

	var updated domain.Profile
	err := l.tx.RunInTx(ctx, email, func(stores storage.Stores) error {
		var err error
		updated, err = GrantIn(ctx, stores.Profiles, email, delta, requestcontext.Now(ctx))
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return domain.Profile{}, err
	}
	l.metrics.AddCreditsGranted(reason, delta)
	return updated, nil
}

// Debit removes amount credits from the profile of email. Admin profiles are
// never debited and never refused.
func (l *Ledger) Debit(ctx context.Context, email string, amount int) (domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "ledger.Debit", trace.WithAttributes(
		attribute.Int("ledger.amount", amount),
	))
	defer span.End()

	var updated domain.Profile
	err := l.tx.RunInTx(ctx, email, func(stores storage.Stores) error {
		var err error
		updated, err = DebitIn(ctx, stores.Profiles, email, amount, requestcontext.Now(ctx))
		return err
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInsufficientCredits) {
			l.metrics.IncrementDebitRejected()
		}
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return domain.Profile{}, err
	}
	if !updated.IsAdmin {
		l.metrics.AddCreditsDebited(amount)
	}
	return updated, nil
}

// GrantIn applies a grant through stores already bound to a transaction.
func GrantIn(ctx context.Context, profiles storage.ProfileStore, email string, delta int, now time.Time) (domain.Profile, error) {
	if delta <= 0 {
		return domain.Profile{}, dErrors.New(dErrors.CodeValidation, "credit grant must be positive")
	}
	p, err := profiles.FindByEmail(ctx, email)
	if err != nil {
		return domain.Profile{}, storage.Translate(err, "profile not found")
	}
	if delta > domain.MaxCredits-p.Credits {
		return domain.Profile{}, dErrors.New(dErrors.CodeValidation, "credit grant exceeds the maximum balance")
	}
	p.Credits += delta
	p.UpdatedAt = now
	if err := profiles.Update(ctx, p); err != nil {
		return domain.Profile{}, storage.Translate(err, "profile not found")
	}
	return p, nil
}

// DebitIn applies a debit through stores already bound to a transaction.
// Balances are never clamped: a short balance is refused outright.
func DebitIn(ctx context.Context, profiles storage.ProfileStore, email string, amount int, now time.Time) (domain.Profile, error) {
	if amount <= 0 {
		return domain.Profile{}, dErrors.New(dErrors.CodeValidation, "debit amount must be positive")
	}
	p, err := profiles.FindByEmail(ctx, email)
	if err != nil {
		return domain.Profile{}, storage.Translate(err, "profile not found")
	}
	if p.IsAdmin {
		return p, nil
	}
	if p.Credits < amount {
		return domain.Profile{}, dErrors.New(dErrors.CodeInsufficientCredits, "insufficient credits")
	}
	p.Credits -= amount
	p.UpdatedAt = now
	if err := profiles.Update(ctx, p); err != nil {
		return domain.Profile{}, storage.Translate(err, "profile not found")
	}
	return p, nil
}

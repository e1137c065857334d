package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ateneo/internal/domain"
	"ateneo/pkg/platform/sentinel"
)

type PaymentStore struct {
	q querier
}

const paymentColumns = `id, owner_email, requested_credits, amount, plan, status, created_at, completed_at`

func (s *PaymentStore) Create(ctx context.Context, p domain.PaymentSession) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO payment_sessions (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.OwnerEmail, p.RequestedCredits, p.Amount, string(p.Plan), string(p.Status), p.CreatedAt, p.CompletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create payment session: %w", err)
	}
	return nil
}

func (s *PaymentStore) FindByID(ctx context.Context, sessionID string) (domain.PaymentSession, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payment_sessions WHERE id = $1`, sessionID)
	p, err := scanPayment(row)
	if err != nil {
		return domain.PaymentSession{}, notFound(err)
	}
	return p, nil
}

// Transition is a compare-and-set on status; a second completion of the same
// session updates nothing and reports ErrInvalidState.
func (s *PaymentStore) Transition(ctx context.Context, sessionID string, from, to domain.PaymentStatus, at time.Time) error {
	var completedAt *time.Time
	if to == domain.PaymentCompleted {
		completedAt = &at
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE payment_sessions
		SET status = $3, completed_at = COALESCE($4, completed_at)
		WHERE id = $1 AND status = $2
	`, sessionID, string(from), string(to), completedAt)
	if err != nil {
		return fmt.Errorf("transition payment session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition payment session: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := s.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM payment_sessions WHERE id = $1)`, sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("check payment session: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PaymentStore) List(ctx context.Context) ([]domain.PaymentSession, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payment_sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list payment sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.PaymentSession
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment session: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row scanner) (domain.PaymentSession, error) {
	var (
		p            domain.PaymentSession
		plan, status string
		completedAt  sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.OwnerEmail, &p.RequestedCredits, &p.Amount, &plan, &status, &p.CreatedAt, &completedAt); err != nil {
		return domain.PaymentSession{}, err
	}
	p.Plan = domain.Plan(plan)
	p.Status = domain.PaymentStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	return p, nil
}

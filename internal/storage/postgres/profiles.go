package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ateneo/internal/domain"
	"ateneo/pkg/platform/sentinel"
)

type ProfileStore struct {
	q querier
}

const profileColumns = `email, name, role, specialty, credits, score, is_admin, tier, waiver_signed_at, created_at, updated_at`

func (s *ProfileStore) Create(ctx context.Context, p domain.Profile) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.Email, p.Name, string(p.Role), p.Specialty, p.Credits, p.Score, p.IsAdmin, string(p.Tier), p.WaiverSignedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *ProfileStore) FindByEmail(ctx context.Context, email string) (domain.Profile, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
	p, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, notFound(err)
	}
	return p, nil
}

func (s *ProfileStore) Update(ctx context.Context, p domain.Profile) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE profiles
		SET name = $2, role = $3, specialty = $4, credits = $5, score = $6,
			is_admin = $7, tier = $8, waiver_signed_at = $9, updated_at = $10
		WHERE email = $1
	`, p.Email, p.Name, string(p.Role), p.Specialty, p.Credits, p.Score, p.IsAdmin, string(p.Tier), p.WaiverSignedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *ProfileStore) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (domain.Profile, error) {
	var (
		p          domain.Profile
		role, tier string
		waiver     sql.NullTime
	)
	if err := row.Scan(&p.Email, &p.Name, &role, &p.Specialty, &p.Credits, &p.Score, &p.IsAdmin, &tier, &waiver, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Profile{}, err
	}
	if waiver.Valid {
		t := waiver.Time
		p.WaiverSignedAt = &t
	}
	p.Role = domain.Role(role)
	p.Tier = domain.Plan(tier)
	return p, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"ateneo/internal/domain"
	"ateneo/pkg/platform/sentinel"
)

type AssignmentStore struct {
	q querier
}

func (s *AssignmentStore) Record(ctx context.Context, a domain.Assignment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO assignments (case_id, reviewer_email, assigned_at)
		VALUES ($1, $2, $3)
	`, a.CaseID, a.ReviewerEmail, a.AssignedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("record assignment: %w", err)
	}
	return nil
}

func (s *AssignmentStore) CaseIDsFor(ctx context.Context, reviewer string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT case_id FROM assignments WHERE reviewer_email = $1 ORDER BY case_id
	`, reviewer)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *AssignmentStore) Resolve(ctx context.Context, caseID, reviewer string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE assignments SET resolved_at = $3
		WHERE case_id = $1 AND reviewer_email = $2 AND resolved_at IS NULL
	`, caseID, reviewer, at)
	if err != nil {
		return fmt.Errorf("resolve assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve assignment: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

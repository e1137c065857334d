package postgres

import (
	"context"
	"fmt"

	"ateneo/internal/domain"
	"ateneo/pkg/platform/sentinel"

	"github.com/lib/pq"
)

type CaseStore struct {
	q querier
}

const caseColumns = `id, owner_email, summary, history, attachment_reference, diagnosis_hypothesis, created_at`

func (s *CaseStore) Create(ctx context.Context, c domain.Case) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.OwnerEmail, c.Summary, c.History, c.AttachmentReference, c.DiagnosisHypothesis, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

func (s *CaseStore) FindByID(ctx context.Context, caseID string) (domain.Case, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, caseID)
	c, err := scanCase(row)
	if err != nil {
		return domain.Case{}, notFound(err)
	}
	c.DebateLog, err = s.debateLog(ctx, caseID)
	if err != nil {
		return domain.Case{}, err
	}
	return c, nil
}

func (s *CaseStore) ListByOwner(ctx context.Context, ownerEmail string) ([]domain.Case, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+caseColumns+` FROM cases WHERE owner_email = $1 ORDER BY created_at, id
	`, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("list cases by owner: %w", err)
	}
	var out []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].DebateLog, err = s.debateLog(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListEligible passes the exclusion set as a single text[] parameter.
func (s *CaseStore) ListEligible(ctx context.Context, reviewer string, exclude []string) ([]string, error) {
	if exclude == nil {
		exclude = []string{}
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id FROM cases
		WHERE owner_email <> $1
		  AND NOT (id = ANY($2::text[]))
		ORDER BY id
	`, reviewer, pq.Array(exclude))
	if err != nil {
		return nil, fmt.Errorf("list eligible cases: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan case id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *CaseStore) AppendDebate(ctx context.Context, caseID string, e domain.DebateEntry) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO debate_entries (case_id, reviewer_email, diagnosis_text, outcome, created_at)
		SELECT id, $2, $3, $4, $5 FROM cases WHERE id = $1
	`, caseID, e.ReviewerEmail, e.DiagnosisText, string(e.Outcome), e.Timestamp)
	if err != nil {
		return fmt.Errorf("append debate: %w", err)
	}
	return s.mustExist(ctx, caseID)
}

func (s *CaseStore) SetHypothesis(ctx context.Context, caseID, hypothesis string) error {
	res, err := s.q.ExecContext(ctx, `UPDATE cases SET diagnosis_hypothesis = $2 WHERE id = $1`, caseID, hypothesis)
	if err != nil {
		return fmt.Errorf("set hypothesis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set hypothesis: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *CaseStore) Count(ctx context.Context) (int, int, error) {
	var total, pending int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE diagnosis_hypothesis = $1) FROM cases
	`, domain.HypothesisPending).Scan(&total, &pending)
	if err != nil {
		return 0, 0, fmt.Errorf("count cases: %w", err)
	}
	return total, pending, nil
}

func (s *CaseStore) mustExist(ctx context.Context, caseID string) error {
	var exists bool
	if err := s.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cases WHERE id = $1)`, caseID).Scan(&exists); err != nil {
		return fmt.Errorf("check case: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *CaseStore) debateLog(ctx context.Context, caseID string) ([]domain.DebateEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT reviewer_email, diagnosis_text, outcome, created_at
		FROM debate_entries WHERE case_id = $1 ORDER BY seq
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("load debate log: %w", err)
	}
	defer rows.Close()

	var log []domain.DebateEntry
	for rows.Next() {
		var (
			e       domain.DebateEntry
			outcome string
		)
		if err := rows.Scan(&e.ReviewerEmail, &e.DiagnosisText, &outcome, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan debate entry: %w", err)
		}
		e.Outcome = domain.Outcome(outcome)
		log = append(log, e)
	}
	return log, rows.Err()
}

func scanCase(row scanner) (domain.Case, error) {
	var c domain.Case
	err := row.Scan(&c.ID, &c.OwnerEmail, &c.Summary, &c.History, &c.AttachmentReference, &c.DiagnosisHypothesis, &c.CreatedAt)
	return c, err
}

package memory

import (
	"context"
	"sort"
	"sync"

	"ateneo/internal/domain"
	"ateneo/pkg/platform/sentinel"
)

type CaseStore struct {
	mu    sync.RWMutex
	cases map[string]*domain.Case
}

func NewCaseStore() *CaseStore {
	return &CaseStore{cases: make(map[string]*domain.Case)}
}

func (s *CaseStore) Create(_ context.Context, c domain.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; ok {
		return sentinel.ErrConflict
	}
	stored := cloneCase(c)
	s.cases[c.ID] = &stored
	return nil
}

func (s *CaseStore) FindByID(_ context.Context, caseID string) (domain.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cases[caseID]; ok {
		return cloneCase(*c), nil
	}
	return domain.Case{}, sentinel.ErrNotFound
}

func (s *CaseStore) ListByOwner(_ context.Context, ownerEmail string) ([]domain.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Case
	for _, c := range s.cases {
		if c.OwnerEmail == ownerEmail {
			out = append(out, cloneCase(*c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *CaseStore) ListEligible(_ context.Context, reviewer string, exclude []string) ([]string, error) {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, c := range s.cases {
		if c.OwnerEmail == reviewer {
			continue
		}
		if _, seen := skip[id]; seen {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *CaseStore) AppendDebate(_ context.Context, caseID string, entry domain.DebateEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.DebateLog = append(c.DebateLog, entry)
	return nil
}

func (s *CaseStore) SetHypothesis(_ context.Context, caseID, hypothesis string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.DiagnosisHypothesis = hypothesis
	return nil
}

func (s *CaseStore) Count(_ context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := 0
	for _, c := range s.cases {
		if c.DiagnosisHypothesis == domain.HypothesisPending {
			pending++
		}
	}
	return len(s.cases), pending, nil
}

func cloneCase(c domain.Case) domain.Case {
	if c.DebateLog != nil {
		log := make([]domain.DebateEntry, len(c.DebateLog))
		copy(log, c.DebateLog)
		c.DebateLog = log
	}
	return c
}

func (s *CaseStore) remove(caseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cases, caseID)
}

// removeDebate drops the most recent entry equal to entry; used to undo AppendDebate.
func (s *CaseStore) removeDebate(caseID string, entry domain.DebateEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return
	}
	for i := len(c.DebateLog) - 1; i >= 0; i-- {
		e := c.DebateLog[i]
		if e.ReviewerEmail == entry.ReviewerEmail && e.Timestamp.Equal(entry.Timestamp) && e.DiagnosisText == entry.DiagnosisText {
			c.DebateLog = append(c.DebateLog[:i], c.DebateLog[i+1:]...)
			return
		}
	}
}

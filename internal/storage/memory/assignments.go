package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ateneo/internal/domain"
	"ateneo/pkg/platform/sentinel"
)

type assignmentKey struct {
	caseID   string
	reviewer string
}

type AssignmentStore struct {
	mu          sync.RWMutex
	assignments map[assignmentKey]domain.Assignment
}

func NewAssignmentStore() *AssignmentStore {
	return &AssignmentStore{assignments: make(map[assignmentKey]domain.Assignment)}
}

func (s *AssignmentStore) Record(_ context.Context, a domain.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := assignmentKey{caseID: a.CaseID, reviewer: a.ReviewerEmail}
	if _, ok := s.assignments[key]; ok {
		return sentinel.ErrConflict
	}
	s.assignments[key] = a
	return nil
}

func (s *AssignmentStore) CaseIDsFor(_ context.Context, reviewer string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for key := range s.assignments {
		if key.reviewer == reviewer {
			ids = append(ids, key.caseID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *AssignmentStore) Resolve(_ context.Context, caseID, reviewer string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := assignmentKey{caseID: caseID, reviewer: reviewer}
	a, ok := s.assignments[key]
	if !ok || a.ResolvedAt != nil {
		return sentinel.ErrNotFound
	}
	a.ResolvedAt = &at
	s.assignments[key] = a
	return nil
}

func (s *AssignmentStore) find(caseID, reviewer string) (domain.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentKey{caseID: caseID, reviewer: reviewer}]
	return a, ok
}

func (s *AssignmentStore) put(a domain.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[assignmentKey{caseID: a.CaseID, reviewer: a.ReviewerEmail}] = a
}

func (s *AssignmentStore) remove(caseID, reviewer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments, assignmentKey{caseID: caseID, reviewer: reviewer})
}

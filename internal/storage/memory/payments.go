package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ateneo/internal/domain"
	"ateneo/pkg/platform/sentinel"
)

type PaymentStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.PaymentSession
}

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{sessions: make(map[string]domain.PaymentSession)}
}

func (s *PaymentStore) Create(_ context.Context, session domain.PaymentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return sentinel.ErrConflict
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *PaymentStore) FindByID(_ context.Context, sessionID string) (domain.PaymentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session, nil
	}
	return domain.PaymentSession{}, sentinel.ErrNotFound
}

func (s *PaymentStore) Transition(_ context.Context, sessionID string, from, to domain.PaymentStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if session.Status != from {
		return sentinel.ErrInvalidState
	}
	session.Status = to
	if to == domain.PaymentCompleted {
		session.CompletedAt = &at
	}
	s.sessions[sessionID] = session
	return nil
}

func (s *PaymentStore) List(_ context.Context) ([]domain.PaymentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PaymentSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *PaymentStore) put(session domain.PaymentSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

func (s *PaymentStore) remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

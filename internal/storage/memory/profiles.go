// Package memory holds the in-memory Profile Store. It keeps single-instance
// deployments and tests free of external services; data does not survive restarts.
package memory

import (
	"context"
	"sort"
	"sync"

	"ateneo/internal/domain"
	"ateneo/pkg/platform/sentinel"
)

type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]domain.Profile)}
}

func (s *ProfileStore) Create(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.Email]; ok {
		return sentinel.ErrConflict
	}
	s.profiles[profile.Email] = profile
	return nil
}

func (s *ProfileStore) FindByEmail(_ context.Context, email string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[email]; ok {
		return p, nil
	}
	return domain.Profile{}, sentinel.ErrNotFound
}

func (s *ProfileStore) Update(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.Email]; !ok {
		return sentinel.ErrNotFound
	}
	s.profiles[profile.Email] = profile
	return nil
}

func (s *ProfileStore) List(_ context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *ProfileStore) put(profile domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.Email] = profile
}

func (s *ProfileStore) remove(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, email)
}

package profile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusportal/internal/apperr"
)

// Memory is an in-process profile store for dev mode and tests.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemory creates an empty store seeded with the given profiles.
func NewMemory(seed ...Profile) *Memory {
	m := &Memory{profiles: make(map[string]Profile)}
	for _, p := range seed {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *Memory) GetProfile(_ context.Context, id string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) CreateProfile(_ context.Context, p Profile) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := m.profiles[p.ID]; exists {
		return Profile{}, apperr.Conflict("profile already exists")
	}
	for _, other := range m.profiles {
		if other.Email == p.Email {
			return Profile{}, apperr.Conflict("email already registered")
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.profiles[p.ID] = p
	return p, nil
}

// Summary returns the joinable fields for id, or a zero Summary when unknown.
func (m *Memory) Summary(id string) Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[id]; ok {
		return p.Summarize()
	}
	return Summary{}
}

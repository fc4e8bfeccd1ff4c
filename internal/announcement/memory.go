package announcement

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"campusportal/internal/profile"
)

// Memory is an in-process announcement store for dev mode and tests.
type Memory struct {
	mu    sync.RWMutex
	items []Announcement
}

// NewMemory creates an empty store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Create(_ context.Context, a Announcement) (Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.TargetAudience = append([]string(nil), a.TargetAudience...)
	m.items = append(m.items, a)
	return a, nil
}

func (m *Memory) ListForRole(_ context.Context, role profile.Role) ([]Announcement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Announcement
	for _, a := range m.items {
		if targets(a, role) {
			res = append(res, a)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

package leaderboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusportal/internal/profile"
)

// Memory is an in-process leaderboard for dev mode and tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	summary func(id string) profile.Summary
}

// NewMemory creates a store. summary resolves the profile join and may be nil.
func NewMemory(summary func(id string) profile.Summary) *Memory {
	return &Memory{entries: make(map[string]Entry), summary: summary}
}

func (m *Memory) join(e Entry) Entry {
	if m.summary != nil {
		e.User = m.summary(e.UserID)
	}
	e.Achievements = append([]string{}, e.Achievements...)
	return e
}

func (m *Memory) Top(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		res = append(res, m.join(e))
	}
	sort.Slice(res, func(i, j int) bool {
		ri, rj := res[i].Rank, res[j].Rank
		if (ri == 0) != (rj == 0) {
			return rj == 0
		}
		if ri != rj {
			return ri < rj
		}
		return res[i].User.FullName < res[j].User.FullName
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *Memory) Get(_ context.Context, userID string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[userID]
	if !ok {
		return nil, nil
	}
	e = m.join(e)
	return &e, nil
}

func (m *Memory) AddPoints(_ context.Context, userID string, points int, at time.Time) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		e = Entry{ID: uuid.NewString(), UserID: userID, Achievements: []string{}}
	}
	e.Points += points
	e.UpdatedAt = at
	m.entries[userID] = e
	return m.join(e), nil
}

func (m *Memory) AddAchievements(_ context.Context, userID string, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		return nil
	}
	for _, n := range names {
		if !contains(e.Achievements, n) {
			e.Achievements = append(e.Achievements, n)
		}
	}
	m.entries[userID] = e
	return nil
}

func (m *Memory) Standings(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		res = append(res, Entry{UserID: e.UserID, Points: e.Points})
	}
	return res, nil
}

func (m *Memory) SetRanks(_ context.Context, ranks map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, rank := range ranks {
		if e, ok := m.entries[userID]; ok {
			e.Rank = rank
			m.entries[userID] = e
		}
	}
	return nil
}

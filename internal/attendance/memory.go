package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

// Memory is an in-process attendance store for dev mode and tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	summary func(userID string) profile.Summary
}

// NewMemory creates a store. summary resolves the profile join for ListAll and may be nil.
func NewMemory(summary func(userID string) profile.Summary) *Memory {
	return &Memory{records: make(map[string]Record), summary: summary}
}

func (m *Memory) GetForDate(_ context.Context, userID, date string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.UserID == userID && rec.Date == date {
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *Memory) Insert(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.records {
		if other.UserID == rec.UserID && other.Date == rec.Date {
			return Record{}, apperr.Conflict(errAlreadyMarked)
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *Memory) SetCheckOut(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return apperr.NotFound("attendance record not found")
	}
	if rec.CheckOutTime != nil {
		return apperr.Conflict("You have already checked out today")
	}
	rec.CheckOutTime = &at
	m.records[id] = rec
	return nil
}

func (m *Memory) ListByUser(_ context.Context, userID string, limit int) ([]Record, error) {
	return m.list(func(r Record) bool { return r.UserID == userID }, limit, false), nil
}

func (m *Memory) ListAll(_ context.Context, limit int) ([]Record, error) {
	return m.list(func(Record) bool { return true }, limit, true), nil
}

// Put stores rec as is. Tests use it to seed history.
func (m *Memory) Put(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.records[rec.ID] = rec
}

func (m *Memory) list(keep func(Record) bool, limit int, join bool) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Record
	for _, rec := range m.records {
		if !keep(rec) {
			continue
		}
		if join && m.summary != nil {
			s := m.summary(rec.UserID)
			rec.User = &s
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Date != res[j].Date {
			return res[i].Date > res[j].Date
		}
		return res[i].CheckInTime.After(res[j].CheckInTime)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}

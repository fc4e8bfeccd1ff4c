package leave

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

// Memory is an in-process leave store for dev mode and tests.
type Memory struct {
	mu       sync.Mutex
	requests map[string]Request
	summary  func(id string) profile.Summary
	writes   int
}

// NewMemory creates a store. summary resolves requester and approver names and may be nil.
func NewMemory(summary func(id string) profile.Summary) *Memory {
	return &Memory{requests: make(map[string]Request), summary: summary}
}

func (m *Memory) Create(_ context.Context, r Request) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.requests[r.ID] = r
	m.writes++
	return r, nil
}

func (m *Memory) Resolve(_ context.Context, id string, status Status, approver string, at time.Time) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return Request{}, apperr.NotFound("leave request not found")
	}
	if r.Status != StatusPending {
		return Request{}, apperr.Conflict(errResolved)
	}
	r.Status = status
	r.ApprovedBy = &approver
	r.UpdatedAt = at
	m.requests[id] = r
	m.writes++
	return r, nil
}

func (m *Memory) ListByUser(_ context.Context, userID string) ([]Request, error) {
	return m.list(func(r Request) bool { return r.UserID == userID }, false), nil
}

func (m *Memory) ListAll(_ context.Context) ([]Request, error) {
	return m.list(func(Request) bool { return true }, true), nil
}

// Writes reports how many mutations the store accepted.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) list(keep func(Request) bool, join bool) []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Request
	for _, r := range m.requests {
		if !keep(r) {
			continue
		}
		if join && m.summary != nil {
			sum := m.summary(r.UserID)
			r.User = &sum
			if r.ApprovedBy != nil {
				r.ApproverName = m.summary(*r.ApprovedBy).FullName
			}
		}
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res
}

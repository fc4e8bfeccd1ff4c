package assignment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

// Memory is an in-process assignment store for dev mode and tests.
type Memory struct {
	mu          sync.RWMutex
	assignments map[string]Assignment
	submissions map[string]Submission
	summary     func(id string) profile.Summary
}

// NewMemory creates a store. summary resolves student and author names and may be nil.
func NewMemory(summary func(id string) profile.Summary) *Memory {
	return &Memory{
		assignments: make(map[string]Assignment),
		submissions: make(map[string]Submission),
		summary:     summary,
	}
}

func (m *Memory) CreateAssignment(_ context.Context, a Assignment) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if m.summary != nil {
		a.CreatorName = m.summary(a.CreatedBy).FullName
	}
	m.assignments[a.ID] = a
	return a, nil
}

func (m *Memory) GetAssignment(_ context.Context, id string) (*Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListAssignments(_ context.Context, createdBy string) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Assignment
	for _, a := range m.assignments {
		if createdBy == "" || a.CreatedBy == createdBy {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *Memory) UpsertSubmission(_ context.Context, s Submission) (Submission, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.submissions {
		if existing.AssignmentID == s.AssignmentID && existing.StudentID == s.StudentID {
			existing.Text = s.Text
			existing.Status = s.Status
			existing.SubmittedAt = s.SubmittedAt
			existing.Grade, existing.Feedback, existing.GradedAt = nil, nil, nil
			m.submissions[id] = existing
			return existing, false, nil
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.submissions[s.ID] = s
	return s, true, nil
}

func (m *Memory) GetSubmission(_ context.Context, id string) (*Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) GradeSubmission(_ context.Context, id string, grade int, feedback string, at time.Time) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return Submission{}, apperr.NotFound("submission not found")
	}
	s.Grade = &grade
	s.Feedback = nil
	if feedback != "" {
		s.Feedback = &feedback
	}
	s.Status = StatusGraded
	s.GradedAt = &at
	m.submissions[id] = s
	return s, nil
}

func (m *Memory) ListSubmissionsByStudent(_ context.Context, studentID string) ([]Submission, error) {
	return m.listSubmissions(func(s Submission) bool { return s.StudentID == studentID }, false), nil
}

func (m *Memory) ListSubmissions(_ context.Context) ([]Submission, error) {
	return m.listSubmissions(func(Submission) bool { return true }, true), nil
}

func (m *Memory) GradedScores(_ context.Context, studentID string) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []int
	for _, s := range m.submissions {
		if s.StudentID == studentID && s.Status == StatusGraded && s.Grade != nil {
			res = append(res, *s.Grade)
		}
	}
	return res, nil
}

// Count reports the number of stored submissions.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.submissions)
}

func (m *Memory) listSubmissions(keep func(Submission) bool, join bool) []Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Submission
	for _, s := range m.submissions {
		if !keep(s) {
			continue
		}
		if join {
			if a, ok := m.assignments[s.AssignmentID]; ok {
				s.AssignmentTitle, s.AssignmentSubject = a.Title, a.Subject
			}
			if m.summary != nil {
				sum := m.summary(s.StudentID)
				s.Student = &sum
			}
		}
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].SubmittedAt.After(res[j].SubmittedAt) })
	return res
}

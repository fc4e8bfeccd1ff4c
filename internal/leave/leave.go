// Package leave handles student leave requests and their approval by staff.
package leave

import (
	"context"
	"math"
	"strings"
	"time"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

// DateLayout is the format of start and end dates.
const DateLayout = "2006-01-02"

// Status of a leave request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Types lists the accepted leave types.
var Types = []string{"sick", "personal", "emergency", "vacation"}

// Request is a leave request. ApprovedBy is set once it leaves pending.
type Request struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	LeaveType    string           `json:"leave_type"`
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	Reason       string           `json:"reason"`
	Status       Status           `json:"status"`
	ApprovedBy   *string          `json:"approved_by,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Days         int              `json:"days"`
	User         *profile.Summary `json:"user,omitempty"`
	ApproverName string           `json:"approved_by_name,omitempty"`
}

// Store persists leave requests.
type Store interface {
	Create(ctx context.Context, r Request) (Request, error)
	// Resolve moves a pending request to status. It returns a conflict when the
	// request is no longer pending and writes nothing.
	Resolve(ctx context.Context, id string, status Status, approver string, at time.Time) (Request, error)
	ListByUser(ctx context.Context, userID string) ([]Request, error)
	ListAll(ctx context.Context) ([]Request, error)
}

const errResolved = "Leave request has already been resolved"

// Days counts the calendar days covered by start..end, both inclusive.
func Days(start, end string) int {
	s, err1 := time.Parse(DateLayout, start)
	e, err2 := time.Parse(DateLayout, end)
	if err1 != nil || err2 != nil {
		return 0
	}
	diff := math.Abs(e.Sub(s).Hours())
	return int(math.Ceil(diff/24)) + 1
}

// Service applies leave rules.
type Service struct {
	store Store
	loc   *time.Location
	Now   func() time.Time
}

// NewService creates a service. "Today" for date validation is taken in loc.
func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, loc: loc, Now: time.Now}
}

// RequestInput carries a new leave request.
type RequestInput struct {
	LeaveType string `json:"leave_type" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// Request validates and stores a pending leave request for v.
func (s *Service) Request(ctx context.Context, v profile.Viewer, in RequestInput) (Request, error) {
	if !v.IsStudent() {
		return Request{}, apperr.ErrForbidden
	}
	if !validType(in.LeaveType) {
		return Request{}, apperr.NewValidationError("Please select a leave type",
			apperr.FieldError{Field: "leave_type", Error: "must be one of " + strings.Join(Types, ", ")})
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Request{}, apperr.NewValidationError("invalid request",
			apperr.FieldError{Field: "reason", Error: "this field is required"})
	}
	start, err := time.Parse(DateLayout, in.StartDate)
	if err != nil {
		return Request{}, apperr.NewValidationError("invalid start date",
			apperr.FieldError{Field: "start_date", Error: "expected YYYY-MM-DD"})
	}
	end, err := time.Parse(DateLayout, in.EndDate)
	if err != nil {
		return Request{}, apperr.NewValidationError("invalid end date",
			apperr.FieldError{Field: "end_date", Error: "expected YYYY-MM-DD"})
	}
	today, _ := time.Parse(DateLayout, s.Now().In(s.loc).Format(DateLayout))
	if start.Before(today) {
		return Request{}, apperr.NewValidationError("Start date cannot be in the past")
	}
	if end.Before(start) {
		return Request{}, apperr.NewValidationError("End date cannot be before start date")
	}

	now := s.Now().UTC()
	r, err := s.store.Create(ctx, Request{
		UserID:    v.ID,
		LeaveType: in.LeaveType,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Reason:    reason,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Request{}, err
	}
	r.Days = Days(r.StartDate, r.EndDate)
	return r, nil
}

func validType(t string) bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Resolve approves or rejects a pending request. Any staff member may resolve.
func (s *Service) Resolve(ctx context.Context, v profile.Viewer, id string, approve bool) (Request, error) {
	if !v.CanResolveLeave() {
		return Request{}, apperr.ErrForbidden
	}
	status := StatusRejected
	if approve {
		status = StatusApproved
	}
	r, err := s.store.Resolve(ctx, id, status, v.ID, s.Now().UTC())
	if err != nil {
		return Request{}, err
	}
	r.Days = Days(r.StartDate, r.EndDate)
	return r, nil
}

// Stats counts requests by status.
type Stats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// View is the leave page for one viewer.
type View struct {
	Requests []Request `json:"requests"`
	Pending  []Request `json:"pending,omitempty"`
	Stats    Stats     `json:"stats"`
}

// List returns the viewer's own requests, or every request for staff.
func (s *Service) List(ctx context.Context, v profile.Viewer) ([]Request, error) {
	if v.IsStaff() {
		return s.store.ListAll(ctx)
	}
	return s.store.ListByUser(ctx, v.ID)
}

// BuildView computes days, stats and, for staff, the pending subset.
func BuildView(v profile.Viewer, requests []Request) View {
	view := View{Requests: make([]Request, 0, len(requests))}
	for _, r := range requests {
		r.Days = Days(r.StartDate, r.EndDate)
		switch r.Status {
		case StatusPending:
			view.Stats.Pending++
			if v.IsStaff() {
				view.Pending = append(view.Pending, r)
			}
		case StatusApproved:
			view.Stats.Approved++
		case StatusRejected:
			view.Stats.Rejected++
		}
		view.Requests = append(view.Requests, r)
	}
	return view
}

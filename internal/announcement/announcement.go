// Package announcement broadcasts prioritised notices to selected roles.
package announcement

import (
	"context"
	"sort"
	"strings"
	"time"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

// Priority levels.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var priorityRank = map[string]int{PriorityUrgent: 4, PriorityHigh: 3, PriorityNormal: 2, PriorityLow: 1}

// Rank orders priorities; unknown values rank 0.
func Rank(priority string) int { return priorityRank[priority] }

// Announcement is a notice for one or more roles.
type Announcement struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Priority       string     `json:"priority"`
	TargetAudience []string   `json:"target_audience"`
	CreatedBy      string     `json:"created_by"`
	AuthorName     string     `json:"created_by_name,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Expired        bool       `json:"expired"`
}

// ExpiredAt reports whether a has an expiry before now.
func (a Announcement) ExpiredAt(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// Store persists announcements.
type Store interface {
	Create(ctx context.Context, a Announcement) (Announcement, error)
	// ListForRole returns announcements whose audience includes role, newest first.
	ListForRole(ctx context.Context, role profile.Role) ([]Announcement, error)
}

// Service applies the broadcast rules.
type Service struct {
	store Store
	Now   func() time.Time
}

// NewService creates a service.
func NewService(store Store) *Service {
	return &Service{store: store, Now: time.Now}
}

// CreateInput carries a new announcement.
type CreateInput struct {
	Title          string     `json:"title" binding:"required"`
	Content        string     `json:"content" binding:"required"`
	Priority       string     `json:"priority"`
	TargetAudience []string   `json:"target_audience"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// Create validates and stores an announcement authored by v.
func (s *Service) Create(ctx context.Context, v profile.Viewer, in CreateInput) (Announcement, error) {
	if !v.CanAuthor() {
		return Announcement{}, apperr.ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return Announcement{}, apperr.NewValidationError("Title and content are required")
	}
	if len(in.TargetAudience) == 0 {
		return Announcement{}, apperr.NewValidationError("Please select at least one target audience",
			apperr.FieldError{Field: "target_audience", Error: "select at least one role"})
	}
	var audience []string
	seen := map[string]bool{}
	for _, r := range in.TargetAudience {
		if !profile.Role(r).Valid() {
			return Announcement{}, apperr.NewValidationError("unknown audience "+r,
				apperr.FieldError{Field: "target_audience", Error: "unknown role " + r})
		}
		if !seen[r] {
			seen[r] = true
			audience = append(audience, r)
		}
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if Rank(priority) == 0 {
		return Announcement{}, apperr.NewValidationError("unknown priority "+priority,
			apperr.FieldError{Field: "priority", Error: "must be low, normal, high or urgent"})
	}
	return s.store.Create(ctx, Announcement{
		Title:          title,
		Content:        content,
		Priority:       priority,
		TargetAudience: audience,
		CreatedBy:      v.ID,
		CreatedAt:      s.Now().UTC(),
		ExpiresAt:      in.ExpiresAt,
	})
}

// List returns what v may read. Students never see expired items; staff see them flagged.
func (s *Service) List(ctx context.Context, v profile.Viewer) ([]Announcement, error) {
	all, err := s.store.ListForRole(ctx, v.Role)
	if err != nil {
		return nil, err
	}
	return Visible(v, all, s.Now()), nil
}

// Visible applies audience and expiry rules and sorts the result.
func Visible(v profile.Viewer, all []Announcement, now time.Time) []Announcement {
	out := make([]Announcement, 0, len(all))
	for _, a := range all {
		if !targets(a, v.Role) {
			continue
		}
		a.Expired = a.ExpiredAt(now)
		if a.Expired && v.IsStudent() {
			continue
		}
		out = append(out, a)
	}
	Sort(out)
	return out
}

func targets(a Announcement, role profile.Role) bool {
	for _, r := range a.TargetAudience {
		if r == string(role) {
			return true
		}
	}
	return false
}

// Sort orders by priority rank descending, then newest first.
func Sort(list []Announcement) {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := Rank(list[i].Priority), Rank(list[j].Priority)
		if ri != rj {
			return ri > rj
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// Stats counts visible announcements by priority.
type Stats struct {
	Urgent int `json:"urgent"`
	High   int `json:"high"`
	Normal int `json:"normal"`
}

// Count tallies the urgent, high and normal items of list.
func Count(list []Announcement) Stats {
	var st Stats
	for _, a := range list {
		switch a.Priority {
		case PriorityUrgent:
			st.Urgent++
		case PriorityHigh:
			st.High++
		case PriorityNormal:
			st.Normal++
		}
	}
	return st
}

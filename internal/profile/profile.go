// Package profile resolves authenticated identities to role-tagged profiles.
package profile

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"campusportal/internal/apperr"
)

// Role is the portal role of a profile. It never changes after registration.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// AllRoles lists the roles in display order.
var AllRoles = []Role{RoleStudent, RoleFaculty, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// RoleList joins AllRoles for messages and usage text.
func RoleList() string {
	names := make([]string, len(AllRoles))
	for i, r := range AllRoles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// Profile is the role-tagged user record.
type Profile struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Role       Role      `json:"role"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	StudentID  *string   `json:"student_id,omitempty"`
	Year       *int      `json:"year,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary is the subset of a profile joined into other listings.
type Summary struct {
	FullName   string `json:"full_name"`
	StudentID  string `json:"student_id,omitempty"`
	Department string `json:"department,omitempty"`
	Year       int    `json:"year,omitempty"`
}

// Summarize returns the joinable fields of p.
func (p Profile) Summarize() Summary {
	s := Summary{FullName: p.FullName, Department: p.Department}
	if p.StudentID != nil {
		s.StudentID = *p.StudentID
	}
	if p.Year != nil {
		s.Year = *p.Year
	}
	return s
}

// Store reads and writes profile rows.
type Store interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
	CreateProfile(ctx context.Context, p Profile) (Profile, error)
}

// Resolver turns an authenticated subject into a Viewer.
type Resolver struct {
	store Store
}

// NewResolver creates a resolver backed by store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve fetches exactly one profile for subject. A missing profile is an authentication failure.
func (r *Resolver) Resolve(ctx context.Context, subject string) (Viewer, error) {
	if subject == "" {
		return Viewer{}, apperr.ErrUnauthorized
	}
	p, err := r.store.GetProfile(ctx, subject)
	if err != nil {
		return Viewer{}, errors.Wrap(apperr.ErrUnauthorized, err.Error())
	}
	if p == nil || !p.Role.Valid() {
		return Viewer{}, apperr.ErrUnauthorized
	}
	return Viewer{Profile: *p}, nil
}

// Register validates and stores a new profile. Student number and year are dropped for staff.
func Register(ctx context.Context, store Store, p Profile) (Profile, error) {
	if p.FullName == "" || p.Email == "" {
		return Profile{}, apperr.NewValidationError("full name and email are required")
	}
	if !p.Role.Valid() {
		return Profile{}, apperr.NewValidationError("Please select a role",
			apperr.FieldError{Field: "role", Error: "must be one of " + RoleList()})
	}
	if p.Role != RoleStudent {
		p.StudentID = nil
		p.Year = nil
	}
	return store.CreateProfile(ctx, p)
}

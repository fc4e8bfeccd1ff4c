package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

// Repository persists profiles in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetProfile returns the profile with id, or nil when none exists.
func (r *Repository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, full_name, role, email, department, student_id, year, created_at
		FROM profiles WHERE id = $1
	`, id)
	var p Profile
	if err := row.Scan(&p.ID, &p.FullName, &p.Role, &p.Email, &p.Department, &p.StudentID, &p.Year, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.WithStack(err)
	}
	return &p, nil
}

// CreateProfile inserts a profile row.
func (r *Repository) CreateProfile(ctx context.Context, p Profile) (Profile, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, full_name, role, email, department, student_id, year, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, p.ID, p.FullName, p.Role, p.Email, p.Department, p.StudentID, p.Year, p.CreatedAt)
	if err != nil {
		return Profile{}, pkgerrors.WithStack(err)
	}
	return p, nil
}

// JoinedSummary collects the profile columns of a LEFT JOIN on profiles.
// Select them as full_name, student_id, department, year.
type JoinedSummary struct {
	FullName   sql.NullString
	StudentID  sql.NullString
	Department sql.NullString
	Year       sql.NullInt64
}

// Dest returns the scan destinations in column order.
func (j *JoinedSummary) Dest() []any {
	return []any{&j.FullName, &j.StudentID, &j.Department, &j.Year}
}

// Summary returns nil when the join matched no profile.
func (j JoinedSummary) Summary() *Summary {
	if !j.FullName.Valid {
		return nil
	}
	return &Summary{
		FullName:   j.FullName.String,
		StudentID:  j.StudentID.String,
		Department: j.Department.String,
		Year:       int(j.Year.Int64),
	}
}

package announcement

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"

	"campusportal/internal/profile"
)

// Repository persists announcements in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an announcement.
func (r *Repository) Create(ctx context.Context, a Announcement) (Announcement, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO announcements (id, title, content, priority, target_audience, created_by, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, a.ID, a.Title, a.Content, a.Priority, pq.Array(a.TargetAudience), a.CreatedBy, a.CreatedAt, a.ExpiresAt)
	if err != nil {
		return Announcement{}, pkgerrors.WithStack(err)
	}
	return a, nil
}

// ListForRole returns announcements targeting role, newest first.
func (r *Repository) ListForRole(ctx context.Context, role profile.Role) ([]Announcement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.title, a.content, a.priority, a.target_audience, a.created_by,
			COALESCE(p.full_name, ''), a.created_at, a.expires_at
		FROM announcements a
		LEFT JOIN profiles p ON p.id = a.created_by
		WHERE $1 = ANY(a.target_audience)
		ORDER BY a.created_at DESC
	`, string(role))
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Announcement
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.Priority, pq.Array(&a.TargetAudience),
			&a.CreatedBy, &a.AuthorName, &a.CreatedAt, &a.ExpiresAt); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

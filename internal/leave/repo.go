package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

// Repository persists leave requests in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const requestColumns = `l.id, l.user_id, l.leave_type, to_char(l.start_date, 'YYYY-MM-DD'), to_char(l.end_date, 'YYYY-MM-DD'),
	l.reason, l.status, l.approved_by, l.created_at, l.updated_at`

func scanRequest(sc interface{ Scan(...any) error }, r *Request, extra ...any) error {
	dest := append([]any{&r.ID, &r.UserID, &r.LeaveType, &r.StartDate, &r.EndDate, &r.Reason, &r.Status, &r.ApprovedBy, &r.CreatedAt, &r.UpdatedAt}, extra...)
	return sc.Scan(dest...)
}

// Create inserts a request.
func (r *Repository) Create(ctx context.Context, req Request) (Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
		req.UpdatedAt = req.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leave_requests (id, user_id, leave_type, start_date, end_date, reason, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, req.ID, req.UserID, req.LeaveType, req.StartDate, req.EndDate, req.Reason, req.Status, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return Request{}, pkgerrors.WithStack(err)
	}
	return req, nil
}

// Resolve updates the request only while it is still pending.
func (r *Repository) Resolve(ctx context.Context, id string, status Status, approver string, at time.Time) (Request, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE leave_requests l
		SET status = $2, approved_by = $3, updated_at = $4
		WHERE l.id = $1 AND l.status = 'pending'
		RETURNING `+requestColumns, id, status, approver, at)
	var req Request
	err := scanRequest(row, &req)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Request{}, pkgerrors.WithStack(err)
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM leave_requests WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, apperr.NotFound("leave request not found")
	}
	if err != nil {
		return Request{}, pkgerrors.WithStack(err)
	}
	return Request{}, apperr.Conflict(errResolved)
}

// ListByUser returns the user's requests, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM leave_requests l
		WHERE l.user_id = $1
		ORDER BY l.created_at DESC
	`, userID)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Request
	for rows.Next() {
		var req Request
		if err := scanRequest(rows, &req); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		res = append(res, req)
	}
	return res, rows.Err()
}

// ListAll returns every request with requester profile and approver name, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+`, p.full_name, p.student_id, p.department, p.year, COALESCE(ap.full_name, '')
		FROM leave_requests l
		LEFT JOIN profiles p ON p.id = l.user_id
		LEFT JOIN profiles ap ON ap.id = l.approved_by
		ORDER BY l.created_at DESC
	`)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Request
	for rows.Next() {
		var req Request
		var joined profile.JoinedSummary
		extra := append(joined.Dest(), &req.ApproverName)
		if err := scanRequest(rows, &req, extra...); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		req.User = joined.Summary()
		res = append(res, req)
	}
	return res, rows.Err()
}

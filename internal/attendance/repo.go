package attendance

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

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `a.id, a.user_id, to_char(a.date, 'YYYY-MM-DD'), a.status, a.check_in_time, a.check_out_time, a.location`

// GetForDate returns the user's record for date, or nil when none exists.
func (r *Repository) GetForDate(ctx context.Context, userID, date string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance a
		WHERE a.user_id = $1 AND a.date = $2
	`, userID, date)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Status, &rec.CheckInTime, &rec.CheckOutTime, &rec.Location); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.WithStack(err)
	}
	return &rec, nil
}

// Insert writes a new record. UNIQUE(user_id, date) rejects a second one for the same day.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CheckInTime.IsZero() {
		rec.CheckInTime = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, user_id, date, status, check_in_time, location)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, rec.ID, rec.UserID, rec.Date, rec.Status, rec.CheckInTime, rec.Location)
	if err != nil {
		return Record{}, pkgerrors.WithStack(err)
	}
	return rec, nil
}

// SetCheckOut stamps check_out_time if it is still empty.
func (r *Repository) SetCheckOut(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance SET check_out_time = $2
		WHERE id = $1 AND check_out_time IS NULL
	`, id, at)
	if err != nil {
		return pkgerrors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflict("You have already checked out today")
	}
	return nil
}

// ListByUser returns the user's latest records, newest date first.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance a
		WHERE a.user_id = $1
		ORDER BY a.date DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Status, &rec.CheckInTime, &rec.CheckOutTime, &rec.Location); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ListAll returns the latest records of all users joined with their profile.
func (r *Repository) ListAll(ctx context.Context, limit int) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`, p.full_name, p.student_id, p.department, p.year
		FROM attendance a
		LEFT JOIN profiles p ON p.id = a.user_id
		ORDER BY a.date DESC, a.check_in_time DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		var joined profile.JoinedSummary
		dest := append([]any{&rec.ID, &rec.UserID, &rec.Date, &rec.Status, &rec.CheckInTime, &rec.CheckOutTime, &rec.Location}, joined.Dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		rec.User = joined.Summary()
		res = append(res, rec)
	}
	return res, rows.Err()
}

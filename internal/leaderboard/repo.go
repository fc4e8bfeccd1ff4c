package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"

	"campusportal/internal/profile"
	"campusportal/internal/store"
)

// Repository persists the leaderboard in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const entryColumns = `l.id, l.user_id, l.points, l.rank, l.achievements, l.updated_at, p.full_name, p.student_id, p.department, p.year`

func scanEntry(sc interface{ Scan(...any) error }) (Entry, error) {
	var e Entry
	var achievements pq.StringArray
	var joined profile.JoinedSummary
	dest := append([]any{&e.ID, &e.UserID, &e.Points, &e.Rank, &achievements, &e.UpdatedAt}, joined.Dest()...)
	if err := sc.Scan(dest...); err != nil {
		return Entry{}, err
	}
	e.Achievements = []string(achievements)
	if e.Achievements == nil {
		e.Achievements = []string{}
	}
	if s := joined.Summary(); s != nil {
		e.User = *s
	}
	return e, nil
}

// Top returns ranked entries joined with the profile.
func (r *Repository) Top(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM leaderboard l
		LEFT JOIN profiles p ON p.id = l.user_id
		ORDER BY (l.rank = 0), l.rank, p.full_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Get returns the user's entry, or nil when none exists.
func (r *Repository) Get(ctx context.Context, userID string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM leaderboard l
		LEFT JOIN profiles p ON p.id = l.user_id
		WHERE l.user_id = $1
	`, userID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.WithStack(err)
	}
	return &e, nil
}

// AddPoints creates the entry if needed and increments its points.
func (r *Repository) AddPoints(ctx context.Context, userID string, points int, at time.Time) (Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO leaderboard (id, user_id, points, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id) DO UPDATE SET
			points = leaderboard.points + EXCLUDED.points,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, points, rank, achievements, updated_at
	`, uuid.NewString(), userID, points, at)
	var e Entry
	var achievements pq.StringArray
	if err := row.Scan(&e.ID, &e.UserID, &e.Points, &e.Rank, &achievements, &e.UpdatedAt); err != nil {
		return Entry{}, pkgerrors.WithStack(err)
	}
	e.Achievements = []string(achievements)
	return e, nil
}

// AddAchievements appends names that are not yet present.
func (r *Repository) AddAchievements(ctx context.Context, userID string, names []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE leaderboard
		SET achievements = achievements || ARRAY(
			SELECT n FROM unnest($2::text[]) AS n WHERE NOT n = ANY(achievements)
		)
		WHERE user_id = $1
	`, userID, pq.Array(names))
	return pkgerrors.WithStack(err)
}

// Standings returns user ids and points of all entries.
func (r *Repository) Standings(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, points FROM leaderboard`)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Points); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// SetRanks writes all ranks in one transaction.
func (r *Repository) SetRanks(ctx context.Context, ranks map[string]int) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE leaderboard SET rank = $2 WHERE user_id = $1`)
		if err != nil {
			return pkgerrors.WithStack(err)
		}
		defer stmt.Close()
		for userID, rank := range ranks {
			if _, err := stmt.ExecContext(ctx, userID, rank); err != nil {
				return pkgerrors.WithStack(err)
			}
		}
		return nil
	})
}

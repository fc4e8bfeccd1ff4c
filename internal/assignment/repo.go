package assignment

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

// Repository persists assignments and submissions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateAssignment inserts an assignment row.
func (r *Repository) CreateAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assignments (id, title, description, subject, due_date, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, a.ID, a.Title, a.Description, a.Subject, a.DueDate, a.CreatedBy, a.CreatedAt)
	if err != nil {
		return Assignment{}, pkgerrors.WithStack(err)
	}
	return a, nil
}

// GetAssignment returns the assignment, or nil when none exists.
func (r *Repository) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT a.id, a.title, a.description, a.subject, a.due_date, a.created_by, COALESCE(p.full_name, ''), a.created_at
		FROM assignments a
		LEFT JOIN profiles p ON p.id = a.created_by
		WHERE a.id = $1
	`, id)
	var a Assignment
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Subject, &a.DueDate, &a.CreatedBy, &a.CreatorName, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.WithStack(err)
	}
	return &a, nil
}

// ListAssignments returns assignments newest first, optionally only those authored by createdBy.
func (r *Repository) ListAssignments(ctx context.Context, createdBy string) ([]Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.title, a.description, a.subject, a.due_date, a.created_by, COALESCE(p.full_name, ''), a.created_at
		FROM assignments a
		LEFT JOIN profiles p ON p.id = a.created_by
		WHERE $1 = '' OR a.created_by = $1
		ORDER BY a.created_at DESC
	`, createdBy)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Subject, &a.DueDate, &a.CreatedBy, &a.CreatorName, &a.CreatedAt); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// UpsertSubmission creates or replaces a submission in one statement. A replaced
// submission goes back to submitted and loses its grade.
func (r *Repository) UpsertSubmission(ctx context.Context, s Submission) (Submission, bool, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	var created bool
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO assignment_submissions (id, assignment_id, student_id, submission_text, status, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (assignment_id, student_id) DO UPDATE SET
			submission_text = EXCLUDED.submission_text,
			status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at,
			grade = NULL,
			feedback = NULL,
			graded_at = NULL
		RETURNING id, (xmax = 0)
	`, s.ID, s.AssignmentID, s.StudentID, s.Text, s.Status, s.SubmittedAt)
	if err := row.Scan(&s.ID, &created); err != nil {
		return Submission{}, false, pkgerrors.WithStack(err)
	}
	s.Grade, s.Feedback, s.GradedAt = nil, nil, nil
	return s, created, nil
}

const submissionColumns = `s.id, s.assignment_id, s.student_id, s.submission_text, s.status, s.grade, s.feedback, s.submitted_at, s.graded_at`

func scanSubmission(sc interface{ Scan(...any) error }, s *Submission, extra ...any) error {
	dest := append([]any{&s.ID, &s.AssignmentID, &s.StudentID, &s.Text, &s.Status, &s.Grade, &s.Feedback, &s.SubmittedAt, &s.GradedAt}, extra...)
	return sc.Scan(dest...)
}

// GetSubmission returns the submission, or nil when none exists.
func (r *Repository) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM assignment_submissions s WHERE s.id = $1`, id)
	var s Submission
	if err := scanSubmission(row, &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.WithStack(err)
	}
	return &s, nil
}

// GradeSubmission sets grade, feedback and graded_at and moves the submission to graded.
func (r *Repository) GradeSubmission(ctx context.Context, id string, grade int, feedback string, at time.Time) (Submission, error) {
	var fb *string
	if feedback != "" {
		fb = &feedback
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE assignment_submissions s
		SET grade = $2, feedback = $3, status = 'graded', graded_at = $4
		WHERE s.id = $1
		RETURNING `+submissionColumns, id, grade, fb, at)
	var s Submission
	if err := scanSubmission(row, &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, apperr.NotFound("submission not found")
		}
		return Submission{}, pkgerrors.WithStack(err)
	}
	return s, nil
}

// ListSubmissionsByStudent returns the student's submissions, newest first.
func (r *Repository) ListSubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM assignment_submissions s
		WHERE s.student_id = $1
		ORDER BY s.submitted_at DESC
	`, studentID)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Submission
	for rows.Next() {
		var s Submission
		if err := scanSubmission(rows, &s); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ListSubmissions returns all submissions with student profile and assignment title.
func (r *Repository) ListSubmissions(ctx context.Context) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+submissionColumns+`, a.title, a.subject, p.full_name, p.student_id, p.department, p.year
		FROM assignment_submissions s
		JOIN assignments a ON a.id = s.assignment_id
		LEFT JOIN profiles p ON p.id = s.student_id
		ORDER BY s.submitted_at DESC
	`)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []Submission
	for rows.Next() {
		var s Submission
		var joined profile.JoinedSummary
		extra := append([]any{&s.AssignmentTitle, &s.AssignmentSubject}, joined.Dest()...)
		if err := scanSubmission(rows, &s, extra...); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		s.Student = joined.Summary()
		res = append(res, s)
	}
	return res, rows.Err()
}

// GradedScores returns the grades of a student's graded submissions.
func (r *Repository) GradedScores(ctx context.Context, studentID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT grade FROM assignment_submissions
		WHERE student_id = $1 AND status = 'graded' AND grade IS NOT NULL
	`, studentID)
	if err != nil {
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()
	var res []int
	for rows.Next() {
		var g int
		if err := rows.Scan(&g); err != nil {
			return nil, pkgerrors.WithStack(err)
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

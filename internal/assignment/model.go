// Package assignment covers assignment authoring, student submissions and grading.
package assignment

import (
	"context"
	"time"

	"campusportal/internal/profile"
)

// SubmissionStatus is the lifecycle state of a submission.
type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusSubmitted SubmissionStatus = "submitted"
	StatusGraded    SubmissionStatus = "graded"
)

// Assignment is a task created by staff.
type Assignment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	DueDate     time.Time `json:"due_date"`
	CreatedBy   string    `json:"created_by"`
	CreatorName string    `json:"created_by_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Submission is one student's answer to one assignment.
// Grade, Feedback and GradedAt are only set while Status is graded.
type Submission struct {
	ID           string           `json:"id"`
	AssignmentID string           `json:"assignment_id"`
	StudentID    string           `json:"student_id"`
	Text         string           `json:"submission_text"`
	Status       SubmissionStatus `json:"status"`
	Grade        *int             `json:"grade,omitempty"`
	Feedback     *string          `json:"feedback,omitempty"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	GradedAt     *time.Time       `json:"graded_at,omitempty"`

	Student           *profile.Summary `json:"student,omitempty"`
	AssignmentTitle   string           `json:"assignment_title,omitempty"`
	AssignmentSubject string           `json:"assignment_subject,omitempty"`
}

// Store persists assignments and submissions.
type Store interface {
	CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	GetAssignment(ctx context.Context, id string) (*Assignment, error)
	// ListAssignments returns newest first; an empty createdBy lists every assignment.
	ListAssignments(ctx context.Context, createdBy string) ([]Assignment, error)

	// UpsertSubmission creates or replaces the (assignment, student) submission atomically
	// and reports whether a new row was inserted.
	UpsertSubmission(ctx context.Context, s Submission) (Submission, bool, error)
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	GradeSubmission(ctx context.Context, id string, grade int, feedback string, at time.Time) (Submission, error)
	ListSubmissionsByStudent(ctx context.Context, studentID string) ([]Submission, error)
	// ListSubmissions returns every submission joined with student and assignment, newest first.
	ListSubmissions(ctx context.Context) ([]Submission, error)
	GradedScores(ctx context.Context, studentID string) ([]int, error)
}

package assignment

import (
	"context"
	"strings"
	"time"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
	defaultDueTime = "23:59"
)

// Service applies the assignment rules.
type Service struct {
	store Store
	loc   *time.Location
	Now   func() time.Time
}

// NewService creates a service. Due dates are interpreted in loc.
func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, loc: loc, Now: time.Now}
}

// CreateInput carries the fields of a new assignment.
type CreateInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Subject     string `json:"subject" binding:"required"`
	DueDate     string `json:"due_date" binding:"required"`
	DueTime     string `json:"due_time"`
}

// Create stores a new assignment authored by v. Due dates in the past are accepted.
func (s *Service) Create(ctx context.Context, v profile.Viewer, in CreateInput) (Assignment, error) {
	if !v.CanAuthor() {
		return Assignment{}, apperr.ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	subject := strings.TrimSpace(in.Subject)
	var fields []apperr.FieldError
	if title == "" {
		fields = append(fields, apperr.FieldError{Field: "title", Error: "this field is required"})
	}
	if subject == "" {
		fields = append(fields, apperr.FieldError{Field: "subject", Error: "this field is required"})
	}
	if len(fields) > 0 {
		return Assignment{}, apperr.NewValidationError("invalid request", fields...)
	}

	due, err := s.combineDue(in.DueDate, in.DueTime)
	if err != nil {
		return Assignment{}, err
	}
	return s.store.CreateAssignment(ctx, Assignment{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Subject:     subject,
		DueDate:     due,
		CreatedBy:   v.ID,
		CreatedAt:   s.Now().UTC(),
	})
}

func (s *Service) combineDue(date, clock string) (time.Time, error) {
	if clock == "" {
		clock = defaultDueTime
	}
	due, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, s.loc)
	if err != nil {
		return time.Time{}, apperr.NewValidationError("invalid due date",
			apperr.FieldError{Field: "due_date", Error: "expected YYYY-MM-DD and HH:MM"})
	}
	return due, nil
}

// SubmitResult is the outcome of Submit.
type SubmitResult struct {
	Submission Submission
	// First is set when this call created the submission.
	First bool
	// OnTime is set when the submission happened at or before the due date.
	OnTime bool
}

// Submit creates or replaces the viewer's submission for assignmentID.
// A resubmission clears any previous grade.
func (s *Service) Submit(ctx context.Context, v profile.Viewer, assignmentID, text string) (SubmitResult, error) {
	if !v.IsStudent() {
		return SubmitResult{}, apperr.ErrForbidden
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return SubmitResult{}, apperr.NewValidationError("invalid request",
			apperr.FieldError{Field: "submission_text", Error: "this field is required"})
	}
	a, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return SubmitResult{}, err
	}
	if a == nil {
		return SubmitResult{}, apperr.NotFound("assignment not found")
	}

	now := s.Now().UTC()
	sub, created, err := s.store.UpsertSubmission(ctx, Submission{
		AssignmentID: assignmentID,
		StudentID:    v.ID,
		Text:         text,
		Status:       StatusSubmitted,
		SubmittedAt:  now,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Submission: sub, First: created, OnTime: !now.After(a.DueDate)}, nil
}

// GradeResult is the outcome of Grade.
type GradeResult struct {
	Submission Submission
	// Regrade is set when the submission was already graded before this call.
	Regrade bool
}

// Grade records grade (0 to 100) and feedback on a submission.
func (s *Service) Grade(ctx context.Context, v profile.Viewer, submissionID string, grade int, feedback string) (GradeResult, error) {
	if !v.CanGrade() {
		return GradeResult{}, apperr.ErrForbidden
	}
	if grade < 0 || grade > 100 {
		return GradeResult{}, apperr.NewValidationError("Grade must be between 0 and 100",
			apperr.FieldError{Field: "grade", Error: "must be between 0 and 100"})
	}
	prev, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return GradeResult{}, err
	}
	if prev == nil {
		return GradeResult{}, apperr.NotFound("submission not found")
	}
	sub, err := s.store.GradeSubmission(ctx, submissionID, grade, strings.TrimSpace(feedback), s.Now().UTC())
	if err != nil {
		return GradeResult{}, err
	}
	return GradeResult{Submission: sub, Regrade: prev.Status == StatusGraded}, nil
}

// GradedScores returns the grades of the student's graded submissions.
func (s *Service) GradedScores(ctx context.Context, studentID string) ([]int, error) {
	return s.store.GradedScores(ctx, studentID)
}

// StudentItem is an assignment as seen by one student.
type StudentItem struct {
	Assignment
	Submission *Submission `json:"submission,omitempty"`
	Badge      string      `json:"badge"`
}

// StudentStats are the quick counters of the student view.
type StudentStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Submitted int `json:"submitted"`
	Overdue   int `json:"overdue"`
}

// StudentView is the student's assignment page.
type StudentView struct {
	Assignments []StudentItem `json:"assignments"`
	Stats       StudentStats  `json:"stats"`
}

// BuildStudentView pairs each assignment with the student's submission and badge.
func BuildStudentView(assignments []Assignment, subs []Submission, now time.Time) StudentView {
	byAssignment := make(map[string]Submission, len(subs))
	for _, sub := range subs {
		byAssignment[sub.AssignmentID] = sub
	}
	view := StudentView{Assignments: make([]StudentItem, 0, len(assignments))}
	view.Stats.Total = len(assignments)
	for _, a := range assignments {
		item := StudentItem{Assignment: a}
		if sub, ok := byAssignment[a.ID]; ok {
			item.Submission = &sub
		} else {
			view.Stats.Pending++
			if a.DueDate.Before(now) {
				view.Stats.Overdue++
			}
		}
		item.Badge = Badge(a, item.Submission, now)
		view.Assignments = append(view.Assignments, item)
	}
	for _, sub := range subs {
		if sub.Status == StatusSubmitted || sub.Status == StatusGraded {
			view.Stats.Submitted++
		}
	}
	return view
}

// StaffItem is an authored assignment with its submission count.
type StaffItem struct {
	Assignment
	SubmissionCount int `json:"submission_count"`
}

// StaffStats are the counters of the submissions tab.
type StaffStats struct {
	TotalSubmissions int `json:"total_submissions"`
	AwaitingGrading  int `json:"awaiting_grading"`
	Graded           int `json:"graded"`
}

// StaffView is the faculty and admin assignment page.
type StaffView struct {
	Assignments []StaffItem  `json:"assignments"`
	Submissions []Submission `json:"submissions"`
	Stats       StaffStats   `json:"stats"`
}

// BuildStaffView counts submissions per assignment and by status.
func BuildStaffView(assignments []Assignment, subs []Submission) StaffView {
	counts := make(map[string]int)
	view := StaffView{Submissions: subs, Assignments: make([]StaffItem, 0, len(assignments))}
	if view.Submissions == nil {
		view.Submissions = []Submission{}
	}
	for _, sub := range subs {
		counts[sub.AssignmentID]++
		switch sub.Status {
		case StatusSubmitted:
			view.Stats.AwaitingGrading++
		case StatusGraded:
			view.Stats.Graded++
		}
	}
	view.Stats.TotalSubmissions = len(subs)
	for _, a := range assignments {
		view.Assignments = append(view.Assignments, StaffItem{Assignment: a, SubmissionCount: counts[a.ID]})
	}
	return view
}

// Assignments lists what v may see: everything for students and admins, own authored for faculty.
func (s *Service) Assignments(ctx context.Context, v profile.Viewer) ([]Assignment, error) {
	if v.IsStudent() || v.IsAdmin() {
		return s.store.ListAssignments(ctx, "")
	}
	return s.store.ListAssignments(ctx, v.ID)
}

// OwnSubmissions lists the student's submissions.
func (s *Service) OwnSubmissions(ctx context.Context, studentID string) ([]Submission, error) {
	return s.store.ListSubmissionsByStudent(ctx, studentID)
}

// AllSubmissions lists every submission for staff review.
func (s *Service) AllSubmissions(ctx context.Context, v profile.Viewer) ([]Submission, error) {
	if !v.IsStaff() {
		return nil, apperr.ErrForbidden
	}
	return s.store.ListSubmissions(ctx)
}

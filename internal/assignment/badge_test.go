package assignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBadge(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		due  time.Time
		sub  *Submission
		want string
	}{
		{"submitted", now.Add(-time.Hour), &Submission{Status: StatusSubmitted}, BadgeSubmitted},
		{"graded", now.Add(48 * time.Hour), &Submission{Status: StatusGraded}, BadgeGraded},
		{"pending submission is a draft", now.Add(48 * time.Hour), &Submission{Status: StatusPending}, BadgeDraft},
		{"past due", now.Add(-time.Minute), nil, BadgeOverdue},
		{"due in an hour", now.Add(time.Hour), nil, BadgeDueSoon},
		{"due in exactly a day", now.Add(24 * time.Hour), nil, BadgeDueSoon},
		{"due in a day and a minute", now.Add(24*time.Hour + time.Minute), nil, BadgePending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Badge(Assignment{DueDate: tc.due}, tc.sub, now))
		})
	}
}

func TestBuildStudentView(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assignments := []Assignment{
		{ID: "a1", DueDate: now.Add(72 * time.Hour)},
		{ID: "a2", DueDate: now.Add(-time.Hour)},
		{ID: "a3", DueDate: now.Add(-time.Hour)},
	}
	subs := []Submission{{AssignmentID: "a3", Status: StatusGraded}}

	view := BuildStudentView(assignments, subs, now)
	assert.Equal(t, StudentStats{Total: 3, Pending: 2, Submitted: 1, Overdue: 1}, view.Stats)
	assert.Equal(t, BadgePending, view.Assignments[0].Badge)
	assert.Equal(t, BadgeOverdue, view.Assignments[1].Badge)
	assert.Equal(t, BadgeGraded, view.Assignments[2].Badge)
	assert.NotNil(t, view.Assignments[2].Submission)
}

func TestBuildStaffView(t *testing.T) {
	assignments := []Assignment{{ID: "a1"}, {ID: "a2"}}
	subs := []Submission{
		{AssignmentID: "a1", Status: StatusSubmitted},
		{AssignmentID: "a1", Status: StatusGraded},
		{AssignmentID: "a9", Status: StatusSubmitted},
	}
	view := BuildStaffView(assignments, subs)
	assert.Equal(t, StaffStats{TotalSubmissions: 3, AwaitingGrading: 2, Graded: 1}, view.Stats)
	assert.Equal(t, 2, view.Assignments[0].SubmissionCount)
	assert.Equal(t, 0, view.Assignments[1].SubmissionCount)

	empty := BuildStaffView(nil, nil)
	assert.NotNil(t, empty.Submissions)
}

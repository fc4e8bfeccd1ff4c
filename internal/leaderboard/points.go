package leaderboard

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"campusportal/internal/queue"
)

// Event reasons. They double as queue message types.
const (
	ReasonSubmittedOnTime = "submission.submitted"
	ReasonGraded          = "submission.graded"
	ReasonAttendance      = "attendance.marked"
)

// Point values.
const (
	OnTimeSubmissionPoints = 10
	DailyAttendancePoints  = 5
	EarlyArrivalPoints     = 2
)

// Event awards points to one user.
type Event struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
	Points int    `json:"points"`
}

// GradePoints maps a score to its letter-grade points: A 50, B 30, C 15.
func GradePoints(grade int) int {
	switch {
	case grade >= 90:
		return 50
	case grade >= 80:
		return 30
	case grade >= 70:
		return 15
	default:
		return 0
	}
}

// OnTimeSubmission is awarded for a first submission made before the due date.
func OnTimeSubmission(userID string) Event {
	return Event{UserID: userID, Reason: ReasonSubmittedOnTime, Points: OnTimeSubmissionPoints}
}

// Graded is awarded when a submission is graded for the first time.
func Graded(userID string, grade int) Event {
	return Event{UserID: userID, Reason: ReasonGraded, Points: GradePoints(grade)}
}

// AttendanceMarked is awarded for daily attendance, with a bonus for early arrival.
func AttendanceMarked(userID string, early bool) Event {
	ev := Event{UserID: userID, Reason: ReasonAttendance, Points: DailyAttendancePoints}
	if early {
		ev.Points += EarlyArrivalPoints
	}
	return ev
}

// Publish enqueues ev for the worker.
func Publish(ctx context.Context, q queue.Queue, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.WithStack(err)
	}
	return q.Publish(ctx, queue.Message{Type: ev.Reason, Body: body})
}

// Decode reads an Event from a queue message.
func Decode(msg queue.Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		return Event{}, errors.Wrapf(err, "decode %s event", msg.Type)
	}
	if ev.Reason == "" {
		ev.Reason = msg.Type
	}
	if ev.UserID == "" {
		return Event{}, errors.Errorf("%s event without user", msg.Type)
	}
	return ev, nil
}

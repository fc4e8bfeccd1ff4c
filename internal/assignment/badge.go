package assignment

import (
	"math"
	"time"
)

// Badge labels shown next to an assignment in the student list.
const (
	BadgeSubmitted = "Submitted"
	BadgeGraded    = "Graded"
	BadgeDraft     = "Draft"
	BadgeOverdue   = "Overdue"
	BadgeDueSoon   = "Due Soon"
	BadgePending   = "Pending"
)

// Badge derives the display status of a for one student.
func Badge(a Assignment, sub *Submission, now time.Time) string {
	if sub != nil {
		switch sub.Status {
		case StatusSubmitted:
			return BadgeSubmitted
		case StatusGraded:
			return BadgeGraded
		default:
			return BadgeDraft
		}
	}
	if a.DueDate.Before(now) {
		return BadgeOverdue
	}
	days := math.Ceil(a.DueDate.Sub(now).Hours() / 24)
	if days <= 1 {
		return BadgeDueSoon
	}
	return BadgePending
}

package attendance

import (
	"context"
	"time"

	"campusportal/internal/profile"
)

// DateLayout is the calendar-day format used for attendance dates.
const DateLayout = "2006-01-02"

// LocationUnavailable is stored when the client could not capture coordinates.
const LocationUnavailable = "Location not available"

// Status of a daily attendance record.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
	StatusExcused Status = "excused"
)

// Attended reports present or late.
func (s Status) Attended() bool { return s == StatusPresent || s == StatusLate }

// Record is one user's attendance for one calendar day.
type Record struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	Date         string           `json:"date"`
	Status       Status           `json:"status"`
	CheckInTime  time.Time        `json:"check_in_time"`
	CheckOutTime *time.Time       `json:"check_out_time,omitempty"`
	Location     string           `json:"location,omitempty"`
	User         *profile.Summary `json:"user,omitempty"`
}

// Store persists attendance records.
type Store interface {
	GetForDate(ctx context.Context, userID, date string) (*Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	SetCheckOut(ctx context.Context, id string, at time.Time) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
	ListAll(ctx context.Context, limit int) ([]Record, error)
}

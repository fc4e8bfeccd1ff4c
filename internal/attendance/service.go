package attendance

import (
	"context"
	"strings"
	"time"

	"campusportal/internal/apperr"
)

const (
	studentHistory = 30
	staffHistory   = 100
	earlyMargin    = 15 * time.Minute
)

// a year of daily records covers any month the calendar is asked for
const calendarHistory = 366

const errAlreadyMarked = "You have already marked attendance for today"

// Service applies the daily attendance rules.
type Service struct {
	store  Store
	loc    *time.Location
	cutoff time.Duration
	Now    func() time.Time
}

// NewService creates a service. cutoff is the local wall-clock time of day, as an
// offset such as 9h, after which a "present" check-in is stored as late.
func NewService(store Store, loc *time.Location, cutoff time.Duration) *Service {
	if loc == nil {
		loc = time.Local
	}
	if cutoff <= 0 {
		cutoff = 9 * time.Hour
	}
	return &Service{store: store, loc: loc, cutoff: cutoff, Now: time.Now}
}

// Mark is the outcome of MarkToday.
type Mark struct {
	Record Record
	// Early is set when the check-in happened at least 15 minutes before the cutoff.
	Early bool
}

// Today returns the current calendar date in the service's zone.
func (s *Service) Today() string {
	return s.Now().In(s.loc).Format(DateLayout)
}

// CutoffOn returns the late cutoff instant for the given calendar date.
func (s *Service) CutoffOn(date string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, err
	}
	h := int(s.cutoff / time.Hour)
	m := int(s.cutoff % time.Hour / time.Minute)
	sec := int(s.cutoff % time.Minute / time.Second)
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, sec, 0, s.loc), nil
}

// MarkToday records the user's attendance for today, once.
func (s *Service) MarkToday(ctx context.Context, userID string, requested Status, location string) (Mark, error) {
	if userID == "" {
		return Mark{}, apperr.NewValidationError("user required")
	}
	if requested != StatusPresent && requested != StatusLate {
		return Mark{}, apperr.NewValidationError("status must be present or late")
	}

	now := s.Now().In(s.loc)
	today := now.Format(DateLayout)

	existing, err := s.store.GetForDate(ctx, userID, today)
	if err != nil {
		return Mark{}, err
	}
	if existing != nil {
		return Mark{}, apperr.Conflict(errAlreadyMarked)
	}

	cutoff, err := s.CutoffOn(today)
	if err != nil {
		return Mark{}, err
	}
	status := requested
	if requested == StatusPresent && now.After(cutoff) {
		status = StatusLate
	}
	location = strings.TrimSpace(location)
	if location == "" {
		location = LocationUnavailable
	}

	rec, err := s.store.Insert(ctx, Record{
		UserID:      userID,
		Date:        today,
		Status:      status,
		CheckInTime: now,
		Location:    location,
	})
	if err != nil {
		if apperr.IsUniqueViolation(err) {
			return Mark{}, apperr.Conflict(errAlreadyMarked)
		}
		return Mark{}, err
	}
	return Mark{Record: rec, Early: !now.After(cutoff.Add(-earlyMargin))}, nil
}

// CheckOut stamps today's check-out time once.
func (s *Service) CheckOut(ctx context.Context, userID string) (Record, error) {
	now := s.Now().In(s.loc)
	rec, err := s.store.GetForDate(ctx, userID, now.Format(DateLayout))
	if err != nil {
		return Record{}, err
	}
	if rec == nil {
		return Record{}, apperr.NotFound("No attendance marked for today")
	}
	if rec.CheckOutTime != nil {
		return Record{}, apperr.Conflict("You have already checked out today")
	}
	if err := s.store.SetCheckOut(ctx, rec.ID, now); err != nil {
		return Record{}, err
	}
	rec.CheckOutTime = &now
	return *rec, nil
}

// History returns the user's most recent records, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Record, error) {
	return s.store.ListByUser(ctx, userID, studentHistory)
}

// TodayRecord returns the user's record for today, if any.
func (s *Service) TodayRecord(ctx context.Context, userID string) (*Record, error) {
	return s.store.GetForDate(ctx, userID, s.Today())
}

// AllRecords returns the latest records of every user for staff review.
func (s *Service) AllRecords(ctx context.Context) ([]Record, error) {
	return s.store.ListAll(ctx, staffHistory)
}

// MonthCalendar returns the grid for month ("2006-01"); empty means the current month.
func (s *Service) MonthCalendar(ctx context.Context, userID, month string) ([]CalendarDay, error) {
	at := s.Now().In(s.loc)
	if month != "" {
		m, err := time.ParseInLocation("2006-01", month, s.loc)
		if err != nil {
			return nil, apperr.NewValidationError("invalid month",
				apperr.FieldError{Field: "month", Error: "must be formatted as YYYY-MM"})
		}
		at = m
	}
	recs, err := s.store.ListByUser(ctx, userID, calendarHistory)
	if err != nil {
		return nil, err
	}
	return Calendar(recs, at, s.Today()), nil
}

// Location is the zone used for calendar days.
func (s *Service) Location() *time.Location { return s.loc }

// CurrentStreak counts the user's consecutive present or late days up to the latest record.
func (s *Service) CurrentStreak(ctx context.Context, userID string) (int, error) {
	recs, err := s.store.ListByUser(ctx, userID, studentHistory)
	if err != nil {
		return 0, err
	}
	return Streak(recs), nil
}

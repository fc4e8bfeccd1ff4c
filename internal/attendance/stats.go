package attendance

import (
	"fmt"
	"time"
)

// Stats summarizes a newest-first slice of records.
type Stats struct {
	Total          int     `json:"total"`
	Present        int     `json:"present"`
	Late           int     `json:"late"`
	Absent         int     `json:"absent"`
	Excused        int     `json:"excused"`
	Rate           float64 `json:"attendance_rate"`
	Streak         int     `json:"current_streak"`
	AverageCheckIn string  `json:"average_check_in"`
	Grade          string  `json:"grade"`
}

// ComputeStats derives counters, rate, streak and average check-in.
// records must be ordered newest first; check-in times are read in loc.
func ComputeStats(records []Record, loc *time.Location) Stats {
	if loc == nil {
		loc = time.Local
	}
	st := Stats{Total: len(records)}
	var minutes, attended int
	for _, r := range records {
		switch r.Status {
		case StatusPresent:
			st.Present++
		case StatusLate:
			st.Late++
		case StatusAbsent:
			st.Absent++
		case StatusExcused:
			st.Excused++
		}
		if r.Status.Attended() && !r.CheckInTime.IsZero() {
			t := r.CheckInTime.In(loc)
			minutes += t.Hour()*60 + t.Minute()
			attended++
		}
	}
	if st.Total > 0 {
		st.Rate = float64(st.Present+st.Late+st.Excused) / float64(st.Total) * 100
	}
	st.Streak = Streak(records)

	st.AverageCheckIn = "N/A"
	if attended > 0 {
		avg := minutes / attended
		if avg > 0 {
			st.AverageCheckIn = fmt.Sprintf("%d:%02d", avg/60, avg%60)
		}
	}
	st.Grade = GradeLabel(st.Rate)
	return st
}

// Streak counts consecutive present or late records from the newest one.
func Streak(records []Record) int {
	n := 0
	for _, r := range records {
		if !r.Status.Attended() {
			break
		}
		n++
	}
	return n
}

// GradeLabel maps an attendance rate to its label.
func GradeLabel(rate float64) string {
	switch {
	case rate >= 95:
		return "Excellent"
	case rate >= 85:
		return "Good"
	case rate >= 75:
		return "Fair"
	default:
		return "Needs Improvement"
	}
}

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date    string `json:"date"`
	InMonth bool   `json:"in_month"`
	IsToday bool   `json:"is_today"`
	Status  Status `json:"status,omitempty"`
}

// Calendar builds the 42-cell grid for the month containing month. The grid
// starts on the Sunday on or before the 1st. today is a DateLayout date.
func Calendar(records []Record, month time.Time, today string) []CalendarDay {
	byDate := make(map[string]Status, len(records))
	for _, r := range records {
		byDate[r.Date] = r.Status
	}
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	days := make([]CalendarDay, 0, 42)
	for i := 0; i < 42; i++ {
		d := start.AddDate(0, 0, i)
		key := d.Format(DateLayout)
		days = append(days, CalendarDay{
			Date:    key,
			InMonth: d.Month() == first.Month(),
			IsToday: key == today,
			Status:  byDate[key],
		})
	}
	return days
}

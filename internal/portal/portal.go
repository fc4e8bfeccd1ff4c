// Package portal assembles stores and services for the binaries.
package portal

import (
	"database/sql"
	"time"

	"campusportal/internal/announcement"
	"campusportal/internal/assignment"
	"campusportal/internal/attendance"
	"campusportal/internal/canteen"
	"campusportal/internal/leaderboard"
	"campusportal/internal/leave"
	"campusportal/internal/profile"
)

// Stores is one backend for every lifecycle.
type Stores struct {
	Profiles      profile.Store
	Assignments   assignment.Store
	Attendance    attendance.Store
	Leave         leave.Store
	Canteen       canteen.Store
	Leaderboard   leaderboard.Store
	Announcements announcement.Store
}

// PostgresStores returns the Postgres repositories.
func PostgresStores(db *sql.DB) Stores {
	return Stores{
		Profiles:      profile.NewRepository(db),
		Assignments:   assignment.NewRepository(db),
		Attendance:    attendance.NewRepository(db),
		Leave:         leave.NewRepository(db),
		Canteen:       canteen.NewRepository(db),
		Leaderboard:   leaderboard.NewRepository(db),
		Announcements: announcement.NewRepository(db),
	}
}

// MemoryStores returns in-process stores sharing one profile table for joins.
func MemoryStores(profiles *profile.Memory, items ...canteen.Item) Stores {
	return Stores{
		Profiles:      profiles,
		Assignments:   assignment.NewMemory(profiles.Summary),
		Attendance:    attendance.NewMemory(profiles.Summary),
		Leave:         leave.NewMemory(profiles.Summary),
		Canteen:       canteen.NewMemory(profiles.Summary, items...),
		Leaderboard:   leaderboard.NewMemory(profiles.Summary),
		Announcements: announcement.NewMemory(),
	}
}

// Services holds every service built over one Stores.
type Services struct {
	Resolver      *profile.Resolver
	Assignments   *assignment.Service
	Attendance    *attendance.Service
	Leave         *leave.Service
	Canteen       *canteen.Service
	Leaderboard   *leaderboard.Service
	Announcements *announcement.Service
}

// NewServices builds the services. images may be nil when uploads are not configured.
func NewServices(st Stores, loc *time.Location, cutoff time.Duration, images canteen.ImageStore) Services {
	assignments := assignment.NewService(st.Assignments, loc)
	att := attendance.NewService(st.Attendance, loc, cutoff)
	return Services{
		Resolver:      profile.NewResolver(st.Profiles),
		Assignments:   assignments,
		Attendance:    att,
		Leave:         leave.NewService(st.Leave, loc),
		Canteen:       canteen.NewService(st.Canteen, images),
		Leaderboard:   leaderboard.NewService(st.Leaderboard, att, assignments),
		Announcements: announcement.NewService(st.Announcements),
	}
}

// SetClock replaces the time source of every service.
func (s Services) SetClock(now func() time.Time) {
	s.Assignments.Now = now
	s.Attendance.Now = now
	s.Leave.Now = now
	s.Canteen.Now = now
	s.Leaderboard.Now = now
	s.Announcements.Now = now
}

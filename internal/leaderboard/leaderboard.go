// Package leaderboard ranks students by points and keeps their achievements.
package leaderboard

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"campusportal/internal/profile"
)

// TopLimit is how many entries the leaderboard page shows.
const TopLimit = 50

// Achievement names.
const (
	PerfectAttendance  = "Perfect Attendance"
	AcademicExcellence = "Academic Excellence"
)

// Entry is one student's standing.
type Entry struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Points       int             `json:"points"`
	Rank         int             `json:"rank"`
	Achievements []string        `json:"achievements"`
	UpdatedAt    time.Time       `json:"updated_at"`
	User         profile.Summary `json:"user"`
}

// Store persists leaderboard entries.
type Store interface {
	// Top returns entries by rank then full name. Unranked entries come last.
	Top(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, userID string) (*Entry, error)
	AddPoints(ctx context.Context, userID string, points int, at time.Time) (Entry, error)
	AddAchievements(ctx context.Context, userID string, names []string) error
	// Standings returns user id and points of every entry.
	Standings(ctx context.Context) ([]Entry, error)
	SetRanks(ctx context.Context, ranks map[string]int) error
}

// Filter keeps entries matching both department and year. "all" or "" matches anything.
func Filter(entries []Entry, department, year string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if department != "" && department != "all" && e.User.Department != department {
			continue
		}
		if year != "" && year != "all" && strconv.Itoa(e.User.Year) != year {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Summary aggregates a filtered list.
type Summary struct {
	Count         int `json:"count"`
	AveragePoints int `json:"average_points"`
	TopScore      int `json:"top_score"`
}

// Summarize computes count, rounded average and the first entry's points.
func Summarize(entries []Entry) Summary {
	s := Summary{Count: len(entries)}
	if len(entries) == 0 {
		return s
	}
	total := 0
	for _, e := range entries {
		total += e.Points
	}
	s.AveragePoints = int(math.Round(float64(total) / float64(len(entries))))
	s.TopScore = entries[0].Points
	return s
}

// Facets are the filter choices present in a result set.
type Facets struct {
	Departments []string `json:"departments"`
	Years       []int    `json:"years"`
}

// BuildFacets collects distinct non-empty departments and non-zero years in order of appearance.
func BuildFacets(entries []Entry) Facets {
	f := Facets{Departments: []string{}, Years: []int{}}
	seenDept := map[string]bool{}
	seenYear := map[int]bool{}
	for _, e := range entries {
		if d := e.User.Department; d != "" && !seenDept[d] {
			seenDept[d] = true
			f.Departments = append(f.Departments, d)
		}
		if y := e.User.Year; y != 0 && !seenYear[y] {
			seenYear[y] = true
			f.Years = append(f.Years, y)
		}
	}
	return f
}

// CompetitionRanks assigns 1,2,2,4 style ranks by points descending.
func CompetitionRanks(entries []Entry) map[string]int {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Points > sorted[j].Points })

	ranks := make(map[string]int, len(sorted))
	for i, e := range sorted {
		if i > 0 && e.Points == sorted[i-1].Points {
			ranks[e.UserID] = ranks[sorted[i-1].UserID]
			continue
		}
		ranks[e.UserID] = i + 1
	}
	return ranks
}

// View is the leaderboard page.
type View struct {
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
	Facets  Facets  `json:"facets"`
	Current *Entry  `json:"current,omitempty"`
}

// BuildView filters the top entries and finds the viewer's own standing.
func BuildView(v profile.Viewer, top []Entry, department, year string) View {
	filtered := Filter(top, department, year)
	view := View{Entries: filtered, Summary: Summarize(filtered), Facets: BuildFacets(top)}
	if v.IsStudent() {
		for i := range top {
			if top[i].UserID == v.ID {
				e := top[i]
				view.Current = &e
				break
			}
		}
	}
	return view
}

package leaderboard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"campusportal/internal/metrics"
)

const (
	perfectAttendanceStreak = 30
	excellenceMinGraded     = 3
	excellenceAverage       = 90
)

// StreakSource reports a student's current present or late streak in days.
type StreakSource interface {
	CurrentStreak(ctx context.Context, userID string) (int, error)
}

// GradeSource reports the scores of a student's graded submissions.
type GradeSource interface {
	GradedScores(ctx context.Context, studentID string) ([]int, error)
}

// Service reads standings and applies point events.
type Service struct {
	store   Store
	streaks StreakSource
	grades  GradeSource
	Now     func() time.Time
}

// NewService creates a service. Either source may be nil, which disables its achievement.
func NewService(store Store, streaks StreakSource, grades GradeSource) *Service {
	return &Service{store: store, streaks: streaks, grades: grades, Now: time.Now}
}

// Top returns the best entries by stored rank.
func (s *Service) Top(ctx context.Context) ([]Entry, error) {
	return s.store.Top(ctx, TopLimit)
}

// Entry returns the user's standing, or nil when they have none.
func (s *Service) Entry(ctx context.Context, userID string) (*Entry, error) {
	return s.store.Get(ctx, userID)
}

// Award adds the event's points and grants any achievement it unlocks.
// Zero-point events still create the entry.
func (s *Service) Award(ctx context.Context, ev Event) (Entry, error) {
	if ev.UserID == "" {
		return Entry{}, errors.New("award without user")
	}
	if ev.Points < 0 {
		return Entry{}, errors.Errorf("negative award %d for %s", ev.Points, ev.Reason)
	}
	entry, err := s.store.AddPoints(ctx, ev.UserID, ev.Points, s.Now().UTC())
	if err != nil {
		return Entry{}, err
	}
	metrics.PointsAwarded(ev.Reason, ev.Points)

	unlocked, err := s.unlocked(ctx, ev)
	if err != nil {
		return entry, err
	}
	var fresh []string
	for _, name := range unlocked {
		if !contains(entry.Achievements, name) {
			fresh = append(fresh, name)
		}
	}
	if len(fresh) == 0 {
		return entry, nil
	}
	if err := s.store.AddAchievements(ctx, ev.UserID, fresh); err != nil {
		return entry, err
	}
	entry.Achievements = append(entry.Achievements, fresh...)
	return entry, nil
}

func (s *Service) unlocked(ctx context.Context, ev Event) ([]string, error) {
	var out []string
	switch ev.Reason {
	case ReasonAttendance:
		if s.streaks == nil {
			return nil, nil
		}
		streak, err := s.streaks.CurrentStreak(ctx, ev.UserID)
		if err != nil {
			return nil, err
		}
		if streak >= perfectAttendanceStreak {
			out = append(out, PerfectAttendance)
		}
	case ReasonGraded:
		if s.grades == nil {
			return nil, nil
		}
		scores, err := s.grades.GradedScores(ctx, ev.UserID)
		if err != nil {
			return nil, err
		}
		if len(scores) >= excellenceMinGraded && average(scores) >= excellenceAverage {
			out = append(out, AcademicExcellence)
		}
	}
	return out, nil
}

// Rerank recomputes every rank from the stored points.
func (s *Service) Rerank(ctx context.Context) (err error) {
	defer func() { metrics.Rerank(err) }()
	standings, err := s.store.Standings(ctx)
	if err != nil {
		return err
	}
	if len(standings) == 0 {
		return nil
	}
	return s.store.SetRanks(ctx, CompetitionRanks(standings))
}

func average(xs []int) float64 {
	total := 0
	for _, x := range xs {
		total += x
	}
	return float64(total) / float64(len(xs))
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

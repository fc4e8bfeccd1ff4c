package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campusportal/internal/leaderboard"
	"campusportal/internal/profile"
	"campusportal/internal/queue"
)

func TestApplyEvents(t *testing.T) {
	profiles := profile.NewMemory(profile.Profile{ID: "stu-1", FullName: "Ada", Role: profile.RoleStudent})
	svcs := NewServices(MemoryStores(profiles), time.UTC, 9*time.Hour, nil)

	q := queue.NewInMemory(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, leaderboard.Publish(ctx, q, leaderboard.OnTimeSubmission("stu-1")))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: leaderboard.ReasonGraded, Body: []byte("{not json")}))
	require.NoError(t, leaderboard.Publish(ctx, q, leaderboard.Graded("stu-1", 92)))

	done := make(chan error, 1)
	go func() { done <- ApplyEvents(ctx, q, svcs.Leaderboard, zap.NewNop()) }()

	require.Eventually(t, func() bool {
		e, err := svcs.Leaderboard.Entry(context.Background(), "stu-1")
		return err == nil && e != nil && e.Points == 60
	}, 2*time.Second, 10*time.Millisecond)

	e, err := svcs.Leaderboard.Entry(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", e.User.FullName)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ApplyEvents did not stop after cancel")
	}
}

func TestScheduledRerankInMemoryMode(t *testing.T) {
	profiles := profile.NewMemory(
		profile.Profile{ID: "stu-1", FullName: "Ada", Role: profile.RoleStudent},
		profile.Profile{ID: "stu-2", FullName: "Bo", Role: profile.RoleStudent},
	)
	svcs := NewServices(MemoryStores(profiles), time.UTC, 9*time.Hour, nil)
	ctx := context.Background()

	_, err := svcs.Leaderboard.Award(ctx, leaderboard.Graded("stu-1", 92))
	require.NoError(t, err)
	_, err = svcs.Leaderboard.Award(ctx, leaderboard.OnTimeSubmission("stu-2"))
	require.NoError(t, err)

	e, err := svcs.Leaderboard.Entry(ctx, "stu-1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Zero(t, e.Rank)

	c, err := ScheduleRerank(ctx, "*/5 * * * *", time.UTC, svcs.Leaderboard, zap.NewNop())
	require.NoError(t, err)
	entries := c.Entries()
	require.Len(t, entries, 1)
	entries[0].WrappedJob.Run()

	for id, rank := range map[string]int{"stu-1": 1, "stu-2": 2} {
		e, err := svcs.Leaderboard.Entry(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, e, id)
		assert.Equal(t, rank, e.Rank, id)
	}

	_, err = ScheduleRerank(ctx, "every tuesday", time.UTC, svcs.Leaderboard, zap.NewNop())
	assert.Error(t, err)
}

func TestSetClock(t *testing.T) {
	svcs := NewServices(MemoryStores(profile.NewMemory()), time.UTC, 9*time.Hour, nil)
	fixed := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svcs.SetClock(func() time.Time { return fixed })

	assert.Equal(t, "2026-03-10", svcs.Attendance.Today())
	assert.Equal(t, fixed, svcs.Leave.Now())
	assert.Equal(t, fixed, svcs.Canteen.Now())
}

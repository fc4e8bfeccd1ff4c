package attendance

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

func newTestService(at time.Time) (*Service, *Memory) {
	store := NewMemory(func(id string) profile.Summary { return profile.Summary{FullName: "Name " + id} })
	svc := NewService(store, time.UTC, 9*time.Hour)
	svc.Now = func() time.Time { return at }
	return svc, store
}

func TestMarkTodayLateRule(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		at        time.Time
		requested Status
		want      Status
		early     bool
	}{
		{"well before cutoff", day.Add(8 * time.Hour), StatusPresent, StatusPresent, true},
		{"exactly at cutoff", day.Add(9 * time.Hour), StatusPresent, StatusPresent, false},
		{"one second after cutoff", day.Add(9*time.Hour + time.Second), StatusPresent, StatusLate, false},
		{"requested late before cutoff", day.Add(7 * time.Hour), StatusLate, StatusLate, true},
		{"fifteen minutes before cutoff", day.Add(8*time.Hour + 45*time.Minute), StatusPresent, StatusPresent, true},
		{"fourteen minutes before cutoff", day.Add(8*time.Hour + 46*time.Minute), StatusPresent, StatusPresent, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newTestService(tc.at)
			mark, err := svc.MarkToday(context.Background(), "s1", tc.requested, "12.9,77.5")
			require.NoError(t, err)
			assert.Equal(t, tc.want, mark.Record.Status)
			assert.Equal(t, tc.early, mark.Early)
			assert.Equal(t, "2026-03-10", mark.Record.Date)

			stored, err := store.GetForDate(context.Background(), "s1", "2026-03-10")
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, tc.want, stored.Status)
		})
	}
}

func TestMarkTodayOncePerDay(t *testing.T) {
	svc, store := newTestService(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.MarkToday(ctx, "s1", StatusPresent, "")
	require.NoError(t, err)

	_, err = svc.MarkToday(ctx, "s1", StatusPresent, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "You have already marked attendance for today", err.Error())

	recs, err := store.ListByUser(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, LocationUnavailable, recs[0].Location)
}

func TestMarkTodayRejectsOtherStatuses(t *testing.T) {
	svc, _ := newTestService(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	_, err := svc.MarkToday(context.Background(), "s1", StatusExcused, "")
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMarkTodayUsesConfiguredZone(t *testing.T) {
	zone := time.FixedZone("IST", 5*3600+1800)
	store := NewMemory(nil)
	svc := NewService(store, zone, 9*time.Hour)
	// 03:00 UTC is 08:30 local, before the local cutoff.
	svc.Now = func() time.Time { return time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC) }

	mark, err := svc.MarkToday(context.Background(), "s1", StatusPresent, "x")
	require.NoError(t, err)
	assert.Equal(t, StatusPresent, mark.Record.Status)
	assert.Equal(t, "2026-03-10", mark.Record.Date)
}

func TestCutoffFollowsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cases := []struct {
		name string
		at   time.Time
		want Status
	}{
		{"spring forward late", time.Date(2026, 3, 8, 9, 30, 0, 0, ny), StatusLate},
		{"spring forward on time", time.Date(2026, 3, 8, 8, 59, 0, 0, ny), StatusPresent},
		{"fall back late", time.Date(2026, 11, 1, 9, 1, 0, 0, ny), StatusLate},
		{"fall back on time", time.Date(2026, 11, 1, 8, 30, 0, 0, ny), StatusPresent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(NewMemory(nil), ny, 9*time.Hour)
			svc.Now = func() time.Time { return tc.at }

			cutoff, err := svc.CutoffOn(tc.at.Format(DateLayout))
			require.NoError(t, err)
			assert.Equal(t, 9, cutoff.Hour())
			assert.Equal(t, 0, cutoff.Minute())

			mark, err := svc.MarkToday(context.Background(), "s1", StatusPresent, "x")
			require.NoError(t, err)
			assert.Equal(t, tc.want, mark.Record.Status)
		})
	}
}

func TestCheckOut(t *testing.T) {
	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc, _ := newTestService(at)
	ctx := context.Background()

	_, err := svc.CheckOut(ctx, "s1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.MarkToday(ctx, "s1", StatusPresent, "")
	require.NoError(t, err)

	svc.Now = func() time.Time { return at.Add(8 * time.Hour) }
	rec, err := svc.CheckOut(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec.CheckOutTime)
	assert.True(t, rec.CheckOutTime.Equal(at.Add(8*time.Hour)))

	_, err = svc.CheckOut(ctx, "s1")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAllRecordsJoinsProfile(t *testing.T) {
	svc, store := newTestService(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	store.Put(Record{UserID: "s1", Date: "2026-03-09", Status: StatusPresent})
	store.Put(Record{UserID: "s2", Date: "2026-03-10", Status: StatusLate})

	recs, err := svc.AllRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2026-03-10", recs[0].Date)
	require.NotNil(t, recs[0].User)
	assert.Equal(t, "Name s2", recs[0].User.FullName)
}

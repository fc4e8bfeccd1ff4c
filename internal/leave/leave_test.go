package leave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusportal/internal/apperr"
	"campusportal/internal/profile"
)

var (
	student = profile.Viewer{Profile: profile.Profile{ID: "stu-1", Role: profile.RoleStudent}}
	faculty = profile.Viewer{Profile: profile.Profile{ID: "fac-1", Role: profile.RoleFaculty, Department: "Physics"}}
	admin   = profile.Viewer{Profile: profile.Profile{ID: "adm-1", Role: profile.RoleAdmin}}
)

func newTestService() (*Service, *Memory) {
	store := NewMemory(func(id string) profile.Summary { return profile.Summary{FullName: "Name " + id} })
	svc := NewService(store, time.UTC)
	svc.Now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }
	return svc, store
}

func validInput() RequestInput {
	return RequestInput{LeaveType: "sick", StartDate: "2026-03-10", EndDate: "2026-03-12", Reason: "fever"}
}

func TestDays(t *testing.T) {
	assert.Equal(t, 1, Days("2026-03-10", "2026-03-10"))
	assert.Equal(t, 3, Days("2026-03-10", "2026-03-12"))
	assert.Equal(t, 3, Days("2026-03-12", "2026-03-10"))
	assert.Equal(t, 0, Days("bad", "2026-03-10"))
}

func TestRequestValidation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*RequestInput)
		msg    string
	}{
		{"start in the past", func(in *RequestInput) { in.StartDate = "2026-03-09" }, "Start date cannot be in the past"},
		{"end before start", func(in *RequestInput) { in.EndDate = "2026-03-09"; in.StartDate = "2026-03-11" }, "End date cannot be before start date"},
		{"unknown type", func(in *RequestInput) { in.LeaveType = "holiday" }, "Please select a leave type"},
		{"blank reason", func(in *RequestInput) { in.Reason = "  " }, "invalid request"},
		{"bad date", func(in *RequestInput) { in.StartDate = "10/03/2026" }, "invalid start date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Request(ctx, student, in)
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.msg, err.Error())
		})
	}
	assert.Zero(t, store.Writes())

	_, err := svc.Request(ctx, faculty, validInput())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRequestStoresPending(t *testing.T) {
	svc, _ := newTestService()
	r, err := svc.Request(context.Background(), student, validInput())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, 3, r.Days)
	assert.Nil(t, r.ApprovedBy)
}

func TestResolveOnlyFromPending(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	r, err := svc.Request(ctx, student, validInput())
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, student, r.ID, true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	approved, err := svc.Resolve(ctx, faculty, r.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "fac-1", *approved.ApprovedBy)
	writes := store.Writes()

	_, err = svc.Resolve(ctx, admin, r.ID, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, writes, store.Writes())

	list, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusApproved, list[0].Status)
	assert.Equal(t, "Name fac-1", list[0].ApproverName)

	_, err = svc.Resolve(ctx, admin, "missing", true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBuildView(t *testing.T) {
	requests := []Request{
		{ID: "1", Status: StatusPending, StartDate: "2026-03-10", EndDate: "2026-03-10"},
		{ID: "2", Status: StatusApproved},
		{ID: "3", Status: StatusRejected},
		{ID: "4", Status: StatusPending},
	}
	staff := BuildView(faculty, requests)
	assert.Equal(t, Stats{Pending: 2, Approved: 1, Rejected: 1}, staff.Stats)
	assert.Len(t, staff.Pending, 2)
	assert.Equal(t, 1, staff.Requests[0].Days)

	own := BuildView(student, requests)
	assert.Empty(t, own.Pending)
	assert.Len(t, own.Requests, 4)
}

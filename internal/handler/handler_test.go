package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusportal/internal/apperr"
	"campusportal/internal/assignment"
	"campusportal/internal/attendance"
	"campusportal/internal/auth"
	"campusportal/internal/canteen"
	"campusportal/internal/leaderboard"
	"campusportal/internal/leave"
	"campusportal/internal/portal"
	"campusportal/internal/profile"
	"campusportal/internal/queue"
)

const (
	testKey    = "handler-test-key"
	testIssuer = "campusportal-test"
)

type fixture struct {
	t      *testing.T
	router *gin.Engine
	svcs   portal.Services
	events *queue.InMemory
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	apperr.InitValidator()

	year := 2
	sid := "CS-042"
	profiles := profile.NewMemory(
		profile.Profile{ID: "stu-1", FullName: "Ada Lovelace", Role: profile.RoleStudent, Email: "ada@uni.test", Department: "CS", StudentID: &sid, Year: &year},
		profile.Profile{ID: "fac-1", FullName: "Grace Hopper", Role: profile.RoleFaculty, Email: "grace@uni.test", Department: "CS"},
		profile.Profile{ID: "adm-1", FullName: "Alan Turing", Role: profile.RoleAdmin, Email: "alan@uni.test"},
	)
	items := []canteen.Item{
		{ID: "samosa", Name: "Samosa", Price: 1550, Category: "Snacks", Available: true},
		{ID: "tea", Name: "Masala Tea", Price: 1000, Category: "Drinks", Available: true},
	}

	f := &fixture{
		t:      t,
		svcs:   portal.NewServices(portal.MemoryStores(profiles, items...), time.UTC, 9*time.Hour, nil),
		events: queue.NewInMemory(16),
		now:    time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC),
	}
	f.svcs.SetClock(func() time.Time { return f.now })

	h := &Handler{
		Assignments:   f.svcs.Assignments,
		Attendance:    f.svcs.Attendance,
		Leave:         f.svcs.Leave,
		Canteen:       f.svcs.Canteen,
		Leaderboard:   f.svcs.Leaderboard,
		Announcements: f.svcs.Announcements,
		Events:        f.events,
	}
	f.router = h.Router(RouterConfig{
		SigningKey: testKey,
		Issuer:     testIssuer,
		Resolver:   f.svcs.Resolver,
		Health:     map[string]HealthCheck{"db": func(context.Context) bool { return true }},
	})
	return f
}

func (f *fixture) do(method, path, user string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	f.authorize(req, user)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) authorize(req *http.Request, user string) {
	f.t.Helper()
	if user == "" {
		return
	}
	tok, err := auth.Issue(user, "", testIssuer, testKey, time.Hour)
	require.NoError(f.t, err)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// drain returns every event published so far.
func (f *fixture) drain() []leaderboard.Event {
	f.t.Helper()
	n := f.events.Len()
	if n == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := f.events.Consume(ctx)
	require.NoError(f.t, err)
	out := make([]leaderboard.Event, 0, n)
	for i := 0; i < n; i++ {
		ev, err := leaderboard.Decode(<-msgs)
		require.NoError(f.t, err)
		out = append(out, ev)
	}
	return out
}

type errorBody struct {
	Error    string            `json:"error"`
	Redirect string            `json:"redirect"`
	Fields   map[string]string `json:"fields"`
}

func TestUnauthenticated(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/v1/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.LoginPath, decode[errorBody](t, rec).Redirect)

	rec = f.do(http.MethodGet, "/v1/dashboard", "ghost", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthAndHeaders(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["db"])
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/v1/dashboard", "fac-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Profile    profile.Profile   `json:"profile"`
		Navigation []profile.NavItem `json:"navigation"`
	}](t, rec)
	assert.Equal(t, profile.RoleFaculty, body.Profile.Role)
	var ids []string
	for _, n := range body.Navigation {
		ids = append(ids, n.ID)
	}
	assert.Contains(t, ids, "announcements")
	assert.Contains(t, ids, "students")
}

func TestRoleCheckedBeforeBinding(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		method string
		path   string
		user   string
	}{
		{"student creates assignment", http.MethodPost, "/v1/assignments", "stu-1"},
		{"faculty submits", http.MethodPost, "/v1/assignments/a-1/submission", "fac-1"},
		{"student grades", http.MethodPost, "/v1/submissions/s-1/grade", "stu-1"},
		{"faculty requests leave", http.MethodPost, "/v1/leave", "fac-1"},
		{"student resolves leave", http.MethodPost, "/v1/leave/l-1/resolve", "stu-1"},
		{"student announces", http.MethodPost, "/v1/announcements", "stu-1"},
		{"faculty updates order", http.MethodPatch, "/v1/canteen/orders/o-1", "fac-1"},
		{"student hides item", http.MethodPatch, "/v1/canteen/items/tea", "stu-1"},
		{"faculty marks attendance", http.MethodPost, "/v1/attendance", "fac-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tt.user, gin.H{})
			require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
			body := decode[errorBody](t, rec)
			assert.Equal(t, "permission denied", body.Error)
			assert.Empty(t, body.Fields)
		})
	}
}

func TestOrderQuantityBounds(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/v1/canteen/orders", "stu-1", gin.H{"items": []gin.H{
		{"item_id": "tea", "quantity": math.MaxInt64 / 500},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/v1/canteen/orders", "stu-1", gin.H{"items": []gin.H{
		{"item_id": "tea", "quantity": 60}, {"item_id": "tea", "quantity": 60},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/v1/canteen", "stu-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[canteen.View](t, rec).Orders)
}

func TestSubmitAndGradeFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/assignments", "fac-1", assignment.CreateInput{
		Title: "Linked lists", Subject: "Data Structures", DueDate: "2026-03-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	a := decode[assignment.Assignment](t, rec)

	rec = f.do(http.MethodPost, "/v1/assignments", "stu-1", assignment.CreateInput{
		Title: "x", Subject: "y", DueDate: "2026-03-20",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "permission denied", decode[errorBody](t, rec).Error)

	rec = f.do(http.MethodPost, "/v1/assignments/"+a.ID+"/submission", "stu-1", gin.H{"submission_text": "My answer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sub := decode[assignment.Submission](t, rec)
	assert.Equal(t, assignment.StatusSubmitted, sub.Status)

	rec = f.do(http.MethodGet, "/v1/assignments", "stu-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[assignment.StudentView](t, rec)
	require.Len(t, view.Assignments, 1)
	assert.Equal(t, assignment.BadgeSubmitted, view.Assignments[0].Badge)
	assert.Equal(t, 1, view.Stats.Submitted)

	rec = f.do(http.MethodPost, "/v1/submissions/"+sub.ID+"/grade", "fac-1", gin.H{"grade": 101})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Grade must be between 0 and 100", decode[errorBody](t, rec).Error)

	f.now = f.now.Add(time.Hour)
	rec = f.do(http.MethodPost, "/v1/submissions/"+sub.ID+"/grade", "fac-1", gin.H{"grade": 85, "feedback": "Good work"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	graded := decode[assignment.Submission](t, rec)
	assert.Equal(t, assignment.StatusGraded, graded.Status)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, 85, *graded.Grade)
	require.NotNil(t, graded.Feedback)
	assert.Equal(t, "Good work", *graded.Feedback)
	require.NotNil(t, graded.GradedAt)
	assert.True(t, graded.GradedAt.Equal(f.now))

	rec = f.do(http.MethodGet, "/v1/assignments", "fac-1", nil)
	staff := decode[assignment.StaffView](t, rec)
	require.Len(t, staff.Submissions, 1)
	assert.Equal(t, "Ada Lovelace", staff.Submissions[0].Student.FullName)
	assert.Equal(t, 1, staff.Stats.Graded)

	events := f.drain()
	require.Len(t, events, 2)
	assert.Equal(t, leaderboard.OnTimeSubmission("stu-1"), events[0])
	assert.Equal(t, leaderboard.Event{UserID: "stu-1", Reason: leaderboard.ReasonGraded, Points: 30}, events[1])

	// a regrade awards nothing
	rec = f.do(http.MethodPost, "/v1/submissions/"+sub.ID+"/grade", "fac-1", gin.H{"grade": 95})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.drain())
}

func TestSubmitUnknownAssignment(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/v1/assignments/nope/submission", "stu-1", gin.H{"submission_text": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/v1/assignments/nope/submission", "stu-1", gin.H{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Fields, "submission_text")
}

func TestAttendanceFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/attendance", "fac-1", gin.H{"status": "present"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, "/v1/attendance", "stu-1", gin.H{"status": "present"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mark := decode[attendance.Record](t, rec)
	assert.Equal(t, attendance.StatusPresent, mark.Status)
	assert.Equal(t, attendance.LocationUnavailable, mark.Location)

	rec = f.do(http.MethodPost, "/v1/attendance", "stu-1", gin.H{"status": "present"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "You have already marked attendance for today", decode[errorBody](t, rec).Error)

	f.now = f.now.Add(8 * time.Hour)
	rec = f.do(http.MethodPost, "/v1/attendance/checkout", "stu-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[attendance.Record](t, rec).CheckOutTime)
	rec = f.do(http.MethodPost, "/v1/attendance/checkout", "stu-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodGet, "/v1/attendance", "stu-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[studentAttendance](t, rec)
	require.Len(t, view.Records, 1)
	require.NotNil(t, view.Today)
	assert.Equal(t, 1, view.Stats.Streak)

	rec = f.do(http.MethodGet, "/v1/attendance", "adm-1", nil)
	all := decode[struct {
		Records []attendance.Record `json:"records"`
	}](t, rec)
	require.Len(t, all.Records, 1)
	assert.Equal(t, "Ada Lovelace", all.Records[0].User.FullName)

	rec = f.do(http.MethodGet, "/v1/attendance/calendar?month=2026-03", "stu-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cal := decode[struct {
		Days []attendance.CalendarDay `json:"days"`
	}](t, rec)
	require.Len(t, cal.Days, 42)
	for _, d := range cal.Days {
		if d.Date == "2026-03-10" {
			assert.True(t, d.IsToday)
			assert.Equal(t, attendance.StatusPresent, d.Status)
		}
	}

	rec = f.do(http.MethodGet, "/v1/attendance/calendar?month=March", "stu-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, leaderboard.AttendanceMarked("stu-1", true), events[0])
}

func TestLeaveResolveOnce(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/leave", "stu-1", gin.H{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[errorBody](t, rec).Fields
	assert.Contains(t, fields, "leave_type")
	assert.Contains(t, fields, "reason")

	rec = f.do(http.MethodPost, "/v1/leave", "stu-1", leave.RequestInput{
		LeaveType: "sick", StartDate: "2026-03-11", EndDate: "2026-03-12", Reason: "Flu",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decode[leave.Request](t, rec)
	assert.Equal(t, leave.StatusPending, req.Status)

	rec = f.do(http.MethodPost, "/v1/leave/"+req.ID+"/resolve", "stu-1", gin.H{"approved": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, "/v1/leave/"+req.ID+"/resolve", "fac-1", gin.H{"approved": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, leave.StatusApproved, decode[leave.Request](t, rec).Status)

	rec = f.do(http.MethodPost, "/v1/leave/"+req.ID+"/resolve", "adm-1", gin.H{"approved": false})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodGet, "/v1/leave", "fac-1", nil)
	view := decode[leave.View](t, rec)
	assert.Equal(t, leave.Stats{Approved: 1}, view.Stats)
	require.Len(t, view.Requests, 1)
	assert.Equal(t, 2, view.Requests[0].Days)
}

func TestOrderStatusFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/canteen/cart/quote", "stu-1", gin.H{"items": []gin.H{
		{"item_id": "samosa", "quantity": 2}, {"item_id": "tea", "quantity": 1},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, "41.00", string(decode[map[string]json.RawMessage](t, rec)["total"]))

	rec = f.do(http.MethodPost, "/v1/canteen/orders", "stu-1", gin.H{"items": []gin.H{
		{"item_id": "samosa", "quantity": 2}, {"item_id": "tea", "quantity": 1},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[canteen.Order](t, rec)
	assert.Equal(t, canteen.Cents(4100), order.Total)
	assert.Equal(t, canteen.StatusPending, order.Status)

	path := "/v1/canteen/orders/" + order.ID
	rec = f.do(http.MethodPatch, path, "stu-1", gin.H{"status": "ready"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.now = f.now.Add(10 * time.Minute)
	readyAt := f.now
	rec = f.do(http.MethodPatch, path, "adm-1", gin.H{"status": "ready"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ready := decode[canteen.Order](t, rec)
	require.NotNil(t, ready.PickupTime)
	assert.True(t, ready.PickupTime.Equal(readyAt))

	f.now = f.now.Add(5 * time.Minute)
	rec = f.do(http.MethodPatch, path, "adm-1", gin.H{"status": "ready"})
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[canteen.Order](t, rec)
	require.NotNil(t, again.PickupTime)
	assert.True(t, again.PickupTime.Equal(readyAt))

	rec = f.do(http.MethodPatch, path, "adm-1", gin.H{"status": "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodGet, "/v1/canteen", "adm-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[canteen.View](t, rec)
	require.Len(t, view.AllOrders, 1)
	assert.Equal(t, 1, view.StatusCounts[canteen.StatusReady])
	assert.Equal(t, "CS-042", view.AllOrders[0].Customer.StudentID)

	rec = f.do(http.MethodGet, "/v1/canteen", "stu-1", nil)
	view = decode[canteen.View](t, rec)
	assert.Equal(t, 1, view.ActiveOrders)
	assert.Nil(t, view.AllOrders)
	assert.Len(t, view.Menu, 2)
}

func TestMenuManagement(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", "Idli"))
	require.NoError(t, w.WriteField("price", "30.5"))
	require.NoError(t, w.WriteField("category", "Breakfast"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/canteen/items", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	f.authorize(req, "adm-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode[canteen.Item](t, rec)
	assert.Equal(t, canteen.Cents(3050), item.Price)
	assert.True(t, item.Available)

	rec = f.do(http.MethodPost, "/v1/canteen/items", "stu-1", gin.H{"name": "x", "price": "1", "category": "y"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPatch, "/v1/canteen/items/"+item.ID, "adm-1", gin.H{"available": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[canteen.Item](t, rec).Available)

	rec = f.do(http.MethodPost, "/v1/canteen/orders", "stu-1", gin.H{"items": []gin.H{{"item_id": item.ID, "quantity": 1}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboardView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svcs.Leaderboard.Award(ctx, leaderboard.Event{UserID: "stu-1", Reason: leaderboard.ReasonAttendance, Points: 40})
	require.NoError(t, err)
	require.NoError(t, f.svcs.Leaderboard.Rerank(ctx))

	rec := f.do(http.MethodGet, "/v1/leaderboard?department=CS&year=2", "stu-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[leaderboard.View](t, rec)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, 1, view.Entries[0].Rank)
	require.NotNil(t, view.Current)
	assert.Equal(t, 40, view.Current.Points)

	rec = f.do(http.MethodGet, "/v1/leaderboard?department=Physics", "stu-1", nil)
	view = decode[leaderboard.View](t, rec)
	assert.Empty(t, view.Entries)
	assert.Equal(t, leaderboard.Summary{}, view.Summary)
	require.NotNil(t, view.Current)
}

func TestAnnouncementAudience(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/announcements", "adm-1", gin.H{"title": "Staff meeting", "content": "Room 4", "target_audience": []string{"faculty"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(http.MethodPost, "/v1/announcements", "fac-1", gin.H{"title": "Exams", "content": "Soon", "priority": "urgent", "target_audience": []string{"student", "faculty"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodPost, "/v1/announcements", "fac-1", gin.H{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select at least one target audience", decode[errorBody](t, rec).Error)

	type listBody struct {
		Announcements []struct {
			Title string `json:"title"`
		} `json:"announcements"`
		Stats struct {
			Urgent int `json:"urgent"`
			Normal int `json:"normal"`
		} `json:"stats"`
	}
	student := decode[listBody](t, f.do(http.MethodGet, "/v1/announcements", "stu-1", nil))
	require.Len(t, student.Announcements, 1)
	assert.Equal(t, "Exams", student.Announcements[0].Title)

	faculty := decode[listBody](t, f.do(http.MethodGet, "/v1/announcements", "fac-1", nil))
	require.Len(t, faculty.Announcements, 2)
	assert.Equal(t, "Exams", faculty.Announcements[0].Title)
	assert.Equal(t, 1, faculty.Stats.Urgent)
	assert.Equal(t, 1, faculty.Stats.Normal)
}

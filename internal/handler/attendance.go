package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusportal/internal/attendance"
	"campusportal/internal/leaderboard"
	"campusportal/internal/metrics"
)

type markRequest struct {
	Status   attendance.Status `json:"status"`
	Location string            `json:"location"`
}

type studentAttendance struct {
	Records []attendance.Record `json:"records"`
	Today   *attendance.Record  `json:"today"`
	Stats   attendance.Stats    `json:"stats"`
}

func (h *Handler) listAttendance(c *gin.Context) {
	v, ok := viewer(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if !v.IsStudent() {
		all, err := h.Attendance.AllRecords(ctx)
		h.secondary("attendance", err)
		c.JSON(http.StatusOK, gin.H{"records": orEmpty(all)})
		return
	}

	history, err := h.Attendance.History(ctx, v.ID)
	h.secondary("attendance history", err)
	today, err := h.Attendance.TodayRecord(ctx, v.ID)
	h.secondary("attendance today", err)
	c.JSON(http.StatusOK, studentAttendance{
		Records: orEmpty(history),
		Today:   today,
		Stats:   attendance.ComputeStats(history, h.Attendance.Location()),
	})
}

func (h *Handler) attendanceCalendar(c *gin.Context) {
	v, ok := viewer(c)
	if !ok {
		return
	}
	days, err := h.Attendance.MonthCalendar(c.Request.Context(), v.ID, c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

func (h *Handler) markAttendance(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.CanMarkAttendance()) {
		return
	}
	var req markRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Status == "" {
		req.Status = attendance.StatusPresent
	}
	mark, err := h.Attendance.MarkToday(c.Request.Context(), v.ID, req.Status, req.Location)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Transition("attendance", string(mark.Record.Status))
	h.publish(c, leaderboard.AttendanceMarked(v.ID, mark.Early))
	c.JSON(http.StatusCreated, mark.Record)
}

func (h *Handler) checkOut(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.CanMarkAttendance()) {
		return
	}
	rec, err := h.Attendance.CheckOut(c.Request.Context(), v.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Transition("attendance", "checked_out")
	c.JSON(http.StatusOK, rec)
}

// orEmpty keeps list fields as [] rather than null in responses.
func orEmpty[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

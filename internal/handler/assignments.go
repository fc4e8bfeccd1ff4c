package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusportal/internal/assignment"
	"campusportal/internal/leaderboard"
	"campusportal/internal/metrics"
)

type submitRequest struct {
	Text string `json:"submission_text" binding:"required"`
}

type gradeRequest struct {
	Grade    *int   `json:"grade" binding:"required"`
	Feedback string `json:"feedback"`
}

func (h *Handler) listAssignments(c *gin.Context) {
	v, ok := viewer(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	assignments, err := h.Assignments.Assignments(ctx, v)
	h.secondary("assignments", err)

	if v.IsStudent() {
		subs, err := h.Assignments.OwnSubmissions(ctx, v.ID)
		h.secondary("submissions", err)
		c.JSON(http.StatusOK, assignment.BuildStudentView(assignments, subs, h.Assignments.Now()))
		return
	}
	subs, err := h.Assignments.AllSubmissions(ctx, v)
	h.secondary("submissions", err)
	c.JSON(http.StatusOK, assignment.BuildStaffView(assignments, subs))
}

func (h *Handler) createAssignment(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.CanAuthor()) {
		return
	}
	var in assignment.CreateInput
	if !h.bind(c, &in) {
		return
	}
	a, err := h.Assignments.Create(c.Request.Context(), v, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Transition("assignment", "created")
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) submitAssignment(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.IsStudent()) {
		return
	}
	var req submitRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Assignments.Submit(c.Request.Context(), v, c.Param("id"), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Transition("submission", string(res.Submission.Status))
	if res.First && res.OnTime {
		h.publish(c, leaderboard.OnTimeSubmission(v.ID))
	}
	c.JSON(http.StatusOK, res.Submission)
}

func (h *Handler) gradeSubmission(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.CanGrade()) {
		return
	}
	var req gradeRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Assignments.Grade(c.Request.Context(), v, c.Param("id"), *req.Grade, req.Feedback)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Transition("submission", string(res.Submission.Status))
	if !res.Regrade {
		h.publish(c, leaderboard.Graded(res.Submission.StudentID, *req.Grade))
	}
	c.JSON(http.StatusOK, res.Submission)
}

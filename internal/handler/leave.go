package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusportal/internal/leave"
	"campusportal/internal/metrics"
)

type resolveRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

func (h *Handler) listLeave(c *gin.Context) {
	v, ok := viewer(c)
	if !ok {
		return
	}
	requests, err := h.Leave.List(c.Request.Context(), v)
	h.secondary("leave requests", err)
	c.JSON(http.StatusOK, leave.BuildView(v, requests))
}

func (h *Handler) requestLeave(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.IsStudent()) {
		return
	}
	var in leave.RequestInput
	if !h.bind(c, &in) {
		return
	}
	r, err := h.Leave.Request(c.Request.Context(), v, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Transition("leave", string(r.Status))
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) resolveLeave(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.CanResolveLeave()) {
		return
	}
	var req resolveRequest
	if !h.bind(c, &req) {
		return
	}
	r, err := h.Leave.Resolve(c.Request.Context(), v, c.Param("id"), *req.Approved)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Transition("leave", string(r.Status))
	c.JSON(http.StatusOK, r)
}

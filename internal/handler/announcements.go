package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusportal/internal/announcement"
	"campusportal/internal/metrics"
)

func (h *Handler) listAnnouncements(c *gin.Context) {
	v, ok := viewer(c)
	if !ok {
		return
	}
	list, err := h.Announcements.List(c.Request.Context(), v)
	h.secondary("announcements", err)
	list = orEmpty(list)
	c.JSON(http.StatusOK, gin.H{"announcements": list, "stats": announcement.Count(list)})
}

func (h *Handler) createAnnouncement(c *gin.Context) {
	v, ok := viewer(c)
	if !ok || !h.allowed(c, v.CanAuthor()) {
		return
	}
	var in announcement.CreateInput
	if !h.bind(c, &in) {
		return
	}
	a, err := h.Announcements.Create(c.Request.Context(), v, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Transition("announcement", a.Priority)
	c.JSON(http.StatusCreated, a)
}

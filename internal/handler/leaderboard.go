package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusportal/internal/leaderboard"
)

func (h *Handler) leaderboard(c *gin.Context) {
	v, ok := viewer(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	top, err := h.Leaderboard.Top(ctx)
	h.secondary("leaderboard", err)

	view := leaderboard.BuildView(v, top, c.Query("department"), c.Query("year"))
	view.Entries = orEmpty(view.Entries)
	// students outside the top list still see their own standing
	if v.IsStudent() && view.Current == nil {
		view.Current, err = h.Leaderboard.Entry(ctx, v.ID)
		h.secondary("own leaderboard entry", err)
	}
	c.JSON(http.StatusOK, view)
}

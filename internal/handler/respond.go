package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campusportal/internal/apperr"
	"campusportal/internal/auth"
	"campusportal/internal/profile"
)

// viewer returns the resolved caller. RequireViewer guarantees one on /v1 routes.
func viewer(c *gin.Context) (profile.Viewer, bool) {
	v, ok := auth.ViewerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.ErrUnauthorized.Error(), "redirect": auth.LoginPath})
	}
	return v, ok
}

// allowed answers 403 unless the viewer holds the capability. Role checks run before
// binding so a caller without the role never sees field errors.
func (h *Handler) allowed(c *gin.Context, can bool) bool {
	if !can {
		h.fail(c, apperr.ErrForbidden)
	}
	return can
}

// bind decodes the request body and answers 400 with per-field messages on failure.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil {
		h.fail(c, apperr.FromBinding(err))
		return false
	}
	return true
}

// fail writes err as {"error": msg}. Store failures keep their message and log at error level.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	_ = c.Error(err)

	body := gin.H{"error": err.Error()}
	var verr *apperr.ValidationError
	if stderrors.As(err, &verr) && len(verr.Fields) > 0 {
		fields := make(map[string]string, len(verr.Fields))
		for _, f := range verr.Fields {
			fields[f.Field] = f.Error
		}
		body["fields"] = fields
	}
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

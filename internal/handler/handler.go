// Package handler exposes the portal over a JSON HTTP API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"campusportal/internal/announcement"
	"campusportal/internal/assignment"
	"campusportal/internal/attendance"
	"campusportal/internal/auth"
	"campusportal/internal/canteen"
	"campusportal/internal/httpmiddleware"
	"campusportal/internal/leaderboard"
	"campusportal/internal/leave"
	"campusportal/internal/logging"
	"campusportal/internal/metrics"
	"campusportal/internal/profile"
	"campusportal/internal/queue"
)

const publishTimeout = 2 * time.Second

// Handler holds the services behind every route.
type Handler struct {
	Assignments   *assignment.Service
	Attendance    *attendance.Service
	Leave         *leave.Service
	Canteen       *canteen.Service
	Leaderboard   *leaderboard.Service
	Announcements *announcement.Service

	// Events receives point events. Nil disables publishing.
	Events queue.Queue
	Log    *zap.Logger
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// RouterConfig carries the HTTP concerns that sit outside the handlers.
type RouterConfig struct {
	SigningKey  string
	Issuer      string
	Resolver    *profile.Resolver
	Limiter     httpmiddleware.Limiter
	CORSOrigins []string
	HSTS        bool
	Health      map[string]HealthCheck
}

// Router builds the gin engine with middleware and all /v1 routes.
func (h *Handler) Router(rc RouterConfig) *gin.Engine {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware(h.Log, "/healthz", "/metrics"))
	r.Use(metrics.GinMiddleware())
	r.Use(cors.New(corsConfig(rc.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders(rc.HSTS))
	if rc.Limiter != nil {
		r.Use(httpmiddleware.RateLimit(rc.Limiter))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(rc.Health))

	v1 := r.Group("/v1", auth.RequireViewer(rc.SigningKey, rc.Issuer, rc.Resolver))
	v1.GET("/dashboard", h.dashboard)

	v1.GET("/assignments", h.listAssignments)
	v1.POST("/assignments", h.createAssignment)
	v1.POST("/assignments/:id/submission", h.submitAssignment)
	v1.POST("/submissions/:id/grade", h.gradeSubmission)

	v1.GET("/attendance", h.listAttendance)
	v1.GET("/attendance/calendar", h.attendanceCalendar)
	v1.POST("/attendance", h.markAttendance)
	v1.POST("/attendance/checkout", h.checkOut)

	v1.GET("/leave", h.listLeave)
	v1.POST("/leave", h.requestLeave)
	v1.POST("/leave/:id/resolve", h.resolveLeave)

	v1.GET("/canteen", h.canteenView)
	v1.POST("/canteen/cart/quote", h.quoteCart)
	v1.POST("/canteen/orders", h.placeOrder)
	v1.PATCH("/canteen/orders/:id", h.updateOrderStatus)
	v1.POST("/canteen/items", h.createItem)
	v1.PATCH("/canteen/items/:id", h.setItemAvailability)

	v1.GET("/leaderboard", h.leaderboard)

	v1.GET("/announcements", h.listAnnouncements)
	v1.POST("/announcements", h.createAnnouncement)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		status := http.StatusOK
		for name, check := range checks {
			ok := check(c.Request.Context())
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}

func (h *Handler) dashboard(c *gin.Context) {
	v, ok := viewer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": v.Profile, "navigation": v.Navigation()})
}

// publish enqueues a point event. Failures never fail the request.
func (h *Handler) publish(c *gin.Context, ev leaderboard.Event) {
	if h.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), publishTimeout)
	defer cancel()
	if err := leaderboard.Publish(ctx, h.Events, ev); err != nil {
		h.Log.Warn("publish point event failed",
			zap.String("reason", ev.Reason), zap.String("user_id", ev.UserID), zap.Error(err))
	}
}

// secondary logs a failed supporting read; the page renders with an empty list.
func (h *Handler) secondary(what string, err error) {
	if err != nil {
		h.Log.Error("read failed", zap.String("what", what), zap.Error(err))
	}
}

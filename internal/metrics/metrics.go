package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "lifecycle_transitions_total",
		Help:      "Persisted lifecycle transitions by entity and resulting status.",
	}, []string{"entity", "status"})

	pointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "leaderboard_points_awarded_total",
		Help:      "Leaderboard points awarded by reason.",
	}, []string{"reason"})

	reranks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "leaderboard_reranks_total",
		Help:      "Leaderboard re-rank runs by outcome.",
	}, []string{"outcome"})
)

// Transition records a lifecycle status change such as ("leave", "approved").
func Transition(entity, status string) {
	transitions.WithLabelValues(entity, status).Inc()
}

// PointsAwarded records points granted for reason.
func PointsAwarded(reason string, points int) {
	if points > 0 {
		pointsAwarded.WithLabelValues(reason).Add(float64(points))
	}
}

// Rerank records the outcome of a re-rank run.
func Rerank(err error) {
	if err != nil {
		reranks.WithLabelValues("error").Inc()
		return
	}
	reranks.WithLabelValues("ok").Inc()
}

// GinMiddleware records request counts and latencies.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

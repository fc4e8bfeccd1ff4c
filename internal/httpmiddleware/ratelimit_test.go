package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSimpleTokenBucket(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow(ctx, "a"))
	assert.True(t, l.Allow(ctx, "a"))
	assert.False(t, l.Allow(ctx, "a"))
	assert.True(t, l.Allow(ctx, "b"), "keys are independent")

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, l.Allow(ctx, "a"), "one token refilled after 1.5s at 60/min")
	assert.False(t, l.Allow(ctx, "a"))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(NewSimpleTokenBucket(1, 1)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

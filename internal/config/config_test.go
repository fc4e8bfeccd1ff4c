package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("ATTENDANCE_CUTOFF", "")
	cfg := Load()

	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, 9*time.Hour, cfg.Cutoff())
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("ACCESS_TTL", "30m")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("RATE_LIMIT_PER_MIN", "10")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ATTENDANCE_CUTOFF", "08:30")
	t.Setenv("TIMEZONE", "UTC")
	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 10, cfg.RateLimitPerMin)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 8*time.Hour+30*time.Minute, cfg.Cutoff())
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_TTL", "soon")
	t.Setenv("AUTO_MIGRATE", "maybe")
	t.Setenv("ATTENDANCE_CUTOFF", "25:99")
	t.Setenv("TIMEZONE", "Nowhere/Special")
	cfg := Load()

	assert.Equal(t, 12*time.Hour, cfg.AccessTTL)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 9*time.Hour, cfg.Cutoff())
	assert.Equal(t, time.Local, cfg.Location())
}

func TestValidateBackends(t *testing.T) {
	cases := []struct {
		store, queue string
		ok           bool
	}{
		{"postgres", "redis", true},
		{"postgres", "memory", true},
		{"memory", "memory", true},
		{"memory", "redis", false},
	}
	for _, tc := range cases {
		cfg := App{StoreBackend: tc.store, QueueBackend: tc.queue}
		if tc.ok {
			assert.NoError(t, cfg.Validate(), "%s/%s", tc.store, tc.queue)
		} else {
			assert.Error(t, cfg.Validate(), "%s/%s", tc.store, tc.queue)
		}
	}
}

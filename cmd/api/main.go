package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campusportal/internal/apperr"
	"campusportal/internal/canteen"
	"campusportal/internal/cloudinary"
	"campusportal/internal/config"
	"campusportal/internal/handler"
	"campusportal/internal/httpmiddleware"
	"campusportal/internal/logging"
	"campusportal/internal/portal"
	"campusportal/internal/profile"
	"campusportal/internal/queue"
	"campusportal/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)
	defer func() { _ = logger.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	apperr.InitValidator()

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := store.OpenRedis(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	health := map[string]handler.HealthCheck{}

	var stores portal.Stores
	switch cfg.StoreBackend {
	case "memory":
		stores = portal.MemoryStores(profile.NewMemory(demoProfiles()...))
		logger.Warn("using in-memory stores, data is lost on restart")
	default:
		db, err := store.OpenPostgres(ctx, cfg.DatabaseURL, dbPool(cfg))
		if err != nil && db == nil {
			return err
		}
		if err != nil {
			logger.Warn("db not reachable", zap.Error(err))
		}
		defer db.Close()
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx, db.Client); err != nil {
				return err
			}
			logger.Info("schema migrated")
		}
		stores = portal.PostgresStores(db.Client)
		health["db"] = db.Healthy
	}

	var images canteen.ImageStore
	if cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder); cdn.Configured() {
		images = cdn
		logger.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		logger.Info("cloudinary not configured, menu image uploads disabled")
	}

	svcs := portal.NewServices(stores, cfg.Location(), cfg.Cutoff(), images)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		q = mem
		// no separate worker can reach an in-process queue, so apply events and re-rank here
		go func() {
			if err := portal.ApplyEvents(ctx, mem, svcs.Leaderboard, logger.Named("events")); err != nil {
				logger.Error("event consumer stopped", zap.Error(err))
			}
		}()
		c, err := portal.ScheduleRerank(ctx, cfg.RerankSchedule, cfg.Location(), svcs.Leaderboard, logger.Named("rerank"))
		if err != nil {
			return err
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey, logger.Named("queue"))
	}
	if cfg.QueueBackend != "memory" || cfg.RateLimitBackend == "redis" {
		health["redis"] = redisClient.Healthy
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	}

	h := &handler.Handler{
		Assignments:   svcs.Assignments,
		Attendance:    svcs.Attendance,
		Leave:         svcs.Leave,
		Canteen:       svcs.Canteen,
		Leaderboard:   svcs.Leaderboard,
		Announcements: svcs.Announcements,
		Events:        q,
		Log:           logger,
	}
	r := h.Router(handler.RouterConfig{
		SigningKey:  cfg.JWTSigningKey,
		Issuer:      cfg.JWTIssuer,
		Resolver:    svcs.Resolver,
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
		HSTS:        cfg.IsProduction(),
		Health:      health,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

func dbPool(cfg config.App) store.Pool {
	return store.Pool{MaxOpen: cfg.DBMaxOpenConns, MaxIdle: cfg.DBMaxIdleConns, Lifetime: cfg.DBConnLifetime}
}

// demoProfiles seeds the in-memory backend so tokens minted with
// `admin token -user demo-student` resolve.
func demoProfiles() []profile.Profile {
	year := 1
	sid := "DEMO-001"
	return []profile.Profile{
		{ID: "demo-student", FullName: "Demo Student", Role: profile.RoleStudent, Email: "student@demo.test", Department: "Computer Science", StudentID: &sid, Year: &year},
		{ID: "demo-faculty", FullName: "Demo Faculty", Role: profile.RoleFaculty, Email: "faculty@demo.test", Department: "Computer Science"},
		{ID: "demo-admin", FullName: "Demo Admin", Role: profile.RoleAdmin, Email: "admin@demo.test"},
	}
}

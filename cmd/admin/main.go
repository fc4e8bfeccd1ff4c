package main

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"campusportal/internal/config"
	"campusportal/internal/logging"
	"campusportal/internal/profile"
	"campusportal/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env).Named("admin")
	defer func() { _ = logger.Sync() }()

	db, err := store.OpenPostgres(context.Background(), cfg.DatabaseURL, store.Pool{MaxOpen: 2})
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	cli := commandLine{
		db:       db.Client,
		profiles: profile.NewRepository(db.Client),
		issuer:   cfg.JWTIssuer,
		key:      cfg.JWTSigningKey,
		out:      os.Stdout,
	}
	if err := cli.run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Error("command failed", zap.Error(err))
		}
		_ = db.Close()
		os.Exit(1)
	}
}

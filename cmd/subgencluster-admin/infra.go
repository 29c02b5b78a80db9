package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/b0vik/subgencluster-api-server/config"
	"github.com/b0vik/subgencluster-api-server/internal/bootstrap"
)

// connectDB wires up the database dependency shared by most commands.
func connectDB(logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cfg.Postgres,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

func closeDB(logger *slog.Logger, db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("close database failed", "error", err)
	}
}

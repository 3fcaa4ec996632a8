// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bankass-awards/server/blobstore"
	"github.com/bankass-awards/server/cliparse"
	"github.com/bankass-awards/server/db"
	"github.com/bankass-awards/server/events"
	"github.com/bankass-awards/server/middleware"
	"github.com/bankass-awards/server/router"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect and verify
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err, "type", cfg.DatabaseType)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(ctx, dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	if cfg.SeedFile != "" {
		n, err := db.LoadSeedFile(ctx, dbConn, cfg.SeedFile)
		if err != nil {
			slog.Error("seed failed", "error", err, "file", cfg.SeedFile)
			os.Exit(1)
		}
		slog.Info("Seed loaded", "file", cfg.SeedFile, "categories", n)
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := db.EnsureAdmin(ctx, dbConn, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("admin bootstrap failed", "error", err)
			os.Exit(1)
		}
	}

	deps := router.Deps{Metrics: middleware.NewMetrics()}

	if cfg.MinIOEndpoint != "" {
		store, err := blobstore.NewMinIO(ctx, blobstore.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			slog.Error("object storage unavailable", "error", err, "endpoint", cfg.MinIOEndpoint)
			os.Exit(1)
		}
		deps.Store = store
		slog.Info("Uploads stored in MinIO", "bucket", cfg.MinIOBucket)
	} else {
		if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
			slog.Error("upload directory unavailable", "error", err, "dir", cfg.UploadDir)
			os.Exit(1)
		}
		deps.Store = blobstore.NewLocal(cfg.UploadDir, cfg.PublicBaseURL)
		slog.Info("Uploads stored on disk", "dir", cfg.UploadDir)
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			slog.Error("message broker unavailable", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		deps.Events = publisher
		slog.Info("Publishing events", "queue", cfg.AMQPQueue)
	}

	// Create router
	mux := router.NewRouter(dbConn, cfg, deps)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(cfg.CORSOrigins, mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		// Wait for Ctrl-C signal
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}

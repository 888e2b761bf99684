package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"audioverter/internal/config"
	server "audioverter/internal/http"
	"audioverter/internal/jobs"
	"audioverter/internal/license"
	"audioverter/internal/migrate"
	"audioverter/internal/pipeline"
	"audioverter/internal/storage"
	"audioverter/internal/store"
	"audioverter/internal/transcode"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Run migrations on a short-lived connection
	if err := migrate.Run(cfg.Database.DSN); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Create a shared *sql.DB with pooling for the Store
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	// Basic pool settings; adjust as needed
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db)

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	artifacts := storage.New(cfg.Storage)
	if err := artifacts.Init(); err != nil {
		log.Fatalf("artifact directories unavailable: %v", err)
	}

	transcoder, err := transcode.New(cfg.Transcode, logger)
	if err != nil {
		log.Fatalf("transcoder init failed: %v", err)
	}

	verifier := license.NewGumroadVerifier(cfg.License)

	rootCtx := context.Background()

	// Jobs stuck in processing can only be leftovers of a crash; fail
	// them before any worker starts.
	if err := jobs.RecoverStalled(rootCtx, st, logger); err != nil {
		log.Fatalf("stalled job recovery failed: %v", err)
	}

	processor := pipeline.NewProcessor(st, artifacts, transcoder, logger)
	runner := jobs.NewRunner(cfg, st, processor, logger)

	switch *role {
	case "api":
		// API-only: do not start the conversion worker.
		s := server.NewServer(cfg, st, artifacts, transcoder, verifier, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case "worker":
		// Worker-only: run the conversion runner and block.
		runner.Start(rootCtx)
	case "all":
		// Default: run both API and worker in one process.
		go runner.Start(rootCtx)
		s := server.NewServer(cfg, st, artifacts, transcoder, verifier, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	default:
		log.Fatalf("invalid role: %s (expected api|worker|all)", *role)
	}
}

package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"audioverter/internal/config"
	"audioverter/internal/license"
	"audioverter/internal/metrics"
	"audioverter/internal/storage"
	"audioverter/internal/store"
)

type Server struct {
	app    *fiber.App
	config *config.Config
	store  *store.Store
	logger *slog.Logger
}

func NewServer(
	cfg *config.Config,
	st *store.Store,
	artifacts *storage.Store,
	transcoder TempoRenderer,
	verifier license.Verifier,
	logger *slog.Logger,
) *Server {
	// Body limit leaves headroom above the upload ceiling so the
	// size check in storage produces the 400, not a blunt 413.
	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.Storage.MaxUploadBytes) + (1 << 20),
	})

	// Inject dependencies into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", st)
		c.Locals("artifacts", artifacts)
		c.Locals("transcoder", transcoder)
		c.Locals("verifier", verifier)
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		if logger != nil {
			c.Locals("logger", logger)
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Redis client for rate limiting and health checks
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		}
	}

	// Health endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: check DB and Redis connectivity plus the
		// artifact directories.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := st.DB.PingContext(ctx); err != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "error"
			} else {
				redisStatus = "ok"
			}
		}

		storageStatus := "ok"
		if !artifacts.Exists(artifacts.UploadDir()) || !artifacts.Exists(artifacts.ConvertedDir()) {
			storageStatus = "error"
		}

		status := "ok"
		if dbStatus != "ok" || redisStatus == "error" || storageStatus != "ok" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status":  status,
			"db":      dbStatus,
			"redis":   redisStatus,
			"storage": storageStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	// Static artifact serving. The converted mount is registered first
	// so it wins over the broader uploads mount.
	app.Static("/uploads/converted", artifacts.ConvertedDir())
	app.Static("/uploads", artifacts.UploadDir())

	var rateMw fiber.Handler
	if rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb)
	} else {
		rateMw = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := app.Group("/api", rateMw)
	registerAPIRoutes(api)

	return &Server{
		app:    app,
		config: cfg,
		store:  st,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

func registerAPIRoutes(group fiber.Router) {
	group.Post("/upload", uploadHandler)
	group.Get("/converted-songs", songsListHandler)
	group.Delete("/converted-songs/:id", songDeleteHandler)
	group.Get("/download/:id/:speed", downloadHandler)
	group.Post("/verify-license", verifyLicenseHandler)
	group.Get("/subscription/plans", plansHandler)
}

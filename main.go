package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/lerndmina/ContributionsLeaderboard/internal/analytics"
	"github.com/lerndmina/ContributionsLeaderboard/internal/config"
	"github.com/lerndmina/ContributionsLeaderboard/internal/db"
	"github.com/lerndmina/ContributionsLeaderboard/internal/handlers"
	"github.com/lerndmina/ContributionsLeaderboard/internal/leaderboard"
	"github.com/lerndmina/ContributionsLeaderboard/internal/logger"
	"github.com/lerndmina/ContributionsLeaderboard/internal/rdb"
)

func main() {
	// Load .env if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	logger.SetDebug(cfg.Debug)

	// Database
	database, err := db.New(cfg.DatabaseURL, db.Options{
		TablePrefix:  cfg.TablePrefix,
		UserTable:    cfg.UserTable,
		QueryTimeout: cfg.QueryTimeout,
	})
	if err != nil {
		logger.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer database.Close()
	if err := database.Ping(); err != nil {
		// Requests still render and show the failure inline.
		logger.Warn("database not reachable yet: %v", err)
	}

	// Redis
	var cache *rdb.Client
	if cfg.RedisURL != "" {
		cache, err = rdb.New(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis: %v", err)
			os.Exit(1)
		}
		defer cache.Close()
	} else {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
	}

	// Analytics
	ph := analytics.New(cfg.PostHogAPIKey, cfg.PostHogHost)
	defer ph.Close()

	board := leaderboard.NewService(database, leaderboard.DefaultWeights())

	// HTTP router
	h := handlers.New(board, ph)
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cache.RateLimit(cfg.RateLimit, time.Minute))
	r.Use(h.TrackPageViews)

	r.Get("/", h.LeaderboardPage)
	r.Get("/leaderboard", h.LeaderboardPage)
	r.Get("/api/leaderboard", h.LeaderboardAPI)
	r.Get("/healthz", h.Healthz)

	logger.Success("contributions leaderboard listening on http://localhost:%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Error("server failed: %v", err)
		os.Exit(1)
	}
}

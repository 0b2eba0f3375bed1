package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/liamwears/movieflix/internal/cache"
	"github.com/liamwears/movieflix/internal/config"
	"github.com/liamwears/movieflix/internal/database"
	"github.com/liamwears/movieflix/internal/handlers"
	"github.com/liamwears/movieflix/internal/middleware"
	"github.com/liamwears/movieflix/internal/services"
)

// dependencies are the optional backing services
type dependencies struct {
	redis *database.RedisClient
	db    *database.DB
}

// app is the wired HTTP surface
type app struct {
	handler http.Handler
	catalog *services.CatalogService
	// memory is set when the in-process cache is used and needs its janitor
	memory *cache.MemoryCache
	// local is set when requests are limited in process and idle buckets need pruning
	local *middleware.LocalLimiter
}

func newApp(cfg *config.Config, deps dependencies, log *logrus.Logger) *app {
	retry := services.RetryConfig{
		Timeout:        cfg.Upstream.Timeout,
		Attempts:       cfg.Upstream.RetryAttempts,
		TimeoutBackoff: cfg.Upstream.TimeoutBackoff,
	}

	tmdbService := services.NewTMDBService(services.TMDBConfig{
		APIKey:       cfg.TMDB.APIKey,
		BaseURL:      cfg.TMDB.BaseURL,
		ImageBaseURL: cfg.TMDB.ImageBaseURL,
		Language:     cfg.TMDB.Language,
		Retry:        retry,
	}, log)
	omdbService := services.NewOMDBService(services.OMDBConfig{
		APIKey:  cfg.OMDB.APIKey,
		BaseURL: cfg.OMDB.BaseURL,
		Retry:   retry,
	}, log)

	a := &app{}

	var responses cache.Cache
	var limiter middleware.Limiter
	pingers := map[string]handlers.Pinger{}

	if deps.redis != nil {
		responses = cache.NewRedisCache(deps.redis.Client, cache.DefaultPrefix, log)
		limiter = middleware.NewRedisLimiter(deps.redis.Client, cfg.RateLimitPerMinute(), time.Minute)
		pingers["redis"] = deps.redis
	} else {
		a.memory = cache.NewMemoryCache(log)
		responses = a.memory
		a.local = middleware.NewLocalLimiter(cfg.RateLimitPerMinute(), time.Minute)
		limiter = a.local
	}
	if deps.db != nil {
		pingers["database"] = deps.db
	}

	a.catalog = services.NewCatalogService(tmdbService, omdbService, responses, log)

	if !tmdbService.Configured() {
		log.Warn("TMDB_API_KEY is not set, catalog routes will fail")
	}
	if !omdbService.Configured() {
		log.Warn("OMDB_API_KEY is not set, ratings enrichment is disabled")
	}

	mux := http.NewServeMux()
	handlers.NewCatalogHandler(a.catalog, log).Register(mux)
	handlers.NewSystemHandler(a.catalog, pingers, version, cfg.Server.AppURL, log).Register(mux)
	handlers.NewWatchlistHandler(services.NewDemoWatchlistService(), log).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	rateLimiter := middleware.NewRateLimiter(limiter, log)
	a.handler = middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.Headers,
		middleware.Metrics,
		rateLimiter.Limit,
	)
	return a
}

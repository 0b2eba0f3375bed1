package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/liamwears/movieflix/internal/cache"
	"github.com/liamwears/movieflix/internal/config"
	"github.com/liamwears/movieflix/internal/database"
	"github.com/liamwears/movieflix/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Check for migrate command
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		down := len(os.Args) > 2 && os.Args[2] == "down"
		if err := runMigrations(ctx, cfg, log, down); err != nil {
			log.WithError(err).Fatal("Migration failed")
		}
		return
	}

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	log.WithFields(logrus.Fields{"env": cfg.Server.Env, "version": version}).Info("Starting movieflix server")

	deps := dependencies{}

	if cfg.RedisEnabled() {
		redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		deps.redis = redisClient
	}

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, database.Config{URL: cfg.Database.URL}, log)
		if err != nil {
			return err
		}
		defer db.Close()
		deps.db = db
	}

	app := newApp(cfg, deps, log)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		log.WithField("addr", addr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if app.memory != nil {
		p.Go(func(ctx context.Context) error {
			app.memory.Start(ctx, cache.CleanupInterval)
			return nil
		})
	}
	if app.local != nil {
		p.Go(func(ctx context.Context) error {
			app.local.Start(ctx)
			return nil
		})
	}

	err := p.Wait()
	log.Info("Server exited")
	return err
}

// runMigrations applies (or rolls back one of) the embedded migrations
func runMigrations(ctx context.Context, cfg *config.Config, log *logrus.Logger, down bool) error {
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	db, err := database.New(ctx, database.Config{URL: cfg.Database.URL}, log)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Pool, log)
	if down {
		return migrator.Down(ctx)
	}
	return migrator.Up(ctx)
}

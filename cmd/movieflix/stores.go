package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/liamwears/movieflix/internal/database"
	"github.com/liamwears/movieflix/internal/history"
	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/preferences"
	"github.com/liamwears/movieflix/internal/storage"
	"github.com/liamwears/movieflix/internal/watchlist"
)

// stores are the on-device state of the terminal client
type stores struct {
	watchlist *watchlist.Store
	history   *history.Store
	theme     *preferences.ThemeStore
	close     func()
}

// openBackend selects the persisted key-value backend. path is a directory for file, a
// database file for sqlite and ignored otherwise.
func openBackend(ctx context.Context, driver, path, databaseURL string, log *logrus.Logger) (storage.Backend, func(), error) {
	noop := func() {}
	switch driver {
	case "memory":
		return storage.NewMemoryBackend(), noop, nil
	case "file", "":
		if path == "" {
			path = storage.DefaultDir()
		}
		backend, err := storage.NewFileBackend(afero.NewOsFs(), path)
		if err != nil {
			return nil, nil, err
		}
		return backend, noop, nil
	case "sqlite":
		if path == "" {
			path = filepath.Join(storage.DefaultDir(), "movieflix.db")
		}
		backend, err := storage.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { backend.Close() }, nil
	case "postgres":
		db, err := database.New(ctx, database.Config{URL: databaseURL, MaxConns: 2}, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return storage.NewPostgresBackend(db.Pool), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// newStores builds one slot per fixed key over backend
func newStores(backend storage.Backend, closer func(), log *logrus.Logger) *stores {
	return &stores{
		watchlist: watchlist.NewStore(
			storage.NewSlot(backend, storage.KeyWatchlist, []models.WatchlistItem{}, log), time.Now),
		history: history.NewStore(
			storage.NewSlot(backend, storage.KeySearchHistory, []models.SearchHistoryItem{}, log), time.Now),
		theme: preferences.NewThemeStore(
			storage.NewSlot(backend, storage.KeyTheme, models.ThemeSystem, log)),
		close: closer,
	}
}

// Package history remembers recent search queries.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/storage"
)

const (
	// MaxEntries bounds the stored list
	MaxEntries = 10
	// DefaultRecent is used by Recent when limit is not positive
	DefaultRecent = 5
)

// Store is a bounded, case-insensitively deduplicated recency list
type Store struct {
	slot *storage.Slot[[]models.SearchHistoryItem]
	now  func() time.Time
}

// NewStore wraps a slot. nil clock means time.Now.
func NewStore(slot *storage.Slot[[]models.SearchHistoryItem], now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{slot: slot, now: now}
}

// Record prepends the query, replacing any earlier entry that differs only in case
func (s *Store) Record(ctx context.Context, query string, resultsCount int) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	entry := models.SearchHistoryItem{Query: query, Timestamp: s.now(), ResultsCount: resultsCount}
	s.slot.Update(ctx, func(items []models.SearchHistoryItem) []models.SearchHistoryItem {
		out := make([]models.SearchHistoryItem, 0, MaxEntries)
		out = append(out, entry)
		for _, item := range items {
			if len(out) == MaxEntries {
				break
			}
			if !strings.EqualFold(item.Query, query) {
				out = append(out, item)
			}
		}
		return out
	})
}

// Recent returns at most limit entries, most recent first
func (s *Store) Recent(ctx context.Context, limit int) []models.SearchHistoryItem {
	if limit <= 0 {
		limit = DefaultRecent
	}
	items := s.slot.Get(ctx)
	if limit > len(items) {
		limit = len(items)
	}
	out := make([]models.SearchHistoryItem, limit)
	copy(out, items[:limit])
	return out
}

// All returns every stored entry
func (s *Store) All(ctx context.Context) []models.SearchHistoryItem {
	items := s.slot.Get(ctx)
	out := make([]models.SearchHistoryItem, len(items))
	copy(out, items)
	return out
}

// Clear empties the history
func (s *Store) Clear(ctx context.Context) {
	s.slot.Set(ctx, []models.SearchHistoryItem{})
}

// Forget removes every entry whose query matches exactly
func (s *Store) Forget(ctx context.Context, query string) {
	s.slot.Update(ctx, func(items []models.SearchHistoryItem) []models.SearchHistoryItem {
		out := make([]models.SearchHistoryItem, 0, len(items))
		for _, item := range items {
			if item.Query != query {
				out = append(out, item)
			}
		}
		return out
	})
}

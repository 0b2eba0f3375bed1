// Package watchlist keeps the user's saved titles in a persisted slot.
package watchlist

import (
	"context"
	"errors"
	"time"

	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/storage"
)

// ErrInvalidRating is returned by SetRating for values outside 0-10
var ErrInvalidRating = errors.New("rating must be between 0 and 10")

// Store is the watchlist. Every mutation replaces the whole list in the slot.
type Store struct {
	slot *storage.Slot[[]models.WatchlistItem]
	now  func() time.Time
}

// NewStore wraps a slot. The clock is injectable for tests; nil means time.Now.
func NewStore(slot *storage.Slot[[]models.WatchlistItem], now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{slot: slot, now: now}
}

// Items returns the list, most recently added first
func (s *Store) Items(ctx context.Context) []models.WatchlistItem {
	return clone(s.slot.Get(ctx))
}

// IsSaved reports whether (id, type) is in the watchlist
func (s *Store) IsSaved(ctx context.Context, id int, mediaType models.MediaType) bool {
	return indexOf(s.slot.Get(ctx), id, mediaType) >= 0
}

// Get returns the saved item for (id, type)
func (s *Store) Get(ctx context.Context, id int, mediaType models.MediaType) (models.WatchlistItem, bool) {
	items := s.slot.Get(ctx)
	if i := indexOf(items, id, mediaType); i >= 0 {
		return items[i], true
	}
	return models.WatchlistItem{}, false
}

// Add prepends the item unless it is already saved
func (s *Store) Add(ctx context.Context, item models.MediaItem) {
	s.slot.Update(ctx, func(items []models.WatchlistItem) []models.WatchlistItem {
		if indexOf(items, item.ID, item.MediaType) >= 0 {
			return items
		}
		return append([]models.WatchlistItem{s.newItem(item)}, items...)
	})
}

// Remove drops (id, type). Absent items are ignored.
func (s *Store) Remove(ctx context.Context, id int, mediaType models.MediaType) {
	s.slot.Update(ctx, func(items []models.WatchlistItem) []models.WatchlistItem {
		return filter(items, func(w models.WatchlistItem) bool { return !w.Matches(id, mediaType) })
	})
}

// Toggle adds the item if absent and removes it if present. Returns whether it is saved
// afterwards.
func (s *Store) Toggle(ctx context.Context, item models.MediaItem) bool {
	var saved bool
	s.slot.Update(ctx, func(items []models.WatchlistItem) []models.WatchlistItem {
		if indexOf(items, item.ID, item.MediaType) >= 0 {
			saved = false
			return filter(items, func(w models.WatchlistItem) bool { return !w.Matches(item.ID, item.MediaType) })
		}
		saved = true
		return append([]models.WatchlistItem{s.newItem(item)}, items...)
	})
	return saved
}

// ToggleWatched flips the watched flag, stamping watchedAt on the way to watched
func (s *Store) ToggleWatched(ctx context.Context, id int, mediaType models.MediaType) {
	s.modify(ctx, id, mediaType, func(w *models.WatchlistItem) {
		w.Watched = !w.Watched
		if w.Watched {
			now := s.now()
			w.WatchedAt = &now
		} else {
			w.WatchedAt = nil
		}
	})
}

// SetRating stores the user's 0-10 rating
func (s *Store) SetRating(ctx context.Context, id int, mediaType models.MediaType, rating float64) error {
	if rating < 0 || rating > 10 {
		return ErrInvalidRating
	}
	s.modify(ctx, id, mediaType, func(w *models.WatchlistItem) {
		r := rating
		w.Rating = &r
	})
	return nil
}

// SetNotes stores free-text notes
func (s *Store) SetNotes(ctx context.Context, id int, mediaType models.MediaType, notes string) {
	s.modify(ctx, id, mediaType, func(w *models.WatchlistItem) {
		w.Notes = notes
	})
}

// RemoveMany drops every item whose Key is listed
func (s *Store) RemoveMany(ctx context.Context, keys []string) {
	drop := keySet(keys)
	s.slot.Update(ctx, func(items []models.WatchlistItem) []models.WatchlistItem {
		return filter(items, func(w models.WatchlistItem) bool { return !drop[w.Key()] })
	})
}

// MarkAllWatched marks every listed item watched. Items already watched keep their
// original watchedAt.
func (s *Store) MarkAllWatched(ctx context.Context, keys []string) {
	mark := keySet(keys)
	s.slot.Update(ctx, func(items []models.WatchlistItem) []models.WatchlistItem {
		out := clone(items)
		now := s.now()
		for i := range out {
			if mark[out[i].Key()] && !out[i].Watched {
				out[i].Watched = true
				at := now
				out[i].WatchedAt = &at
			}
		}
		return out
	})
}

// Clear empties the watchlist
func (s *Store) Clear(ctx context.Context) {
	s.slot.Set(ctx, []models.WatchlistItem{})
}

// Filtered returns a filtered snapshot without touching the stored list
func (s *Store) Filtered(ctx context.Context, f models.WatchlistFilter) []models.WatchlistItem {
	return filter(s.slot.Get(ctx), f.Keep)
}

// Stats aggregates the current list
func (s *Store) Stats(ctx context.Context) models.WatchlistStats {
	return models.CalculateWatchlistStats(s.slot.Get(ctx))
}

func (s *Store) newItem(item models.MediaItem) models.WatchlistItem {
	return models.WatchlistItem{
		ID:          item.ID,
		Type:        item.MediaType,
		Title:       item.DisplayTitle(),
		PosterPath:  item.PosterPath,
		VoteAverage: item.VoteAverage,
		ReleaseDate: item.Date(),
		Watched:     false,
		AddedAt:     s.now(),
	}
}

// modify applies fn to a copy of the matching item. Absent items are a no-op.
func (s *Store) modify(ctx context.Context, id int, mediaType models.MediaType, fn func(*models.WatchlistItem)) {
	s.slot.Update(ctx, func(items []models.WatchlistItem) []models.WatchlistItem {
		i := indexOf(items, id, mediaType)
		if i < 0 {
			return items
		}
		out := clone(items)
		fn(&out[i])
		return out
	})
}

func indexOf(items []models.WatchlistItem, id int, mediaType models.MediaType) int {
	for i, w := range items {
		if w.Matches(id, mediaType) {
			return i
		}
	}
	return -1
}

func filter(items []models.WatchlistItem, keep func(models.WatchlistItem) bool) []models.WatchlistItem {
	out := make([]models.WatchlistItem, 0, len(items))
	for _, w := range items {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

func clone(items []models.WatchlistItem) []models.WatchlistItem {
	out := make([]models.WatchlistItem, len(items))
	copy(out, items)
	return out
}

func keySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

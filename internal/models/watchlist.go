package models

import (
	"fmt"
	"strconv"
	"time"
)

// WatchlistItem is a title saved by the user. ID and Type form the key.
type WatchlistItem struct {
	ID          int        `json:"id"`
	Type        MediaType  `json:"type"`
	Title       string     `json:"title"`
	PosterPath  *string    `json:"poster_path"`
	VoteAverage float64    `json:"vote_average"`
	ReleaseDate string     `json:"release_date"`
	Watched     bool       `json:"watched"`
	WatchedAt   *time.Time `json:"watchedAt,omitempty"`
	Rating      *float64   `json:"rating,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	AddedAt     time.Time  `json:"addedAt"`
}

// Key returns a stable identifier combining media type and ID
func (w WatchlistItem) Key() string {
	return MediaKey(w.ID, w.Type)
}

// Matches reports whether the item has the given composite key
func (w WatchlistItem) Matches(id int, mediaType MediaType) bool {
	return w.ID == id && w.Type == mediaType
}

// MediaKey formats the composite key type:id
func MediaKey(id int, mediaType MediaType) string {
	return mediaType.String() + ":" + strconv.Itoa(id)
}

// WatchlistStats is derived from the watchlist on every read
type WatchlistStats struct {
	Total         int     `json:"total"`
	Movies        int     `json:"movies"`
	TVShows       int     `json:"tvShows"`
	Watched       int     `json:"watched"`
	Unwatched     int     `json:"unwatched"`
	AverageRating float64 `json:"averageRating"`
}

// CalculateWatchlistStats aggregates counts and the mean of defined, positive ratings
func CalculateWatchlistStats(items []WatchlistItem) WatchlistStats {
	stats := WatchlistStats{Total: len(items)}

	var ratingSum float64
	var rated int
	for _, item := range items {
		switch item.Type {
		case MediaTypeMovie:
			stats.Movies++
		case MediaTypeTV:
			stats.TVShows++
		}
		if item.Watched {
			stats.Watched++
		}
		if item.Rating != nil && *item.Rating > 0 {
			ratingSum += *item.Rating
			rated++
		}
	}

	stats.Unwatched = stats.Total - stats.Watched
	if rated > 0 {
		stats.AverageRating = ratingSum / float64(rated)
	}
	return stats
}

// WatchlistFilter selects a view of the watchlist
type WatchlistFilter string

const (
	WatchlistAll       WatchlistFilter = "all"
	WatchlistMovies    WatchlistFilter = "movies"
	WatchlistTV        WatchlistFilter = "tv"
	WatchlistWatched   WatchlistFilter = "watched"
	WatchlistUnwatched WatchlistFilter = "unwatched"
)

// ParseWatchlistFilter validates a filter name; "" means all
func ParseWatchlistFilter(s string) (WatchlistFilter, error) {
	switch f := WatchlistFilter(s); f {
	case "":
		return WatchlistAll, nil
	case WatchlistAll, WatchlistMovies, WatchlistTV, WatchlistWatched, WatchlistUnwatched:
		return f, nil
	default:
		return "", fmt.Errorf("invalid watchlist filter %q", s)
	}
}

// Keep reports whether an item belongs to the filtered view
func (f WatchlistFilter) Keep(item WatchlistItem) bool {
	switch f {
	case WatchlistMovies:
		return item.Type == MediaTypeMovie
	case WatchlistTV:
		return item.Type == MediaTypeTV
	case WatchlistWatched:
		return item.Watched
	case WatchlistUnwatched:
		return !item.Watched
	default:
		return true
	}
}

// Theme is the user's colour scheme preference
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// IsValid checks if the theme is known
func (t Theme) IsValid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

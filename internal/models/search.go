package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxPage is the highest page the catalog will serve
const MaxPage = 500

var (
	yearPattern   = regexp.MustCompile(`^\d{4}$`)
	imdbIDPattern = regexp.MustCompile(`^tt\d{7,8}$`)
)

// IsIMDbID validates an IMDb title id (tt + 7 or 8 digits)
func IsIMDbID(id string) bool {
	return imdbIDPattern.MatchString(id)
}

// SortField is a search result ordering
type SortField string

const (
	SortPopularity  SortField = "popularity"
	SortVoteAverage SortField = "vote_average"
	SortReleaseDate SortField = "release_date"
	SortTitle       SortField = "title"
)

// SortOrder is ascending or descending
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterAll is the "no restriction" value for type, year and genre filters
const FilterAll = "all"

// SearchFilters narrows and orders multi-search results
type SearchFilters struct {
	Type      MediaType `json:"type"`
	Year      string    `json:"year"`
	Genre     string    `json:"genre"`
	SortBy    SortField `json:"sortBy"`
	SortOrder SortOrder `json:"sortOrder"`
}

// DefaultSearchFilters returns all/all/all ordered by popularity descending
func DefaultSearchFilters() SearchFilters {
	return SearchFilters{
		Type:      MediaTypeAll,
		Year:      FilterAll,
		Genre:     FilterAll,
		SortBy:    SortPopularity,
		SortOrder: SortDesc,
	}
}

// Normalize fills empty fields with their defaults
func (f SearchFilters) Normalize() SearchFilters {
	d := DefaultSearchFilters()
	if f.Type == "" {
		f.Type = d.Type
	}
	if f.Year == "" {
		f.Year = d.Year
	}
	if f.Genre == "" {
		f.Genre = d.Genre
	}
	if f.SortBy == "" {
		f.SortBy = d.SortBy
	}
	if f.SortOrder == "" {
		f.SortOrder = d.SortOrder
	}
	return f
}

// Validate rejects values outside the known vocabulary
func (f SearchFilters) Validate() error {
	f = f.Normalize()
	switch f.Type {
	case MediaTypeAll, MediaTypeMovie, MediaTypeTV:
	default:
		return fmt.Errorf("invalid type filter %q", f.Type)
	}
	if f.Year != FilterAll && !yearPattern.MatchString(f.Year) {
		return fmt.Errorf("invalid year filter %q", f.Year)
	}
	if f.Genre != FilterAll {
		if _, err := strconv.Atoi(f.Genre); err != nil {
			return fmt.Errorf("invalid genre filter %q", f.Genre)
		}
	}
	switch f.SortBy {
	case SortPopularity, SortVoteAverage, SortReleaseDate, SortTitle:
	default:
		return fmt.Errorf("invalid sort field %q", f.SortBy)
	}
	if f.SortOrder != SortAsc && f.SortOrder != SortDesc {
		return fmt.Errorf("invalid sort order %q", f.SortOrder)
	}
	return nil
}

// Signature is a stable string form used in cache keys
func (f SearchFilters) Signature() string {
	f = f.Normalize()
	return strings.Join([]string{string(f.Type), f.Year, f.Genre, string(f.SortBy), string(f.SortOrder)}, ",")
}

// SearchRequest is one multi-search call
type SearchRequest struct {
	Query   string        `json:"query"`
	Page    int           `json:"page"`
	Filters SearchFilters `json:"filters"`
}

// ClampPage bounds a page number to [1, MaxPage]
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

// TrendingRequest selects a trending list
type TrendingRequest struct {
	MediaType  MediaType `json:"media_type"`
	TimeWindow string    `json:"time_window"`
}

// DiscoverRequest holds discover endpoint parameters
type DiscoverRequest struct {
	MediaType      MediaType `json:"media_type"`
	Page           int       `json:"page"`
	SortBy         string    `json:"sort_by"`
	Year           int       `json:"year,omitempty"`
	GenreIDs       []int     `json:"with_genres,omitempty"`
	MinVoteAverage float64   `json:"vote_average_gte,omitempty"`
	MinVoteCount   int       `json:"vote_count_gte,omitempty"`
	Language       string    `json:"language,omitempty"`
}

// Signature is a stable string form used in cache keys
func (d DiscoverRequest) Signature() string {
	genres := make([]string, len(d.GenreIDs))
	for i, id := range d.GenreIDs {
		genres[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("page=%d&sort=%s&year=%d&genres=%s&vote_avg=%g&vote_count=%d&lang=%s",
		d.Page, d.SortBy, d.Year, strings.Join(genres, "|"), d.MinVoteAverage, d.MinVoteCount, d.Language)
}

// SearchHistoryItem is one remembered query
type SearchHistoryItem struct {
	Query        string    `json:"query"`
	Timestamp    time.Time `json:"timestamp"`
	ResultsCount int       `json:"resultsCount"`
}

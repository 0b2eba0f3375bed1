package models

import (
	"fmt"
	"strings"
)

// MediaType discriminates catalog records
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeTV     MediaType = "tv"
	MediaTypePerson MediaType = "person"
	// MediaTypeAll is only valid as a trending/search filter, never on a record
	MediaTypeAll MediaType = "all"
)

// String returns the string representation of MediaType
func (t MediaType) String() string {
	return string(t)
}

// IsTitle reports whether the type is a movie or a TV show
func (t MediaType) IsTitle() bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}

// ParseTitleType parses "movie" or "tv" (also accepting "movies", "series", "show")
func ParseTitleType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return MediaTypeMovie, nil
	case "tv", "series", "show", "shows":
		return MediaTypeTV, nil
	default:
		return "", fmt.Errorf("invalid media type %q: must be movie or tv", s)
	}
}

// MediaItem is a movie, TV show or person as returned by the catalog search and trending
// endpoints. Movies carry Title/ReleaseDate, TV shows carry Name/FirstAirDate; use
// DisplayTitle and Date instead of reading those fields directly.
type MediaItem struct {
	ID               int       `json:"id"`
	MediaType        MediaType `json:"media_type"`
	Title            string    `json:"title,omitempty"`
	Name             string    `json:"name,omitempty"`
	OriginalTitle    string    `json:"original_title,omitempty"`
	OriginalName     string    `json:"original_name,omitempty"`
	Overview         string    `json:"overview"`
	PosterPath       *string   `json:"poster_path"`
	BackdropPath     *string   `json:"backdrop_path"`
	ReleaseDate      string    `json:"release_date,omitempty"`
	FirstAirDate     string    `json:"first_air_date,omitempty"`
	VoteAverage      float64   `json:"vote_average"`
	VoteCount        int       `json:"vote_count"`
	GenreIDs         []int     `json:"genre_ids"`
	Adult            bool      `json:"adult"`
	Popularity       float64   `json:"popularity"`
	OriginalLanguage string    `json:"original_language,omitempty"`
	OriginCountry    []string  `json:"origin_country,omitempty"`
}

// DisplayTitle returns the title for the record's media type
func (m MediaItem) DisplayTitle() string {
	var title string
	switch m.MediaType {
	case MediaTypeMovie:
		title = m.Title
	case MediaTypeTV, MediaTypePerson:
		title = m.Name
	}
	if title == "" {
		return "Unknown Title"
	}
	return title
}

// Date returns the release date for movies and the first air date for TV shows
func (m MediaItem) Date() string {
	switch m.MediaType {
	case MediaTypeMovie:
		return m.ReleaseDate
	case MediaTypeTV:
		return m.FirstAirDate
	default:
		return ""
	}
}

// Year returns the four digit year of Date, or "" when unknown
func (m MediaItem) Year() string {
	return YearOf(m.Date())
}

// Poster returns the poster path or ""
func (m MediaItem) Poster() string {
	if m.PosterPath == nil {
		return ""
	}
	return *m.PosterPath
}

// YearOf extracts the year from a YYYY-MM-DD date
func YearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	year := date[:4]
	for _, r := range year {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return year
}

// Genre is a catalog genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreList is the genre list endpoint payload
type GenreList struct {
	Genres []Genre `json:"genres"`
}

// Page is a paginated catalog response
type Page[T any] struct {
	Page         int `json:"page"`
	Results      []T `json:"results"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

// CastMember is a credited actor
type CastMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	ProfilePath *string `json:"profile_path"`
	Order       int     `json:"order"`
}

// CrewMember is a credited crew member
type CrewMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Job         string  `json:"job"`
	Department  string  `json:"department"`
	ProfilePath *string `json:"profile_path"`
}

// Credits holds cast and crew
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Video is a trailer, teaser or clip
type Video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// Videos wraps the videos append
type Videos struct {
	Results []Video `json:"results"`
}

// ExternalIDs links a title to other services
type ExternalIDs struct {
	IMDbID      *string `json:"imdb_id"`
	TVDBID      *int    `json:"tvdb_id,omitempty"`
	FacebookID  *string `json:"facebook_id,omitempty"`
	InstagramID *string `json:"instagram_id,omitempty"`
	TwitterID   *string `json:"twitter_id,omitempty"`
}

// IMDb returns the IMDb id or ""
func (e *ExternalIDs) IMDb() string {
	if e == nil || e.IMDbID == nil {
		return ""
	}
	return *e.IMDbID
}

// Trailer returns the first YouTube trailer, if any
func (v *Videos) Trailer() (Video, bool) {
	if v == nil {
		return Video{}, false
	}
	for _, video := range v.Results {
		if video.Site == "YouTube" && video.Type == "Trailer" {
			return video, true
		}
	}
	return Video{}, false
}

// TrendingVisible drops adult records, records without a poster and people
func TrendingVisible(items []MediaItem) []MediaItem {
	out := make([]MediaItem, 0, len(items))
	for _, item := range items {
		if item.Adult || item.Poster() == "" || item.MediaType == MediaTypePerson {
			continue
		}
		out = append(out, item)
	}
	return out
}

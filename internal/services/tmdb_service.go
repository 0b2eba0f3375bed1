package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/liamwears/movieflix/internal/models"
)

const tmdbService = "TMDB"

// TMDBService handles interactions with The Movie Database API
type TMDBService struct {
	up           *upstream
	apiKey       string
	imageBaseURL string
	language     string
}

// TMDBConfig holds TMDB service configuration
type TMDBConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Language     string
	Retry        RetryConfig
	HTTPClient   *http.Client
}

// NewTMDBService creates a new TMDB service
func NewTMDBService(cfg TMDBConfig, logger *logrus.Logger) *TMDBService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = "https://image.tmdb.org/t/p"
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}

	up := newUpstream(tmdbService, cfg.BaseURL, cfg.HTTPClient, cfg.Retry, logger)
	up.check = checkTMDB

	return &TMDBService{
		up:           up,
		apiKey:       cfg.APIKey,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		language:     cfg.Language,
	}
}

// Configured reports whether an API key is set
func (s *TMDBService) Configured() bool {
	return s.apiKey != ""
}

// checkTMDB turns a {"success":false} payload into an error
func checkTMDB(body []byte) *APIError {
	var probe struct {
		Success       *bool  `json:"success"`
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Success == nil || *probe.Success {
		return nil
	}

	e := &APIError{Kind: KindUpstream, Service: tmdbService, Message: probe.StatusMessage}
	switch probe.StatusCode {
	case 7, 10:
		e.Kind, e.Status = KindUnauthorized, http.StatusUnauthorized
	case 34:
		e.Kind, e.Status = KindNotFound, http.StatusNotFound
	case 25:
		e.Kind, e.Status = KindRateLimited, http.StatusTooManyRequests
	}
	if e.Message == "" {
		e.Message = MsgUnknown
	}
	return e
}

// isReadAccessToken detects a v4 read access token (a JWT) as opposed to a v3 key
func isReadAccessToken(key string) bool {
	return strings.HasPrefix(key, "eyJ") && strings.Count(key, ".") == 2
}

// doRequest performs a GET against the TMDB API with auth and default parameters
func (s *TMDBService) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if !s.Configured() {
		return nil, configError(tmdbService)
	}

	if params == nil {
		params = url.Values{}
	}
	if params.Get("language") == "" {
		params.Set("language", s.language)
	}

	header := http.Header{}
	if isReadAccessToken(s.apiKey) {
		header.Set("Authorization", "Bearer "+s.apiKey)
	} else {
		params.Set("api_key", s.apiKey)
	}

	return s.up.get(ctx, endpoint, params, header)
}

func decode[T any](service string, body []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, decodeError(service, err)
	}
	return &out, nil
}

func stampMediaType(items []models.MediaItem, mediaType models.MediaType) {
	for i := range items {
		if items[i].MediaType == "" {
			items[i].MediaType = mediaType
		}
	}
}

// Trending returns the trending list for all, movie or tv over a day or week
func (s *TMDBService) Trending(ctx context.Context, req models.TrendingRequest) (*models.Page[models.MediaItem], error) {
	if req.MediaType == "" {
		req.MediaType = models.MediaTypeAll
	}
	if req.TimeWindow == "" {
		req.TimeWindow = "week"
	}
	switch req.MediaType {
	case models.MediaTypeAll, models.MediaTypeMovie, models.MediaTypeTV:
	default:
		return nil, invalidError(tmdbService, "invalid media type %q", req.MediaType)
	}
	if req.TimeWindow != "day" && req.TimeWindow != "week" {
		return nil, invalidError(tmdbService, "invalid time window %q", req.TimeWindow)
	}

	body, err := s.doRequest(ctx, fmt.Sprintf("/trending/%s/%s", req.MediaType, req.TimeWindow), nil)
	if err != nil {
		return nil, err
	}
	page, err := decode[models.Page[models.MediaItem]](tmdbService, body)
	if err != nil {
		return nil, err
	}
	if req.MediaType != models.MediaTypeAll {
		stampMediaType(page.Results, req.MediaType)
	}
	return page, nil
}

// SearchMulti searches movies, TV shows and people in one call
func (s *TMDBService) SearchMulti(ctx context.Context, req models.SearchRequest) (*models.Page[models.MediaItem], error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, invalidError(tmdbService, "Query parameter is required")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(models.ClampPage(req.Page)))
	params.Set("include_adult", "false")
	if filters := req.Filters.Normalize(); filters.Year != models.FilterAll {
		params.Set("year", filters.Year)
	}

	body, err := s.doRequest(ctx, "/search/multi", params)
	if err != nil {
		return nil, err
	}
	return decode[models.Page[models.MediaItem]](tmdbService, body)
}

func detailsParams() url.Values {
	params := url.Values{}
	params.Set("append_to_response", "credits,videos,similar,external_ids")
	return params
}

// MovieDetails retrieves a movie with credits, videos, similar titles and external ids
func (s *TMDBService) MovieDetails(ctx context.Context, id int) (*models.MovieDetails, error) {
	if id <= 0 {
		return nil, invalidError(tmdbService, "Invalid movie ID")
	}

	body, err := s.doRequest(ctx, fmt.Sprintf("/movie/%d", id), detailsParams())
	if err != nil {
		return nil, err
	}
	details, err := decode[models.MovieDetails](tmdbService, body)
	if err != nil {
		return nil, err
	}
	details.MediaType = models.MediaTypeMovie
	if details.Similar != nil {
		stampMediaType(details.Similar.Results, models.MediaTypeMovie)
	}
	return details, nil
}

// TVDetails retrieves a TV show with the same appends as MovieDetails
func (s *TMDBService) TVDetails(ctx context.Context, id int) (*models.TVShowDetails, error) {
	if id <= 0 {
		return nil, invalidError(tmdbService, "Invalid TV show ID")
	}

	body, err := s.doRequest(ctx, fmt.Sprintf("/tv/%d", id), detailsParams())
	if err != nil {
		return nil, err
	}
	details, err := decode[models.TVShowDetails](tmdbService, body)
	if err != nil {
		return nil, err
	}
	details.MediaType = models.MediaTypeTV
	if details.Similar != nil {
		stampMediaType(details.Similar.Results, models.MediaTypeTV)
	}
	return details, nil
}

// Discover lists movies or TV shows matching the filter parameters
func (s *TMDBService) Discover(ctx context.Context, req models.DiscoverRequest) (*models.Page[models.MediaItem], error) {
	if req.MediaType == "" {
		req.MediaType = models.MediaTypeMovie
	}
	if !req.MediaType.IsTitle() {
		return nil, invalidError(tmdbService, "invalid media type %q", req.MediaType)
	}
	if req.SortBy == "" {
		req.SortBy = "popularity.desc"
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(models.ClampPage(req.Page)))
	params.Set("sort_by", req.SortBy)
	params.Set("include_adult", "false")
	if req.Year > 0 {
		if req.MediaType == models.MediaTypeMovie {
			params.Set("primary_release_year", strconv.Itoa(req.Year))
		} else {
			params.Set("first_air_date_year", strconv.Itoa(req.Year))
		}
	}
	if len(req.GenreIDs) > 0 {
		ids := make([]string, len(req.GenreIDs))
		for i, id := range req.GenreIDs {
			ids[i] = strconv.Itoa(id)
		}
		params.Set("with_genres", strings.Join(ids, ","))
	}
	if req.MinVoteAverage > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(req.MinVoteAverage, 'f', -1, 64))
	}
	if req.MinVoteCount > 0 {
		params.Set("vote_count.gte", strconv.Itoa(req.MinVoteCount))
	}
	if req.Language != "" {
		params.Set("language", req.Language)
	}

	body, err := s.doRequest(ctx, "/discover/"+req.MediaType.String(), params)
	if err != nil {
		return nil, err
	}
	page, err := decode[models.Page[models.MediaItem]](tmdbService, body)
	if err != nil {
		return nil, err
	}
	stampMediaType(page.Results, req.MediaType)
	return page, nil
}

// Genres lists the genres for movies or TV
func (s *TMDBService) Genres(ctx context.Context, mediaType models.MediaType) (*models.GenreList, error) {
	if mediaType == "" {
		mediaType = models.MediaTypeMovie
	}
	if !mediaType.IsTitle() {
		return nil, invalidError(tmdbService, "invalid media type %q", mediaType)
	}

	body, err := s.doRequest(ctx, fmt.Sprintf("/genre/%s/list", mediaType), nil)
	if err != nil {
		return nil, err
	}
	return decode[models.GenreList](tmdbService, body)
}

// ImageURL returns the full URL for an image path at the given size (w500 when empty)
func (s *TMDBService) ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = "w500"
	}
	return s.imageBaseURL + "/" + size + path
}

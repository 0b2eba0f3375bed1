// Package apiclient talks to the movieflix server's own /api routes.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/services"
)

const serviceName = "movieflix"

// Client is a typed client for the server routes. It satisfies search.Searcher.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
}

// New creates a client for the server at baseURL (e.g. http://localhost:3000)
func New(baseURL string, httpClient *http.Client, logger *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// fetch returns the body of a 2xx response. Non-2xx answers become *services.APIError
// carrying the server's error message and status; the body is returned with them.
func (c *Client) fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := &services.APIError{Kind: services.KindNetwork, Service: serviceName, Message: services.MsgNetwork, Err: err}
		if ctx.Err() != nil {
			apiErr.Kind, apiErr.Message = services.KindTimeout, services.MsgTimeout
		}
		return nil, apiErr
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("API request")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &services.APIError{Kind: services.KindNetwork, Service: serviceName, Message: services.MsgNetwork, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, statusError(resp.StatusCode, body)
	}
	return body, nil
}

// get decodes a 2xx JSON response into out
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.fetch(ctx, path, query)
	if err != nil {
		return err
	}
	return decode(body, out)
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &services.APIError{Kind: services.KindDecode, Service: serviceName,
			Message: fmt.Sprintf("invalid response: %v", err), Err: err}
	}
	return nil
}

func statusError(status int, body []byte) *services.APIError {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	e := &services.APIError{Service: serviceName, Status: status, Message: payload.Error}
	switch {
	case status == http.StatusBadRequest:
		e.Kind = services.KindInvalid
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = services.KindUnauthorized
	case status == http.StatusNotFound:
		e.Kind = services.KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind = services.KindRateLimited
	case status >= 500:
		e.Kind = services.KindServer
	default:
		e.Kind = services.KindUpstream
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return e
}

// Search calls GET /api/movies/search
func (c *Client) Search(ctx context.Context, req models.SearchRequest) (*models.Page[models.MediaItem], error) {
	f := req.Filters.Normalize()
	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("page", strconv.Itoa(models.ClampPage(req.Page)))
	q.Set("type", string(f.Type))
	q.Set("year", f.Year)
	q.Set("genre", f.Genre)
	q.Set("sort_by", string(f.SortBy))
	q.Set("sort_order", string(f.SortOrder))

	var page models.Page[models.MediaItem]
	if err := c.get(ctx, "/api/movies/search", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Trending calls GET /api/movies/trending
func (c *Client) Trending(ctx context.Context, req models.TrendingRequest) (*models.Page[models.MediaItem], error) {
	q := url.Values{}
	if req.MediaType != "" {
		q.Set("media_type", string(req.MediaType))
	}
	if req.TimeWindow != "" {
		q.Set("time_window", req.TimeWindow)
	}

	var page models.Page[models.MediaItem]
	if err := c.get(ctx, "/api/movies/trending", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Discover calls GET /api/movies/discover
func (c *Client) Discover(ctx context.Context, req models.DiscoverRequest) (*models.Page[models.MediaItem], error) {
	q := url.Values{}
	if req.MediaType != "" {
		q.Set("media_type", string(req.MediaType))
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.SortBy != "" {
		q.Set("sort_by", req.SortBy)
	}
	if req.Year > 0 {
		q.Set("year", strconv.Itoa(req.Year))
	}
	if len(req.GenreIDs) > 0 {
		ids := make([]string, len(req.GenreIDs))
		for i, id := range req.GenreIDs {
			ids[i] = strconv.Itoa(id)
		}
		q.Set("with_genres", strings.Join(ids, ","))
	}
	if req.MinVoteAverage > 0 {
		q.Set("vote_average.gte", strconv.FormatFloat(req.MinVoteAverage, 'f', -1, 64))
	}
	if req.MinVoteCount > 0 {
		q.Set("vote_count.gte", strconv.Itoa(req.MinVoteCount))
	}
	if req.Language != "" {
		q.Set("language", req.Language)
	}

	var page models.Page[models.MediaItem]
	if err := c.get(ctx, "/api/movies/discover", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// MovieDetails calls GET /api/movies/{id}
func (c *Client) MovieDetails(ctx context.Context, id int) (*models.MovieDetails, error) {
	var out models.MovieDetails
	if err := c.get(ctx, "/api/movies/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TVDetails calls GET /api/tv/{id}
func (c *Client) TVDetails(ctx context.Context, id int) (*models.TVShowDetails, error) {
	var out models.TVShowDetails
	if err := c.get(ctx, "/api/tv/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Genres calls GET /api/genres
func (c *Client) Genres(ctx context.Context, mediaType models.MediaType) (*models.GenreList, error) {
	q := url.Values{}
	if mediaType != "" {
		q.Set("media_type", string(mediaType))
	}
	var out models.GenreList
	if err := c.get(ctx, "/api/genres", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OMDBTitle calls GET /api/omdb/{imdbID}
func (c *Client) OMDBTitle(ctx context.Context, imdbID string) (*models.OMDBTitle, error) {
	var out models.OMDBTitle
	if err := c.get(ctx, "/api/omdb/"+url.PathEscape(imdbID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health is the /api/health body
type Health struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
}

// Health calls GET /api/health. A 503 still carries the body: it means a key is missing.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	body, err := c.fetch(ctx, "/api/health", nil)
	if apiErr, ok := services.AsAPIError(err); ok && apiErr.Status == http.StatusServiceUnavailable {
		err = nil
	}
	if err != nil {
		return nil, err
	}

	var out Health
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

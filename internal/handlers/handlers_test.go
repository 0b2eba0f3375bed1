package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/movieflix/internal/cache"
	"github.com/liamwears/movieflix/internal/logger"
	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/services"
)

// fakeCatalog records the last request and answers with err when set
type fakeCatalog struct {
	err          error
	tmdb, omdb   bool
	lastSearch   models.SearchRequest
	lastDiscover models.DiscoverRequest
	lastTrending models.TrendingRequest
	lastGenres   models.MediaType
}

func (f *fakeCatalog) page() *models.Page[models.MediaItem] {
	return &models.Page[models.MediaItem]{Page: 1, TotalPages: 1, TotalResults: 1,
		Results: []models.MediaItem{{ID: 1, MediaType: models.MediaTypeMovie, Title: "Batman"}}}
}

func (f *fakeCatalog) Trending(_ context.Context, req models.TrendingRequest) (*models.Page[models.MediaItem], error) {
	f.lastTrending = req
	if f.err != nil {
		return nil, f.err
	}
	return f.page(), nil
}

func (f *fakeCatalog) Search(_ context.Context, req models.SearchRequest) (*models.Page[models.MediaItem], error) {
	f.lastSearch = req
	if f.err != nil {
		return nil, f.err
	}
	return f.page(), nil
}

func (f *fakeCatalog) MovieDetails(_ context.Context, id int) (*models.MovieDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.MovieDetails{MediaItem: models.MediaItem{ID: id, MediaType: models.MediaTypeMovie}}, nil
}

func (f *fakeCatalog) TVDetails(_ context.Context, id int) (*models.TVShowDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.TVShowDetails{MediaItem: models.MediaItem{ID: id, MediaType: models.MediaTypeTV}}, nil
}

func (f *fakeCatalog) Discover(_ context.Context, req models.DiscoverRequest) (*models.Page[models.MediaItem], error) {
	f.lastDiscover = req
	if f.err != nil {
		return nil, f.err
	}
	return f.page(), nil
}

func (f *fakeCatalog) Genres(_ context.Context, mediaType models.MediaType) (*models.GenreList, error) {
	f.lastGenres = mediaType
	if f.err != nil {
		return nil, f.err
	}
	return &models.GenreList{Genres: []models.Genre{{ID: 28, Name: "Action"}}}, nil
}

func (f *fakeCatalog) OMDBTitle(_ context.Context, imdbID string) (*models.OMDBTitle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.OMDBTitle{IMDbID: imdbID, Response: "True"}, nil
}

func (f *fakeCatalog) Configured() (bool, bool) { return f.tmdb, f.omdb }

func (f *fakeCatalog) CacheStats(context.Context) cache.Stats {
	return cache.Stats{Backend: "memory", Size: 1, Keys: []string{"genres:movie"}, MemoryUsage: 42}
}

func newMux(catalog *fakeCatalog) *http.ServeMux {
	mux := http.NewServeMux()
	log := logger.Discard()
	NewCatalogHandler(catalog, log).Register(mux)
	NewSystemHandler(catalog, nil, "1.2.3", "https://movieflix.example/", log).Register(mux)
	NewWatchlistHandler(services.NewDemoWatchlistService(), log).Register(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCacheControlPerRoute(t *testing.T) {
	mux := newMux(&fakeCatalog{})

	tests := []struct {
		target string
		header string
	}{
		{"/api/genres", cacheGenres},
		{"/api/movies/550", cacheDetails},
		{"/api/tv/1399", cacheDetails},
		{"/api/movies/discover", cacheDiscover},
		{"/api/movies/search?q=batman", cacheSearch},
		{"/api/movies/trending", cacheTrending},
		{"/api/omdb/tt0137523", cacheOMDB},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, mux, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.header, rec.Header().Get("Cache-Control"))
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	rec := do(t, newMux(&fakeCatalog{}), http.MethodGet, "/api/movies/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Query parameter is required", decodeBody(t, rec)["error"])
}

func TestSearchParsesFilters(t *testing.T) {
	catalog := &fakeCatalog{}
	rec := do(t, newMux(catalog), http.MethodGet,
		"/api/movies/search?q=batman&page=2&type=movie&year=2008&sort_by=vote_average&sort_order=asc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "batman", catalog.lastSearch.Query)
	assert.Equal(t, 2, catalog.lastSearch.Page)
	assert.Equal(t, models.SearchFilters{
		Type: models.MediaTypeMovie, Year: "2008", Genre: models.FilterAll,
		SortBy: models.SortVoteAverage, SortOrder: models.SortAsc,
	}, catalog.lastSearch.Filters)

	rec = do(t, newMux(catalog), http.MethodGet, "/api/movies/search?q=batman&year=08", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRouteFailuresAre500(t *testing.T) {
	catalog := &fakeCatalog{err: &services.APIError{Kind: services.KindServer, Status: 502, Message: "Server error occurred"}}
	mux := newMux(catalog)

	for _, target := range []string{"/api/genres", "/api/movies/trending", "/api/movies/discover", "/api/movies/search?q=x"} {
		rec := do(t, mux, http.MethodGet, target, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
		assert.Equal(t, "Server error occurred", decodeBody(t, rec)["error"], target)
		assert.Empty(t, rec.Header().Get("Cache-Control"), target)
	}

	catalog.err = errors.New("boom")
	rec := do(t, mux, http.MethodGet, "/api/genres", "")
	assert.Equal(t, "Failed to fetch genres", decodeBody(t, rec)["error"])
}

func TestDetailsFailuresPassStatusThrough(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		target  string
		status  int
		message string
	}{
		{"upstream 404", &services.APIError{Kind: services.KindNotFound, Status: 404, Message: "The resource you requested could not be found."},
			"/api/movies/1", 404, "The resource you requested could not be found."},
		{"upstream 401", &services.APIError{Kind: services.KindUnauthorized, Status: 401, Message: "Invalid API key"},
			"/api/tv/1", 401, "Invalid API key"},
		{"timeout has no status", &services.APIError{Kind: services.KindTimeout, Message: "Request timed out"},
			"/api/movies/1", 404, "Request timed out"},
		{"missing key", &services.APIError{Kind: services.KindConfig, Message: "TMDB API key is not configured"},
			"/api/movies/1", 500, "TMDB API key is not configured"},
		{"plain error", errors.New("boom"), "/api/tv/1", 404, "TV show not found"},
		{"omdb", errors.New("boom"), "/api/omdb/tt0137523", 404, "OMDB data not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newMux(&fakeCatalog{err: tt.err}), http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeBody(t, rec)["error"])
		})
	}
}

func TestInvalidIDs(t *testing.T) {
	mux := newMux(&fakeCatalog{})

	rec := do(t, mux, http.MethodGet, "/api/movies/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid movie ID", decodeBody(t, rec)["error"])

	rec = do(t, mux, http.MethodGet, "/api/tv/abc", "")
	assert.Equal(t, "Invalid TV show ID", decodeBody(t, rec)["error"])

	for _, id := range []string{"tt123", "nm0000093", "tt123456789"} {
		rec = do(t, mux, http.MethodGet, "/api/omdb/"+id, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
}

func TestDiscoverParams(t *testing.T) {
	catalog := &fakeCatalog{}
	mux := newMux(catalog)

	rec := do(t, mux, http.MethodGet, "/api/movies/discover", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.DiscoverRequest{
		MediaType: models.MediaTypeMovie, Page: 1, SortBy: "popularity.desc", Language: "en-US",
	}, catalog.lastDiscover)

	rec = do(t, mux, http.MethodGet,
		"/api/movies/discover?media_type=tv&page=3&year=2019&with_genres=18,80&vote_average.gte=7.5&vote_count.gte=100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MediaTypeTV, catalog.lastDiscover.MediaType)
	assert.Equal(t, 3, catalog.lastDiscover.Page)
	assert.Equal(t, 2019, catalog.lastDiscover.Year)
	assert.Equal(t, []int{18, 80}, catalog.lastDiscover.GenreIDs)
	assert.Equal(t, 7.5, catalog.lastDiscover.MinVoteAverage)
	assert.Equal(t, 100, catalog.lastDiscover.MinVoteCount)

	rec = do(t, mux, http.MethodGet, "/api/movies/discover?with_genres=action", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrendingAndGenresDefaults(t *testing.T) {
	catalog := &fakeCatalog{}
	mux := newMux(catalog)

	do(t, mux, http.MethodGet, "/api/movies/trending?media_type=tv&time_window=day", "")
	assert.Equal(t, models.TrendingRequest{MediaType: models.MediaTypeTV, TimeWindow: "day"}, catalog.lastTrending)

	do(t, mux, http.MethodGet, "/api/genres", "")
	assert.Equal(t, models.MediaTypeMovie, catalog.lastGenres)
	do(t, mux, http.MethodGet, "/api/genres?media_type=tv", "")
	assert.Equal(t, models.MediaTypeTV, catalog.lastGenres)
}

func TestHealth(t *testing.T) {
	rec := do(t, newMux(&fakeCatalog{tmdb: true, omdb: true}), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, map[string]any{"tmdb": "connected", "omdb": "connected"}, body["services"])

	rec = do(t, newMux(&fakeCatalog{tmdb: true}), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "disconnected", decodeBody(t, rec)["services"].(map[string]any)["omdb"])
}

type pinger struct{ err error }

func (p pinger) Health(context.Context) error { return p.err }

func TestHealthReportsDependencies(t *testing.T) {
	mux := http.NewServeMux()
	deps := map[string]Pinger{"redis": pinger{}, "database": pinger{err: errors.New("down")}}
	NewSystemHandler(&fakeCatalog{tmdb: true, omdb: true}, deps, "", "", logger.Discard()).Register(mux)

	rec := do(t, mux, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "unknown", body["version"])
	svcs := body["services"].(map[string]any)
	assert.Equal(t, "up", svcs["redis"])
	assert.Equal(t, "down", svcs["database"])
}

func TestStats(t *testing.T) {
	rec := do(t, newMux(&fakeCatalog{}), http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body, "timestamp")
	assert.Contains(t, body, "uptime")
	assert.Contains(t, body, "memory")
	assert.Equal(t, float64(1), body["cache"].(map[string]any)["size"])
	assert.Equal(t, "memory", body["cache"].(map[string]any)["backend"])
}

func TestSitemap(t *testing.T) {
	rec := do(t, newMux(&fakeCatalog{}), http.MethodGet, "/sitemap.xml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<loc>https://movieflix.example</loc>")
	assert.Contains(t, body, "<loc>https://movieflix.example/trending</loc>")
	assert.Contains(t, body, "<loc>https://movieflix.example/search</loc>")
	assert.Contains(t, body, "<loc>https://movieflix.example/watchlist</loc>")
}

func TestWatchlistRoutes(t *testing.T) {
	mux := newMux(&fakeCatalog{})

	rec := do(t, mux, http.MethodGet, "/api/watchlist", "")
	assert.Equal(t, float64(0), decodeBody(t, rec)["count"])

	rec = do(t, mux, http.MethodPost, "/api/watchlist", `{"item":{"id":550,"type":"movie","title":"Fight Club"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Added to watchlist", body["message"])
	require.Len(t, body["watchlist"], 1)

	rec = do(t, mux, http.MethodGet, "/api/watchlist?user_id=anonymous", "")
	assert.Equal(t, float64(1), decodeBody(t, rec)["count"])

	rec = do(t, mux, http.MethodPost, "/api/watchlist", `{"userId":"anonymous","item":{"id":550,"type":"movie"}}`)
	assert.Equal(t, "Removed from watchlist", decodeBody(t, rec)["message"])

	rec = do(t, mux, http.MethodPost, "/api/watchlist", `{"item":{"title":"no id"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid item data", decodeBody(t, rec)["error"])

	do(t, mux, http.MethodPost, "/api/watchlist", `{"userId":"u1","item":{"id":1,"type":"tv"}}`)
	rec = do(t, mux, http.MethodDelete, "/api/watchlist?user_id=u1", "")
	body = decodeBody(t, rec)
	assert.Equal(t, "Watchlist cleared", body["message"])
	assert.Equal(t, []any{}, body["watchlist"])

	rec = do(t, mux, http.MethodGet, "/api/watchlist?user_id=u1", "")
	assert.Equal(t, float64(0), decodeBody(t, rec)["count"])
}

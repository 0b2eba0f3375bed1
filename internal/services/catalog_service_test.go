package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/movieflix/internal/cache"
	"github.com/liamwears/movieflix/internal/logger"
	"github.com/liamwears/movieflix/internal/models"
)

func newTestCatalog(t *testing.T, handler http.HandlerFunc) (*CatalogService, *cache.MemoryCache, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	log := logger.Discard()
	tmdb := NewTMDBService(TMDBConfig{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, log)
	omdb := NewOMDBService(OMDBConfig{APIKey: "k", BaseURL: srv.URL, Retry: fastRetry()}, log)
	mem := cache.NewMemoryCache(log)
	return NewCatalogService(tmdb, omdb, mem, log), mem, &calls
}

func TestCatalogCachesSuccess(t *testing.T) {
	catalog, mem, calls := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchBody)
	})
	ctx := context.Background()
	req := models.SearchRequest{Query: "batman", Page: 1, Filters: models.DefaultSearchFilters()}

	first, err := catalog.Search(ctx, req)
	require.NoError(t, err)
	second, err := catalog.Search(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, []string{"search:batman:1:all,all,all,popularity,desc"}, mem.Stats(ctx).Keys)

	// another page is another key
	_, err = catalog.Search(ctx, models.SearchRequest{Query: "batman", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestCatalogDoesNotCacheErrors(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	catalog, mem, calls := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"id":550,"title":"Fight Club"}`)
	})
	ctx := context.Background()

	_, err := catalog.MovieDetails(ctx, 550)
	require.Error(t, err)
	assert.Equal(t, 0, mem.Stats(ctx).Size)

	fail.Store(false)
	details, err := catalog.MovieDetails(ctx, 550)
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", details.DisplayTitle())
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.Equal(t, []string{"movie:550"}, mem.Stats(ctx).Keys)
}

func TestCatalogKeySignatures(t *testing.T) {
	catalog, mem, _ := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/genre/tv/list":
			fmt.Fprint(w, `{"genres":[]}`)
		case "/":
			fmt.Fprint(w, `{"Title":"Fight Club","Response":"True"}`)
		default:
			fmt.Fprint(w, `{"page":1,"total_pages":1,"total_results":0,"results":[]}`)
		}
	})
	ctx := context.Background()

	_, err := catalog.Trending(ctx, models.TrendingRequest{})
	require.NoError(t, err)
	_, err = catalog.Genres(ctx, models.MediaTypeTV)
	require.NoError(t, err)
	_, err = catalog.Discover(ctx, models.DiscoverRequest{Page: 1})
	require.NoError(t, err)
	_, err = catalog.OMDBTitle(ctx, "tt0137523")
	require.NoError(t, err)

	keys := mem.Stats(ctx).Keys
	assert.Contains(t, keys, "trending:all:week")
	assert.Contains(t, keys, "genres:tv")
	assert.Contains(t, keys, "omdb:tt0137523")
	assert.Len(t, keys, 4)
}

func TestCatalogWithoutCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"genres":[]}`)
	}))
	t.Cleanup(srv.Close)

	log := logger.Discard()
	catalog := NewCatalogService(
		NewTMDBService(TMDBConfig{APIKey: "k", BaseURL: srv.URL}, log),
		NewOMDBService(OMDBConfig{}, log), nil, log)

	_, err := catalog.Genres(context.Background(), "")
	require.NoError(t, err)
	_, err = catalog.Genres(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	tmdb, omdb := catalog.Configured()
	assert.True(t, tmdb)
	assert.False(t, omdb)
	assert.Equal(t, "none", catalog.CacheStats(context.Background()).Backend)
}

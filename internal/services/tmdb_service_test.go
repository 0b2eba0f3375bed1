package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/movieflix/internal/logger"
	"github.com/liamwears/movieflix/internal/models"
)

func fastRetry() RetryConfig {
	return RetryConfig{Timeout: 50 * time.Millisecond, Attempts: 3, TimeoutBackoff: 10 * time.Millisecond}
}

func newTestTMDB(t *testing.T, key string, handler http.HandlerFunc) (*TMDBService, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	svc := NewTMDBService(TMDBConfig{APIKey: key, BaseURL: srv.URL, Retry: fastRetry()}, logger.Discard())
	return svc, &calls
}

const searchBody = `{"page":1,"total_pages":10,"total_results":190,"results":[
	{"id":268,"media_type":"movie","title":"Batman","release_date":"1989-06-23","poster_path":"/b.jpg"},
	{"id":2287,"media_type":"tv","name":"Batman","first_air_date":"1966-01-12"},
	{"id":3894,"media_type":"person","name":"Christian Bale"}]}`

func TestSearchMultiSendsQueryShape(t *testing.T) {
	svc, calls := newTestTMDB(t, "v3key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/multi", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "batman", q.Get("query"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "false", q.Get("include_adult"))
		assert.Equal(t, "en-US", q.Get("language"))
		assert.Equal(t, "v3key", q.Get("api_key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, searchBody)
	})

	page, err := svc.SearchMulti(context.Background(), models.SearchRequest{Query: " batman ", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 10, page.TotalPages)
	assert.Equal(t, 190, page.TotalResults)
	require.Len(t, page.Results, 3)
	assert.Equal(t, "Batman", page.Results[1].DisplayTitle())
}

func TestReadAccessTokenUsesBearer(t *testing.T) {
	token := "eyJhbGciOiJIUzI1NiJ9.eyJhdWQiOiJ4In0.sig"
	svc, _ := newTestTMDB(t, token, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"genres":[{"id":28,"name":"Action"}]}`)
	})

	genres, err := svc.Genres(context.Background(), models.MediaTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, []models.Genre{{ID: 28, Name: "Action"}}, genres.Genres)
}

func TestMissingKeyMakesNoNetworkCall(t *testing.T) {
	svc, calls := newTestTMDB(t, "", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchBody)
	})

	_, err := svc.Trending(context.Background(), models.TrendingRequest{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfig))
	assert.Equal(t, "TMDB API key is not configured", err.Error())
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestTimeoutTwiceThenSuccess(t *testing.T) {
	var attempt int32
	svc, calls := newTestTMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempt, 1) <= 2 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		fmt.Fprint(w, `{"page":1,"total_pages":1,"total_results":1,"results":[{"id":1,"media_type":"movie","title":"Dune"}]}`)
	})

	page, err := svc.Trending(context.Background(), models.TrendingRequest{MediaType: models.MediaTypeAll, TimeWindow: "day"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Dune", page.Results[0].Title)
}

func TestTimeoutExhaustsAttempts(t *testing.T) {
	svc, calls := newTestTMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	_, err := svc.MovieDetails(context.Background(), 550)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTimeout))
	assert.Equal(t, MsgTimeout, err.Error())
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestServerErrorIsRetried(t *testing.T) {
	svc, calls := newTestTMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := svc.Genres(context.Background(), models.MediaTypeTV)
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, MsgServer, apiErr.Message)
	assert.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus())
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestClientErrorsFailFast(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		kind    ErrorKind
		message string
	}{
		{"not found with message", http.StatusNotFound,
			`{"success":false,"status_code":34,"status_message":"The resource you requested could not be found."}`,
			KindNotFound, "The resource you requested could not be found."},
		{"unauthorized fallback", http.StatusUnauthorized, ``, KindUnauthorized, MsgUnauthorized},
		{"rate limited fallback", http.StatusTooManyRequests, `{}`, KindRateLimited, MsgRateLimited},
		{"not found fallback", http.StatusNotFound, `not json`, KindNotFound, MsgNotFound},
		{"other 4xx", http.StatusUnprocessableEntity, ``, KindUpstream, "HTTP error! status: 422"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, calls := newTestTMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})

			_, err := svc.TVDetails(context.Background(), 1396)
			require.Error(t, err)
			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tc.kind, apiErr.Kind)
			assert.Equal(t, tc.message, apiErr.Message)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, int32(1), atomic.LoadInt32(calls))
		})
	}
}

func TestSuccessFalsePayloadIsTerminal(t *testing.T) {
	svc, calls := newTestTMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"status_code":7,"status_message":"Invalid API key: You must be granted a valid key."}`)
	})

	_, err := svc.MovieDetails(context.Background(), 550)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnauthorized))
	assert.Equal(t, "Invalid API key: You must be granted a valid key.", err.Error())
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestMalformedJSONIsDecodeError(t *testing.T) {
	svc, calls := newTestTMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"page":`)
	})

	_, err := svc.SearchMulti(context.Background(), models.SearchRequest{Query: "dune", Page: 1})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDecode))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc, calls := newTestTMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := svc.Genres(ctx, models.MediaTypeMovie)
	require.Error(t, err)
	_, ok := AsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestDetailsAppendAndStamp(t *testing.T) {
	svc, _ := newTestTMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550", r.URL.Path)
		assert.Equal(t, "credits,videos,similar,external_ids", r.URL.Query().Get("append_to_response"))
		fmt.Fprint(w, `{"id":550,"title":"Fight Club","runtime":139,
			"external_ids":{"imdb_id":"tt0137523"},
			"similar":{"page":1,"total_pages":1,"total_results":1,"results":[{"id":807,"title":"Se7en"}]},
			"videos":{"results":[{"key":"abc","site":"YouTube","type":"Trailer"}]}}`)
	})

	details, err := svc.MovieDetails(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeMovie, details.MediaType)
	assert.Equal(t, "tt0137523", details.IMDb())
	assert.Equal(t, 139, details.Runtime)
	assert.Equal(t, models.MediaTypeMovie, details.Similar.Results[0].MediaType)
	trailer, ok := details.Videos.Trailer()
	require.True(t, ok)
	assert.Equal(t, "abc", trailer.Key)
}

func TestDiscoverParams(t *testing.T) {
	svc, _ := newTestTMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/discover/tv", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "3", q.Get("page"))
		assert.Equal(t, "vote_average.desc", q.Get("sort_by"))
		assert.Equal(t, "2019", q.Get("first_air_date_year"))
		assert.Equal(t, "18,80", q.Get("with_genres"))
		assert.Equal(t, "7.5", q.Get("vote_average.gte"))
		assert.Equal(t, "100", q.Get("vote_count.gte"))
		assert.Equal(t, "fr-FR", q.Get("language"))
		fmt.Fprint(w, `{"page":3,"total_pages":9,"total_results":170,"results":[{"id":1,"name":"Show"}]}`)
	})

	page, err := svc.Discover(context.Background(), models.DiscoverRequest{
		MediaType: models.MediaTypeTV, Page: 3, SortBy: "vote_average.desc", Year: 2019,
		GenreIDs: []int{18, 80}, MinVoteAverage: 7.5, MinVoteCount: 100, Language: "fr-FR",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeTV, page.Results[0].MediaType)
	assert.Equal(t, "Show", page.Results[0].DisplayTitle())
}

func TestInvalidParametersAreRejectedLocally(t *testing.T) {
	svc, calls := newTestTMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	_, err := svc.Trending(ctx, models.TrendingRequest{MediaType: models.MediaTypePerson})
	assert.True(t, IsKind(err, KindInvalid))
	_, err = svc.Trending(ctx, models.TrendingRequest{TimeWindow: "month"})
	assert.True(t, IsKind(err, KindInvalid))
	_, err = svc.SearchMulti(ctx, models.SearchRequest{Query: "  "})
	assert.True(t, IsKind(err, KindInvalid))
	_, err = svc.MovieDetails(ctx, 0)
	assert.True(t, IsKind(err, KindInvalid))

	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestImageURL(t *testing.T) {
	svc := NewTMDBService(TMDBConfig{APIKey: "k"}, logger.Discard())
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/a.jpg", svc.ImageURL("/a.jpg", ""))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/a.jpg", svc.ImageURL("/a.jpg", "original"))
	assert.Equal(t, "", svc.ImageURL("", "w92"))
}

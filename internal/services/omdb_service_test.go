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

	"github.com/liamwears/movieflix/internal/logger"
)

func newTestOMDB(t *testing.T, key string, handler http.HandlerFunc) (*OMDBService, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return NewOMDBService(OMDBConfig{APIKey: key, BaseURL: srv.URL, Retry: fastRetry()}, logger.Discard()), &calls
}

func TestOMDBTitle(t *testing.T) {
	svc, _ := newTestOMDB(t, "omdb-key", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "tt0137523", q.Get("i"))
		assert.Equal(t, "full", q.Get("plot"))
		assert.Equal(t, "omdb-key", q.Get("apikey"))
		fmt.Fprint(w, `{"Title":"Fight Club","imdbRating":"8.8","Metascore":"67",
			"Ratings":[{"Source":"Rotten Tomatoes","Value":"79%"}],"Response":"True"}`)
	})

	title, err := svc.Title(context.Background(), "tt0137523")
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", title.Title)
	assert.Equal(t, "8.8", title.IMDbRating)
	rt, ok := title.Rating("Rotten Tomatoes")
	require.True(t, ok)
	assert.Equal(t, "79%", rt)
}

func TestOMDBResponseFalseIsNotRetried(t *testing.T) {
	svc, calls := newTestOMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Response":"False","Error":"Incorrect IMDb ID."}`)
	})

	_, err := svc.Title(context.Background(), "tt0000001")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUpstream))
	assert.Equal(t, "Incorrect IMDb ID.", err.Error())
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestOMDBNotFound(t *testing.T) {
	svc, _ := newTestOMDB(t, "k", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Response":"False","Error":"Movie not found!"}`)
	})

	_, err := svc.Title(context.Background(), "tt99999999")
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, apiErr.Kind)
	assert.Equal(t, http.StatusNotFound, apiErr.HTTPStatus())
}

func TestOMDBInvalidKeyStatus(t *testing.T) {
	svc, calls := newTestOMDB(t, "bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"Response":"False","Error":"Invalid API key!"}`)
	})

	_, err := svc.Title(context.Background(), "tt0137523")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnauthorized))
	assert.Equal(t, "Invalid API key!", err.Error())
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestOMDBValidatesBeforeCalling(t *testing.T) {
	svc, calls := newTestOMDB(t, "", func(w http.ResponseWriter, r *http.Request) {})

	_, err := svc.Title(context.Background(), "nm0000093")
	assert.True(t, IsKind(err, KindInvalid))

	_, err = svc.Title(context.Background(), "tt0137523")
	assert.True(t, IsKind(err, KindConfig))
	assert.Equal(t, "OMDB API key is not configured", err.Error())

	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

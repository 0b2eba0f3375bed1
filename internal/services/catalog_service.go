package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liamwears/movieflix/internal/cache"
	"github.com/liamwears/movieflix/internal/models"
)

// CatalogService puts the response cache in front of the TMDB and OMDb gateways.
// Errors are never cached.
type CatalogService struct {
	tmdb   *TMDBService
	omdb   *OMDBService
	cache  cache.Cache
	logger *logrus.Logger
}

// NewCatalogService creates the service. A nil cache disables caching.
func NewCatalogService(tmdb *TMDBService, omdb *OMDBService, c cache.Cache, logger *logrus.Logger) *CatalogService {
	return &CatalogService{tmdb: tmdb, omdb: omdb, cache: c, logger: logger}
}

// Configured reports which upstream credentials are present
func (s *CatalogService) Configured() (tmdb bool, omdb bool) {
	return s.tmdb.Configured(), s.omdb.Configured()
}

// CacheStats returns the response cache statistics
func (s *CatalogService) CacheStats(ctx context.Context) cache.Stats {
	if s.cache == nil {
		return cache.Stats{Backend: "none", Keys: []string{}}
	}
	return s.cache.Stats(ctx)
}

// readThrough serves key from the cache or calls fetch and stores its result
func readThrough[T any](ctx context.Context, s *CatalogService, key string, ttl time.Duration, fetch func() (*T, error)) (*T, error) {
	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, key); ok {
			var out T
			if err := json.Unmarshal(data, &out); err == nil {
				s.logger.WithField("key", key).Debug("Cache hit")
				return &out, nil
			}
			s.cache.Delete(ctx, key)
		}
	}

	out, err := fetch()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			s.cache.Set(ctx, key, data, ttl)
		}
	}
	return out, nil
}

func (s *CatalogService) Trending(ctx context.Context, req models.TrendingRequest) (*models.Page[models.MediaItem], error) {
	if req.MediaType == "" {
		req.MediaType = models.MediaTypeAll
	}
	if req.TimeWindow == "" {
		req.TimeWindow = "week"
	}
	key := fmt.Sprintf("trending:%s:%s", req.MediaType, req.TimeWindow)
	return readThrough(ctx, s, key, cache.TrendingTTL, func() (*models.Page[models.MediaItem], error) {
		return s.tmdb.Trending(ctx, req)
	})
}

// Search runs a multi search. The signature matches the controller's Searcher.
func (s *CatalogService) Search(ctx context.Context, req models.SearchRequest) (*models.Page[models.MediaItem], error) {
	req.Query = strings.TrimSpace(req.Query)
	req.Page = models.ClampPage(req.Page)
	key := fmt.Sprintf("search:%s:%d:%s", req.Query, req.Page, req.Filters.Signature())
	return readThrough(ctx, s, key, cache.SearchTTL, func() (*models.Page[models.MediaItem], error) {
		return s.tmdb.SearchMulti(ctx, req)
	})
}

func (s *CatalogService) MovieDetails(ctx context.Context, id int) (*models.MovieDetails, error) {
	return readThrough(ctx, s, fmt.Sprintf("movie:%d", id), cache.DetailsTTL, func() (*models.MovieDetails, error) {
		return s.tmdb.MovieDetails(ctx, id)
	})
}

func (s *CatalogService) TVDetails(ctx context.Context, id int) (*models.TVShowDetails, error) {
	return readThrough(ctx, s, fmt.Sprintf("tv:%d", id), cache.DetailsTTL, func() (*models.TVShowDetails, error) {
		return s.tmdb.TVDetails(ctx, id)
	})
}

func (s *CatalogService) Discover(ctx context.Context, req models.DiscoverRequest) (*models.Page[models.MediaItem], error) {
	if req.MediaType == "" {
		req.MediaType = models.MediaTypeMovie
	}
	key := fmt.Sprintf("discover:%s:%s", req.MediaType, req.Signature())
	return readThrough(ctx, s, key, cache.DiscoverTTL, func() (*models.Page[models.MediaItem], error) {
		return s.tmdb.Discover(ctx, req)
	})
}

func (s *CatalogService) Genres(ctx context.Context, mediaType models.MediaType) (*models.GenreList, error) {
	if mediaType == "" {
		mediaType = models.MediaTypeMovie
	}
	return readThrough(ctx, s, fmt.Sprintf("genres:%s", mediaType), cache.GenresTTL, func() (*models.GenreList, error) {
		return s.tmdb.Genres(ctx, mediaType)
	})
}

func (s *CatalogService) OMDBTitle(ctx context.Context, imdbID string) (*models.OMDBTitle, error) {
	return readThrough(ctx, s, fmt.Sprintf("omdb:%s", imdbID), cache.OMDBTTL, func() (*models.OMDBTitle, error) {
		return s.omdb.Title(ctx, imdbID)
	})
}

// ImageURL builds a poster or backdrop URL
func (s *CatalogService) ImageURL(path, size string) string {
	return s.tmdb.ImageURL(path, size)
}

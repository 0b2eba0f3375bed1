package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/services"
)

// Catalog is what the catalog routes need from services.CatalogService
type Catalog interface {
	Trending(ctx context.Context, req models.TrendingRequest) (*models.Page[models.MediaItem], error)
	Search(ctx context.Context, req models.SearchRequest) (*models.Page[models.MediaItem], error)
	MovieDetails(ctx context.Context, id int) (*models.MovieDetails, error)
	TVDetails(ctx context.Context, id int) (*models.TVShowDetails, error)
	Discover(ctx context.Context, req models.DiscoverRequest) (*models.Page[models.MediaItem], error)
	Genres(ctx context.Context, mediaType models.MediaType) (*models.GenreList, error)
	OMDBTitle(ctx context.Context, imdbID string) (*models.OMDBTitle, error)
}

// CatalogHandler serves the read-only catalog routes under /api
type CatalogHandler struct {
	catalog Catalog
	logger  *logrus.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog Catalog, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// Register mounts the catalog routes on mux
func (h *CatalogHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/genres", h.Genres)
	mux.HandleFunc("GET /api/movies/trending", h.Trending)
	mux.HandleFunc("GET /api/movies/search", h.Search)
	mux.HandleFunc("GET /api/movies/discover", h.Discover)
	mux.HandleFunc("GET /api/movies/{id}", h.Movie)
	mux.HandleFunc("GET /api/tv/{id}", h.TV)
	mux.HandleFunc("GET /api/omdb/{imdbID}", h.OMDB)
}

// failure answers a list route error with 500 and the upstream message
func (h *CatalogHandler) failure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	message := fallback
	if apiErr, ok := services.AsAPIError(err); ok && apiErr.Message != "" {
		message = apiErr.Message
	}
	h.logger.WithError(err).WithField("path", r.URL.Path).Error(fallback)
	writeError(w, h.logger, http.StatusInternalServerError, message)
}

// lookupFailure answers a details route error with the upstream status, 404 by default
func (h *CatalogHandler) lookupFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, message := http.StatusNotFound, fallback
	if apiErr, ok := services.AsAPIError(err); ok {
		if apiErr.Message != "" {
			message = apiErr.Message
		}
		switch {
		case apiErr.Status > 0:
			status = apiErr.Status
		case apiErr.Kind == services.KindConfig:
			status = http.StatusInternalServerError
		case apiErr.Kind == services.KindInvalid:
			status = http.StatusBadRequest
		}
	}
	h.logger.WithError(err).WithFields(logrus.Fields{"path": r.URL.Path, "status": status}).Warn(fallback)
	writeError(w, h.logger, status, message)
}

// Genres handles GET /api/genres
func (h *CatalogHandler) Genres(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaTypeMovie
	if raw := r.URL.Query().Get("media_type"); raw != "" {
		mediaType = models.MediaType(raw)
	}

	genres, err := h.catalog.Genres(r.Context(), mediaType)
	if err != nil {
		h.failure(w, r, err, "Failed to fetch genres")
		return
	}

	w.Header().Set("Cache-Control", cacheGenres)
	writeJSON(w, h.logger, http.StatusOK, genres)
}

// Trending handles GET /api/movies/trending
func (h *CatalogHandler) Trending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.TrendingRequest{
		MediaType:  models.MediaType(q.Get("media_type")),
		TimeWindow: q.Get("time_window"),
	}

	page, err := h.catalog.Trending(r.Context(), req)
	if err != nil {
		h.failure(w, r, err, "Failed to fetch trending content")
		return
	}

	w.Header().Set("Cache-Control", cacheTrending)
	writeJSON(w, h.logger, http.StatusOK, page)
}

// Search handles GET /api/movies/search
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Query parameter is required")
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	filters := models.SearchFilters{
		Type:      models.MediaType(q.Get("type")),
		Year:      q.Get("year"),
		Genre:     q.Get("genre"),
		SortBy:    models.SortField(q.Get("sort_by")),
		SortOrder: models.SortOrder(q.Get("sort_order")),
	}.Normalize()
	if err := filters.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.catalog.Search(r.Context(), models.SearchRequest{
		Query:   query,
		Page:    models.ClampPage(page),
		Filters: filters,
	})
	if err != nil {
		h.failure(w, r, err, "Search failed")
		return
	}

	w.Header().Set("Cache-Control", cacheSearch)
	writeJSON(w, h.logger, http.StatusOK, results)
}

// parseDiscover reads the discover query. Malformed numbers are ignored like absent ones.
func parseDiscover(r *http.Request) (models.DiscoverRequest, error) {
	q := r.URL.Query()
	req := models.DiscoverRequest{
		MediaType: models.MediaTypeMovie,
		Page:      1,
		SortBy:    q.Get("sort_by"),
		Language:  q.Get("language"),
	}
	if raw := q.Get("media_type"); raw != "" {
		mediaType, err := models.ParseTitleType(raw)
		if err != nil {
			return req, err
		}
		req.MediaType = mediaType
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		req.Page = models.ClampPage(page)
	}
	if req.SortBy == "" {
		req.SortBy = "popularity.desc"
	}
	if req.Language == "" {
		req.Language = "en-US"
	}
	if year, err := strconv.Atoi(q.Get("year")); err == nil {
		req.Year = year
	}
	if raw := q.Get("with_genres"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return req, errors.New("with_genres must be a comma separated list of ids")
			}
			req.GenreIDs = append(req.GenreIDs, id)
		}
	}
	if v, err := strconv.ParseFloat(q.Get("vote_average.gte"), 64); err == nil {
		req.MinVoteAverage = v
	}
	if v, err := strconv.Atoi(q.Get("vote_count.gte")); err == nil {
		req.MinVoteCount = v
	}
	return req, nil
}

// Discover handles GET /api/movies/discover
func (h *CatalogHandler) Discover(w http.ResponseWriter, r *http.Request) {
	req, err := parseDiscover(r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.catalog.Discover(r.Context(), req)
	if err != nil {
		h.failure(w, r, err, "Discovery failed")
		return
	}

	w.Header().Set("Cache-Control", cacheDiscover)
	writeJSON(w, h.logger, http.StatusOK, page)
}

// Movie handles GET /api/movies/{id}
func (h *CatalogHandler) Movie(w http.ResponseWriter, r *http.Request) {
	movieID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	movie, err := h.catalog.MovieDetails(r.Context(), movieID)
	if err != nil {
		h.lookupFailure(w, r, err, "Movie not found")
		return
	}

	w.Header().Set("Cache-Control", cacheDetails)
	writeJSON(w, h.logger, http.StatusOK, movie)
}

// TV handles GET /api/tv/{id}
func (h *CatalogHandler) TV(w http.ResponseWriter, r *http.Request) {
	tvID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid TV show ID")
		return
	}

	show, err := h.catalog.TVDetails(r.Context(), tvID)
	if err != nil {
		h.lookupFailure(w, r, err, "TV show not found")
		return
	}

	w.Header().Set("Cache-Control", cacheDetails)
	writeJSON(w, h.logger, http.StatusOK, show)
}

// OMDB handles GET /api/omdb/{imdbID}
func (h *CatalogHandler) OMDB(w http.ResponseWriter, r *http.Request) {
	imdbID := r.PathValue("imdbID")
	if !models.IsIMDbID(imdbID) {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid IMDb ID")
		return
	}

	title, err := h.catalog.OMDBTitle(r.Context(), imdbID)
	if err != nil {
		h.lookupFailure(w, r, err, "OMDB data not found")
		return
	}

	w.Header().Set("Cache-Control", cacheOMDB)
	writeJSON(w, h.logger, http.StatusOK, title)
}

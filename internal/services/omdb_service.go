package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/liamwears/movieflix/internal/models"
)

const omdbService = "OMDB"

// OMDBService fetches supplementary ratings keyed by IMDb id
type OMDBService struct {
	up     *upstream
	apiKey string
}

// OMDBConfig holds OMDb service configuration
type OMDBConfig struct {
	APIKey     string
	BaseURL    string
	Retry      RetryConfig
	HTTPClient *http.Client
}

func NewOMDBService(cfg OMDBConfig, logger *logrus.Logger) *OMDBService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.omdbapi.com"
	}
	up := newUpstream(omdbService, cfg.BaseURL, cfg.HTTPClient, cfg.Retry, logger)
	up.check = checkOMDB
	return &OMDBService{up: up, apiKey: cfg.APIKey}
}

// Configured reports whether an API key is set
func (s *OMDBService) Configured() bool {
	return s.apiKey != ""
}

// checkOMDB turns a {"Response":"False"} payload into an error
func checkOMDB(body []byte) *APIError {
	var probe struct {
		Response string `json:"Response"`
		Error    string `json:"Error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Response != "False" {
		return nil
	}

	e := &APIError{Kind: KindUpstream, Service: omdbService, Message: probe.Error}
	lower := strings.ToLower(probe.Error)
	switch {
	case strings.Contains(lower, "not found"):
		e.Kind, e.Status = KindNotFound, http.StatusNotFound
	case strings.Contains(lower, "api key"):
		e.Kind, e.Status = KindUnauthorized, http.StatusUnauthorized
	case strings.Contains(lower, "limit"):
		e.Kind, e.Status = KindRateLimited, http.StatusTooManyRequests
	}
	if e.Message == "" {
		e.Message = MsgUnknown
	}
	return e
}

// Title returns the full-plot OMDb record for an IMDb id
func (s *OMDBService) Title(ctx context.Context, imdbID string) (*models.OMDBTitle, error) {
	if !models.IsIMDbID(imdbID) {
		return nil, invalidError(omdbService, "Invalid IMDb ID")
	}
	if !s.Configured() {
		return nil, configError(omdbService)
	}

	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "full")
	params.Set("apikey", s.apiKey)

	body, err := s.up.get(ctx, "/", params, nil)
	if err != nil {
		return nil, err
	}
	return decode[models.OMDBTitle](omdbService, body)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Cache-Control values per route family
const (
	cacheGenres   = "public, s-maxage=86400, stale-while-revalidate=43200"
	cacheDetails  = "public, s-maxage=3600, stale-while-revalidate=1800"
	cacheDiscover = "public, s-maxage=900, stale-while-revalidate=450"
	cacheSearch   = "public, s-maxage=300, stale-while-revalidate=150"
	cacheTrending = "public, s-maxage=600, stale-while-revalidate=300"
	cacheOMDB     = "public, s-maxage=86400, stale-while-revalidate=43200"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *logrus.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, logger *logrus.Logger, status int, message string) {
	writeJSON(w, logger, status, errorBody{Error: message})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/liamwears/movieflix/internal/services"
)

// WatchlistHandler serves the in-memory demo watchlist
type WatchlistHandler struct {
	watchlist *services.DemoWatchlistService
	logger    *logrus.Logger
}

// NewWatchlistHandler creates a new watchlist handler
func NewWatchlistHandler(watchlist *services.DemoWatchlistService, logger *logrus.Logger) *WatchlistHandler {
	return &WatchlistHandler{watchlist: watchlist, logger: logger}
}

// Register mounts the watchlist routes on mux
func (h *WatchlistHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/watchlist", h.List)
	mux.HandleFunc("POST /api/watchlist", h.Toggle)
	mux.HandleFunc("DELETE /api/watchlist", h.Clear)
}

// List handles GET /api/watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.watchlist.List(r.URL.Query().Get("user_id"))
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"watchlist": items,
		"count":     len(items),
	})
}

// Toggle handles POST /api/watchlist
func (h *WatchlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string            `json:"userId"`
		Item   services.DemoItem `json:"item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	message, items, ok := h.watchlist.Toggle(body.UserID, body.Item)
	if !ok {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid item data")
		return
	}

	h.logger.WithFields(logrus.Fields{"user_id": body.UserID, "count": len(items)}).Debug(message)
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"message":   message,
		"watchlist": items,
	})
}

// Clear handles DELETE /api/watchlist
func (h *WatchlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.watchlist.Clear(r.URL.Query().Get("user_id"))
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"message":   "Watchlist cleared",
		"watchlist": []services.DemoItem{},
	})
}

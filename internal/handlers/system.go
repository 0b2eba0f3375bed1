package handlers

import (
	"context"
	"encoding/xml"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liamwears/movieflix/internal/cache"
)

// Status reports credential presence and cache contents
type Status interface {
	Configured() (tmdb bool, omdb bool)
	CacheStats(ctx context.Context) cache.Stats
}

// Pinger is a backing service with a health probe (database.DB, database.RedisClient)
type Pinger interface {
	Health(ctx context.Context) error
}

// SystemHandler serves health, stats and the sitemap
type SystemHandler struct {
	status    Status
	deps      map[string]Pinger
	version   string
	appURL    string
	startedAt time.Time
	now       func() time.Time
	logger    *logrus.Logger
}

// NewSystemHandler creates the handler. deps are reported by name in the health body.
func NewSystemHandler(status Status, deps map[string]Pinger, version, appURL string, logger *logrus.Logger) *SystemHandler {
	if version == "" {
		version = "unknown"
	}
	return &SystemHandler{
		status:    status,
		deps:      deps,
		version:   version,
		appURL:    strings.TrimRight(appURL, "/"),
		startedAt: time.Now(),
		now:       time.Now,
		logger:    logger,
	}
}

// Register mounts the system routes on mux
func (h *SystemHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/stats", h.Stats)
	mux.HandleFunc("GET /sitemap.xml", h.Sitemap)
}

func connected(ok bool) string {
	if ok {
		return "connected"
	}
	return "disconnected"
}

// Health handles GET /api/health. 200 only when both upstream keys are configured.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	tmdb, omdb := h.status.Configured()

	services := map[string]string{
		"tmdb": connected(tmdb),
		"omdb": connected(omdb),
	}
	for name, dep := range h.deps {
		state := "up"
		if err := dep.Health(r.Context()); err != nil {
			h.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			state = "down"
		}
		services[name] = state
	}

	status := http.StatusOK
	if !tmdb || !omdb {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, status, map[string]any{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
		"services":  services,
		"version":   h.version,
	})
}

// memoryStats is the runtime memory summary in /api/stats
type memoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	HeapInuse  uint64 `json:"heapInuse"`
	NumGC      uint32 `json:"numGC"`
}

// Stats handles GET /api/stats
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
		"cache":     h.status.CacheStats(r.Context()),
		"uptime":    h.now().Sub(h.startedAt).Seconds(),
		"memory": memoryStats{
			Alloc:      mem.Alloc,
			TotalAlloc: mem.TotalAlloc,
			Sys:        mem.Sys,
			HeapInuse:  mem.HeapInuse,
			NumGC:      mem.NumGC,
		},
		"environment": map[string]any{
			"goVersion":  runtime.Version(),
			"platform":   runtime.GOOS,
			"arch":       runtime.GOARCH,
			"goroutines": runtime.NumGoroutine(),
		},
	})
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap handles GET /sitemap.xml
func (h *SystemHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	lastMod := h.now().UTC().Format(time.RFC3339)
	pages := []struct {
		path     string
		freq     string
		priority float64
	}{
		{"", "daily", 1},
		{"/trending", "daily", 0.9},
		{"/search", "weekly", 0.8},
		{"/watchlist", "daily", 0.7},
	}

	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range pages {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.appURL + p.path,
			LastMod:    lastMod,
			ChangeFreq: p.freq,
			Priority:   p.priority,
		})
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		h.logger.WithError(err).Error("Failed to encode sitemap")
	}
}

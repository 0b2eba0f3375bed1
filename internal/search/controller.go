// Package search drives a debounced, filtered and paginated multi search.
package search

import (
	"cmp"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/liamwears/movieflix/internal/debounce"
	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/services"
)

// DefaultDebounce is the quiet period before a typed query is searched
const DefaultDebounce = 500 * time.Millisecond

// MinQueryLength is the shortest settled query that triggers a search
const MinQueryLength = 2

// Searcher runs one multi search. Implemented by apiclient.Client and services.CatalogService.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.Page[models.MediaItem], error)
}

// Recorder remembers successful queries. Implemented by history.Store.
type Recorder interface {
	Record(ctx context.Context, query string, resultsCount int)
}

// Status summarises the result view
type Status string

const (
	NotSearched Status = "not_searched"
	HasResults  Status = "has_results"
	Empty       Status = "empty"
)

// State is a snapshot of the controller
type State struct {
	Query        string
	Filters      models.SearchFilters
	CurrentPage  int
	TotalPages   int
	TotalResults int
	Results      []models.MediaItem
	IsLoading    bool
	Error        string
	Status       Status
}

// HasSearched reports whether a search has completed since the last clear
func (s State) HasSearched() bool {
	return s.Status != NotSearched
}

// CanLoadMore reports whether LoadMore would issue a request
func (s State) CanLoadMore() bool {
	return !s.IsLoading && s.CurrentPage < s.TotalPages
}

// Options configures a Controller
type Options struct {
	Debounce time.Duration
	Recorder Recorder
	Logger   *logrus.Logger
	// OnChange receives a snapshot after every state transition, in order and one at a
	// time. It runs without the controller lock held, so it may call State.
	OnChange func(State)
}

// Controller owns the search view state. Safe for concurrent use.
type Controller struct {
	searcher Searcher
	recorder Recorder
	logger   *logrus.Logger
	onChange func(State)

	base      context.Context
	stop      context.CancelFunc
	debouncer *debounce.Debouncer[string]

	mu       sync.Mutex
	state    State
	seq      uint64
	inFlight context.CancelFunc
	last     *models.SearchRequest

	// snapshots waiting for OnChange, drained by whichever commit set delivering
	queue      []State
	delivering bool
}

// New creates a controller. Debounced searches run under ctx until Close.
func New(ctx context.Context, searcher Searcher, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	base, stop := context.WithCancel(ctx)
	c := &Controller{
		searcher: searcher,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		onChange: opts.OnChange,
		base:     base,
		stop:     stop,
		state: State{
			Filters:     models.DefaultSearchFilters(),
			CurrentPage: 1,
			Status:      NotSearched,
		},
	}
	c.debouncer = debounce.New(opts.Debounce, c.settled)
	return c
}

// Close cancels pending and in-flight searches
func (c *Controller) Close() {
	c.debouncer.Stop()
	c.stop()
}

// State returns a snapshot
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SettledQuery is the last query the debouncer let through
func (c *Controller) SettledQuery() string {
	return c.debouncer.Value()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Results = append([]models.MediaItem(nil), c.state.Results...)
	return s
}

// commitLocked publishes the current state. It releases c.mu.
func (c *Controller) commitLocked() {
	if c.onChange == nil {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, c.snapshotLocked())
	if c.delivering {
		c.mu.Unlock()
		return
	}

	c.delivering = true
	for len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		c.onChange(next)
		c.mu.Lock()
	}
	c.delivering = false
	c.mu.Unlock()
}

// SetQuery records the typed text; the search runs once the input has settled.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	c.state.Query = q
	c.commitLocked()
	c.debouncer.Set(q)
}

// settled runs on the debouncer goroutine
func (c *Controller) settled(q string) {
	c.searchQuery(c.base, q, 1)
}

// searchQuery applies the empty and minimum length rules, then searches page
func (c *Controller) searchQuery(ctx context.Context, q string, page int) {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		c.mu.Lock()
		c.cancelLocked()
		c.resetResultsLocked()
		c.commitLocked()
		return
	}
	if utf8.RuneCountInString(trimmed) < MinQueryLength {
		return
	}

	c.mu.Lock()
	req := models.SearchRequest{Query: trimmed, Page: models.ClampPage(page), Filters: c.state.Filters}
	c.mu.Unlock()
	c.run(ctx, req)
}

// SetFilters replaces the filters, resets to page 1 and re-runs the settled query
func (c *Controller) SetFilters(ctx context.Context, f models.SearchFilters) {
	c.mu.Lock()
	c.state.Filters = f.Normalize()
	c.state.CurrentPage = 1
	c.commitLocked()

	if q := strings.TrimSpace(c.debouncer.Value()); utf8.RuneCountInString(q) >= MinQueryLength {
		c.searchQuery(ctx, q, 1)
	}
}

// Search runs the current query text right away, skipping the debounce
func (c *Controller) Search(ctx context.Context, page int) {
	c.mu.Lock()
	q := c.state.Query
	c.mu.Unlock()

	c.debouncer.Reset(q)
	c.searchQuery(ctx, q, page)
}

// LoadMore fetches and appends the next page. No-op while loading or on the last page.
func (c *Controller) LoadMore(ctx context.Context) {
	c.mu.Lock()
	if !c.state.CanLoadMore() || c.last == nil {
		c.mu.Unlock()
		return
	}
	req := *c.last
	req.Page = c.state.CurrentPage + 1
	req.Filters = c.state.Filters
	c.mu.Unlock()

	c.run(ctx, req)
}

// Retry re-issues the last request
func (c *Controller) Retry(ctx context.Context) {
	c.mu.Lock()
	if c.last == nil {
		c.mu.Unlock()
		return
	}
	req := *c.last
	c.mu.Unlock()

	c.run(ctx, req)
}

// Clear resets query, results and pagination. Pending and in-flight searches are dropped.
func (c *Controller) Clear() {
	c.debouncer.Reset("")

	c.mu.Lock()
	c.cancelLocked()
	c.last = nil
	c.state.Query = ""
	c.resetResultsLocked()
	c.commitLocked()
}

func (c *Controller) resetResultsLocked() {
	c.state.Results = nil
	c.state.CurrentPage = 1
	c.state.TotalPages = 0
	c.state.TotalResults = 0
	c.state.IsLoading = false
	c.state.Error = ""
	c.state.Status = NotSearched
}

// cancelLocked supersedes the in-flight request
func (c *Controller) cancelLocked() {
	c.seq++
	if c.inFlight != nil {
		c.inFlight()
		c.inFlight = nil
	}
}

// run issues req. Only the response of the latest request is applied.
func (c *Controller) run(ctx context.Context, req models.SearchRequest) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.cancelLocked()
	seq := c.seq
	c.inFlight = cancel
	c.last = &req
	c.state.IsLoading = true
	c.state.Error = ""
	if req.Page <= 1 {
		c.state.CurrentPage = 1
	}
	c.commitLocked()

	log := c.logger.WithFields(logrus.Fields{"query": req.Query, "page": req.Page, "seq": seq})
	page, err := c.searcher.Search(reqCtx, req)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		log.Debug("Discarding superseded search response")
		return
	}
	c.inFlight = nil
	c.state.IsLoading = false

	if err != nil {
		c.state.Error = errorMessage(err)
		if req.Page <= 1 {
			c.state.Results = nil
			c.state.TotalPages = 0
			c.state.TotalResults = 0
			c.state.Status = Empty
		}
		c.commitLocked()
		log.WithError(err).Warn("Search failed")
		return
	}

	items := merge(page.Results, c.state.Filters)
	if req.Page > 1 {
		c.state.Results = append(append([]models.MediaItem(nil), c.state.Results...), items...)
	} else {
		c.state.Results = items
	}
	c.state.CurrentPage = req.Page
	if page.Page > 0 {
		c.state.CurrentPage = models.ClampPage(page.Page)
	}
	c.state.TotalPages = min(page.TotalPages, models.MaxPage)
	c.state.TotalResults = page.TotalResults
	c.state.Status = Empty
	if len(c.state.Results) > 0 {
		c.state.Status = HasResults
	}
	c.commitLocked()

	if req.Page == 1 && c.recorder != nil {
		c.recorder.Record(ctx, req.Query, page.TotalResults)
	}
}

func errorMessage(err error) string {
	if apiErr, ok := services.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, context.Canceled) {
		return "Search canceled"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Search failed"
}

// merge drops people, applies the type and year filters and sorts when not ordering by
// popularity. The upstream page is not modified.
func merge(items []models.MediaItem, f models.SearchFilters) []models.MediaItem {
	f = f.Normalize()
	out := make([]models.MediaItem, 0, len(items))
	for _, item := range items {
		if item.MediaType == models.MediaTypePerson {
			continue
		}
		if f.Type != models.MediaTypeAll && item.MediaType != f.Type {
			continue
		}
		if f.Year != models.FilterAll && item.Year() != f.Year {
			continue
		}
		out = append(out, item)
	}

	if f.SortBy == models.SortPopularity {
		return out
	}

	order := func(a, b models.MediaItem) int {
		switch f.SortBy {
		case models.SortVoteAverage:
			return cmp.Compare(a.VoteAverage, b.VoteAverage)
		case models.SortReleaseDate:
			return strings.Compare(a.Date(), b.Date())
		case models.SortTitle:
			return strings.Compare(strings.ToLower(a.DisplayTitle()), strings.ToLower(b.DisplayTitle()))
		}
		return 0
	}
	sort.SliceStable(out, func(i, j int) bool {
		n := order(out[i], out[j])
		if f.SortOrder == models.SortAsc {
			return n < 0
		}
		return n > 0
	})
	return out
}

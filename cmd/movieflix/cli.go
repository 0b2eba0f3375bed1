package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/liamwears/movieflix/internal/apiclient"
	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/search"
	"github.com/liamwears/movieflix/internal/services"
)

// cli runs commands against the server API and the local stores
type cli struct {
	api      *apiclient.Client
	stores   *stores
	out      io.Writer
	debounce time.Duration
	log      *logrus.Logger
}

func (c *cli) saved(ctx context.Context) func(models.MediaItem) bool {
	return func(item models.MediaItem) bool {
		return c.stores.watchlist.IsSaved(ctx, item.ID, item.MediaType)
	}
}

func (c *cli) newController(ctx context.Context, onChange func(search.State)) *search.Controller {
	return search.New(ctx, c.api, search.Options{
		Debounce: c.debounce,
		Recorder: c.stores.history,
		Logger:   c.log,
		OnChange: onChange,
	})
}

func (c *cli) search(ctx context.Context, query string, page int, filters models.SearchFilters) error {
	if err := filters.Validate(); err != nil {
		return err
	}
	ctrl := c.newController(ctx, nil)
	defer ctrl.Close()

	ctrl.SetFilters(ctx, filters)
	ctrl.SetQuery(query)
	ctrl.Search(ctx, page)

	state := ctrl.State()
	if state.Error != "" {
		return fmt.Errorf("search failed: %s", state.Error)
	}
	if state.Status == search.NotSearched {
		return fmt.Errorf("query must be at least %d characters", search.MinQueryLength)
	}
	printSearchState(c.out, state, c.saved(ctx))
	return nil
}

func (c *cli) trending(ctx context.Context, req models.TrendingRequest) error {
	page, err := c.api.Trending(ctx, req)
	if err != nil {
		return err
	}
	printMedia(c.out, models.TrendingVisible(page.Results), c.saved(ctx))
	return nil
}

// ratings fetches the OMDb block. Failures are logged and the details print without it.
func (c *cli) ratings(ctx context.Context, imdbID string) *models.OMDBTitle {
	if imdbID == "" {
		return nil
	}
	omdb, err := c.api.OMDBTitle(ctx, imdbID)
	if err != nil {
		c.log.WithError(err).WithField("imdb_id", imdbID).Debug("Ratings unavailable")
		return nil
	}
	return omdb
}

func (c *cli) details(ctx context.Context, mediaType models.MediaType, id int) error {
	switch mediaType {
	case models.MediaTypeMovie:
		d, err := c.api.MovieDetails(ctx, id)
		if err != nil {
			return err
		}
		printMovie(c.out, d, c.ratings(ctx, d.IMDb()))
	case models.MediaTypeTV:
		d, err := c.api.TVDetails(ctx, id)
		if err != nil {
			return err
		}
		printTV(c.out, d, c.ratings(ctx, d.IMDb()))
	default:
		return fmt.Errorf("invalid media type %q", mediaType)
	}
	return nil
}

// lookup resolves a title to the summary stored in the watchlist
func (c *cli) lookup(ctx context.Context, mediaType models.MediaType, id int) (models.MediaItem, error) {
	switch mediaType {
	case models.MediaTypeMovie:
		d, err := c.api.MovieDetails(ctx, id)
		if err != nil {
			return models.MediaItem{}, err
		}
		d.MediaItem.MediaType = models.MediaTypeMovie
		return d.MediaItem, nil
	case models.MediaTypeTV:
		d, err := c.api.TVDetails(ctx, id)
		if err != nil {
			return models.MediaItem{}, err
		}
		d.MediaItem.MediaType = models.MediaTypeTV
		return d.MediaItem, nil
	default:
		return models.MediaItem{}, fmt.Errorf("invalid media type %q", mediaType)
	}
}

func (c *cli) genres(ctx context.Context) error {
	var movie, tv *models.GenreList
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		movie, err = c.api.Genres(ctx, models.MediaTypeMovie)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		tv, err = c.api.Genres(ctx, models.MediaTypeTV)
		return err
	})
	if err := p.Wait(); err != nil {
		return err
	}
	printGenres(c.out, movie, tv)
	return nil
}

func (c *cli) health(ctx context.Context) error {
	h, err := c.api.Health(ctx)
	if err != nil {
		return err
	}
	printHealth(c.out, h)
	return nil
}

func (c *cli) watchlistList(ctx context.Context, filter string) error {
	f, err := models.ParseWatchlistFilter(filter)
	if err != nil {
		return err
	}
	printWatchlist(c.out, c.stores.watchlist.Filtered(ctx, f))
	return nil
}

func (c *cli) watchlistAdd(ctx context.Context, mediaType models.MediaType, id int) error {
	if c.stores.watchlist.IsSaved(ctx, id, mediaType) {
		fmt.Fprintf(c.out, "%s is already in the watchlist\n", models.MediaKey(id, mediaType))
		return nil
	}
	item, err := c.lookup(ctx, mediaType, id)
	if err != nil {
		return err
	}
	c.stores.watchlist.Add(ctx, item)
	fmt.Fprintf(c.out, "Added %s to watchlist\n", item.DisplayTitle())
	return nil
}

func (c *cli) watchlistToggle(ctx context.Context, mediaType models.MediaType, id int) error {
	if existing, ok := c.stores.watchlist.Get(ctx, id, mediaType); ok {
		c.stores.watchlist.Remove(ctx, id, mediaType)
		fmt.Fprintf(c.out, "Removed %s from watchlist\n", existing.Title)
		return nil
	}
	return c.watchlistAdd(ctx, mediaType, id)
}

func (c *cli) watchlistRemove(ctx context.Context, mediaType models.MediaType, id int) error {
	existing, ok := c.stores.watchlist.Get(ctx, id, mediaType)
	if !ok {
		return fmt.Errorf("%s is not in the watchlist", models.MediaKey(id, mediaType))
	}
	c.stores.watchlist.Remove(ctx, id, mediaType)
	fmt.Fprintf(c.out, "Removed %s from watchlist\n", existing.Title)
	return nil
}

// savedItem returns the item or an error naming the key
func (c *cli) savedItem(ctx context.Context, mediaType models.MediaType, id int) (models.WatchlistItem, error) {
	item, ok := c.stores.watchlist.Get(ctx, id, mediaType)
	if !ok {
		return models.WatchlistItem{}, fmt.Errorf("%s is not in the watchlist", models.MediaKey(id, mediaType))
	}
	return item, nil
}

func (c *cli) watchlistWatched(ctx context.Context, mediaType models.MediaType, id int) error {
	if _, err := c.savedItem(ctx, mediaType, id); err != nil {
		return err
	}
	c.stores.watchlist.ToggleWatched(ctx, id, mediaType)
	item, _ := c.stores.watchlist.Get(ctx, id, mediaType)
	state := "unwatched"
	if item.Watched {
		state = "watched"
	}
	fmt.Fprintf(c.out, "Marked %s as %s\n", item.Title, state)
	return nil
}

func (c *cli) watchlistRate(ctx context.Context, mediaType models.MediaType, id int, rating float64) error {
	item, err := c.savedItem(ctx, mediaType, id)
	if err != nil {
		return err
	}
	if err := c.stores.watchlist.SetRating(ctx, id, mediaType, rating); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Rated %s %s/10\n", item.Title, strconv.FormatFloat(rating, 'f', -1, 64))
	return nil
}

func (c *cli) watchlistNote(ctx context.Context, mediaType models.MediaType, id int, notes string) error {
	item, err := c.savedItem(ctx, mediaType, id)
	if err != nil {
		return err
	}
	c.stores.watchlist.SetNotes(ctx, id, mediaType, notes)
	fmt.Fprintf(c.out, "Updated notes for %s\n", item.Title)
	return nil
}

func (c *cli) watchlistRemoveMany(ctx context.Context, keys []string) {
	before := len(c.stores.watchlist.Items(ctx))
	c.stores.watchlist.RemoveMany(ctx, keys)
	fmt.Fprintf(c.out, "Removed %d items\n", before-len(c.stores.watchlist.Items(ctx)))
}

func (c *cli) watchlistMarkWatched(ctx context.Context, keys []string) {
	c.stores.watchlist.MarkAllWatched(ctx, keys)
	fmt.Fprintf(c.out, "Marked %d items as watched\n", len(keys))
}

func (c *cli) watchlistClear(ctx context.Context) {
	c.stores.watchlist.Clear(ctx)
	fmt.Fprintln(c.out, "Watchlist cleared")
}

func (c *cli) watchlistStats(ctx context.Context) {
	printStats(c.out, c.stores.watchlist.Stats(ctx))
}

func (c *cli) historyList(ctx context.Context, limit int) {
	printHistory(c.out, c.stores.history.Recent(ctx, limit))
}

func (c *cli) historyClear(ctx context.Context) {
	c.stores.history.Clear(ctx)
	fmt.Fprintln(c.out, "Search history cleared")
}

func (c *cli) historyForget(ctx context.Context, query string) {
	c.stores.history.Forget(ctx, query)
	fmt.Fprintf(c.out, "Forgot %q\n", query)
}

func (c *cli) themeShow(ctx context.Context) {
	fmt.Fprintln(c.out, c.stores.theme.Theme(ctx))
}

func (c *cli) themeSet(ctx context.Context, theme string) error {
	if err := c.stores.theme.SetTheme(ctx, models.Theme(theme)); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Theme set to %s\n", theme)
	return nil
}

func (c *cli) themeToggle(ctx context.Context) {
	fmt.Fprintf(c.out, "Theme set to %s\n", c.stores.theme.Toggle(ctx))
}

// describe turns API errors into the message shown to the user
func describe(err error) string {
	if apiErr, ok := services.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

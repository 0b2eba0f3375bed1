package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"

	"github.com/liamwears/movieflix/internal/apiclient"
	"github.com/liamwears/movieflix/internal/config"
	"github.com/liamwears/movieflix/internal/logger"
	"github.com/liamwears/movieflix/internal/models"
)

var version = "dev"

var (
	app = kingpin.New("movieflix", "Search movies and TV shows and keep a local watchlist.")

	apiURL  = app.Flag("api-url", "movieflix server URL").Envar("MOVIEFLIX_API_URL").String()
	driver  = app.Flag("storage", "where the watchlist, history and theme are kept").Enum("file", "sqlite", "postgres", "memory")
	dataDir = app.Flag("data", "storage directory (file) or database file (sqlite)").String()
	debug   = app.Flag("debug", "log requests to stderr").Bool()

	searchCmd   = app.Command("search", "Search movies and TV shows.")
	searchQuery = searchCmd.Arg("query", "search text").Required().String()
	searchPage  = searchCmd.Flag("page", "result page").Default("1").Int()
	searchType  = searchCmd.Flag("type", "movie, tv or all").Default("all").String()
	searchYear  = searchCmd.Flag("year", "release year or all").Default("all").String()
	searchSort  = searchCmd.Flag("sort", "popularity, vote_average, release_date or title").Default("popularity").String()
	searchOrder = searchCmd.Flag("order", "asc or desc").Default("desc").String()

	trendingCmd    = app.Command("trending", "Show trending titles.")
	trendingType   = trendingCmd.Flag("type", "all, movie or tv").Default("all").Enum("all", "movie", "tv")
	trendingWindow = trendingCmd.Flag("window", "day or week").Default("week").Enum("day", "week")

	detailsCmd  = app.Command("details", "Show a movie or TV show with external ratings.")
	detailsType = detailsCmd.Arg("type", "movie or tv").Required().Enum("movie", "tv")
	detailsID   = detailsCmd.Arg("id", "TMDB id").Required().Int()

	genresCmd = app.Command("genres", "List movie and TV genres.")
	healthCmd = app.Command("health", "Check the server.")

	watchlistCmd        = app.Command("watchlist", "Manage the local watchlist.")
	watchlistListCmd    = watchlistCmd.Command("list", "List saved titles.").Default()
	watchlistFilter     = watchlistListCmd.Flag("filter", "all, movies, tv, watched or unwatched").Default("all").String()
	watchlistAddCmd     = watchlistCmd.Command("add", "Save a title.")
	watchlistAddType    = watchlistAddCmd.Arg("type", "movie or tv").Required().Enum("movie", "tv")
	watchlistAddID      = watchlistAddCmd.Arg("id", "TMDB id").Required().Int()
	watchlistRemoveCmd  = watchlistCmd.Command("remove", "Remove a saved title.")
	watchlistRemoveType = watchlistRemoveCmd.Arg("type", "movie or tv").Required().Enum("movie", "tv")
	watchlistRemoveID   = watchlistRemoveCmd.Arg("id", "TMDB id").Required().Int()
	watchlistToggleCmd  = watchlistCmd.Command("toggle", "Save a title, or remove it when already saved.")
	watchlistToggleType = watchlistToggleCmd.Arg("type", "movie or tv").Required().Enum("movie", "tv")
	watchlistToggleID   = watchlistToggleCmd.Arg("id", "TMDB id").Required().Int()
	watchedCmd          = watchlistCmd.Command("watched", "Flip the watched flag.")
	watchedType         = watchedCmd.Arg("type", "movie or tv").Required().Enum("movie", "tv")
	watchedID           = watchedCmd.Arg("id", "TMDB id").Required().Int()
	rateCmd             = watchlistCmd.Command("rate", "Rate a saved title from 0 to 10.")
	rateType            = rateCmd.Arg("type", "movie or tv").Required().Enum("movie", "tv")
	rateID              = rateCmd.Arg("id", "TMDB id").Required().Int()
	rateValue           = rateCmd.Arg("rating", "0 to 10").Required().Float64()
	noteCmd             = watchlistCmd.Command("note", "Set the notes on a saved title.")
	noteType            = noteCmd.Arg("type", "movie or tv").Required().Enum("movie", "tv")
	noteID              = noteCmd.Arg("id", "TMDB id").Required().Int()
	noteText            = noteCmd.Arg("notes", "notes text, empty to clear").String()
	removeManyCmd       = watchlistCmd.Command("remove-many", "Remove several titles by key.")
	removeManyKeys      = removeManyCmd.Arg("keys", "keys such as movie:550").Required().Strings()
	markWatchedCmd      = watchlistCmd.Command("mark-watched", "Mark several titles as watched by key.")
	markWatchedKeys     = markWatchedCmd.Arg("keys", "keys such as tv:1399").Required().Strings()
	watchlistClearCmd   = watchlistCmd.Command("clear", "Remove every saved title.")
	watchlistStatsCmd   = watchlistCmd.Command("stats", "Summarise the watchlist.")

	historyCmd       = app.Command("history", "Recent searches.")
	historyListCmd   = historyCmd.Command("list", "Show recent searches.").Default()
	historyLimit     = historyListCmd.Flag("limit", "how many to show").Default("5").Int()
	historyClearCmd  = historyCmd.Command("clear", "Forget all searches.")
	historyForgetCmd = historyCmd.Command("forget", "Forget one search.")
	historyForgetQ   = historyForgetCmd.Arg("query", "query to forget").Required().String()

	themeCmd       = app.Command("theme", "Colour scheme preference.")
	themeShowCmd   = themeCmd.Command("show", "Print the theme.").Default()
	themeSetCmd    = themeCmd.Command("set", "Set the theme.")
	themeSetValue  = themeSetCmd.Arg("theme", "light, dark or system").Required().Enum("light", "dark", "system")
	themeToggleCmd = themeCmd.Command("toggle", "Switch between light and dark.")

	interactiveCmd = app.Command("interactive", "Search as you type.").Alias("i")
)

func main() {
	app.Version(version)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Discard()
	if *debug {
		cfg.Log.Level = "debug"
		cfg.Log.Format = "text"
		log = logger.New(cfg.Log)
		log.SetOutput(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := newCLI(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "movieflix: %v\n", err)
		os.Exit(1)
	}
	defer c.stores.close()

	if err := c.run(ctx, command); err != nil {
		fmt.Fprintf(os.Stderr, "movieflix: %s\n", describe(err))
		c.stores.close()
		os.Exit(1)
	}
}

func newCLI(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*cli, error) {
	if *apiURL != "" {
		cfg.Client.APIURL = *apiURL
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
	}
	if *dataDir != "" {
		cfg.Storage.Path = *dataDir
	}

	backend, closer, err := openBackend(ctx, cfg.Storage.Driver, cfg.Storage.Path, cfg.Database.URL, log)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}

	return &cli{
		api:      apiclient.New(cfg.Client.APIURL, nil, log),
		stores:   newStores(backend, closer, log),
		out:      os.Stdout,
		debounce: cfg.Client.Debounce,
		log:      log,
	}, nil
}

func (c *cli) run(ctx context.Context, command string) error {
	switch command {
	case searchCmd.FullCommand():
		return c.search(ctx, *searchQuery, *searchPage, models.SearchFilters{
			Type:      models.MediaType(*searchType),
			Year:      *searchYear,
			SortBy:    models.SortField(*searchSort),
			SortOrder: models.SortOrder(*searchOrder),
		}.Normalize())
	case trendingCmd.FullCommand():
		return c.trending(ctx, models.TrendingRequest{
			MediaType:  models.MediaType(*trendingType),
			TimeWindow: *trendingWindow,
		})
	case detailsCmd.FullCommand():
		return c.details(ctx, models.MediaType(*detailsType), *detailsID)
	case genresCmd.FullCommand():
		return c.genres(ctx)
	case healthCmd.FullCommand():
		return c.health(ctx)

	case watchlistListCmd.FullCommand():
		return c.watchlistList(ctx, *watchlistFilter)
	case watchlistAddCmd.FullCommand():
		return c.watchlistAdd(ctx, models.MediaType(*watchlistAddType), *watchlistAddID)
	case watchlistRemoveCmd.FullCommand():
		return c.watchlistRemove(ctx, models.MediaType(*watchlistRemoveType), *watchlistRemoveID)
	case watchlistToggleCmd.FullCommand():
		return c.watchlistToggle(ctx, models.MediaType(*watchlistToggleType), *watchlistToggleID)
	case watchedCmd.FullCommand():
		return c.watchlistWatched(ctx, models.MediaType(*watchedType), *watchedID)
	case rateCmd.FullCommand():
		return c.watchlistRate(ctx, models.MediaType(*rateType), *rateID, *rateValue)
	case noteCmd.FullCommand():
		return c.watchlistNote(ctx, models.MediaType(*noteType), *noteID, *noteText)
	case removeManyCmd.FullCommand():
		c.watchlistRemoveMany(ctx, *removeManyKeys)
	case markWatchedCmd.FullCommand():
		c.watchlistMarkWatched(ctx, *markWatchedKeys)
	case watchlistClearCmd.FullCommand():
		c.watchlistClear(ctx)
	case watchlistStatsCmd.FullCommand():
		c.watchlistStats(ctx)

	case historyListCmd.FullCommand():
		c.historyList(ctx, *historyLimit)
	case historyClearCmd.FullCommand():
		c.historyClear(ctx)
	case historyForgetCmd.FullCommand():
		c.historyForget(ctx, *historyForgetQ)

	case themeShowCmd.FullCommand():
		c.themeShow(ctx)
	case themeSetCmd.FullCommand():
		return c.themeSet(ctx, *themeSetValue)
	case themeToggleCmd.FullCommand():
		c.themeToggle(ctx)

	case interactiveCmd.FullCommand():
		return c.interactive(ctx, os.Stdin)
	}
	return nil
}

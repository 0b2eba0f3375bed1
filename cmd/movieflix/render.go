package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/liamwears/movieflix/internal/apiclient"
	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/search"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printMedia(w io.Writer, items []models.MediaItem, saved func(models.MediaItem) bool) {
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tTYPE\tID\tTITLE\tYEAR\tRATING\t")
	for i, item := range items {
		mark := ""
		if saved != nil && saved(item) {
			mark = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s%s\t%s\t%.1f\t\n",
			i+1, item.MediaType, item.ID, item.DisplayTitle(), mark, orDash(item.Year()), item.VoteAverage)
	}
	tw.Flush()
}

func printSearchState(w io.Writer, s search.State, saved func(models.MediaItem) bool) {
	switch {
	case s.Error != "":
		fmt.Fprintf(w, "error: %s (type :retry)\n", s.Error)
	case s.Status == search.Empty:
		fmt.Fprintf(w, "no results for %q\n", s.Query)
	case s.Status == search.HasResults:
		printMedia(w, s.Results, saved)
		fmt.Fprintf(w, "page %d of %d, %d results", s.CurrentPage, s.TotalPages, s.TotalResults)
		if s.CanLoadMore() {
			fmt.Fprint(w, " (type :more)")
		}
		fmt.Fprintln(w)
	}
}

func printWatchlist(w io.Writer, items []models.WatchlistItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "watchlist is empty")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "KEY\tTITLE\tYEAR\tWATCHED\tRATING\tNOTES\t")
	for _, item := range items {
		watched := "no"
		if item.Watched {
			watched = "yes"
		}
		rating := "-"
		if item.Rating != nil {
			rating = strconv.FormatFloat(*item.Rating, 'f', -1, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			item.Key(), item.Title, orDash(models.YearOf(item.ReleaseDate)), watched, rating, orDash(item.Notes))
	}
	tw.Flush()
}

func printStats(w io.Writer, s models.WatchlistStats) {
	tw := newTable(w)
	fmt.Fprintf(tw, "total\t%d\n", s.Total)
	fmt.Fprintf(tw, "movies\t%d\n", s.Movies)
	fmt.Fprintf(tw, "tv shows\t%d\n", s.TVShows)
	fmt.Fprintf(tw, "watched\t%d\n", s.Watched)
	fmt.Fprintf(tw, "unwatched\t%d\n", s.Unwatched)
	fmt.Fprintf(tw, "average rating\t%.1f\n", s.AverageRating)
	tw.Flush()
}

func printHistory(w io.Writer, items []models.SearchHistoryItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no recent searches")
		return
	}
	tw := newTable(w)
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%d results\t%s\n", item.Query, item.ResultsCount, item.Timestamp.Local().Format(time.DateTime))
	}
	tw.Flush()
}

func genreNames(genres []models.Genre) string {
	names := make([]string, len(genres))
	for i, g := range genres {
		names[i] = g.Name
	}
	return strings.Join(names, ", ")
}

func printRatings(w io.Writer, omdb *models.OMDBTitle) {
	if omdb == nil {
		return
	}
	if omdb.IMDbRating != "" && omdb.IMDbRating != "N/A" {
		fmt.Fprintf(w, "IMDb:      %s/10 (%s votes)\n", omdb.IMDbRating, omdb.IMDbVotes)
	}
	if rt, ok := omdb.Rating("Rotten Tomatoes"); ok {
		fmt.Fprintf(w, "Tomatoes:  %s\n", rt)
	}
	if omdb.Metascore != "" && omdb.Metascore != "N/A" {
		fmt.Fprintf(w, "Metascore: %s\n", omdb.Metascore)
	}
	if omdb.Awards != "" && omdb.Awards != "N/A" {
		fmt.Fprintf(w, "Awards:    %s\n", omdb.Awards)
	}
}

func printMovie(w io.Writer, d *models.MovieDetails, omdb *models.OMDBTitle) {
	fmt.Fprintf(w, "%s (%s)\n", d.DisplayTitle(), orDash(d.Year()))
	if d.Tagline != "" {
		fmt.Fprintf(w, "%q\n", d.Tagline)
	}
	fmt.Fprintf(w, "Genres:    %s\n", orDash(genreNames(d.Genres)))
	if d.Runtime > 0 {
		fmt.Fprintf(w, "Runtime:   %dm\n", d.Runtime)
	}
	fmt.Fprintf(w, "TMDB:      %.1f/10 (%d votes)\n", d.VoteAverage, d.VoteCount)
	printRatings(w, omdb)
	if d.Overview != "" {
		fmt.Fprintf(w, "\n%s\n", d.Overview)
	}
}

func printTV(w io.Writer, d *models.TVShowDetails, omdb *models.OMDBTitle) {
	fmt.Fprintf(w, "%s (%s)\n", d.DisplayTitle(), orDash(d.Year()))
	if d.Tagline != "" {
		fmt.Fprintf(w, "%q\n", d.Tagline)
	}
	fmt.Fprintf(w, "Genres:    %s\n", orDash(genreNames(d.Genres)))
	fmt.Fprintf(w, "Seasons:   %d (%d episodes)\n", d.NumberOfSeasons, d.NumberOfEpisodes)
	if rt := d.Runtime(); rt > 0 {
		fmt.Fprintf(w, "Runtime:   %dm\n", rt)
	}
	fmt.Fprintf(w, "TMDB:      %.1f/10 (%d votes)\n", d.VoteAverage, d.VoteCount)
	printRatings(w, omdb)
	if d.Overview != "" {
		fmt.Fprintf(w, "\n%s\n", d.Overview)
	}
}

func printGenres(w io.Writer, movie, tv *models.GenreList) {
	tw := newTable(w)
	fmt.Fprintln(tw, "TYPE\tID\tNAME\t")
	for _, g := range movie.Genres {
		fmt.Fprintf(tw, "movie\t%d\t%s\t\n", g.ID, g.Name)
	}
	for _, g := range tv.Genres {
		fmt.Fprintf(tw, "tv\t%d\t%s\t\n", g.ID, g.Name)
	}
	tw.Flush()
}

func printHealth(w io.Writer, h *apiclient.Health) {
	fmt.Fprintf(w, "status:  %s\nversion: %s\n", h.Status, h.Version)
	tw := newTable(w)
	for _, name := range slices.Sorted(maps.Keys(h.Services)) {
		fmt.Fprintf(tw, "  %s\t%s\n", name, h.Services[name])
	}
	tw.Flush()
}

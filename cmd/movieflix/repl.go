package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/liamwears/movieflix/internal/models"
	"github.com/liamwears/movieflix/internal/search"
)

const replHelp = `Type to search. Commands:
  :more                  load the next page
  :type movie|tv|all     filter by media type
  :year YYYY|all         filter by release year
  :sort FIELD [asc|desc] order by popularity, vote_average, release_date or title
  :save N                add or remove result N from the watchlist
  :retry                 repeat the failed request
  :history               show recent searches
  :clear                 reset the search
  :quit                  exit`

// repl is the interactive search view. Typed lines are debounced like keystrokes.
type repl struct {
	*cli
	ctrl *search.Controller

	mu      sync.Mutex
	loading bool
}

func (c *cli) interactive(ctx context.Context, in io.Reader) error {
	r := &repl{cli: c}
	r.ctrl = c.newController(ctx, r.render)
	defer r.ctrl.Close()

	fmt.Fprintln(c.out, replHelp)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if done := r.handle(ctx, scanner.Text()); done {
			return nil
		}
	}
}

// render prints the outcome of each request. Other transitions are silent.
func (r *repl) render(s search.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.IsLoading {
		if !r.loading {
			fmt.Fprintln(r.out, "searching...")
		}
		r.loading = true
		return
	}
	if !r.loading {
		return
	}
	r.loading = false
	printSearchState(r.out, s, r.saved(context.Background()))
}

func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		r.ctrl.SetQuery(line)
		return false
	}

	fields := strings.Fields(line)
	args := fields[1:]
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprintln(r.out, replHelp)
	case ":more":
		if !r.ctrl.State().CanLoadMore() {
			fmt.Fprintln(r.out, "no more results")
			return false
		}
		r.ctrl.LoadMore(ctx)
	case ":retry":
		r.ctrl.Retry(ctx)
	case ":clear":
		r.ctrl.Clear()
		fmt.Fprintln(r.out, "cleared")
	case ":history":
		r.historyList(ctx, 0)
	case ":type", ":year", ":sort":
		f, err := r.filters(fields[0], args)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return false
		}
		r.ctrl.SetFilters(ctx, f)
	case ":save":
		r.save(ctx, args)
	default:
		fmt.Fprintf(r.out, "unknown command %s (type :help)\n", fields[0])
	}
	return false
}

func (r *repl) filters(cmd string, args []string) (models.SearchFilters, error) {
	f := r.ctrl.State().Filters
	if len(args) == 0 {
		return f, fmt.Errorf("%s needs a value", cmd)
	}
	switch cmd {
	case ":type":
		f.Type = models.MediaType(args[0])
	case ":year":
		f.Year = args[0]
	case ":sort":
		f.SortBy = models.SortField(args[0])
		if len(args) > 1 {
			f.SortOrder = models.SortOrder(args[1])
		}
	}
	return f, f.Validate()
}

func (r *repl) save(ctx context.Context, args []string) {
	results := r.ctrl.State().Results
	if len(args) != 1 {
		fmt.Fprintln(r.out, "usage: :save N")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(results) {
		fmt.Fprintf(r.out, "no result %s\n", args[0])
		return
	}
	item := results[n-1]
	if r.stores.watchlist.Toggle(ctx, item) {
		fmt.Fprintf(r.out, "Added %s to watchlist\n", item.DisplayTitle())
	} else {
		fmt.Fprintf(r.out, "Removed %s from watchlist\n", item.DisplayTitle())
	}
}

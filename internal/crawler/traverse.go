package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HRemonen/ljgrawlr/internal/filter"
	"github.com/HRemonen/ljgrawlr/internal/parser"
	"github.com/HRemonen/ljgrawlr/internal/records"
)

// paginated walks the recent-entries feed, newest first, until a page comes
// back empty or MaxPages is reached.
func (c *Controller) paginated(ctx context.Context) {
	for page := 1; page <= c.MaxPages; page++ {
		if c.cancelled(ctx) {
			return
		}

		c.cursor = fmt.Sprintf("page %d", page)
		c.transition(ListPage)

		pageURL := c.pageURL(page)
		body, ok := c.list(ctx, pageURL)
		if !ok {
			return
		}

		entries, err := parser.ParseListing(bytes.NewReader(body), c.Blog, c.Window)
		if err != nil {
			c.summary.ListingFailures++
			c.emit(Event{Kind: EventListFailed, URL: pageURL, Err: err})
			return
		}

		c.emit(Event{Kind: EventListed, URL: pageURL, Count: len(entries)})
		if len(entries) == 0 {
			return
		}

		for _, e := range entries {
			if c.cancelled(ctx) {
				return
			}

			if e.Date != nil && c.Window.Classify(*e.Date) == filter.After {
				c.summary.Pruned++
				c.emit(Event{Kind: EventPruned, URL: e.URL, Reason: "listed after the window"})
				continue
			}

			c.visit(ctx, e.URL, Paginated)
			if c.state == Halted {
				return
			}
		}

		c.transition(Advance)
	}
}

// archival walks the monthly archive pages from the window start to the
// window end, oldest first.
func (c *Controller) archival(ctx context.Context) {
	months := archiveMonths(c.Window)

	for i, month := range months {
		if i > 0 && month.Year() != months[i-1].Year() {
			year := strconv.Itoa(months[i-1].Year())
			c.emit(Event{Kind: EventYearComplete, Cursor: year, Count: c.summary.Saved})

			if c.StopAfterSavedYear && c.summary.Saved > 0 {
				return
			}
		}

		if c.cancelled(ctx) {
			return
		}

		c.cursor = month.Format("2006-01")
		c.transition(ListPage)

		archiveURL := c.archiveURL(month)
		body, ok := c.list(ctx, archiveURL)
		if !ok {
			if c.state == Halted {
				return
			}
			c.transition(Advance)
			continue
		}

		links, err := parser.ParseArchive(bytes.NewReader(body), c.Blog)
		if err != nil {
			c.summary.ListingFailures++
			c.emit(Event{Kind: EventListFailed, URL: archiveURL, Err: err})
			c.transition(Advance)
			continue
		}

		c.emit(Event{Kind: EventListed, URL: archiveURL, Count: len(links)})

		for _, link := range links {
			if c.cancelled(ctx) {
				return
			}

			c.visit(ctx, link, Archival)
			if c.state == Halted {
				return
			}
		}

		c.transition(Advance)
	}
}

// list fetches a listing page. A page that cannot be fetched has no posts;
// a cancelled context halts the run.
func (c *Controller) list(ctx context.Context, u string) ([]byte, bool) {
	c.summary.Pages++

	res := c.Fetcher.Fetch(ctx, u)
	if res.OK() {
		return res.Body, true
	}

	if c.cancelled(ctx) {
		return nil, false
	}

	c.summary.ListingFailures++
	c.emit(Event{Kind: EventListFailed, URL: u, Err: res.Error})

	return nil, false
}

// visit fetches, parses, filters and stores one entry.
func (c *Controller) visit(ctx context.Context, u string, s Strategy) {
	if v, ok := c.Fetcher.(visitTracker); ok && v.Visited(u) {
		c.emit(Event{Kind: EventRevisit, URL: u})
		return
	}

	c.transition(DetailFetch)
	c.summary.Attempted++

	res := c.Fetcher.Fetch(ctx, u)
	if !res.OK() {
		c.summary.FetchFailures++
		c.skip(Event{Kind: EventFetchFailed, URL: u, Err: res.Error})
		return
	}

	rec, err := parser.ParseDetail(bytes.NewReader(res.Body), u, c.Window, parser.Options{BodyFormat: c.BodyFormat})

	var past *parser.PastWindow
	switch {
	case errors.As(err, &past):
		if c.halts(past.Position, s) {
			c.halt(u, past.Error())
			return
		}

		c.summary.OutOfWindow++
		c.skip(Event{Kind: EventOutOfWindow, URL: u, Reason: past.Error()})
		return
	case err != nil:
		c.summary.ParseFailures++
		c.skip(Event{Kind: EventParseFailed, URL: u, Err: err})
		return
	}

	if ok, reason := c.Tags.Accept(rec.Tags); !ok {
		c.summary.Filtered++
		c.skip(Event{Kind: EventFiltered, URL: u, Reason: string(reason)})
		return
	}

	c.transition(Accept)

	result := c.Writer.Write(rec)
	switch result.Outcome {
	case records.Saved:
		c.summary.Saved++
		c.emit(Event{Kind: EventSaved, URL: u, Path: result.Path})
	case records.AlreadyExists:
		c.summary.Existing++
		c.emit(Event{Kind: EventExisting, URL: u, Path: result.Path})
	default:
		c.summary.WriteFailures++
		c.emit(Event{Kind: EventWriteFailed, URL: u, Path: result.Path, Err: result.Err})
	}
}

func (c *Controller) skip(e Event) {
	c.transition(Skip)
	c.emit(e)
}

// halts reports whether an entry at pos ends the crawl. Directional mode only
// halts on entries the traversal has already moved past: older ones when
// paginating newest first, newer ones when walking archives oldest first.
func (c *Controller) halts(pos filter.Position, s Strategy) bool {
	if !pos.Halts() {
		return false
	}

	if c.HaltMode != HaltDirectional {
		return true
	}

	if s == Archival {
		return pos == filter.After
	}

	return pos == filter.Before
}

func (c *Controller) root() url.URL {
	u := *c.Blog
	u.Path = strings.TrimSuffix(u.Path, "/") + "/"
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""

	return u
}

// pageURL returns listing page n (1-based); page 1 is the journal root.
func (c *Controller) pageURL(n int) string {
	u := c.root()

	if n > 1 {
		q := url.Values{}
		q.Set("skip", strconv.Itoa((n-1)*c.PageSize))
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// archiveURL returns the archive page of month, <blog>/YYYY/MM/.
func (c *Controller) archiveURL(month time.Time) string {
	u := c.root()
	u.Path += month.Format("2006/01") + "/"

	return u.String()
}

// archiveMonths returns the first day of every month from the window start to
// the window end, both inclusive.
func archiveMonths(w filter.Window) []time.Time {
	first := time.Date(w.Start.Year(), w.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(w.End.Year(), w.End.Month(), 1, 0, 0, 0, 0, time.UTC)

	var months []time.Time
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}

	return months
}

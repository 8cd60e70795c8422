/*
Package crawler drives a crawl of one journal through a state machine.

A Controller picks an enumeration strategy from the crawl window, walks the
listing pages that strategy yields, fetches every candidate entry, filters it
by date and tags and hands accepted records to a Writer. Every step is reported
to an Observer; the controller itself never logs.

Example:

	c := crawler.NewController(harvester, writer, blog, window, tags,
		crawler.WithMaxPages(10),
		crawler.WithObserver(observer),
	)

	summary := c.Run(ctx)
	fmt.Println(summary.Saved, "saved")
*/
package crawler

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/HRemonen/ljgrawlr/internal/fetcher"
	"github.com/HRemonen/ljgrawlr/internal/filter"
	"github.com/HRemonen/ljgrawlr/internal/parser"
	"github.com/HRemonen/ljgrawlr/internal/post"
	"github.com/HRemonen/ljgrawlr/internal/records"
)

// Crawler is an interface that defines the behavior of a journal crawler.
type Crawler interface {
	Run(ctx context.Context) Summary
}

// Writer persists accepted records. *records.Writer implements it.
type Writer interface {
	Write(rec post.Record) records.Result
}

// visitTracker is implemented by fetchers that remember what they fetched.
type visitTracker interface {
	Visited(u string) bool
}

// Options is a function that sets an option on the Controller.
type Options func(*Controller)

// Controller is a single crawl run over one journal. It is not safe for
// concurrent use; each Run starts from a fresh Summary.
type Controller struct {
	// Fetcher retrieves listing and entry pages.
	Fetcher fetcher.Fetcher
	// Writer stores accepted records.
	Writer Writer
	// Blog is the journal root, e.g. https://alice.livejournal.com/.
	Blog *url.URL
	// Window is the accepted date interval.
	Window filter.Window
	// Tags accepts or rejects entries by their tags.
	Tags *filter.TagFilter
	// MaxPages bounds paginated traversal.
	MaxPages int
	// PageSize is the number of entries per paginated listing page.
	PageSize int
	// HaltMode decides which out-of-window entries end the crawl.
	HaltMode HaltMode
	// BodyFormat is passed on to the detail parser.
	BodyFormat parser.BodyFormat
	// StopAfterSavedYear ends archival traversal at the first year boundary
	// after which at least one record has been saved.
	StopAfterSavedYear bool

	observer   Observer
	now        func() time.Time
	countFiles func() (int, error)
	runID      string

	state   State
	cursor  string
	summary Summary
}

// NewController returns a Controller that crawls blog through f and stores
// what window and tags accept through w.
func NewController(f fetcher.Fetcher, w Writer, blog *url.URL, window filter.Window, tags *filter.TagFilter, options ...Options) *Controller {
	c := &Controller{
		Fetcher:            f,
		Writer:             w,
		Blog:               blog,
		Window:             window,
		Tags:               tags,
		MaxPages:           1,
		PageSize:           20,
		HaltMode:           HaltStrict,
		BodyFormat:         parser.BodyText,
		StopAfterSavedYear: true,
		observer:           discard{},
		now:                time.Now,
	}

	for _, option := range options {
		option(c)
	}

	if c.Tags == nil {
		c.Tags, _ = filter.NewTagFilter(nil, nil)
	}

	return c
}

// WithMaxPages sets the paginated traversal bound.
func WithMaxPages(n int) Options {
	return func(c *Controller) {
		if n > 0 {
			c.MaxPages = n
		}
	}
}

// WithPageSize sets the number of entries per paginated listing page.
func WithPageSize(n int) Options {
	return func(c *Controller) {
		if n > 0 {
			c.PageSize = n
		}
	}
}

// WithHaltMode sets the halt mode.
func WithHaltMode(m HaltMode) Options {
	return func(c *Controller) {
		c.HaltMode = m
	}
}

// WithBodyFormat sets how entry bodies are flattened.
func WithBodyFormat(f parser.BodyFormat) Options {
	return func(c *Controller) {
		c.BodyFormat = f
	}
}

// WithStopAfterSavedYear toggles the archival year heuristic.
func WithStopAfterSavedYear(stop bool) Options {
	return func(c *Controller) {
		c.StopAfterSavedYear = stop
	}
}

// WithObserver sets the sink for run events.
func WithObserver(o Observer) Options {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithNow sets the clock used for strategy selection and timestamps.
func WithNow(now func() time.Time) Options {
	return func(c *Controller) {
		c.now = now
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Options {
	return func(c *Controller) {
		c.runID = id
	}
}

// WithFileCounter sets the function that counts record files in the output
// directory. Without it no discrepancy check is made.
func WithFileCounter(count func() (int, error)) Options {
	return func(c *Controller) {
		c.countFiles = count
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Run crawls until the traversal is exhausted, an entry past the window halts
// it or ctx is cancelled, and returns what happened.
func (c *Controller) Run(ctx context.Context) Summary {
	runID := c.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	c.summary = Summary{
		RunID:       runID,
		Started:     c.now(),
		FilesBefore: -1,
		FilesOnDisk: -1,
	}
	c.cursor = ""
	c.state = SelectStrategy

	c.summary.FilesBefore = c.count()

	strategy := c.selectStrategy()
	c.summary.Strategy = strategy
	c.emit(Event{Kind: EventStrategy, Reason: strategy.String()})

	switch strategy {
	case Archival:
		c.archival(ctx)
	default:
		c.paginated(ctx)
	}

	c.finish()

	return c.summary
}

// selectStrategy walks archives when the window starts in an earlier year:
// the recent-entries feed is capped and does not reach that far back.
func (c *Controller) selectStrategy() Strategy {
	if c.Window.Start.Year() < c.now().Year() {
		return Archival
	}

	return Paginated
}

func (c *Controller) finish() {
	if !c.state.Terminal() {
		c.transition(Done)
	}

	c.summary.Final = c.state
	c.summary.Finished = c.now()

	if c.summary.FilesBefore >= 0 {
		c.summary.FilesOnDisk = c.count()

		want := c.summary.FilesBefore + c.summary.Saved
		if c.summary.FilesOnDisk >= 0 && c.summary.FilesOnDisk != want {
			c.summary.Discrepancy = true
			c.emit(Event{Kind: EventDiscrepancy, Count: c.summary.FilesOnDisk, Reason: "files on disk do not match records saved"})
		}
	}

	c.emit(Event{Kind: EventFinished, Count: c.summary.Saved, Reason: c.summary.HaltReason})
}

func (c *Controller) count() int {
	if c.countFiles == nil {
		return -1
	}

	n, err := c.countFiles()
	if err != nil {
		c.emit(Event{Kind: EventDiscrepancy, Err: err, Reason: "could not count record files"})
		return -1
	}

	return n
}

func (c *Controller) transition(s State) {
	c.state = s
	c.emit(Event{Kind: EventTransition})
}

func (c *Controller) emit(e Event) {
	e.RunID = c.summary.RunID
	e.State = c.state
	if e.Cursor == "" {
		e.Cursor = c.cursor
	}

	c.observer.OnEvent(e)
}

func (c *Controller) halt(u, reason string) {
	c.summary.Halted = true
	c.summary.HaltReason = reason
	c.transition(Halted)
	c.emit(Event{Kind: EventHalted, URL: u, Reason: reason})
}

// cancelled halts the run when ctx is done.
func (c *Controller) cancelled(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}

	c.halt("", "cancelled")

	return true
}

package crawler

import (
	"fmt"
	"time"
)

// State is a step of the crawl state machine.
//
//	SelectStrategy -> ListPage -> DetailFetch -> (Accept | Skip) -> Advance -> (ListPage | Done)
//
// Halted is absorbing and is reached from ListPage or DetailFetch when
// enumeration has run past the window or the run is cancelled.
type State int

const (
	SelectStrategy State = iota
	ListPage
	DetailFetch
	Accept
	Skip
	Advance
	Done
	Halted
)

var stateNames = [...]string{
	SelectStrategy: "select_strategy",
	ListPage:       "list_page",
	DetailFetch:    "detail_fetch",
	Accept:         "accept",
	Skip:           "skip",
	Advance:        "advance",
	Done:           "done",
	Halted:         "halted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Done || s == Halted
}

// Strategy is how listing pages are enumerated.
type Strategy int

const (
	// Paginated walks the recent-entries feed with a skip offset, newest first.
	Paginated Strategy = iota
	// Archival walks monthly archive pages from the window start, oldest first.
	Archival
)

func (s Strategy) String() string {
	switch s {
	case Paginated:
		return "paginated"
	case Archival:
		return "archival"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// HaltMode decides which past-window signals end the crawl.
type HaltMode int

const (
	// HaltStrict halts on any entry outside the window, before or after.
	HaltStrict HaltMode = iota
	// HaltDirectional halts only on entries behind the traversal direction
	// (before the window when paginating newest first, after it when walking
	// archives oldest first) and skips entries not yet reached.
	HaltDirectional
)

func (m HaltMode) String() string {
	switch m {
	case HaltStrict:
		return "strict"
	case HaltDirectional:
		return "directional"
	default:
		return fmt.Sprintf("HaltMode(%d)", int(m))
	}
}

// ParseHaltMode maps a configuration value to a HaltMode.
func ParseHaltMode(s string) (HaltMode, error) {
	switch s {
	case "", "strict":
		return HaltStrict, nil
	case "directional":
		return HaltDirectional, nil
	default:
		return HaltStrict, fmt.Errorf("unknown halt mode %q", s)
	}
}

// EventKind names what an Event reports.
type EventKind string

const (
	EventTransition   EventKind = "transition"
	EventStrategy     EventKind = "strategy"
	EventListed       EventKind = "listed"
	EventListFailed   EventKind = "list_failed"
	EventPruned       EventKind = "pruned"
	EventRevisit      EventKind = "revisit"
	EventFetchFailed  EventKind = "fetch_failed"
	EventParseFailed  EventKind = "parse_failed"
	EventOutOfWindow  EventKind = "out_of_window"
	EventFiltered     EventKind = "filtered"
	EventSaved        EventKind = "saved"
	EventExisting     EventKind = "existing"
	EventWriteFailed  EventKind = "write_failed"
	EventHalted       EventKind = "halted"
	EventFinished     EventKind = "finished"
	EventDiscrepancy  EventKind = "discrepancy"
	EventYearComplete EventKind = "year_complete"
)

// Event is one observable step of a run.
type Event struct {
	RunID string
	Kind  EventKind
	State State
	// URL is the listing or entry address the event concerns, if any.
	URL string
	// Cursor is the pagination position: "page 3" or "2020-01".
	Cursor string
	Count  int
	Path   string
	Reason string
	Err    error
}

// Observer receives every Event of a run, in order, on the crawling
// goroutine.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(e Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

type discard struct{}

func (discard) OnEvent(Event) {}

// Summary is the end-of-run report.
type Summary struct {
	RunID    string
	Strategy Strategy
	Final    State
	Started  time.Time
	Finished time.Time

	Pages           int
	ListingFailures int
	Pruned          int

	// Attempted counts detail fetches.
	Attempted     int
	Saved         int
	Existing      int
	Filtered      int
	OutOfWindow   int
	ParseFailures int
	FetchFailures int
	WriteFailures int

	// FilesBefore and FilesOnDisk are record files in the output directory
	// when the run started and ended; -1 when not counted.
	FilesBefore int
	FilesOnDisk int
	Discrepancy bool

	Halted     bool
	HaltReason string
}

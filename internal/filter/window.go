/*
Package filter decides whether an entry is wanted: by date against a crawl
window and by tags against the configured include and exclude sets.

Both predicates are pure and are applied by the crawl controller after a page
has been parsed.
*/
package filter

import (
	"errors"
	"fmt"
	"time"

	"github.com/HRemonen/ljgrawlr/internal/post"
)

// ErrInvertedWindow is returned when a window's start is after its end.
var ErrInvertedWindow = errors.New("window start is after window end")

// Position is where a date lies relative to a Window.
type Position int

const (
	// Before means date < start.
	Before Position = iota
	// Within means start <= date < end.
	Within
	// After means date >= end.
	After
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case Within:
		return "within"
	case After:
		return "after"
	default:
		return fmt.Sprintf("Position(%d)", int(p))
	}
}

// Halts reports whether the position ends enumeration.
func (p Position) Halts() bool {
	return p != Within
}

// Window is the accepted date interval: Start is inclusive, End exclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns a window over the calendar dates of start and end.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: post.Day(start), End: post.Day(end)}
	if w.Start.After(w.End) {
		return Window{}, fmt.Errorf("%w: %s > %s", ErrInvertedWindow,
			w.Start.Format(post.DateLayout), w.End.Format(post.DateLayout))
	}

	return w, nil
}

// Classify places the calendar date of d relative to the window.
func (w Window) Classify(d time.Time) Position {
	return Classify(d, w)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(post.DateLayout), w.End.Format(post.DateLayout))
}

// Classify places the calendar date of d relative to w. Exactly one of
// Before, Within and After holds for any date.
func Classify(d time.Time, w Window) Position {
	day := post.Day(d)

	switch {
	case day.Before(w.Start):
		return Before
	case day.Before(w.End):
		return Within
	default:
		return After
	}
}

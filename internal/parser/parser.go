/*
Package parser extracts entry links from journal listing pages and entry
fields from journal detail pages.

The platform has rendered several theme generations over the years, each with
its own element names for the same role. Every role (title, date, tags, body,
container) is looked up through an ordered Matchers list; the first matcher
that finds something wins and an unmatched role is simply absent.

Example:

	entries, err := parser.ParseListing(body, base, window)
	if err != nil {
		log.Fatal(err)
	}

	rec, err := parser.ParseDetail(page, entries[0].URL, window, parser.Options{})
	var past *parser.PastWindow
	if errors.As(err, &past) {
		// stop enumerating
	}
*/
package parser

import (
	"errors"
	"fmt"
	"time"

	"github.com/HRemonen/ljgrawlr/internal/filter"
	"github.com/HRemonen/ljgrawlr/internal/post"
)

var (
	// ErrNoTitle is returned for pages without an entry title, such as
	// redirects or placeholders.
	ErrNoTitle = errors.New("no entry title")
	// ErrNoDate is returned for pages without an entry date.
	ErrNoDate = errors.New("no entry date")
)

// Failure is returned when a detail page is not a usable entry.
type Failure struct {
	URL string
	Err error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("parse %s: %v", f.URL, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// PastWindow is returned when a detail page is dated outside the crawl
// window. It is a control signal, not a parse error: enumeration in the
// current direction has run past the window.
type PastWindow struct {
	URL      string
	Date     time.Time
	Position filter.Position
}

func (p *PastWindow) Error() string {
	return fmt.Sprintf("entry %s dated %s is %s the window", p.URL, p.Date.Format(post.DateLayout), p.Position)
}

// BodyFormat selects how the cleaned entry body is flattened.
type BodyFormat string

const (
	// BodyText flattens the body to plain-text paragraphs.
	BodyText BodyFormat = "text"
	// BodyMarkdown converts the cleaned body markup to markdown.
	BodyMarkdown BodyFormat = "markdown"
)

// Options tunes ParseDetail.
type Options struct {
	BodyFormat BodyFormat
}

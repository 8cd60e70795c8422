package parser

import (
	"errors"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/HRemonen/ljgrawlr/internal/filter"
	"github.com/HRemonen/ljgrawlr/internal/post"
)

// ParseDetail extracts a single entry from its detail page.
//
// The error is a *Failure when the page is not a usable entry (no title, no
// readable date) and a *PastWindow when the entry is dated outside w. Tag and
// window acceptance beyond that signal are left to the caller.
func ParseDetail(body io.Reader, pageURL string, w filter.Window, opts Options) (post.Record, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return post.Record{}, &Failure{URL: pageURL, Err: err}
	}

	_, title, ok := titles.FirstText(doc.Selection)
	if !ok {
		return post.Record{}, &Failure{URL: pageURL, Err: ErrNoTitle}
	}

	dateEl, _, ok := detailDates.First(doc.Selection)
	if !ok {
		return post.Record{}, &Failure{URL: pageURL, Err: ErrNoDate}
	}

	date, err := elementDate(dateEl.First())
	if err != nil {
		return post.Record{}, &Failure{URL: pageURL, Err: errors.Join(ErrNoDate, err)}
	}

	if pos := filter.Classify(date, w); pos.Halts() {
		return post.Record{}, &PastWindow{URL: pageURL, Date: date, Position: pos}
	}

	text, err := extractBody(doc, opts.BodyFormat)
	if err != nil {
		return post.Record{}, &Failure{URL: pageURL, Err: err}
	}

	canonical, err := Canonical(pageURL)
	if err != nil {
		return post.Record{}, &Failure{URL: pageURL, Err: err}
	}

	return post.Record{
		Title: title,
		Date:  date,
		URL:   canonical,
		Tags:  extractTags(doc),
		Body:  text,
	}, nil
}

func extractTags(doc *goquery.Document) post.Tags {
	container, _, ok := tagContainers.First(doc.Selection)
	if !ok {
		return post.NoTags()
	}

	labels := container.First().Find("a").Map(func(_ int, a *goquery.Selection) string {
		return a.Text()
	})

	return post.NewTags(labels...)
}

package parser

import (
	"io"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/HRemonen/ljgrawlr/internal/filter"
)

// ListingEntry is a candidate entry found on a listing page, with the date
// shown next to it when the theme renders one.
type ListingEntry struct {
	URL  string
	Date *time.Time
}

// ParseListing extracts candidate entry permalinks from a paginated listing
// page, in page order and without duplicates.
//
// Listings run newest first. As soon as an entry dated before the window start
// is seen, ParseListing returns an empty slice: the feed has run past the
// window and the caller should stop paginating. Entries whose date cannot be
// read are kept without a date.
func ParseListing(body io.Reader, base *url.URL, w filter.Window) ([]ListingEntry, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	entries := []ListingEntry{}

	containers, _, ok := listingContainers.First(doc.Selection)
	if !ok {
		return entries, nil
	}

	seen := make(map[string]bool)
	pastStart := false

	containers.EachWithBreak(func(_ int, c *goquery.Selection) bool {
		var date *time.Time
		if el, _, ok := entryDates.First(c); ok {
			if d, err := elementDate(el.First()); err == nil {
				if filter.Classify(d, w) == filter.Before {
					pastStart = true
					return false
				}
				date = &d
			}
		}

		link, ok := firstCandidate(c, base)
		if !ok || seen[link] {
			return true
		}

		seen[link] = true
		entries = append(entries, ListingEntry{URL: link, Date: date})

		return true
	})

	if pastStart {
		return []ListingEntry{}, nil
	}

	return entries, nil
}

// firstCandidate returns the first entry permalink inside a listing
// container, trying the title-link matchers in order.
func firstCandidate(c *goquery.Selection, base *url.URL) (string, bool) {
	for _, m := range listingLinks {
		var link string

		m.Find(c).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if u, ok := Candidate(href, base); ok {
				link = u
				return false
			}
			return true
		})

		if link != "" {
			return link, true
		}
	}

	return "", false
}

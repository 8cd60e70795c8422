package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Matcher finds the element(s) playing one semantic role in one theme
// generation of the journal platform.
type Matcher struct {
	Name string
	Find func(s *goquery.Selection) *goquery.Selection
}

// Selector returns a Matcher backed by a goquery selector.
func Selector(sel string) Matcher {
	return Matcher{
		Name: sel,
		Find: func(s *goquery.Selection) *goquery.Selection {
			return s.Find(sel)
		},
	}
}

// Matchers is an ordered strategy list for one role. Earlier entries are
// preferred; the first that yields a non-empty match wins.
type Matchers []Matcher

// First returns the match of the first matcher that finds anything, along with
// the matcher's name. ok is false when the role is absent.
func (ms Matchers) First(s *goquery.Selection) (match *goquery.Selection, name string, ok bool) {
	for _, m := range ms {
		found := m.Find(s)
		if found.Length() > 0 {
			return found, m.Name, true
		}
	}

	return nil, "", false
}

// FirstText is like First but only accepts a match whose first element has
// non-blank text. The text is returned with whitespace collapsed.
func (ms Matchers) FirstText(s *goquery.Selection) (el *goquery.Selection, text string, ok bool) {
	for _, m := range ms {
		found := m.Find(s).First()
		if found.Length() == 0 {
			continue
		}

		text := collapse(found.Text())
		if text != "" {
			return found, text, true
		}
	}

	return nil, "", false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role matcher lists, one per semantic role, most specific first.
var (
	listingContainers = Matchers{
		Selector("article.entryunit"),
		Selector("div.entryunit"),
		Selector("div.b-lenta-item"),
		Selector("div.entry"),
		Selector("article.entry"),
		Selector("div.b-singlepost"),
		Selector("div[class*='entry'], div[class*='b-singlepost']"),
	}

	listingLinks = Matchers{
		Selector(".entryunit__title a[href]"),
		Selector(".entry-title a[href]"),
		Selector(".b-singlepost-title a[href]"),
		Selector(".subject a[href]"),
		Selector("h2 a[href], h3 a[href]"),
		Selector("a[href]"),
	}

	entryDates = Matchers{
		Selector("time.b-singlepost-author-date"),
		Selector("time.entry-date"),
		Selector("time.b-singlepost-date"),
		Selector("span.b-singlepost-date"),
		Selector("time.b-singlepost-date-text"),
		Selector(".entryunit__date time, time.entryunit__date"),
	}

	detailDates = append(append(Matchers{}, entryDates...),
		Selector("div.date"),
		Selector("time[datetime]"),
	)

	titles = Matchers{
		Selector("h1.entry-title"),
		Selector("h1.b-singlepost-title"),
		Selector("h1.b-singlepost-title-link"),
		Selector("h1.b-singlepost-title-text"),
		Selector("h1.aentry-post__title"),
		Selector("div.subject"),
	}

	tagContainers = Matchers{
		Selector("div.b-singlepost-tags"),
		Selector("div.entry-tags"),
		Selector("ul.b-singlepost-tags-list"),
		Selector("div.ljtags"),
	}

	contents = Matchers{
		Selector("article.b-singlepost-body.entry-content.e-content"),
		Selector("article.b-singlepost-body.entry-content"),
		Selector("div.entry-content"),
		Selector("div.b-singlepost-body"),
		Selector("div.b-singlepost-bodytext"),
		Selector("div.b-singlepost-body-text"),
		Selector("div.b-singlepost-body-text-wrapper"),
		Selector("div.entry_text"),
		Selector("div.aentry-post__text"),
	}
)

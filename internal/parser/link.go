package parser

import (
	"errors"
	"io"
	"net/url"

	"golang.org/x/net/html"
)

func getHref(t html.Token) (ok bool, href string) {
	for _, a := range t.Attr {
		if a.Key == "href" {
			return true, a.Val
		}
	}

	return false, ""
}

// ParseArchive takes a monthly archive page and returns the permalinks of the
// journal's entries linked from it, in first-seen order. Archive pages are
// read in full: there is no date short-circuit at month granularity.
func ParseArchive(body io.Reader, base *url.URL) ([]string, error) {
	links := []string{}
	seen := make(map[string]bool)
	tokenizer := html.NewTokenizer(body)

	for {
		tt := tokenizer.Next()

		switch {
		case tt == html.ErrorToken: // End of the document
			if err := tokenizer.Err(); err != nil && !errors.Is(err, io.EOF) {
				return links, err
			}
			return links, nil
		case tt == html.StartTagToken:
			t := tokenizer.Token()

			isAnchor := t.Data == "a"
			if !isAnchor {
				continue
			}

			ok, href := getHref(t)
			if !ok {
				continue
			}

			link, ok := Candidate(href, base)
			if !ok || seen[link] {
				continue
			}

			seen[link] = true
			links = append(links, link)
		}
	}
}

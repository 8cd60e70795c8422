package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// postPath matches the permalink of a journal entry: digits plus ".html".
var postPath = regexp.MustCompile(`/\d+\.html$`)

const normalizeFlags = purell.FlagsSafe | purell.FlagRemoveFragment

// Canonical returns the normalised form of an absolute URL with its fragment
// and query removed. Entries linked with "?thread=" or "#comments" collapse
// onto the same permalink.
func Canonical(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	u.RawQuery = ""
	u.ForceQuery = false

	return purell.NormalizeURL(u, normalizeFlags), nil
}

// Candidate reports whether raw is the permalink of an entry of the journal at
// base, and returns its canonical form. A candidate is absolute http(s), on
// the journal's host (and under its path for path-style journals), not a
// profile page, and ends in digits plus ".html".
func Candidate(raw string, base *url.URL) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() {
		return "", false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	if !strings.EqualFold(u.Hostname(), base.Hostname()) {
		return "", false
	}

	if prefix := strings.TrimSuffix(base.Path, "/"); prefix != "" && !strings.HasPrefix(u.Path, prefix+"/") {
		return "", false
	}

	if strings.Contains(u.Path, "/profile") || !postPath.MatchString(u.Path) {
		return "", false
	}

	u.RawQuery = ""
	u.ForceQuery = false

	return purell.NormalizeURL(u, normalizeFlags), true
}

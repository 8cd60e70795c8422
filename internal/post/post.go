/*
Package post holds the record extracted from a single journal entry.

A Record is built once by the parser from one detail page and is not modified
afterwards; the records package consumes it to write the on-disk file.
*/
package post

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar date form used in filenames and front matter.
const DateLayout = "2006-01-02"

// Record is one extracted journal entry.
type Record struct {
	Title string
	// Date is the calendar date of the entry at midnight UTC.
	Date time.Time
	// URL is the canonical absolute address of the entry, fragment removed.
	URL  string
	Tags Tags
	// Body is plain text (or markdown), paragraphs separated by a blank line.
	Body string
}

// Day truncates t to midnight UTC of its calendar date, keeping the wall-clock
// date of t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Tags is a set of labels in first-seen order. A nil Tags means the tags are
// unknown; a non-nil empty Tags means the entry has no tags.
type Tags []string

// NoTags returns the explicit empty tag set.
func NoTags() Tags {
	return Tags{}
}

// NewTags builds a tag set from raw labels: labels are trimmed, empty ones
// dropped and duplicates removed. The result is never nil.
func NewTags(labels ...string) Tags {
	tags := make(Tags, 0, len(labels))
	seen := make(map[string]bool, len(labels))

	for _, label := range labels {
		label = strings.Join(strings.Fields(label), " ")
		if label == "" || seen[label] {
			continue
		}

		seen[label] = true
		tags = append(tags, label)
	}

	return tags
}

// Contains reports whether label is in the set.
func (t Tags) Contains(label string) bool {
	for _, tag := range t {
		if tag == label {
			return true
		}
	}

	return false
}

package records

import (
	"sort"

	"github.com/HRemonen/ljgrawlr/internal/post"
)

// Entry is one record with the file it was read from.
type Entry struct {
	File   string
	Record post.Record
}

// Year groups the entries of one calendar year in chronological order.
type Year struct {
	Year    int
	Entries []Entry
}

// Tag groups the entries carrying one tag in chronological order.
type Tag struct {
	Name    string
	Entries []Entry
}

// Index is the navigation structure a document assembler builds from a
// record directory: entries by year and by tag.
type Index struct {
	Years    []Year
	Tags     []Tag
	Untagged int
}

// BuildIndex groups listed records by year (ascending) and by tag
// (alphabetical).
func BuildIndex(list *ListResult) Index {
	entries := make([]Entry, 0, len(list.Records))
	for i, rec := range list.Records {
		entries = append(entries, Entry{File: list.Files[i], Record: rec})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Record.Date.Equal(b.Record.Date) {
			return a.Record.Date.Before(b.Record.Date)
		}
		return a.File < b.File
	})

	var idx Index
	years := make(map[int]int)
	tags := make(map[string][]Entry)

	for _, e := range entries {
		y := e.Record.Date.Year()

		i, ok := years[y]
		if !ok {
			i = len(idx.Years)
			years[y] = i
			idx.Years = append(idx.Years, Year{Year: y})
		}
		idx.Years[i].Entries = append(idx.Years[i].Entries, e)

		if len(e.Record.Tags) == 0 {
			idx.Untagged++
		}

		for _, tag := range e.Record.Tags {
			tags[tag] = append(tags[tag], e)
		}
	}

	for name, tagged := range tags {
		idx.Tags = append(idx.Tags, Tag{Name: name, Entries: tagged})
	}

	sort.Slice(idx.Tags, func(i, j int) bool {
		return idx.Tags[i].Name < idx.Tags[j].Name
	})

	return idx
}

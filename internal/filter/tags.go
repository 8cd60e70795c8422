package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/HRemonen/ljgrawlr/internal/post"
)

// ErrConflictingTags is returned when a tag is both included and excluded.
var ErrConflictingTags = errors.New("tags present in both included and excluded sets")

// Reason explains a tag filter decision.
type Reason string

const (
	ReasonAccepted    Reason = "accepted"
	ReasonExcluded    Reason = "has excluded tag"
	ReasonNotIncluded Reason = "has none of the included tags"
	ReasonUntagged    Reason = "has no tags but included tags are required"
)

// TagFilter accepts or rejects entries by their tags.
type TagFilter struct {
	included map[string]bool
	excluded map[string]bool
}

// NewTagFilter builds a filter. The sets must be disjoint.
func NewTagFilter(included, excluded []string) (*TagFilter, error) {
	f := &TagFilter{
		included: toSet(included),
		excluded: toSet(excluded),
	}

	var conflicts []string
	for tag := range f.included {
		if f.excluded[tag] {
			conflicts = append(conflicts, tag)
		}
	}

	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, fmt.Errorf("%w: %s", ErrConflictingTags, strings.Join(conflicts, ", "))
	}

	return f, nil
}

// Accept reports whether an entry with the given tags is wanted. Any excluded
// tag rejects; otherwise, when included tags are configured, at least one of
// them must be present.
func (f *TagFilter) Accept(tags post.Tags) (bool, Reason) {
	for _, tag := range tags {
		if f.excluded[tag] {
			return false, ReasonExcluded
		}
	}

	if len(f.included) == 0 {
		return true, ReasonAccepted
	}

	if len(tags) == 0 {
		return false, ReasonUntagged
	}

	for _, tag := range tags {
		if f.included[tag] {
			return true, ReasonAccepted
		}
	}

	return false, ReasonNotIncluded
}

func toSet(labels []string) map[string]bool {
	set := make(map[string]bool, len(labels))
	for _, label := range post.NewTags(labels...) {
		set[label] = true
	}

	return set
}

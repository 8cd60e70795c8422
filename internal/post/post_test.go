package post

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTags_TrimsAndDeduplicates(t *testing.T) {
	tags := NewTags(" travel ", "", "food", "travel", "  long\n label ")

	assert.Equal(t, Tags{"travel", "food", "long label"}, tags)
}

func TestNewTags_EmptyIsKnown(t *testing.T) {
	tags := NewTags()

	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestTags_UnknownIsNil(t *testing.T) {
	var tags Tags

	assert.Nil(t, tags)
	assert.NotNil(t, NoTags())
}

func TestTags_Contains(t *testing.T) {
	tags := NewTags("travel", "food")

	assert.True(t, tags.Contains("food"))
	assert.False(t, tags.Contains("Food"))
}

func TestDay_DropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	ts := time.Date(2020, 1, 15, 23, 45, 0, 0, loc)

	assert.Equal(t, time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC), Day(ts))
}

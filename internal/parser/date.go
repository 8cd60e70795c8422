package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/HRemonen/ljgrawlr/internal/post"
)

// ErrUnparseableDate is returned when no known date form matches.
var ErrUnparseableDate = errors.New("unrecognised date")

var (
	isoDateRegex    = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	dottedDateRegex = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	monthDayRegex   = regexp.MustCompile(`(\p{L}+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)
	dayMonthRegex   = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)?\s+(\p{L}+)\.?,?\s+(\d{4})`)
)

// Three-letter prefixes. Russian genitive forms ("января", "мая") share the
// prefix of the nominative.
var monthPrefixes = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,

	"янв": time.January, "фев": time.February, "мар": time.March,
	"апр": time.April, "мая": time.May, "май": time.May,
	"июн": time.June, "июл": time.July, "авг": time.August,
	"сен": time.September, "окт": time.October, "ноя": time.November,
	"дек": time.December,
}

func parseMonth(word string) (time.Month, bool) {
	runes := []rune(strings.ToLower(word))
	if len(runes) < 3 {
		return 0, false
	}

	m, ok := monthPrefixes[string(runes[:3])]
	return m, ok
}

// ParseDate reads a calendar date from the free-form text the platform
// renders next to an entry. Themes differ: ISO timestamps, "January 15th,
// 2020 at 10:30 am", "2020-01-15 @ 22:10", "15 января 2020, 10:30" and
// "15.01.2020" are all accepted. The result is midnight UTC of that date.
func ParseDate(text string) (time.Time, error) {
	cleaned := strings.ReplaceAll(text, "@", " ")
	cleaned = collapse(cleaned)

	if m := isoDateRegex.FindStringSubmatch(cleaned); m != nil {
		if t, ok := makeDate(m[1], m[2], m[3]); ok {
			return t, nil
		}
	}

	if m := dottedDateRegex.FindStringSubmatch(cleaned); m != nil {
		if t, ok := makeDate(m[3], m[2], m[1]); ok {
			return t, nil
		}
	}

	for _, m := range monthDayRegex.FindAllStringSubmatch(cleaned, -1) {
		if month, ok := parseMonth(m[1]); ok {
			if t, ok := makeDate(m[3], strconv.Itoa(int(month)), m[2]); ok {
				return t, nil
			}
		}
	}

	for _, m := range dayMonthRegex.FindAllStringSubmatch(cleaned, -1) {
		if month, ok := parseMonth(m[2]); ok {
			if t, ok := makeDate(m[3], strconv.Itoa(int(month)), m[1]); ok {
				return t, nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, text)
}

func makeDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}

	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}

	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return time.Time{}, false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		// time.Date normalised an impossible day such as February 30.
		return time.Time{}, false
	}

	return t, true
}

// elementDate prefers a machine-readable datetime attribute over the visible
// text of a date element.
func elementDate(el *goquery.Selection) (time.Time, error) {
	if attr, ok := el.Attr("datetime"); ok {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(attr)); err == nil {
			return post.Day(t), nil
		}

		if t, err := ParseDate(attr); err == nil {
			return t, nil
		}
	}

	return ParseDate(el.Text())
}

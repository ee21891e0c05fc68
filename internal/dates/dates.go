// Package dates provides canonical date/datetime parsing, relative date
// buckets and display formatting.
//
// It is shared by:
// - filter value validation
// - predicate compilation (date comparisons and relative buckets)
// - cell decoding for date/datetime columns
// - CSV rendering
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// IsValidDate checks if a string is a valid YYYY-MM-DD date.
func IsValidDate(s string) bool {
	if !dateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !IsValidDate(s) {
		return time.Time{}, fmt.Errorf("invalid date: %q", s)
	}
	return time.Parse("2006-01-02", s)
}

// datetimeFormats are tried in order by ParseDatetime. RFC3339 also accepts
// fractional seconds, so ISO strings produced by browsers parse here.
var datetimeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// IsValidDatetime checks if a string is a valid datetime.
func IsValidDatetime(s string) bool {
	_, err := ParseDatetime(s)
	return err == nil
}

// ParseDatetime parses a datetime in one of the accepted formats.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("invalid datetime: empty")
	}

	for _, format := range datetimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime: %q", s)
}

// Parse accepts either a date or a datetime. Values without an explicit
// offset are interpreted in UTC.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := ParseDate(s); err == nil {
		return t, nil
	}
	if t, err := ParseDatetime(s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date or datetime: %q", s)
}

// IsValid reports whether s parses as a date or datetime.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// DefaultDisplayLayout renders dates the way a US-locale browser does by default.
const DefaultDisplayLayout = "1/2/2006"

// FormatDisplay formats t with layout in loc. An empty layout falls back to
// DefaultDisplayLayout and a nil location to UTC.
func FormatDisplay(t time.Time, layout string, loc *time.Location) string {
	if layout == "" {
		layout = DefaultDisplayLayout
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(layout)
}

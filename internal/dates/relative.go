package dates

import (
	"strings"
	"time"
)

// Bucket is a relative date keyword that resolves to a [Start, End] range.
type Bucket string

const (
	BucketToday     Bucket = "today"
	BucketYesterday Bucket = "yesterday"
	BucketThisWeek  Bucket = "this_week"
	BucketThisMonth Bucket = "this_month"
	BucketThisYear  Bucket = "this_year"
)

var bucketKeywords = map[string]Bucket{
	"today":      BucketToday,
	"yesterday":  BucketYesterday,
	"this_week":  BucketThisWeek,
	"this_month": BucketThisMonth,
	"this_year":  BucketThisYear,
}

// Range is an inclusive time range. End is the last representable instant
// of the bucket.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the inclusive range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// NormalizeBucket normalizes and validates a relative date keyword.
// Returns the canonical bucket and true when valid.
func NormalizeBucket(value string) (Bucket, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	b, ok := bucketKeywords[normalized]
	return b, ok
}

// IsBucket reports whether value is a supported relative date keyword.
func IsBucket(value string) bool {
	_, ok := NormalizeBucket(value)
	return ok
}

// ResolveBucket computes the range for a relative date keyword from "now".
// Bucket boundaries follow now's location. weekStart selects the first day
// of the week for this_week.
func ResolveBucket(value string, now time.Time, weekStart time.Weekday) (Range, bool) {
	bucket, ok := NormalizeBucket(value)
	if !ok {
		return Range{}, false
	}

	today := startOfDay(now)
	switch bucket {
	case BucketToday:
		return span(today, today.AddDate(0, 0, 1)), true
	case BucketYesterday:
		yesterday := today.AddDate(0, 0, -1)
		return span(yesterday, today), true
	case BucketThisWeek:
		offset := (int(today.Weekday()) - int(weekStart) + 7) % 7
		start := today.AddDate(0, 0, -offset)
		return span(start, start.AddDate(0, 0, 7)), true
	case BucketThisMonth:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return span(start, start.AddDate(0, 1, 0)), true
	case BucketThisYear:
		start := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		return span(start, start.AddDate(1, 0, 0)), true
	default:
		return Range{}, false
	}
}

// ParseWeekday parses a weekday name ("monday", "sun", ...). Empty input
// yields Monday.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Monday, true
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return time.Monday, false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// span builds the inclusive range [start, next).
func span(start, next time.Time) Range {
	return Range{Start: start, End: next.Add(-time.Nanosecond)}
}

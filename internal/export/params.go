package export

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aidanlsb/tabula/internal/filter"
)

const (
	// FormatCSV is the only supported export format.
	FormatCSV = "csv"

	DefaultLimit = 10000
	MaxLimit     = 100000
)

// Params are the decoded export query parameters.
type Params struct {
	Format       string
	Limit        int
	GlobalSearch string
	Filters      []filter.Condition

	// Ignored lists filter elements that could not be decoded.
	Ignored []filter.Ignored
}

// ParseParams decodes format, limit, globalSearch and filters. Only an
// unsupported format is an error; a bad limit falls back to defaultLimit
// and bad filters are dropped into Params.Ignored.
func ParseParams(q url.Values, defaultLimit int) (Params, error) {
	format := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV {
		return Params{}, &ParameterError{
			Param:   "format",
			Message: fmt.Sprintf("unsupported export format %q", q.Get("format")),
			Details: map[string]any{"supported": []string{FormatCSV}},
		}
	}

	conds, ignored := filter.ParseFilters(decodeFilters(q.Get("filters")))

	return Params{
		Format:       format,
		Limit:        ClampLimit(q.Get("limit"), defaultLimit),
		GlobalSearch: strings.TrimSpace(q.Get("globalSearch")),
		Filters:      conds,
		Ignored:      ignored,
	}, nil
}

// decodeFilters undoes a second round of URL encoding, which some clients
// apply on top of the query-string encoding.
func decodeFilters(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "%") {
		return raw
	}
	if decoded, err := url.QueryUnescape(trimmed); err == nil {
		return decoded
	}
	return raw
}

// ClampLimit parses raw and clamps it to [1, MaxLimit]. Missing or
// non-integer input yields defaultLimit (itself clamped; non-positive means
// DefaultLimit).
func ClampLimit(raw string, defaultLimit int) int {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	defaultLimit = clamp(defaultLimit)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultLimit
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(raw, "-") {
				return 1
			}
			return MaxLimit
		}
		return defaultLimit
	}
	return clamp(n)
}

func clamp(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Filename is the attachment name for a table export on the given day.
func Filename(tableID int64, now time.Time) string {
	return fmt.Sprintf("table_%d_export_%s.csv", tableID, now.Format("2006-01-02"))
}

package export

import (
	"net/url"
	"testing"
	"time"

	"github.com/aidanlsb/tabula/internal/filter"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		raw  string
		def  int
		want int
	}{
		{"0", 0, 1},
		{"-5", 0, 1},
		{"999999999", 0, 100000},
		{"99999999999999999999999", 0, 100000},
		{"-99999999999999999999999", 0, 1},
		{"", 0, 10000},
		{"   ", 0, 10000},
		{"abc", 0, 10000},
		{"2.5", 0, 10000},
		{" 250 ", 0, 250},
		{"", 500, 500},
		{"", 1 << 30, 100000},
		{"100000", 0, 100000},
		{"1", 0, 1},
	}

	for _, tt := range tests {
		if got := ClampLimit(tt.raw, tt.def); got != tt.want {
			t.Errorf("ClampLimit(%q, %d) = %d, want %d", tt.raw, tt.def, got, tt.want)
		}
	}
}

func TestParseParams(t *testing.T) {
	q := url.Values{}
	q.Set("format", "CSV")
	q.Set("limit", "50")
	q.Set("globalSearch", "  acme ")
	q.Set("filters", `[{"columnId":1,"columnType":"number","operator":"between","value":"18","secondValue":"30"}]`)

	p, err := ParseParams(q, 0)
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if p.Format != FormatCSV || p.Limit != 50 || p.GlobalSearch != "acme" {
		t.Fatalf("unexpected params %+v", p)
	}
	if len(p.Filters) != 1 || p.Filters[0].Operator != filter.OpBetween {
		t.Fatalf("filters = %+v", p.Filters)
	}
}

func TestParseParamsDefaults(t *testing.T) {
	p, err := ParseParams(url.Values{}, 0)
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if p.Format != FormatCSV || p.Limit != DefaultLimit || p.GlobalSearch != "" || len(p.Filters) != 0 {
		t.Fatalf("unexpected defaults %+v", p)
	}
}

func TestParseParamsRejectsFormat(t *testing.T) {
	_, err := ParseParams(url.Values{"format": {"xlsx"}}, 0)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsParameterError(err) {
		t.Fatalf("expected ParameterError, got %T", err)
	}
	if pe := err.(*ParameterError); pe.Param != "format" {
		t.Fatalf("param = %q", pe.Param)
	}
}

func TestParseParamsMalformedFilters(t *testing.T) {
	p, err := ParseParams(url.Values{"filters": {"{not-json"}}, 0)
	if err != nil {
		t.Fatalf("malformed filters must not fail the request: %v", err)
	}
	if len(p.Filters) != 0 {
		t.Fatalf("expected no filters, got %v", p.Filters)
	}
	if len(p.Ignored) != 1 || p.Ignored[0].Reason != filter.ReasonMalformedJSON {
		t.Fatalf("ignored = %+v", p.Ignored)
	}
}

func TestParseParamsDoubleEncodedFilters(t *testing.T) {
	inner := `[{"columnId":3,"columnType":"string","operator":"contains","value":"a&b"}]`
	p, err := ParseParams(url.Values{"filters": {url.QueryEscape(inner)}}, 0)
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if len(p.Filters) != 1 || p.Filters[0].ValueString() != "a&b" {
		t.Fatalf("filters = %+v", p.Filters)
	}
}

func TestFilename(t *testing.T) {
	got := Filename(42, time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC))
	if got != "table_42_export_2025-03-09.csv" {
		t.Fatalf("Filename = %q", got)
	}
}

package model

import (
	"testing"
	"time"
)

func TestColumnTypeKind(t *testing.T) {
	tests := []struct {
		typ  ColumnType
		want ColumnKind
	}{
		{TypeString, KindTextual},
		{TypeText, KindTextual},
		{TypeEmail, KindTextual},
		{TypeURL, KindTextual},
		{" Number ", KindNumber},
		{TypeBoolean, KindBoolean},
		{TypeDate, KindDate},
		{TypeDatetime, KindDate},
		{TypeReference, KindReference},
		{TypeCustomArray, KindCustomArray},
		{"customarray", KindCustomArray},
		{"rating", KindOther},
		{"", KindOther},
	}
	for _, tt := range tests {
		if got := tt.typ.Kind(); got != tt.want {
			t.Errorf("%q.Kind() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestSortColumns(t *testing.T) {
	cols := []Column{
		{ID: 3, Name: "c", Order: 2},
		{ID: 2, Name: "b", Order: 1},
		{ID: 1, Name: "a", Order: 1},
	}
	sorted := SortColumns(cols)

	want := []string{"a", "b", "c"}
	for i, c := range sorted {
		if c.Name != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, c.Name, want[i])
		}
	}
	if cols[0].Name != "c" {
		t.Fatalf("SortColumns must not reorder its input")
	}
}

func TestDecodeCell(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		v := DecodeCell(TypeString, `"Acme"`)
		if v.Kind != ValueText || v.Text != "Acme" {
			t.Fatalf("got %+v", v)
		}
		v = DecodeCell(TypeText, `42`)
		if v.Kind != ValueText || v.Text != "42" {
			t.Fatalf("numbers in text columns decode as text, got %+v", v)
		}
	})

	t.Run("bare text that is not json", func(t *testing.T) {
		v := DecodeCell(TypeString, `hello world`)
		if v.Kind != ValueText || v.Text != "hello world" {
			t.Fatalf("got %+v", v)
		}
	})

	t.Run("number", func(t *testing.T) {
		if v := DecodeCell(TypeNumber, `25`); v.Kind != ValueNumber || v.Number != 25 {
			t.Fatalf("got %+v", v)
		}
		if v := DecodeCell(TypeNumber, `"2.5"`); v.Kind != ValueNumber || v.Number != 2.5 {
			t.Fatalf("numeric strings decode as numbers, got %+v", v)
		}
		if v := DecodeCell(TypeNumber, `"n/a"`); v.Kind != ValueText || v.Text != "n/a" {
			t.Fatalf("non-numeric strings degrade to text, got %+v", v)
		}
	})

	t.Run("boolean", func(t *testing.T) {
		cases := map[string]bool{`true`: true, `false`: false, `"TRUE"`: true, `"no"`: false, `1`: true, `0`: false}
		for raw, want := range cases {
			v := DecodeCell(TypeBoolean, raw)
			if v.Kind != ValueBool || v.Bool != want {
				t.Errorf("DecodeCell(boolean, %s) = %+v, want %v", raw, v, want)
			}
		}
	})

	t.Run("date", func(t *testing.T) {
		v := DecodeCell(TypeDate, `"2025-03-07"`)
		if v.Kind != ValueDateTime || !v.HasTime || !v.Time.Equal(time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("got %+v", v)
		}
		v = DecodeCell(TypeDatetime, `"soon"`)
		if v.Kind != ValueDateTime || v.HasTime || v.Text != "soon" {
			t.Fatalf("unparseable dates keep raw text, got %+v", v)
		}
	})

	t.Run("lists", func(t *testing.T) {
		v := DecodeCell(TypeCustomArray, `["a", null, 3]`)
		if v.Kind != ValueStringList || len(v.List) != 3 || v.List[1] != "" || v.List[2] != "3" {
			t.Fatalf("got %+v", v)
		}
		v = DecodeCell(TypeCustomArray, `"solo"`)
		if v.Kind != ValueStringList || len(v.List) != 1 || v.List[0] != "solo" {
			t.Fatalf("scalar customArray becomes a one-element list, got %+v", v)
		}
		v = DecodeCell(TypeReference, `[1, 2]`)
		if v.Kind != ValueStringList || v.String() != "1, 2" {
			t.Fatalf("multi-reference decodes as list, got %+v", v)
		}
		v = DecodeCell(TypeReference, `7`)
		if v.Kind != ValueText || v.Text != "7" {
			t.Fatalf("single reference decodes as text id, got %+v", v)
		}
	})

	t.Run("null", func(t *testing.T) {
		for _, raw := range []string{``, `null`, `  `} {
			if v := DecodeCell(TypeString, raw); !v.IsNull() {
				t.Errorf("DecodeCell(%q) = %+v, want null", raw, v)
			}
		}
	})
}

func TestCellValueIsDateOnly(t *testing.T) {
	tests := []struct {
		typ  ColumnType
		raw  string
		want bool
	}{
		{TypeDate, `"2025-03-12"`, true},
		{TypeDatetime, `" 2025-03-12 "`, true},
		{TypeDate, `"2025-03-12T09:00:00Z"`, false},
		{TypeDate, `1741651200000`, false},
		{TypeDate, `"soon"`, false},
		{TypeString, `"2025-03-12"`, false},
	}
	for _, tt := range tests {
		if got := DecodeCell(tt.typ, tt.raw).IsDateOnly(); got != tt.want {
			t.Errorf("DecodeCell(%s, %s).IsDateOnly() = %v, want %v", tt.typ, tt.raw, got, tt.want)
		}
	}
}

func TestRowCell(t *testing.T) {
	row := Row{ID: 1, Cells: []Cell{{ColumnID: 5, Value: CellValue{Kind: ValueText, Text: "x"}}}}
	if c, ok := row.Cell(5); !ok || c.Value.Text != "x" {
		t.Fatalf("expected cell for column 5")
	}
	if _, ok := row.Cell(6); ok {
		t.Fatalf("did not expect cell for column 6")
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{25: "25", 2.5: "2.5", -0.125: "-0.125", 1e6: "1000000"}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

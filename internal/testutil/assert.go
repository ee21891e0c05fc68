package testutil

import (
	"strings"
	"testing"
)

// AssertCSV fails the test unless got is exactly the given lines joined
// by "\n".
func AssertCSV(t testing.TB, got string, lines ...string) {
	t.Helper()
	want := strings.Join(lines, "\n")
	if got == want {
		return
	}

	gotLines := strings.Split(got, "\n")
	for i := 0; i < len(lines) || i < len(gotLines); i++ {
		var g, w string
		if i < len(gotLines) {
			g = gotLines[i]
		}
		if i < len(lines) {
			w = lines[i]
		}
		if g != w {
			t.Fatalf("CSV differs at line %d\n got: %q\nwant: %q\nfull output:\n%s", i+1, g, w, got)
		}
	}
}

// AssertFieldCount fails the test when a CSV line has a different number
// of ";"-separated fields than the header.
func AssertFieldCount(t testing.TB, csv string) {
	t.Helper()
	lines := strings.Split(csv, "\n")
	want := strings.Count(lines[0], ";")
	for i, line := range lines[1:] {
		if n := strings.Count(line, ";"); n != want {
			t.Errorf("line %d has %d separators, header has %d: %q", i+2, n, want, line)
		}
	}
}

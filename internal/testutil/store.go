// Package testutil builds seeded stores for package tests.
package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/aidanlsb/tabula/internal/index"
)

// NewStore opens an in-memory store seeded from a YAML dataset. The store
// is closed when the test ends.
func NewStore(t testing.TB, dataset string) *index.Database {
	t.Helper()

	ds, err := index.ParseDataset(strings.NewReader(dataset))
	if err != nil {
		t.Fatalf("ParseDataset: %v", err)
	}
	db, err := index.OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Seed(context.Background(), ds); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return db
}

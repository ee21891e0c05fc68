package cli

import (
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/aidanlsb/tabula/internal/config"
	"github.com/aidanlsb/tabula/internal/export"
	"github.com/aidanlsb/tabula/internal/index"
	"github.com/aidanlsb/tabula/internal/query"
)

// memoryPath selects a private in-memory store.
const memoryPath = ":memory:"

// openStore opens the configured SQLite store.
func openStore(c *config.Config) (*index.Database, error) {
	if c.Database.Path == memoryPath {
		return index.OpenInMemory()
	}
	db, err := index.Open(c.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", c.Database.Path, err)
	}
	return db, nil
}

// newExporter wires the compiler and exporter from the export section.
func newExporter(c *config.Config, store export.Store, clock clockwork.Clock) (*export.Exporter, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	weekStart, err := c.WeekStart()
	if err != nil {
		return nil, err
	}

	compiler := query.NewCompiler(query.Options{
		Clock:                  clock,
		Location:               loc,
		WeekStart:              weekStart,
		CaseSensitiveSearch:    c.Export.SearchCaseSensitive,
		LegacyReferenceDialect: c.Export.LegacyReferenceFallback,
	})
	return export.New(store, compiler, export.Options{
		OverFetchFactor: c.Export.OverFetchFactor,
		DateLayout:      c.Export.DateFormat,
		Location:        loc,
		Logger:          getLogger(),
	}), nil
}

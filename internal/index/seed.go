package index

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/tabula/internal/model"
)

// Dataset is the YAML document accepted by Seed.
//
//	databases:
//	  - id: 1
//	    tenant_id: 7
//	    name: CRM
//	    tables:
//	      - id: 10
//	        name: Companies
//	        columns:
//	          - {id: 100, name: Name, type: string, order: 0, primary: true}
//	        rows:
//	          - id: 1000
//	            cells: {100: Acme}
type Dataset struct {
	Databases []SeedDatabase `yaml:"databases"`
}

// SeedDatabase is one database of a Dataset.
type SeedDatabase struct {
	ID       int64       `yaml:"id"`
	TenantID int64       `yaml:"tenant_id"`
	Name     string      `yaml:"name"`
	Tables   []SeedTable `yaml:"tables"`
}

// SeedTable is one table of a SeedDatabase.
type SeedTable struct {
	ID      int64          `yaml:"id"`
	Name    string         `yaml:"name"`
	Columns []model.Column `yaml:"columns"`
	Rows    []SeedRow      `yaml:"rows"`
}

// SeedRow maps column IDs to plain values; they are stored as JSON.
type SeedRow struct {
	ID    int64         `yaml:"id"`
	Cells map[int64]any `yaml:"cells"`
}

// ParseDataset decodes a YAML dataset.
func ParseDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		if err == io.EOF {
			return &ds, nil
		}
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return &ds, nil
}

// Validate reports every structural problem in the dataset at once.
func (ds *Dataset) Validate() error {
	var result *multierror.Error

	tableIDs := map[int64]bool{}
	for _, db := range ds.Databases {
		for _, t := range db.Tables {
			tableIDs[t.ID] = true
		}
	}

	seenDB := map[int64]bool{}
	seenTable := map[int64]bool{}
	seenColumn := map[int64]bool{}
	seenRow := map[int64]bool{}
	for _, db := range ds.Databases {
		if seenDB[db.ID] {
			result = multierror.Append(result, fmt.Errorf("database %d: duplicate id", db.ID))
		}
		seenDB[db.ID] = true

		for _, t := range db.Tables {
			if seenTable[t.ID] {
				result = multierror.Append(result, fmt.Errorf("table %d: duplicate id", t.ID))
			}
			seenTable[t.ID] = true

			columns := map[int64]bool{}
			primaries := 0
			for _, c := range t.Columns {
				if seenColumn[c.ID] {
					result = multierror.Append(result, fmt.Errorf("table %d: column %d: duplicate id", t.ID, c.ID))
				}
				seenColumn[c.ID] = true
				columns[c.ID] = true

				if c.Name == "" {
					result = multierror.Append(result, fmt.Errorf("table %d: column %d: missing name", t.ID, c.ID))
				}
				if c.Type.Kind() == model.KindOther {
					result = multierror.Append(result, fmt.Errorf("table %d: column %d: unknown type %q", t.ID, c.ID, c.Type))
				}
				if c.Type.Kind() == model.KindReference {
					if c.ReferenceTableID == nil {
						result = multierror.Append(result, fmt.Errorf("table %d: column %d: reference column needs reference_table_id", t.ID, c.ID))
					} else if !tableIDs[*c.ReferenceTableID] {
						result = multierror.Append(result, fmt.Errorf("table %d: column %d: references unknown table %d", t.ID, c.ID, *c.ReferenceTableID))
					}
				}
				if c.Primary {
					primaries++
				}
			}
			if primaries > 1 {
				result = multierror.Append(result, fmt.Errorf("table %d: %d primary columns, want at most 1", t.ID, primaries))
			}

			for _, r := range t.Rows {
				if seenRow[r.ID] {
					result = multierror.Append(result, fmt.Errorf("table %d: row %d: duplicate id", t.ID, r.ID))
				}
				seenRow[r.ID] = true
				for colID := range r.Cells {
					if !columns[colID] {
						result = multierror.Append(result, fmt.Errorf("table %d: row %d: unknown column %d", t.ID, r.ID, colID))
					}
				}
			}
		}
	}

	return result.ErrorOrNil()
}

// Seed validates ds and loads it in a single transaction.
func (d *Database) Seed(ctx context.Context, ds *Dataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}

	return d.inTx(ctx, func(tx *sql.Tx) error {
		for _, db := range ds.Databases {
			if err := insertDatabase(ctx, tx, model.Database{ID: db.ID, TenantID: db.TenantID, Name: db.Name}); err != nil {
				return err
			}
			for _, t := range db.Tables {
				if err := insertTable(ctx, tx, model.Table{ID: t.ID, DatabaseID: db.ID, Name: t.Name, Columns: t.Columns}); err != nil {
					return err
				}
				for _, r := range t.Rows {
					row, err := seedRow(t.ID, r)
					if err != nil {
						return err
					}
					if err := insertRow(ctx, tx, row); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func seedRow(tableID int64, r SeedRow) (model.Row, error) {
	row := model.Row{ID: r.ID, TableID: tableID}
	for colID, v := range r.Cells {
		if ts, ok := v.(time.Time); ok {
			v = ts.Format(time.RFC3339)
		}
		value, err := EncodeValue(v)
		if err != nil {
			return model.Row{}, fmt.Errorf("row %d: column %d: %w", r.ID, colID, err)
		}
		row.Cells = append(row.Cells, model.Cell{ColumnID: colID, Raw: value.String})
	}
	return row, nil
}

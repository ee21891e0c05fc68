package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/tabula/internal/atomicfile"
	"github.com/aidanlsb/tabula/internal/export"
	"github.com/aidanlsb/tabula/internal/ui"
)

var (
	exportTenant      int64
	exportDatabase    int64
	exportTable       int64
	exportFilters     string
	exportSearch      string
	exportLimit       string
	exportFormat      string
	exportOutput      string
	exportPreview     bool
	exportPreviewRows int
)

// exportClock dates output filenames; tests replace it.
var exportClock clockwork.Clock = clockwork.NewRealClock()

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a table as CSV",
	Long: `Export a table through the same pipeline as the HTTP API.

The CSV goes to stdout unless --output is given. When --output names a
directory, the file is called table_<id>_export_<yyyy-mm-dd>.csv.
Filters that could not be applied are reported on stderr.

Examples:
  tbl export --tenant 7 --database 1 --table 10
  tbl export --tenant 7 --database 1 --table 10 --search acme --limit 500
  tbl export --tenant 7 --database 1 --table 10 \
    --filters '[{"columnId":101,"columnType":"number","operator":"between","value":"18","secondValue":"30"}]'
  tbl export --tenant 7 --database 1 --table 10 --output ./exports/
  tbl export --tenant 7 --database 1 --table 10 --preview`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context())
	},
}

func exportQuery() url.Values {
	q := url.Values{}
	q.Set("format", exportFormat)
	if exportLimit != "" {
		q.Set("limit", exportLimit)
	}
	if exportSearch != "" {
		q.Set("globalSearch", exportSearch)
	}
	if exportFilters != "" {
		q.Set("filters", exportFilters)
	}
	return q
}

func runExport(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if exportTenant <= 0 || exportDatabase <= 0 || exportTable <= 0 {
		return handleError(ErrMissingArgument, fmt.Errorf("--tenant, --database and --table are required"), "")
	}

	c := getConfig()
	params, err := export.ParseParams(exportQuery(), c.Export.DefaultLimit)
	if err != nil {
		return handleError(ErrValidationFailed, err, "")
	}

	store, err := openStore(c)
	if err != nil {
		return handleError(ErrDatabaseError, err, "")
	}
	defer store.Close()

	exporter, err := newExporter(c, store, exportClock)
	if err != nil {
		return handleError(ErrConfigInvalid, err, "")
	}

	start := time.Now()
	res, err := exporter.Export(ctx, export.Request{
		TenantID:   exportTenant,
		DatabaseID: exportDatabase,
		TableID:    exportTable,
		Params:     params,
	})
	if err != nil {
		code := ErrDatabaseError
		if export.IsNotFound(err) {
			code = ErrNotFound
		}
		return handleError(code, err, "")
	}
	elapsed := time.Since(start).Milliseconds()

	warnings := make([]Warning, len(res.Ignored))
	for i, ig := range res.Ignored {
		warnings[i] = Warning{Code: WarnFilterIgnored, Message: ig.String()}
	}

	path := ""
	if exportOutput != "" {
		path, err = writeExport(res)
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}
	}

	if isJSONOutput() {
		data := map[string]any{
			"table":   res.Table.ID,
			"columns": len(res.Columns),
			"rows":    len(res.Rows),
		}
		if path != "" {
			data["file"] = path
		} else {
			data["csv"] = res.CSV
		}
		outputSuccessWithWarnings(data, warnings, &Meta{Count: len(res.Rows), QueryTimeMs: elapsed})
		return nil
	}

	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, ui.Warningf("filter ignored: %s", w.Message))
	}

	switch {
	case exportPreview:
		fmt.Fprintln(stdout, renderPreview(res))
	case path != "":
		fmt.Fprintln(stdout, ui.Successf("Wrote %s to %s", ui.Count(len(res.Rows), "row", "rows"), ui.FilePath(path)))
	default:
		_, _ = io.WriteString(stdout, res.CSV)
		fmt.Fprintln(stdout)
	}
	return nil
}

// writeExport writes the CSV atomically and returns the file path.
func writeExport(res *export.Result) (string, error) {
	path := exportOutput
	if st, err := os.Stat(path); (err == nil && st.IsDir()) || strings.HasSuffix(path, string(os.PathSeparator)) {
		path = filepath.Join(path, export.Filename(res.Table.ID, exportClock.Now()))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	err := atomicfile.Write(path, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, res.CSV)
		return err
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func renderPreview(res *export.Result) string {
	header := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col.Name
	}

	tbl := ui.NewPreviewTable(ui.NewDisplayContext(os.Stdout), header)
	tbl.SetMaxRows(exportPreviewRows)
	for _, rec := range res.Records() {
		tbl.AddRow(rec...)
	}

	summary := ui.Hint(fmt.Sprintf("%s · table %s", ui.Count(len(res.Rows), "row", "rows"), strconv.FormatInt(res.Table.ID, 10)))
	return ui.Header(res.Table.Name) + "\n" + tbl.Render() + "\n" + summary
}

func init() {
	f := exportCmd.Flags()
	f.Int64Var(&exportTenant, "tenant", 0, "Tenant id")
	f.Int64Var(&exportDatabase, "database", 0, "Database id")
	f.Int64Var(&exportTable, "table", 0, "Table id")
	f.StringVar(&exportFilters, "filters", "", "JSON array of filter conditions")
	f.StringVar(&exportSearch, "search", "", "Global search text")
	f.StringVar(&exportLimit, "limit", "", "Maximum rows (1-100000, default from export.default_limit)")
	f.StringVar(&exportFormat, "format", export.FormatCSV, "Export format (csv)")
	f.StringVarP(&exportOutput, "output", "o", "", "Write to a file or directory instead of stdout")
	f.BoolVar(&exportPreview, "preview", false, "Render a table instead of CSV")
	f.IntVar(&exportPreviewRows, "preview-rows", 20, "Rows shown by --preview (0 for all)")
	rootCmd.AddCommand(exportCmd)
}

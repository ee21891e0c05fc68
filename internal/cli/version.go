package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/tabula/internal/buildinfo"
	"github.com/aidanlsb/tabula/internal/config"
	"github.com/aidanlsb/tabula/internal/index"
	"github.com/aidanlsb/tabula/internal/ui"
)

type buildReport struct {
	Version  string `json:"version"`
	Commit   string `json:"commit,omitempty"`
	Built    string `json:"built,omitempty"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

type storeReport struct {
	Path   string `json:"path"`
	Schema int    `json:"schema"`
}

type datesReport struct {
	Timezone  string `json:"timezone"`
	WeekStart string `json:"week_start"`
	Layout    string `json:"layout"`
}

// versionReport is what `tbl version` prints: the binary plus the store and
// date settings an export from this machine would use.
type versionReport struct {
	Build       buildReport `json:"build"`
	Config      string      `json:"config"`
	ConfigError string      `json:"config_error,omitempty"`
	Store       storeReport `json:"store"`
	Dates       datesReport `json:"dates"`
}

var readBuildInfo = debug.ReadBuildInfo

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build, store and date settings",
	Long: `Show the build of tbl together with the store it would open and
the date settings exports use.

An unreadable config file is reported but does not fail the command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := versionDetails(config.ResolvePath(configPath))

		if isJSONOutput() {
			outputSuccess(report, nil)
			return nil
		}
		printVersion(report)
		return nil
	},
}

// buildDetails prefers link-time stamps and falls back to the module and
// VCS data the toolchain embeds.
func buildDetails() buildReport {
	b := buildReport{
		Version:  buildinfo.Version,
		Commit:   buildinfo.Commit,
		Built:    buildinfo.Date,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	if info, ok := readBuildInfo(); ok && info != nil {
		if b.Version == "" && info.Main.Version != "(devel)" {
			b.Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.Built == "" {
					b.Built = s.Value
				}
			}
		}
	}

	if b.Version == "" {
		b.Version = "devel"
	}
	return b
}

func versionDetails(path string) versionReport {
	r := versionReport{Build: buildDetails(), Config: path}

	c, err := config.LoadFrom(path)
	if err != nil {
		r.ConfigError = err.Error()
		c = config.Defaults()
	}
	if strings.TrimSpace(dbPathFlag) != "" {
		c.Database.Path = dbPathFlag
	}

	r.Store = storeReport{Path: c.Database.Path, Schema: index.CurrentDBVersion}
	r.Dates = datesReport{
		Timezone:  c.Export.Timezone,
		WeekStart: c.Export.WeekStart,
		Layout:    c.Export.DateFormat,
	}
	return r
}

func printVersion(r versionReport) {
	b := r.Build
	line := "tbl " + b.Version
	if b.Commit != "" {
		line += " (" + b.Commit
		if b.Built != "" {
			line += ", " + b.Built
		}
		line += ")"
	}
	fmt.Fprintln(stdout, line)
	fmt.Fprintf(stdout, "%s %s\n", b.Go, b.Platform)

	fmt.Fprintf(stdout, "config: %s\n", ui.FilePath(r.Config))
	if r.ConfigError != "" {
		fmt.Fprintln(stdout, ui.Warningf("config not loaded, showing defaults: %s", r.ConfigError))
	}
	fmt.Fprintf(stdout, "store:  %s (schema %d)\n", ui.FilePath(r.Store.Path), r.Store.Schema)
	fmt.Fprintf(stdout, "dates:  %s, weeks start %s, layout %s\n", r.Dates.Timezone, r.Dates.WeekStart, r.Dates.Layout)
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

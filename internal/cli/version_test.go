package cli

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/aidanlsb/tabula/internal/buildinfo"
	"github.com/aidanlsb/tabula/internal/index"
)

func stubBuildInfo(t *testing.T, info *debug.BuildInfo) {
	t.Helper()
	prevRead := readBuildInfo
	prevVersion, prevCommit, prevDate := buildinfo.Version, buildinfo.Commit, buildinfo.Date
	t.Cleanup(func() {
		readBuildInfo = prevRead
		buildinfo.Version, buildinfo.Commit, buildinfo.Date = prevVersion, prevCommit, prevDate
	})
	buildinfo.Version, buildinfo.Commit, buildinfo.Date = "", "", ""
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
}

func TestBuildDetails(t *testing.T) {
	embedded := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/aidanlsb/tabula", Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-02-14T17:00:00Z"},
		},
	}

	tests := []struct {
		name    string
		info    *debug.BuildInfo
		ldflags [3]string
		want    buildReport
	}{
		{"embedded module data", embedded, [3]string{}, buildReport{Version: "v1.2.3", Commit: "abc123", Built: "2026-02-14T17:00:00Z"}},
		{"ldflags win", embedded, [3]string{"v2.0.0", "fff000", "2026-03-01"}, buildReport{Version: "v2.0.0", Commit: "fff000", Built: "2026-03-01"}},
		{"devel build", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, [3]string{}, buildReport{Version: "devel"}},
		{"no build info", nil, [3]string{"", "c0ffee", ""}, buildReport{Version: "devel", Commit: "c0ffee"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubBuildInfo(t, tt.info)
			buildinfo.Version, buildinfo.Commit, buildinfo.Date = tt.ldflags[0], tt.ldflags[1], tt.ldflags[2]

			got := buildDetails()
			if got.Version != tt.want.Version || got.Commit != tt.want.Commit || got.Built != tt.want.Built {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got.Go == "" || !strings.Contains(got.Platform, "/") {
				t.Fatalf("runtime fields missing: %+v", got)
			}
		})
	}
}

func TestVersionReportsConfiguredStoreAndDates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	conf := `[database]
path = "/srv/tabula/prod.db"

[export]
timezone = "America/New_York"
week_start = "sunday"
date_format = "2006-01-02"
`
	if err := os.WriteFile(path, []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}

	prevConfig, prevDB, prevJSON := configPath, dbPathFlag, jsonOutput
	t.Cleanup(func() { configPath, dbPathFlag, jsonOutput = prevConfig, prevDB, prevJSON })
	configPath, dbPathFlag, jsonOutput = path, "", true
	stubBuildInfo(t, nil)

	out := captureStdout(t, func() {
		if err := versionCmd.RunE(versionCmd, nil); err != nil {
			t.Fatalf("version: %v", err)
		}
	})

	var resp struct {
		OK   bool          `json:"ok"`
		Data versionReport `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("expected JSON, got %v; out=%s", err, out)
	}
	got := resp.Data
	if !resp.OK || got.Config != path || got.ConfigError != "" {
		t.Fatalf("unexpected response %s", out)
	}
	if got.Store.Path != "/srv/tabula/prod.db" || got.Store.Schema != index.CurrentDBVersion {
		t.Fatalf("store = %+v", got.Store)
	}
	want := datesReport{Timezone: "America/New_York", WeekStart: "sunday", Layout: "2006-01-02"}
	if got.Dates != want {
		t.Fatalf("dates = %+v, want %+v", got.Dates, want)
	}
}

func TestVersionSurvivesBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[export\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	prevConfig, prevDB, prevJSON := configPath, dbPathFlag, jsonOutput
	t.Cleanup(func() { configPath, dbPathFlag, jsonOutput = prevConfig, prevDB, prevJSON })
	configPath, dbPathFlag, jsonOutput = path, filepath.Join(dir, "override.db"), false
	stubBuildInfo(t, nil)

	out := captureStdout(t, func() {
		if err := versionCmd.RunE(versionCmd, nil); err != nil {
			t.Fatalf("version: %v", err)
		}
	})

	for _, want := range []string{"tbl devel", "config not loaded", "override.db", "schema", "UTC", "monday", "1/2/2006"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in\n%s", want, out)
		}
	}
}

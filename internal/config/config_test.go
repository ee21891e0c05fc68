package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Export.DefaultLimit != 10000 || cfg.Export.OverFetchFactor != 1 {
		t.Fatalf("unexpected export defaults %+v", cfg.Export)
	}
	if cfg.Export.DateFormat != "1/2/2006" {
		t.Errorf("date format = %q", cfg.Export.DateFormat)
	}
	if d, _ := cfg.WeekStart(); d != time.Monday {
		t.Errorf("week start = %v", d)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadFromOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
[database]
path = "/tmp/tabula-test.db"

[server]
read_timeout = "5s"

[export]
over_fetch_factor = 4
timezone = "Europe/Berlin"
week_start = "sunday"
search_case_sensitive = true

[log]
level = "debug"
format = "json"
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Database.Path != "/tmp/tabula-test.db" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read_timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.Listen != "127.0.0.1:8080" {
		t.Errorf("listen should keep its default, got %q", cfg.Server.Listen)
	}
	if cfg.Export.OverFetchFactor != 4 || !cfg.Export.SearchCaseSensitive {
		t.Errorf("export = %+v", cfg.Export)
	}
	if cfg.Export.DefaultLimit != 10000 {
		t.Errorf("default_limit should keep its default, got %d", cfg.Export.DefaultLimit)
	}
	if d, _ := cfg.WeekStart(); d != time.Sunday {
		t.Errorf("week start = %v", d)
	}
	if opts := cfg.LogOptions(); opts.Level != "debug" || opts.Format != "json" {
		t.Errorf("log options = %+v", opts)
	}
}

func TestLoadFromRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[export]
overfetch = 3
`)
	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected an error for an unknown key")
	}
	if !strings.Contains(err.Error(), "export.overfetch") {
		t.Fatalf("error should name the key: %v", err)
	}
}

func TestLoadFromInvalidTOML(t *testing.T) {
	path := writeConfig(t, "[export\n")
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Export.DefaultLimit = 0
	cfg.Export.OverFetchFactor = 0
	cfg.Export.Timezone = "Mars/Olympus"
	cfg.Export.WeekStart = "someday"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"default_limit", "over_fetch_factor", "timezone", "week_start", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLocation(t *testing.T) {
	cfg := Defaults()
	cfg.Export.Timezone = ""
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("empty timezone should be UTC, got %v, %v", loc, err)
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/etc/tabula.toml"); got != "/etc/tabula.toml" {
		t.Errorf("explicit path ignored: %q", got)
	}
	if got := ResolvePath("  "); got != DefaultPath() {
		t.Errorf("blank override should use the default path, got %q", got)
	}
}

func TestDefaultPathEndsWithConfigFile(t *testing.T) {
	if filepath.Base(DefaultPath()) != "config.toml" {
		t.Errorf("unexpected default path %q", DefaultPath())
	}
}

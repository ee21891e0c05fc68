package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	created, err := CreateDefault(path)
	if err != nil {
		t.Fatalf("CreateDefault: %v", err)
	}
	if !created {
		t.Fatal("expected the file to be created")
	}

	// The template only carries comments, so it loads as the defaults.
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Export.DefaultLimit != Defaults().Export.DefaultLimit {
		t.Fatalf("unexpected config %+v", cfg.Export)
	}
}

func TestCreateDefaultKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	created, err := CreateDefault(path)
	if err != nil {
		t.Fatalf("CreateDefault: %v", err)
	}
	if created {
		t.Fatal("existing config must not be overwritten")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "[log]\nlevel = \"warn\"\n" {
		t.Fatalf("file changed: %q", data)
	}
}

func TestCreateDefaultRequiresPath(t *testing.T) {
	if _, err := CreateDefault(" "); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

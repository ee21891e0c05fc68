package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aidanlsb/tabula/internal/atomicfile"
)

const defaultConfig = `# tabula configuration
# Every key is optional; the values below are the defaults.

[database]
# path = "~/.local/share/tabula/tabula.db"

[server]
# listen = "127.0.0.1:8080"
# read_timeout = "30s"
# shutdown_timeout = "10s"

[auth]
# HS256 secret for bearer tokens. Empty disables authentication.
# jwt_secret = ""

[rate_limit]
# Requests per minute per client address. 0 disables limiting.
# per_minute = 120
# burst = 20

[export]
# default_limit = 10000
#
# Multiplies the fetch cap when starts_with/ends_with/contains/not_contains
# filters run in memory, so removed rows can be replaced.
# over_fetch_factor = 1
#
# search_case_sensitive = false
# Accept contains, starts_with, ends_with and not_contains on reference
# columns, matched against the raw ids.
# legacy_reference_fallback = false
#
# Go time layout for date cells.
# date_format = "1/2/2006"
# timezone = "UTC"
# week_start = "monday"

[log]
# level = "info"      # debug, info, warn, error
# format = "auto"     # auto, text, json
`

// CreateDefault writes a commented default config file at path if none
// exists. It reports whether a file was written.
func CreateDefault(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, fmt.Errorf("config path is required")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := atomicfile.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return true, nil
}

// Package buildinfo carries release metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/aidanlsb/tabula/internal/buildinfo.Version=v0.3.0" ./cmd/tbl
package buildinfo

// Empty for local and dev builds.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

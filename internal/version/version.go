// Package version holds build metadata injected via ldflags:
//
//	-X github.com/citysnap/gateway/internal/version.Version=...
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the metadata for CLI output.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}

// Package version reports build metadata. Release builds set the values with
// -ldflags "-X github.com/kailas-cloud/elodex/internal/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

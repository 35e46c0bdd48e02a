// Package buildinfo holds version metadata stamped in at link time:
//
//	go build -ldflags "\
//	    -X github.com/matzehuels/uimigrate/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/uimigrate/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/uimigrate/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/uimigrate
package buildinfo

import "fmt"

// Unstamped builds report these values.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build metadata on one line.
func String() string {
	return fmt.Sprintf("uimigrate %s (%s, built %s)", Version, Commit, Date)
}

// Template returns a cobra version template.
func Template() string {
	return "{{.Name}} " + Version + "\ncommit: " + Commit + "\nbuilt:  " + Date + "\n"
}

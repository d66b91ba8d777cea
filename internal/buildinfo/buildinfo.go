// Package buildinfo carries version metadata injected at link time:
//
//	go build -ldflags "-X github.com/ZanzyTHEbar/deepsearch-kg-go/internal/buildinfo.Version=v0.3.0"
package buildinfo

var (
	Version   = "dev"
	Revision  = "unknown"
	BuildDate = "unknown"
)

// String renders the version line printed by the CLI.
func String() string {
	return Version + " (" + Revision + ", built " + BuildDate + ")"
}

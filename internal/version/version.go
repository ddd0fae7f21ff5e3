// Package version holds build metadata injected via ldflags.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent identifies outbound requests to model and web search providers.
func UserAgent() string {
	return fmt.Sprintf("researchrag/%s (%s)", Version, Commit)
}

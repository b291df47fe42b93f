package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Stamped by the release build via -ldflags -X.
var (
	version = "dev"
	commit  = ""
	date    = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("synapse %s\n", VersionString())
		if date != "" {
			fmt.Printf("  built: %s\n", date)
		}
		fmt.Printf("  go:    %s\n", runtime.Version())
	},
}

// VersionString is the version as reported by the API health endpoint:
// the semantic version, with the commit appended for non-release builds.
func VersionString() string {
	if commit == "" {
		return version
	}
	return fmt.Sprintf("%s+%s", version, commit)
}

package commands

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
	"tangled.org/tokentrim.app/tokentrim/internal/types"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}

		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					gitCommit = setting.Value
					if len(gitCommit) > 7 {
						gitCommit = gitCommit[:7]
					}
				}
			case "vcs.time":
				if setting.Value != "" {
					buildDate = setting.Value
				}
			}
		}
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "tokentrim version %s\n", version)
			fmt.Fprintf(w, "  commit: %s\n", gitCommit)
			fmt.Fprintf(w, "  built:  %s\n", buildDate)
			fmt.Fprintf(w, "  format: %s v%d\n", types.FORMAT_NAME, types.FORMAT_VERSION)
			return nil
		},
	}
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}

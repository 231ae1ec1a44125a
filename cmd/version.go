package cmd

import (
	"fmt"

	"github.com/pygpt-net/msibuild/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("msibuild %s (%s) %s\n", version.Version, version.Commit, version.BuildTime)
	},
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metal-toolbox/powerctl/internal/version"
)

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print powerctl version along with dependency information.",
	Run: func(_ *cobra.Command, _ []string) {
		v := version.Current()

		fmt.Printf(
			"commit: %s\nbranch: %s\ngit summary: %s\nbuildDate: %s\nversion: %s\nGo version: %s\nstateswitch version: %s\n",
			v.GitCommit, v.GitBranch, v.GitSummary, v.BuildDate, v.AppVersion, v.GoVersion, v.StateswitchVersion,
		)
	},
}

func init() {
	rootCmd.AddCommand(cmdVersion)
}

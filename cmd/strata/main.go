package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/strata-vcs/strata/pkg/logging"
)

var rootConfiguration struct {
	// configPath is the path to the repository's YAML configuration file.
	configPath string
	// identity names the signing identity (and key file) commits and
	// merges produced by this invocation are attributed to.
	identity string
	// debug enables verbose logging on the underlying logging package.
	debug bool
}

var rootCommand = &cobra.Command{
	Use:          "strata",
	Short:        "strata is a content-addressed revision store with reverse-delta compression and a three-way merge engine",
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if rootConfiguration.debug {
			logging.DebugEnabled = true
		}
	},
}

func init() {
	flags := rootCommand.PersistentFlags()
	flags.StringVar(&rootConfiguration.configPath, "config", "strata.yml", "path to the repository configuration file")
	flags.StringVar(&rootConfiguration.identity, "identity", "default", "signing identity to commit and merge as")
	flags.BoolVar(&rootConfiguration.debug, "debug", false, "enable debug logging")

	cobra.EnableCommandSorting = false

	rootCommand.AddCommand(
		initCommand,
		commitCommand,
		lookupCommand,
		mergeCommand,
		branchHeadsCommand,
		checkCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/strata-vcs/strata/pkg/config"
)

var initCommand = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a new repository configuration",
	Args:  cobra.MaximumNArgs(1),
	Run:   initMain,
}

func initMain(_ *cobra.Command, arguments []string) {
	directory := "."
	if len(arguments) == 1 {
		directory = arguments[0]
	}

	cfg := config.Default(directory)
	if err := cfg.Save(rootConfiguration.configPath); err != nil {
		fatal(err)
	}
}

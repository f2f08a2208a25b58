package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var branchHeadsCommand = &cobra.Command{
	Use:   "branch-heads <branch>",
	Short: "List the current head revisions of a branch",
	Args:  cobra.ExactArgs(1),
	Run:   branchHeadsMain,
}

func branchHeadsMain(_ *cobra.Command, arguments []string) {
	repo, err := openRepository()
	if err != nil {
		fatal(err)
	}
	defer repo.Close()

	heads, err := repo.BranchHeads(context.Background(), arguments[0])
	if err != nil {
		fatal(err)
	}
	for _, h := range heads {
		fmt.Println(string(h))
	}
}

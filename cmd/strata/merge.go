package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/strata-vcs/strata/pkg/hashcodec"
)

var mergeConfiguration struct {
	branch string
}

var mergeCommand = &cobra.Command{
	Use:   "merge <left> <right>",
	Short: "Merge two head revisions",
	Args:  cobra.ExactArgs(2),
	Run:   mergeMain,
}

func init() {
	mergeCommand.Flags().StringVar(&mergeConfiguration.branch, "branch", "main", "branch to certify the merge revision into")
}

func mergeMain(_ *cobra.Command, arguments []string) {
	left := hashcodec.Hash(arguments[0])
	right := hashcodec.Hash(arguments[1])
	if !left.Valid() || !right.Valid() {
		fatal(errors.New("both revision ids must be valid hashes"))
	}

	repo, err := openRepository()
	if err != nil {
		fatal(err)
	}
	defer repo.Close()

	mergeID, conflicts, err := repo.Merge(context.Background(), left, right, mergeConfiguration.branch)
	if err != nil {
		fatal(err)
	}
	if len(conflicts) > 0 {
		for _, c := range conflicts {
			warning(c.Error())
		}
		fatal(errors.Errorf("merge left %d unresolved conflict(s)", len(conflicts)))
	}

	fmt.Println(string(mergeID))
}

package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var checkCommand = &cobra.Command{
	Use:   "check",
	Short: "Run a full consistency check over the object store",
	Args:  cobra.NoArgs,
	Run:   checkMain,
}

func checkMain(_ *cobra.Command, _ []string) {
	repo, err := openRepository()
	if err != nil {
		fatal(err)
	}
	defer repo.Close()

	report, err := repo.Check(context.Background())
	if err != nil {
		fatal(err)
	}

	fmt.Printf("files checked:      %d\n", report.FilesChecked)
	fmt.Printf("manifests checked:  %d\n", report.ManifestsChecked)
	fmt.Printf("revisions checked:  %d\n", report.RevisionsChecked)
	fmt.Printf("missing files:      %d\n", len(report.MissingFiles))
	fmt.Printf("corrupt objects:    %d\n", len(report.CorruptObjects))
	fmt.Printf("incomplete manifests: %d\n", len(report.IncompleteManifests))
	fmt.Printf("broken revisions:   %d\n", len(report.BrokenRevisions))

	if !report.OK() {
		fatal(errors.New("repository check found problems"))
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
)

var lookupConfiguration struct {
	path string
}

var lookupCommand = &cobra.Command{
	Use:   "lookup <revision>",
	Short: "Print a revision's manifest, or a single file's content",
	Args:  cobra.ExactArgs(1),
	Run:   lookupMain,
}

func init() {
	lookupCommand.Flags().StringVar(&lookupConfiguration.path, "path", "", "print this path's content instead of the manifest listing")
}

func lookupMain(_ *cobra.Command, arguments []string) {
	revisionID := hashcodec.Hash(arguments[0])
	if !revisionID.Valid() {
		fatal(errors.Errorf("invalid revision id %q", arguments[0]))
	}

	var path manifest.Path
	if lookupConfiguration.path != "" {
		p, err := manifest.NewPath(lookupConfiguration.path)
		if err != nil {
			fatal(err)
		}
		path = p
	}

	repo, err := openRepository()
	if err != nil {
		fatal(err)
	}
	defer repo.Close()

	result, err := repo.Lookup(context.Background(), revisionID, path)
	if err != nil {
		fatal(err)
	}

	if path != "" {
		os.Stdout.Write(result.FileContent)
		return
	}

	for _, p := range result.Manifest.Paths() {
		h, _ := result.Manifest.Lookup(p)
		fmt.Printf("%s  %s\n", h, p)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/strata"
)

var commitConfiguration struct {
	parent    string
	branch    string
	message   string
	directory string
}

var commitCommand = &cobra.Command{
	Use:   "commit",
	Short: "Commit the contents of a directory as a new revision",
	Args:  cobra.NoArgs,
	Run:   commitMain,
}

func init() {
	flags := commitCommand.Flags()
	flags.StringVar(&commitConfiguration.parent, "parent", "", "parent revision id, or empty for a root revision")
	flags.StringVar(&commitConfiguration.branch, "branch", "main", "branch to certify this revision into")
	flags.StringVar(&commitConfiguration.message, "message", "", "changelog message")
	flags.StringVar(&commitConfiguration.directory, "dir", ".", "directory whose contents to commit")
}

// collectFiles walks directory and reads every regular file beneath it
// into a strata.Files map keyed by its path relative to directory, skipping
// the bookkeeping directory manifest paths may never enter.
func collectFiles(directory string) (strata.Files, error) {
	files := make(strata.Files)
	err := filepath.Walk(directory, func(walkedPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(directory, walkedPath)
		if err != nil {
			return err
		}
		if relative == "." {
			return nil
		}
		if info.IsDir() {
			if relative == manifest.ReservedDirectory {
				return filepath.SkipDir
			}
			return nil
		}
		p, err := manifest.NewPath(filepath.ToSlash(relative))
		if err != nil {
			return errors.Wrapf(err, "untrackable path %q", relative)
		}
		content, err := os.ReadFile(walkedPath)
		if err != nil {
			return errors.Wrapf(err, "unable to read %q", walkedPath)
		}
		files[p] = content
		return nil
	})
	return files, err
}

func commitMain(_ *cobra.Command, _ []string) {
	files, err := collectFiles(commitConfiguration.directory)
	if err != nil {
		fatal(err)
	}

	repo, err := openRepository()
	if err != nil {
		fatal(err)
	}
	defer repo.Close()

	parent := hashcodec.NullHash
	if commitConfiguration.parent != "" {
		parent = hashcodec.Hash(commitConfiguration.parent)
		if !parent.Valid() {
			fatal(errors.Errorf("invalid parent revision id %q", commitConfiguration.parent))
		}
	}

	revisionID, err := repo.Commit(context.Background(), parent, commitConfiguration.branch, files, commitConfiguration.message)
	if err != nil {
		fatal(err)
	}

	fmt.Println(string(revisionID))
}

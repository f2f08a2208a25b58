package changeset

import (
	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/manifest"
)

// Invert produces the change-set that undoes cs. source must be the
// manifest cs was originally computed against (cs's pre-state): deletes in
// cs become adds in the inverse, and reconstructing an add needs the
// content hash the deleted path used to carry, which only the pre-state
// manifest still has on file once cs has been applied.
//
// The contract this satisfies is: if m' = ApplyToManifest(cs, source),
// then ApplyToManifest(Invert(cs, source), m') reproduces source.
func Invert(cs *ChangeSet, source *manifest.Manifest) (*ChangeSet, error) {
	inv := New()

	for p := range cs.DeletedFiles {
		h, ok := source.Lookup(p)
		if !ok {
			return nil, errors.Errorf("invert: deleted path %q not found in source manifest", p)
		}
		inv.AddedFiles[p] = h
	}

	for p := range cs.AddedFiles {
		inv.DeletedFiles[p] = struct{}{}
	}

	for src, dst := range cs.RenamedFiles {
		inv.RenamedFiles[dst] = src
	}
	for src, dst := range cs.RenamedDirs {
		inv.RenamedDirs[dst] = src
	}

	// Directories carry no manifest entries of their own; a directory
	// delete has nothing to reverse beyond what renamed_dirs already
	// captures, and an empty directory reappearing is not separately
	// observable in a pure path->hash manifest model.

	for p, d := range cs.Deltas {
		inv.Deltas[p] = FileDelta{Old: d.New, New: d.Old}
	}

	return inv, nil
}

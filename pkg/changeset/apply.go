package changeset

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

// ApplyToManifest applies cs to mIn, producing the destination manifest.
// Rearrangement is processed first (deletes, then directory renames, then
// file renames, then adds of new paths), followed by deltas replacing each
// changed path's old hash with its new one.
func ApplyToManifest(cs *ChangeSet, mIn *manifest.Manifest) (*manifest.Manifest, error) {
	working := make(map[manifest.Path]hashcodec.Hash, mIn.Len())
	for _, p := range mIn.Paths() {
		h, _ := mIn.Lookup(p)
		working[p] = h
	}

	// Deletes.
	for p := range cs.DeletedFiles {
		if _, ok := working[p]; !ok {
			return nil, errors.Wrapf(strataerrors.InconsistentChangeSet, "delete_file: path %q not present in source manifest", p)
		}
		delete(working, p)
	}
	for p := range cs.DeletedDirs {
		prefix := string(p) + "/"
		for existing := range working {
			if strings.HasPrefix(string(existing), prefix) {
				return nil, errors.Wrapf(strataerrors.InconsistentChangeSet, "delete_dir: directory %q still contains %q", p, existing)
			}
		}
	}

	// Directory renames: rewrite the prefix of every path beneath the
	// source directory.
	for src, dst := range cs.RenamedDirs {
		srcPrefix := string(src) + "/"
		dstPrefix := string(dst) + "/"
		var toMove []manifest.Path
		for existing := range working {
			if strings.HasPrefix(string(existing), srcPrefix) {
				toMove = append(toMove, existing)
			}
		}
		for _, existing := range toMove {
			suffix := strings.TrimPrefix(string(existing), srcPrefix)
			newPath := manifest.Path(dstPrefix + suffix)
			if _, collide := working[newPath]; collide {
				return nil, errors.Wrapf(strataerrors.InconsistentChangeSet, "rename_dir: destination path %q already present", newPath)
			}
			working[newPath] = working[existing]
			delete(working, existing)
		}
	}

	// File renames.
	for src, dst := range cs.RenamedFiles {
		h, ok := working[src]
		if !ok {
			return nil, errors.Wrapf(strataerrors.InconsistentChangeSet, "rename_file: source path %q not present", src)
		}
		if _, collide := working[dst]; collide {
			return nil, errors.Wrapf(strataerrors.InconsistentChangeSet, "rename_file: destination path %q already present", dst)
		}
		working[dst] = h
		delete(working, src)
	}

	// Adds.
	for p, h := range cs.AddedFiles {
		if _, collide := working[p]; collide {
			return nil, errors.Wrapf(strataerrors.InconsistentChangeSet, "add_file: path %q already present", p)
		}
		working[p] = h
	}

	// Deltas.
	for p, d := range cs.Deltas {
		existing, ok := working[p]
		if !ok {
			return nil, errors.Wrapf(strataerrors.InconsistentChangeSet, "patch: path %q not present", p)
		}
		if existing != d.Old {
			return nil, errors.Wrapf(strataerrors.InconsistentChangeSet, "patch: path %q has hash %s, expected %s", p, existing, d.Old)
		}
		working[p] = d.New
	}

	return manifest.New(working), nil
}

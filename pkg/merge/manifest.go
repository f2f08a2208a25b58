package merge

import (
	"context"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/store"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

// FileSource is the part of *store.Store that three-way file content
// merging needs: the ability to reconstruct a file's bytes by hash.
type FileSource interface {
	Get(ctx context.Context, kind store.Kind, id hashcodec.Hash) ([]byte, error)
}

// ManifestMergeResult is the outcome of a three-way manifest merge.
// NewFileContent holds the bytes of every freshly merged file, keyed by
// the hash the merged manifest records for it; the caller is responsible
// for storing these under that hash before writing the merge revision.
type ManifestMergeResult struct {
	Manifest       *manifest.Manifest
	NewFileContent map[hashcodec.Hash][]byte
	Conflicts      []*strataerrors.ConflictError
}

// MergeManifests computes the three-way merge of left and right against
// their common ancestor anc. Paths unchanged on one side take the other
// side's value; paths changed identically on both sides collapse cleanly;
// paths changed differently are either content-merged (if both sides
// touched the same file's bytes) or reported as a structural conflict (if
// one side deleted what the other edited). Renames are not tracked: a
// rename shows up as a delete of the old path plus an add of the new one,
// so a delete on one side and a rename on the other merge without a
// conflict. The merged manifest omits any path that could not be safely
// placed.
func MergeManifests(ctx context.Context, files FileSource, anc, left, right *manifest.Manifest) (*ManifestMergeResult, error) {
	result := &ManifestMergeResult{
		Manifest:       manifest.Empty(),
		NewFileContent: make(map[hashcodec.Hash][]byte),
	}

	allPaths := map[manifest.Path]struct{}{}
	for _, p := range anc.Paths() {
		allPaths[p] = struct{}{}
	}
	for _, p := range left.Paths() {
		allPaths[p] = struct{}{}
	}
	for _, p := range right.Paths() {
		allPaths[p] = struct{}{}
	}

	conflict := func(p manifest.Path, kind, detail string) {
		result.Conflicts = append(result.Conflicts, &strataerrors.ConflictError{Path: string(p), Kind: kind, Detail: detail})
	}

	for p := range allPaths {
		ancH, inAnc := anc.Lookup(p)
		leftH, inLeft := left.Lookup(p)
		rightH, inRight := right.Lookup(p)

		if inAnc {
			leftChanged := inLeft && leftH != ancH
			leftDeleted := !inLeft
			rightChanged := inRight && rightH != ancH
			rightDeleted := !inRight

			switch {
			case !leftChanged && !leftDeleted && !rightChanged && !rightDeleted:
				result.Manifest = result.Manifest.With(p, ancH)

			case leftDeleted && rightDeleted:
				// clean: both removed it.

			case leftDeleted && rightChanged:
				conflict(p, "delete-modify", "left deleted the path, right modified it")

			case rightDeleted && leftChanged:
				conflict(p, "delete-modify", "right deleted the path, left modified it")

			case leftDeleted:
				// right left it untouched: clean delete.

			case rightDeleted:
				// left left it untouched: clean delete.

			case leftChanged && !rightChanged:
				result.Manifest = result.Manifest.With(p, leftH)

			case rightChanged && !leftChanged:
				result.Manifest = result.Manifest.With(p, rightH)

			case leftH == rightH:
				result.Manifest = result.Manifest.With(p, leftH)

			default:
				ancBytes, err := files.Get(ctx, store.KindFile, ancH)
				if err != nil {
					return nil, err
				}
				leftBytes, err := files.Get(ctx, store.KindFile, leftH)
				if err != nil {
					return nil, err
				}
				rightBytes, err := files.Get(ctx, store.KindFile, rightH)
				if err != nil {
					return nil, err
				}
				merged, cerr := ThreeWayMergeContent(ancBytes, leftBytes, rightBytes)
				if cerr != nil {
					cerr.Path = string(p)
					result.Conflicts = append(result.Conflicts, cerr)
					continue
				}
				mergedHash := hashcodec.Sum(merged)
				result.NewFileContent[mergedHash] = merged
				result.Manifest = result.Manifest.With(p, mergedHash)
			}
			continue
		}

		// Not present at the ancestor: added by one or both sides.
		switch {
		case inLeft && inRight:
			if leftH == rightH {
				result.Manifest = result.Manifest.With(p, leftH)
			} else {
				conflict(p, "add-add", "both sides added the path with different content")
			}
		case inLeft:
			result.Manifest = result.Manifest.With(p, leftH)
		case inRight:
			result.Manifest = result.Manifest.With(p, rightH)
		}
	}

	return result, nil
}

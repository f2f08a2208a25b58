package changeset

import (
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

// Merge combines two change-sets that share a source manifest into a
// single change-set, along with any conflicts that could not be resolved
// by the algebra alone. Conflicts are surfaced rather than silently
// resolved: it is the merge engine's job (pkg/merge), not this package's,
// to decide how a content conflict gets presented to the caller.
func Merge(a, b *ChangeSet) (*ChangeSet, []*strataerrors.ConflictError, error) {
	merged := New()
	var conflicts []*strataerrors.ConflictError

	touched := make(map[manifest.Path]struct{})
	noteTouch := func(p manifest.Path) bool {
		_, dup := touched[p]
		touched[p] = struct{}{}
		return dup
	}

	for p, h := range a.AddedFiles {
		noteTouch(p)
		merged.AddedFiles[p] = h
	}
	for p, h := range b.AddedFiles {
		if existing, dup := merged.AddedFiles[p]; dup {
			if existing != h {
				conflicts = append(conflicts, &strataerrors.ConflictError{
					Path: string(p), Kind: "add-add",
					Detail: "both sides added this path with different content",
				})
			}
			continue
		}
		noteTouch(p)
		merged.AddedFiles[p] = h
	}

	for p := range a.DeletedFiles {
		noteTouch(p)
		merged.DeletedFiles[p] = struct{}{}
	}
	for p := range b.DeletedFiles {
		if _, already := merged.DeletedFiles[p]; already {
			continue
		}
		if _, hasDelta := a.Deltas[p]; hasDelta {
			conflicts = append(conflicts, &strataerrors.ConflictError{
				Path: string(p), Kind: "delete-modify",
				Detail: "one side deleted this path while the other modified it",
			})
			continue
		}
		noteTouch(p)
		merged.DeletedFiles[p] = struct{}{}
	}

	for src, dst := range a.RenamedFiles {
		merged.RenamedFiles[src] = dst
	}
	for src, dst := range b.RenamedFiles {
		if existingDst, already := merged.RenamedFiles[src]; already {
			if existingDst != dst {
				conflicts = append(conflicts, &strataerrors.ConflictError{
					Path: string(src), Kind: "rename-rename",
					Detail: "both sides renamed this path to different destinations",
				})
			}
			continue
		}
		if _, wasDeleted := a.DeletedFiles[src]; wasDeleted {
			conflicts = append(conflicts, &strataerrors.ConflictError{
				Path: string(src), Kind: "delete-modify",
				Detail: "one side deleted this path while the other renamed it",
			})
			continue
		}
		merged.RenamedFiles[src] = dst
	}

	for src, dst := range a.RenamedDirs {
		merged.RenamedDirs[src] = dst
	}
	for src, dst := range b.RenamedDirs {
		if existingDst, already := merged.RenamedDirs[src]; already {
			if existingDst != dst {
				conflicts = append(conflicts, &strataerrors.ConflictError{
					Path: string(src), Kind: "rename-rename",
					Detail: "both sides renamed this directory to different destinations",
				})
			}
			continue
		}
		merged.RenamedDirs[src] = dst
	}

	for p := range a.DeletedDirs {
		merged.DeletedDirs[p] = struct{}{}
	}
	for p := range b.DeletedDirs {
		merged.DeletedDirs[p] = struct{}{}
	}

	for p, d := range a.Deltas {
		merged.Deltas[p] = d
	}
	for p, d := range b.Deltas {
		if existing, already := merged.Deltas[p]; already {
			if existing.New != d.New {
				conflicts = append(conflicts, &strataerrors.ConflictError{
					Path: string(p), Kind: "content",
					Detail: "both sides modified this path's content differently",
				})
			}
			continue
		}
		if _, wasDeleted := a.DeletedFiles[p]; wasDeleted {
			conflicts = append(conflicts, &strataerrors.ConflictError{
				Path: string(p), Kind: "delete-modify",
				Detail: "one side deleted this path while the other modified it",
			})
			continue
		}
		merged.Deltas[p] = d
	}

	return merged, conflicts, nil
}

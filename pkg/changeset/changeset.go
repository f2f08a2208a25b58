// Package changeset implements component C's differencing algebra: the
// path rearrangements and per-file deltas that describe the transition
// from one manifest to another, along with apply, concatenate, invert, and
// merge over that algebra.
package changeset

import (
	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
)

// FileDelta pairs the old and new content hash of a path whose content
// changed without its name changing.
type FileDelta struct {
	Old, New hashcodec.Hash
}

// ChangeSet describes the transition from one manifest to another: a path
// rearrangement (adds, deletes, renames) plus a set of per-path content
// deltas. ChangeSets are value types; they carry no reference to any
// revision or store.
type ChangeSet struct {
	AddedFiles   map[manifest.Path]hashcodec.Hash
	DeletedFiles map[manifest.Path]struct{}
	DeletedDirs  map[manifest.Path]struct{}
	RenamedFiles map[manifest.Path]manifest.Path
	RenamedDirs  map[manifest.Path]manifest.Path
	Deltas       map[manifest.Path]FileDelta
}

// New returns an empty ChangeSet with all fields initialized, ready for
// incremental construction.
func New() *ChangeSet {
	return &ChangeSet{
		AddedFiles:   make(map[manifest.Path]hashcodec.Hash),
		DeletedFiles: make(map[manifest.Path]struct{}),
		DeletedDirs:  make(map[manifest.Path]struct{}),
		RenamedFiles: make(map[manifest.Path]manifest.Path),
		RenamedDirs:  make(map[manifest.Path]manifest.Path),
		Deltas:       make(map[manifest.Path]FileDelta),
	}
}

// Empty reports whether the change-set carries no rearrangement and no
// deltas at all, i.e. it is the identity transition.
func (cs *ChangeSet) Empty() bool {
	return len(cs.AddedFiles) == 0 && len(cs.DeletedFiles) == 0 &&
		len(cs.DeletedDirs) == 0 && len(cs.RenamedFiles) == 0 &&
		len(cs.RenamedDirs) == 0 && len(cs.Deltas) == 0
}

// dirPathsOf derives the directory prefixes implied by a file path, e.g.
// "a/b/c" implies directories "a" and "a/b". Renamed/deleted directories
// are tracked explicitly by the caller. Nothing in this package calls it:
// DiffManifests pairs paths by content hash only.
func dirPathsOf(p manifest.Path) []manifest.Path {
	s := string(p)
	var dirs []manifest.Path
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			dirs = append(dirs, manifest.Path(s[:i]))
		}
	}
	return dirs
}

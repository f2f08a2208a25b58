package changeset

import (
	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

// Concatenate composes a followed by b into a single change-set c such
// that, for every manifest m on which both sides are defined,
// ApplyToManifest(c, m) == ApplyToManifest(b, ApplyToManifest(a, m)).
//
// It works by walking b's records and resolving each one against a's
// effect on the same path: a rename in a followed by a rename in b
// collapses to one rename; an add in a cancelled by a delete in b
// disappears entirely; a delta stacked on an add updates the added hash in
// place; and so on. Conflicts between the two change-sets - b renaming a
// path a already deleted, two operations targeting the same destination -
// are reported as InconsistentConcat.
func Concatenate(a, b *ChangeSet) (*ChangeSet, error) {
	c := New()

	// addedByA maps a path added by a to the hash it was given.
	addedByA := a.AddedFiles
	// renameDestToSrcA maps a file rename's destination (in a) back to its
	// source, so that a path b references by its post-a name can be traced
	// to its true origin.
	renameDestToSrcA := make(map[manifest.Path]manifest.Path, len(a.RenamedFiles))
	for src, dst := range a.RenamedFiles {
		renameDestToSrcA[dst] = src
	}

	// consumedAdds/consumedRenames/consumedDeltas track which of a's own
	// records were actually referenced (via resolve) by one of b's passes
	// below, so that whatever's left over afterward - a's changes at paths
	// b never touches - can be carried forward instead of silently dropped.
	consumedAdds := make(map[manifest.Path]bool, len(a.AddedFiles))
	consumedRenames := make(map[manifest.Path]bool, len(a.RenamedFiles))
	consumedDeltas := make(map[manifest.Path]bool, len(a.Deltas))

	// resolve reports, for a path q as it exists after a has been applied,
	// how it originated: an add (origin="", isAdd=true, hash=addedHash), a
	// rename from some origin path, a delta on an unrenamed path (origin==q),
	// or an untouched pass-through (origin==q, no delta). Every call marks
	// the a-record it found as consumed.
	type origin struct {
		isAdd    bool
		addHash  hashcodec.Hash
		fromPath manifest.Path
		hasDelta bool
		delta    FileDelta
	}
	resolve := func(q manifest.Path) origin {
		if h, ok := addedByA[q]; ok {
			consumedAdds[q] = true
			return origin{isAdd: true, addHash: h}
		}
		if src, ok := renameDestToSrcA[q]; ok {
			consumedRenames[src] = true
			return origin{fromPath: src}
		}
		if d, ok := a.Deltas[q]; ok {
			consumedDeltas[q] = true
			return origin{fromPath: q, hasDelta: true, delta: d}
		}
		return origin{fromPath: q}
	}

	claimed := make(map[manifest.Path]struct{})
	claim := func(p manifest.Path) error {
		if _, dup := claimed[p]; dup {
			return errors.Wrapf(strataerrors.InconsistentConcat, "two operations target path %q", p)
		}
		claimed[p] = struct{}{}
		return nil
	}

	for q := range b.DeletedFiles {
		o := resolve(q)
		switch {
		case o.isAdd:
			delete(c.AddedFiles, q)
		case o.fromPath != q || o.hasDelta:
			if err := claim(o.fromPath); err != nil {
				return nil, err
			}
			c.DeletedFiles[o.fromPath] = struct{}{}
		default:
			if err := claim(q); err != nil {
				return nil, err
			}
			c.DeletedFiles[q] = struct{}{}
		}
	}

	for q, dst := range b.RenamedFiles {
		o := resolve(q)
		switch {
		case o.isAdd:
			c.AddedFiles[dst] = o.addHash
		case o.hasDelta:
			if err := claim(o.fromPath); err != nil {
				return nil, err
			}
			c.RenamedFiles[o.fromPath] = dst
			c.Deltas[dst] = o.delta
		default:
			if err := claim(o.fromPath); err != nil {
				return nil, err
			}
			c.RenamedFiles[o.fromPath] = dst
		}
	}

	for p, h := range b.AddedFiles {
		if err := claim(p); err != nil {
			return nil, err
		}
		c.AddedFiles[p] = h
	}

	for q, bd := range b.Deltas {
		o := resolve(q)
		switch {
		case o.isAdd:
			if addedByA[q] != bd.Old {
				return nil, errors.Wrapf(strataerrors.InconsistentConcat, "patch on added path %q does not match added hash", q)
			}
			c.AddedFiles[q] = bd.New
		case o.fromPath != q:
			if err := claim(o.fromPath); err != nil {
				return nil, err
			}
			c.RenamedFiles[o.fromPath] = q
			c.Deltas[q] = bd
		case o.hasDelta:
			if o.delta.New != bd.Old {
				return nil, errors.Wrapf(strataerrors.InconsistentConcat, "patch chain on path %q does not match", q)
			}
			c.Deltas[q] = FileDelta{Old: o.delta.Old, New: bd.New}
		default:
			c.Deltas[q] = bd
		}
	}

	// Everything a did at a path b never referenced above carries straight
	// through: a's deletes are terminal (nothing in b can touch a path a
	// already removed), and a's unconsumed adds/renames/deltas simply
	// weren't part of anything b resolved against.
	for p := range a.DeletedFiles {
		if err := claim(p); err != nil {
			return nil, err
		}
		c.DeletedFiles[p] = struct{}{}
	}
	for p, h := range a.AddedFiles {
		if consumedAdds[p] {
			continue
		}
		if err := claim(p); err != nil {
			return nil, err
		}
		c.AddedFiles[p] = h
	}
	for src, dst := range a.RenamedFiles {
		if consumedRenames[src] {
			continue
		}
		if err := claim(dst); err != nil {
			return nil, err
		}
		c.RenamedFiles[src] = dst
	}
	for p, d := range a.Deltas {
		if consumedDeltas[p] {
			continue
		}
		if err := claim(p); err != nil {
			return nil, err
		}
		c.Deltas[p] = d
	}

	// Directory deletes and renames are passed through structurally; a's
	// own directory operations that b doesn't touch further simply carry
	// over, and b's directory operations on paths a didn't rename compose
	// directly. Chained directory renames (a renames a directory that b
	// then renames again) collapse the same way file renames do.
	dirRenameDestToSrcA := make(map[manifest.Path]manifest.Path, len(a.RenamedDirs))
	for src, dst := range a.RenamedDirs {
		dirRenameDestToSrcA[dst] = src
		c.RenamedDirs[src] = dst
	}
	for p := range a.DeletedDirs {
		c.DeletedDirs[p] = struct{}{}
	}
	for q, dst := range b.RenamedDirs {
		if src, ok := dirRenameDestToSrcA[q]; ok {
			delete(c.RenamedDirs, src)
			c.RenamedDirs[src] = dst
		} else {
			c.RenamedDirs[q] = dst
		}
	}
	for q := range b.DeletedDirs {
		if src, ok := dirRenameDestToSrcA[q]; ok {
			delete(c.RenamedDirs, src)
			c.DeletedDirs[src] = struct{}{}
		} else {
			c.DeletedDirs[q] = struct{}{}
		}
	}

	return c, nil
}

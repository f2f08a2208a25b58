package changeset

import (
	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
)

// DiffManifests computes the change-set transitioning mOld into mNew. It
// takes the symmetric difference of the two manifests' paths, then
// cross-indexes the only-in-old and only-in-new entries by content hash: an
// unambiguous one-to-one match between a deleted path and an added path
// with the same hash is classified as a rename, since the content didn't
// change, only its name. A hash shared by more than one candidate on
// either side is deliberately left unpaired - true add plus true delete -
// rather than guessing which rename was intended. A path present in both
// manifests under different hashes is a delta regardless: its name is
// already stable, there is nothing to cross-index.
//
// The bijection bookkeeping is two plain maps keyed by hash; nothing here
// needs a persistent or process-global interning structure; the maps live
// only for the duration of this call.
func DiffManifests(mOld, mNew *manifest.Manifest) *ChangeSet {
	cs := New()

	oldPaths := make(map[manifest.Path]hashcodec.Hash, mOld.Len())
	for _, p := range mOld.Paths() {
		h, _ := mOld.Lookup(p)
		oldPaths[p] = h
	}
	newPaths := make(map[manifest.Path]hashcodec.Hash, mNew.Len())
	for _, p := range mNew.Paths() {
		h, _ := mNew.Lookup(p)
		newPaths[p] = h
	}

	candidateDeletesByHash := make(map[hashcodec.Hash][]manifest.Path)
	candidateAddsByHash := make(map[hashcodec.Hash][]manifest.Path)

	for p, oh := range oldPaths {
		nh, stillPresent := newPaths[p]
		switch {
		case !stillPresent:
			candidateDeletesByHash[oh] = append(candidateDeletesByHash[oh], p)
		case nh != oh:
			cs.Deltas[p] = FileDelta{Old: oh, New: nh}
		}
	}
	for p, nh := range newPaths {
		if _, existedBefore := oldPaths[p]; !existedBefore {
			candidateAddsByHash[nh] = append(candidateAddsByHash[nh], p)
		}
	}

	for h, deletes := range candidateDeletesByHash {
		adds := candidateAddsByHash[h]
		if len(deletes) == 1 && len(adds) == 1 {
			cs.RenamedFiles[deletes[0]] = adds[0]
			delete(candidateAddsByHash, h)
			continue
		}
		for _, p := range deletes {
			cs.DeletedFiles[p] = struct{}{}
		}
	}
	for _, adds := range candidateAddsByHash {
		for _, p := range adds {
			cs.AddedFiles[p] = newPaths[p]
		}
	}

	return cs
}

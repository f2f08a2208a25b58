package merge

import (
	"context"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/lcs"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/revision"
	"github.com/strata-vcs/strata/pkg/store"
)

// AnnotateSource is the store surface blame needs: revisions, manifests,
// and file content, all by hash.
type AnnotateSource interface {
	GetRevision(ctx context.Context, id hashcodec.Hash) (*revision.Revision, error)
	GetManifest(ctx context.Context, id hashcodec.Hash) (*manifest.Manifest, error)
	Get(ctx context.Context, kind store.Kind, id hashcodec.Hash) ([]byte, error)
}

type annotateFrontierItem struct {
	revisionID hashcodec.Hash
	lines      []string
	// lineage[i] is the UDOI line index that local line i corresponds to,
	// or -1 if this line never reaches the UDOI.
	lineage []int
}

func matchAgainstParent(childLines, parentLines []string) (childMatched map[int]bool, childToParent map[int]int) {
	interner := lcs.NewInterner()
	childIDs := interner.InternAll(childLines)
	parentIDs := interner.InternAll(parentLines)
	pairs := lcs.Of(childIDs, parentIDs)

	childMatched = make(map[int]bool, len(pairs))
	childToParent = make(map[int]int, len(pairs))
	for _, p := range pairs {
		childMatched[p.I] = true
		childToParent[p.I] = p.J
	}
	return
}

// Annotate attributes every line of the file at path as it exists in
// udoiRevision (the "ultimate descendant of interest") to the revision
// that introduced it. It walks the revision DAG backward from udoiRevision,
// at each step computing the LCS between the current frontier's content
// and each parent's content along that path: lines outside the LCS are
// touched by the current revision and finalised to it unless another
// parent on the same fan-in independently carries them forward; lines in
// the LCS carry their UDOI lineage back to the parent for further
// processing.
//
// This only follows path unchanged across edges; a rename of the
// annotated path part-way up the history is not resolved and causes that
// branch of the walk to treat the file as having been deleted there.
func Annotate(ctx context.Context, src AnnotateSource, udoiRevision hashcodec.Hash, path manifest.Path) ([]hashcodec.Hash, string, error) {
	r0, err := src.GetRevision(ctx, udoiRevision)
	if err != nil {
		return nil, "", err
	}
	m0, err := src.GetManifest(ctx, r0.NewManifest)
	if err != nil {
		return nil, "", err
	}
	fileHash, ok := m0.Lookup(path)
	if !ok {
		return nil, "", nil
	}
	content, err := src.Get(ctx, store.KindFile, fileHash)
	if err != nil {
		return nil, "", err
	}
	lines := splitLines(content)

	finalized := make([]hashcodec.Hash, len(lines))
	assignedCount := 0

	identity := make([]int, len(lines))
	for i := range identity {
		identity[i] = i
	}

	queue := []annotateFrontierItem{{revisionID: udoiRevision, lines: lines, lineage: identity}}
	visited := map[hashcodec.Hash]bool{udoiRevision: true}
	var lastProcessed hashcodec.Hash

	for len(queue) > 0 && assignedCount < len(lines) {
		item := queue[0]
		queue = queue[1:]
		lastProcessed = item.revisionID

		r := r0
		if item.revisionID != udoiRevision {
			r, err = src.GetRevision(ctx, item.revisionID)
			if err != nil {
				return nil, "", err
			}
		}

		if r.IsRoot() {
			for local, udoiIdx := range item.lineage {
				_ = local
				if udoiIdx >= 0 && finalized[udoiIdx].IsNull() {
					finalized[udoiIdx] = item.revisionID
					assignedCount++
				}
			}
			continue
		}

		type edgeMatch struct {
			parent        hashcodec.Hash
			parentLines   []string
			childToParent map[int]int
		}
		var edges []edgeMatch
		copiedByAny := make([]bool, len(item.lines))

		for _, e := range r.Edges {
			var parentLines []string
			if !e.ParentRevision.IsNull() {
				parentManifest, err := src.GetManifest(ctx, e.ParentManifest)
				if err != nil {
					return nil, "", err
				}
				if parentFileHash, ok := parentManifest.Lookup(path); ok {
					parentContent, err := src.Get(ctx, store.KindFile, parentFileHash)
					if err != nil {
						return nil, "", err
					}
					parentLines = splitLines(parentContent)
				}
			}
			childMatched, childToParent := matchAgainstParent(item.lines, parentLines)
			for i := range copiedByAny {
				if childMatched[i] {
					copiedByAny[i] = true
				}
			}
			edges = append(edges, edgeMatch{parent: e.ParentRevision, parentLines: parentLines, childToParent: childToParent})
		}

		for i, udoiIdx := range item.lineage {
			if !copiedByAny[i] && udoiIdx >= 0 && finalized[udoiIdx].IsNull() {
				finalized[udoiIdx] = item.revisionID
				assignedCount++
			}
		}

		for _, em := range edges {
			if em.parent.IsNull() || visited[em.parent] {
				continue
			}
			parentLineage := make([]int, len(em.parentLines))
			for i := range parentLineage {
				parentLineage[i] = -1
			}
			for childIdx, parentIdx := range em.childToParent {
				parentLineage[parentIdx] = item.lineage[childIdx]
			}
			visited[em.parent] = true
			queue = append(queue, annotateFrontierItem{revisionID: em.parent, lines: em.parentLines, lineage: parentLineage})
		}
	}

	warning := ""
	if assignedCount < len(lines) {
		for i := range finalized {
			if finalized[i].IsNull() {
				finalized[i] = lastProcessed
			}
		}
		warning = "annotate exhausted ancestry before every line was finalised; remaining lines were assigned to the last revision visited"
	}

	return finalized, warning, nil
}

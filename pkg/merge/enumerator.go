package merge

import (
	"context"

	"github.com/strata-vcs/strata/pkg/hashcodec"
)

// WalkAncestors expands start's ancestor frontier one revision at a time,
// breadth-first, calling visit for each ancestor reached (start itself is
// not visited). It stops as soon as visit returns false, so a caller that
// only cares whether some id shows up within the first few generations
// never pays to materialize the whole ancestor set - the same incremental
// stance the original enumerator took over eagerly walking full history.
func WalkAncestors(ctx context.Context, src RevisionSource, start hashcodec.Hash, visit func(hashcodec.Hash) bool) error {
	if start.IsNull() {
		return nil
	}
	visited := map[hashcodec.Hash]bool{start: true}
	queue := []hashcodec.Hash{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		r, err := src.GetRevision(ctx, node)
		if err != nil {
			return err
		}
		for _, e := range r.Edges {
			p := e.ParentRevision
			if p.IsNull() || visited[p] {
				continue
			}
			visited[p] = true
			if !visit(p) {
				return nil
			}
			queue = append(queue, p)
		}
	}
	return nil
}

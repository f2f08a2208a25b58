// Package merge implements component D: ancestor queries, three-way
// manifest and file merges, blame/annotate, and merge-revision production.
package merge

import (
	"context"
	"sort"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/revision"
)

// RevisionSource is the slice of store.Store that ancestor and merge
// computations need: the ability to fetch a revision by id. Depending on
// the concrete *store.Store rather than this interface would work just as
// well, but spelling it out keeps this package testable against a fake
// without dragging in a real database.
type RevisionSource interface {
	GetRevision(ctx context.Context, id hashcodec.Hash) (*revision.Revision, error)
}

// IsAncestor reports whether a is an ancestor of b (or equal to it) by
// walking b's ancestor frontier, stopping as soon as a turns up. The null
// revision is the ancestor of everything.
func IsAncestor(ctx context.Context, src RevisionSource, a, b hashcodec.Hash) (bool, error) {
	if a.IsNull() || a == b {
		return true, nil
	}
	found := false
	err := WalkAncestors(ctx, src, b, func(h hashcodec.Hash) bool {
		if h == a {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// ancestorDepths runs a BFS outward from start along parent edges,
// returning the shortest-path depth (0 for start itself) to every
// ancestor reached.
func ancestorDepths(ctx context.Context, src RevisionSource, start hashcodec.Hash) (map[hashcodec.Hash]int, error) {
	depths := map[hashcodec.Hash]int{start: 0}
	if start.IsNull() {
		return depths, nil
	}
	queue := []hashcodec.Hash{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		r, err := src.GetRevision(ctx, node)
		if err != nil {
			return nil, err
		}
		for _, e := range r.Edges {
			p := e.ParentRevision
			if p.IsNull() {
				continue
			}
			if _, seen := depths[p]; seen {
				continue
			}
			depths[p] = depths[node] + 1
			queue = append(queue, p)
		}
	}
	return depths, nil
}

// CommonAncestor finds the best common ancestor of a and b: among
// revisions reachable from both, the one with the smallest generation
// depth (the max of its distance from a and from b) wins; ties are broken
// by preferring the candidate that is itself an ancestor of the most
// other candidates (the one with the most shared descendants within the
// candidate set), and any remaining tie is broken by lexicographically
// smallest id. Returns the null hash if a and b share no ancestor.
func CommonAncestor(ctx context.Context, src RevisionSource, a, b hashcodec.Hash) (hashcodec.Hash, error) {
	depthsA, err := ancestorDepths(ctx, src, a)
	if err != nil {
		return hashcodec.NullHash, err
	}
	depthsB, err := ancestorDepths(ctx, src, b)
	if err != nil {
		return hashcodec.NullHash, err
	}

	var candidates []hashcodec.Hash
	for node := range depthsA {
		if _, ok := depthsB[node]; ok {
			candidates = append(candidates, node)
		}
	}
	if len(candidates) == 0 {
		return hashcodec.NullHash, nil
	}

	generation := func(node hashcodec.Hash) int {
		da, db := depthsA[node], depthsB[node]
		if da > db {
			return da
		}
		return db
	}

	minGen := generation(candidates[0])
	for _, c := range candidates[1:] {
		if g := generation(c); g < minGen {
			minGen = g
		}
	}
	var tied []hashcodec.Hash
	for _, c := range candidates {
		if generation(c) == minGen {
			tied = append(tied, c)
		}
	}
	if len(tied) == 1 {
		return tied[0], nil
	}

	sharedDescendants := make(map[hashcodec.Hash]int, len(tied))
	for _, c := range tied {
		count := 0
		for _, other := range tied {
			if other == c {
				continue
			}
			isAnc, err := IsAncestor(ctx, src, c, other)
			if err != nil {
				return hashcodec.NullHash, err
			}
			if isAnc {
				count++
			}
		}
		sharedDescendants[c] = count
	}

	sort.Slice(tied, func(i, j int) bool {
		if sharedDescendants[tied[i]] != sharedDescendants[tied[j]] {
			return sharedDescendants[tied[i]] > sharedDescendants[tied[j]]
		}
		return tied[i] < tied[j]
	})
	return tied[0], nil
}

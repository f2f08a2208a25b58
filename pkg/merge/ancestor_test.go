package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-vcs/strata/pkg/changeset"
	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/revision"
	"github.com/strata-vcs/strata/pkg/store"
)

// commitRoot writes a root revision with a single file at path/content and
// returns its id and manifest.
func commitRoot(t *testing.T, ctx context.Context, s *store.Store, path string, content string) (hashcodec.Hash, *manifest.Manifest) {
	t.Helper()
	p, err := manifest.NewPath(path)
	require.NoError(t, err)
	h := hashcodec.Sum([]byte(content))
	require.NoError(t, s.PutFull(ctx, store.KindFile, h, []byte(content)))

	m := manifest.New(map[manifest.Path]hashcodec.Hash{p: h})
	cs := changeset.New()
	cs.AddedFiles[p] = h
	r := &revision.Revision{
		NewManifest: m.Hash(),
		Edges:       []revision.Edge{{ParentRevision: hashcodec.NullHash, ParentManifest: hashcodec.NullHash, ChangeSet: cs}},
	}
	require.NoError(t, s.PutRevision(ctx, r, m))
	return r.Hash(), m
}

// commitChild writes a revision with a single parent edge derived from
// parentManifest by replacing path's content, returning the new id and
// manifest.
func commitChild(t *testing.T, ctx context.Context, s *store.Store, parentID hashcodec.Hash, parentManifest *manifest.Manifest, path, content string) (hashcodec.Hash, *manifest.Manifest) {
	t.Helper()
	p, err := manifest.NewPath(path)
	require.NoError(t, err)
	h := hashcodec.Sum([]byte(content))
	require.NoError(t, s.PutFull(ctx, store.KindFile, h, []byte(content)))

	newManifest := parentManifest.With(p, h)
	cs := changeset.DiffManifests(parentManifest, newManifest)
	r := &revision.Revision{
		NewManifest: newManifest.Hash(),
		Edges:       []revision.Edge{{ParentRevision: parentID, ParentManifest: parentManifest.Hash(), ChangeSet: cs}},
	}
	require.NoError(t, s.PutRevision(ctx, r, newManifest))
	return r.Hash(), newManifest
}

func TestIsAncestorLinearChain(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	r1, m1 := commitRoot(t, ctx, s, "a", "v1\n")
	r2, m2 := commitChild(t, ctx, s, r1, m1, "a", "v2\n")
	r3, _ := commitChild(t, ctx, s, r2, m2, "a", "v3\n")

	ok, err := IsAncestor(ctx, s, r1, r3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = IsAncestor(ctx, s, r3, r1)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = IsAncestor(ctx, s, hashcodec.NullHash, r1)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCommonAncestorOfDivergedBranches(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	base, baseManifest := commitRoot(t, ctx, s, "a", "base\n")
	left, _ := commitChild(t, ctx, s, base, baseManifest, "a", "left\n")
	right, _ := commitChild(t, ctx, s, base, baseManifest, "a", "right\n")

	anc, err := CommonAncestor(ctx, s, left, right)
	require.NoError(t, err)
	require.Equal(t, base, anc)
}

func TestCommonAncestorUnrelatedHistoriesIsNull(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	a, _ := commitRoot(t, ctx, s, "a", "one\n")
	b, _ := commitRoot(t, ctx, s, "b", "two\n")

	anc, err := CommonAncestor(ctx, s, a, b)
	require.NoError(t, err)
	require.True(t, anc.IsNull())
}

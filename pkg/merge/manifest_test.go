package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/store"
)

func putFile(t *testing.T, ctx context.Context, s *store.Store, content string) hashcodec.Hash {
	t.Helper()
	h := hashcodec.Sum([]byte(content))
	require.NoError(t, s.PutFull(ctx, store.KindFile, h, []byte(content)))
	return h
}

func mustPath(t *testing.T, s string) manifest.Path {
	t.Helper()
	p, err := manifest.NewPath(s)
	require.NoError(t, err)
	return p
}

func TestMergeManifestsCleanContentMerge(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	p := mustPath(t, "p")
	ancH := putFile(t, ctx, s, "1\n2\n3\n")
	leftH := putFile(t, ctx, s, "1L\n2\n3\n")
	rightH := putFile(t, ctx, s, "1\n2\n3R\n")

	anc := manifest.New(map[manifest.Path]hashcodec.Hash{p: ancH})
	left := manifest.New(map[manifest.Path]hashcodec.Hash{p: leftH})
	right := manifest.New(map[manifest.Path]hashcodec.Hash{p: rightH})

	result, err := MergeManifests(ctx, s, anc, left, right)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)

	mergedHash, ok := result.Manifest.Lookup(p)
	require.True(t, ok)
	content, ok := result.NewFileContent[mergedHash]
	require.True(t, ok)
	require.Equal(t, "1L\n2\n3R\n", string(content))
}

func TestMergeManifestsAddAddConflict(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	p := mustPath(t, "new")
	leftH := putFile(t, ctx, s, "left content\n")
	rightH := putFile(t, ctx, s, "right content\n")

	anc := manifest.Empty()
	left := manifest.New(map[manifest.Path]hashcodec.Hash{p: leftH})
	right := manifest.New(map[manifest.Path]hashcodec.Hash{p: rightH})

	result, err := MergeManifests(ctx, s, anc, left, right)
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, "add-add", result.Conflicts[0].Kind)
}

func TestMergeManifestsUnchangedPathsPassThrough(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	p := mustPath(t, "stable")
	h := putFile(t, ctx, s, "unchanged\n")
	m := manifest.New(map[manifest.Path]hashcodec.Hash{p: h})

	result, err := MergeManifests(ctx, s, m, m, m)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	got, ok := result.Manifest.Lookup(p)
	require.True(t, ok)
	require.Equal(t, h, got)
}

package revision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-vcs/strata/pkg/changeset"
	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
)

func TestRootRevisionCanonicalParseRoundTrip(t *testing.T) {
	p, err := manifest.NewPath("a")
	require.NoError(t, err)
	h := hashcodec.Sum([]byte("hello\n"))

	cs := changeset.New()
	cs.AddedFiles[p] = h

	r := &Revision{
		NewManifest: manifest.New(map[manifest.Path]hashcodec.Hash{p: h}).Hash(),
		Edges: []Edge{{
			ParentRevision: hashcodec.NullHash,
			ParentManifest: hashcodec.NullHash,
			ChangeSet:      cs,
		}},
	}

	require.True(t, r.IsRoot())
	require.False(t, r.IsMerge())

	canon := r.Canonical()
	parsed, err := Parse(canon)
	require.NoError(t, err)
	require.Equal(t, r.NewManifest, parsed.NewManifest)
	require.Equal(t, r.Hash(), parsed.Hash())
	require.Len(t, parsed.Edges, 1)
	require.True(t, parsed.IsRoot())
}

func TestMergeRevisionHasTwoEdges(t *testing.T) {
	leftCS := changeset.New()
	rightCS := changeset.New()
	r := &Revision{
		NewManifest: hashcodec.Sum([]byte("m")),
		Edges: []Edge{
			{ParentRevision: hashcodec.Sum([]byte("left")), ParentManifest: hashcodec.Sum([]byte("lm")), ChangeSet: leftCS},
			{ParentRevision: hashcodec.Sum([]byte("right")), ParentManifest: hashcodec.Sum([]byte("rm")), ChangeSet: rightCS},
		},
	}
	require.True(t, r.IsMerge())

	parsed, err := Parse(r.Canonical())
	require.NoError(t, err)
	require.True(t, parsed.IsMerge())
	require.Equal(t, r.Hash(), parsed.Hash())
}

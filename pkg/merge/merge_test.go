package merge

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-vcs/strata/pkg/keyring"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/store"
)

func TestHeadsCleanMergeProducesSignedRevision(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	base, baseManifest := commitRoot(t, ctx, s, "a", "1\n2\n3\n")
	left, _ := commitChild(t, ctx, s, base, baseManifest, "a", "1L\n2\n3\n")
	right, _ := commitChild(t, ctx, s, base, baseManifest, "a", "1\n2\n3R\n")

	kr := keyring.New()
	id, err := kr.Generate("alice")
	require.NoError(t, err)
	require.NoError(t, s.PutPublicKey(ctx, "alice", id.Public))

	signer := func(msg []byte) []byte {
		return ed25519.Sign(id.Private, msg)
	}

	mergeID, conflicts, err := Heads(ctx, s, left, right, Identity{KeyID: "alice", Author: "alice", Branch: "main"}, signer)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.False(t, mergeID.IsNull())

	rev, err := s.GetRevision(ctx, mergeID)
	require.NoError(t, err)
	require.Len(t, rev.Edges, 2)

	mergedManifest, err := s.GetManifest(ctx, rev.NewManifest)
	require.NoError(t, err)
	p, err := manifest.NewPath("a")
	require.NoError(t, err)
	h, ok := mergedManifest.Lookup(p)
	require.True(t, ok)
	content, err := s.Get(ctx, store.KindFile, h)
	require.NoError(t, err)
	require.Equal(t, "1L\n2\n3R\n", string(content))

	certs, err := s.CertsForTarget(ctx, mergeID)
	require.NoError(t, err)
	require.Len(t, certs, 3)
	for _, c := range certs {
		pub, ok := s.LookupPublicKey(ctx, c.SignerKeyID)
		require.True(t, ok)
		require.NoError(t, c.Verify(pub))
	}
}

func TestHeadsConflictingMergeWritesNoRevision(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	base, baseManifest := commitRoot(t, ctx, s, "a", "1\n2\n3\n")
	left, _ := commitChild(t, ctx, s, base, baseManifest, "a", "1\n2L\n3\n")
	right, _ := commitChild(t, ctx, s, base, baseManifest, "a", "1\n2R\n3\n")

	kr := keyring.New()
	id, err := kr.Generate("bob")
	require.NoError(t, err)
	signer := func(msg []byte) []byte {
		return ed25519.Sign(id.Private, msg)
	}

	mergeID, conflicts, err := Heads(ctx, s, left, right, Identity{KeyID: "bob", Author: "bob", Branch: "main"}, signer)
	require.NoError(t, err)
	require.True(t, mergeID.IsNull())
	require.NotEmpty(t, conflicts)
}

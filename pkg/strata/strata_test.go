package strata

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-vcs/strata/pkg/cert"
	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/keyring"
	"github.com/strata-vcs/strata/pkg/manifest"
)

func openTestRepository(t *testing.T) (*Repository, *keyring.Keyring) {
	t.Helper()
	kr := keyring.New()
	id, err := kr.Generate("alice")
	require.NoError(t, err)

	signer := func(keyID string, msg []byte) []byte {
		return ed25519.Sign(id.Private, msg)
	}

	r, err := Open(":memory:", nil, "alice", "Alice", signer, cert.DefaultPolicy)
	require.NoError(t, err)
	require.NoError(t, r.store.PutPublicKey(context.Background(), "alice", id.Public))
	t.Cleanup(func() { r.Close() })
	return r, kr
}

func TestCommitThenLookupRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _ := openTestRepository(t)

	p, err := manifest.NewPath("README")
	require.NoError(t, err)

	rev1, err := r.Commit(ctx, hashcodec.NullHash, "main", Files{p: []byte("hello\n")}, "initial commit")
	require.NoError(t, err)
	require.False(t, rev1.IsNull())

	result, err := r.Lookup(ctx, rev1, p)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(result.FileContent))
	require.True(t, result.Revision.IsRoot())

	heads, err := r.BranchHeads(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, []hashcodec.Hash{rev1}, heads)
}

func TestCommitTwiceAdvancesBranchHead(t *testing.T) {
	ctx := context.Background()
	r, _ := openTestRepository(t)

	p, err := manifest.NewPath("README")
	require.NoError(t, err)

	rev1, err := r.Commit(ctx, hashcodec.NullHash, "main", Files{p: []byte("v1\n")}, "v1")
	require.NoError(t, err)
	rev2, err := r.Commit(ctx, rev1, "main", Files{p: []byte("v2\n")}, "v2")
	require.NoError(t, err)

	heads, err := r.BranchHeads(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, []hashcodec.Hash{rev2}, heads)

	report, err := r.Check(ctx)
	require.NoError(t, err)
	require.True(t, report.OK())
}

func TestMergeCleanTwoBranches(t *testing.T) {
	ctx := context.Background()
	r, _ := openTestRepository(t)

	p, err := manifest.NewPath("README")
	require.NoError(t, err)

	base, err := r.Commit(ctx, hashcodec.NullHash, "main", Files{p: []byte("base\n")}, "base")
	require.NoError(t, err)
	left, err := r.Commit(ctx, base, "main", Files{p: []byte("base\nleft\n")}, "left edit")
	require.NoError(t, err)
	right, err := r.Commit(ctx, base, "other", Files{p: []byte("right\nbase\n")}, "right edit")
	require.NoError(t, err)

	mergeID, conflicts, err := r.Merge(ctx, left, right, "main")
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.False(t, mergeID.IsNull())
}

package merge

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-vcs/strata/pkg/cert"
	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/keyring"
	"github.com/strata-vcs/strata/pkg/store"
)

func TestBranchHeadsPicksTipOfLinearChain(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	kr := keyring.New()
	id, err := kr.Generate("alice")
	require.NoError(t, err)
	require.NoError(t, s.PutPublicKey(ctx, "alice", id.Public))

	r1, m1 := commitRoot(t, ctx, s, "a", "v1\n")
	r2, m2 := commitChild(t, ctx, s, r1, m1, "a", "v2\n")
	r3, _ := commitChild(t, ctx, s, r2, m2, "a", "v3\n")

	putBranchCert := func(target hashcodec.Hash) {
		c := &cert.Cert{Target: target, Name: cert.NameBranch, Value: []byte("main")}
		c.SignerKeyID = "alice"
		c.Signature = ed25519.Sign(id.Private, c.SignableText())
		require.NoError(t, s.PutCert(ctx, c))
	}
	putBranchCert(r1)
	putBranchCert(r2)
	putBranchCert(r3)

	heads, err := BranchHeads(ctx, s, "main", s.KeyLookup(ctx), cert.DefaultPolicy)
	require.NoError(t, err)
	require.Len(t, heads, 1)
	require.Equal(t, r3, heads[0])
}

func TestBranchHeadsIgnoresUntrustedCert(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	kr := keyring.New()
	id, err := kr.Generate("alice")
	require.NoError(t, err)
	// Deliberately do not register alice's public key with the store, so
	// her certs come back untrusted.

	r1, _ := commitRoot(t, ctx, s, "a", "v1\n")

	c := &cert.Cert{Target: r1, Name: cert.NameBranch, Value: []byte("main")}
	c.SignerKeyID = "alice"
	c.Signature = ed25519.Sign(id.Private, c.SignableText())
	require.NoError(t, s.PutCert(ctx, c))

	heads, err := BranchHeads(ctx, s, "main", s.KeyLookup(ctx), cert.DefaultPolicy)
	require.NoError(t, err)
	require.Empty(t, heads)
}

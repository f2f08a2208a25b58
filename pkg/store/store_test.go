package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutFullThenGetReturnsExactBytes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	content := []byte("A\nB\nC\n")
	id := hashcodec.Sum(content)
	require.NoError(t, s.PutFull(ctx, KindFile, id, content))

	got, err := s.Get(ctx, KindFile, id)
	require.NoError(t, err)
	require.Equal(t, content, got)

	exists, err := s.Exists(ctx, KindFile, id)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestPutVersionFlipsOldToDeltaAndReconstructs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	v1 := []byte("A\nB\nC\n")
	id1 := hashcodec.Sum(v1)
	require.NoError(t, s.PutFull(ctx, KindFile, id1, v1))

	v2 := []byte("A\nX\nC\n")
	id2 := hashcodec.Sum(v2)
	require.NoError(t, s.PutVersion(ctx, KindFile, id1, id2, v2))

	// id2 is now full, id1 has been flipped to a delta against it.
	got2, err := s.Get(ctx, KindFile, id2)
	require.NoError(t, err)
	require.Equal(t, v2, got2)

	got1, err := s.Get(ctx, KindFile, id1)
	require.NoError(t, err)
	require.Equal(t, v1, got1)
}

func TestLongDeltaChainReconstructs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	prevID := hashcodec.Sum([]byte("v0\n"))
	require.NoError(t, s.PutFull(ctx, KindFile, prevID, []byte("v0\n")))
	prevContent := []byte("v0\n")
	ids := []hashcodec.Hash{prevID}

	for i := 1; i <= 20; i++ {
		content := append(append([]byte{}, prevContent...), []byte("line\n")...)
		id := hashcodec.Sum(content)
		require.NoError(t, s.PutVersion(ctx, KindFile, prevID, id, content))
		prevID = id
		prevContent = content
		ids = append(ids, id)
	}

	// The oldest id should still reconstruct correctly after 20 flips.
	got, err := s.Get(ctx, KindFile, ids[0])
	require.NoError(t, err)
	require.Equal(t, []byte("v0\n"), got)
}

func TestGetReconstructedValueIsCachedAcrossCalls(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	oldID := hashcodec.Sum([]byte("v0\n"))
	require.NoError(t, s.PutFull(ctx, KindFile, oldID, []byte("v0\n")))
	newContent := []byte("v0\nv1\n")
	newID := hashcodec.Sum(newContent)
	require.NoError(t, s.PutVersion(ctx, KindFile, oldID, newID, newContent))

	// oldID is now stored only as a delta against newID; Get must walk the
	// chain to reconstruct it.
	first, err := s.Get(ctx, KindFile, oldID)
	require.NoError(t, err)
	require.Equal(t, []byte("v0\n"), first)

	// Drop the delta row out from under the store: if the second Get still
	// succeeds and returns the right bytes, it must have been served from
	// the reconstruction cache rather than replaying the (now missing) chain.
	_, err = s.exec(ctx, "DELETE FROM "+deltaTable(KindFile)+" WHERE id = ?", string(oldID))
	require.NoError(t, err)

	second, err := s.Get(ctx, KindFile, oldID)
	require.NoError(t, err)
	require.Equal(t, []byte("v0\n"), second)
}

func TestGetMissingObjectReturnsMissingObjectError(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.Get(ctx, KindFile, hashcodec.Sum([]byte("nope")))
	require.Error(t, err)
	require.ErrorIs(t, err, strataerrors.MissingObject)
}

func TestGetCyclicDeltaChainReturnsCorruptStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a := hashcodec.Hash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := hashcodec.Hash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	delta := hashcodec.Diff([]byte("x"), []byte("y"))
	_, err := s.exec(ctx, "INSERT INTO file_delta(id, base_id, delta) VALUES (?, ?, ?)", string(a), string(b), delta.Marshal())
	require.NoError(t, err)
	_, err = s.exec(ctx, "INSERT INTO file_delta(id, base_id, delta) VALUES (?, ?, ?)", string(b), string(a), delta.Marshal())
	require.NoError(t, err)

	_, err = s.Get(ctx, KindFile, a)
	require.Error(t, err)
	require.ErrorIs(t, err, strataerrors.CorruptStore)
}

func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	content := []byte("hello\n")
	id := hashcodec.Sum(content)

	guard, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.PutFull(ctx, KindFile, id, content))
	require.NoError(t, guard.Rollback())

	exists, err := s.Exists(ctx, KindFile, id)
	require.NoError(t, err)
	require.False(t, exists, "rolled back write must not be visible")
}

func TestNestedGuardsOnlyOutermostCommits(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	content := []byte("hello\n")
	id := hashcodec.Sum(content)

	outer, err := s.Begin(ctx)
	require.NoError(t, err)
	inner, err := s.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, s.PutFull(ctx, KindFile, id, content))
	require.NoError(t, inner.Commit())

	// Not yet visible outside the transaction's own view until the outer
	// guard commits, but since this is the same connection/tx, the write is
	// already visible to further reads through the same store handle.
	require.NoError(t, outer.Commit())

	exists, err := s.Exists(ctx, KindFile, id)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestNestedGuardRollbackAbortsWholeTransaction(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	content := []byte("hello\n")
	id := hashcodec.Sum(content)

	outer, err := s.Begin(ctx)
	require.NoError(t, err)
	inner, err := s.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, s.PutFull(ctx, KindFile, id, content))
	require.NoError(t, inner.Rollback())

	err = outer.Commit()
	require.Error(t, err, "outer commit must report the nested rollback rather than silently committing")

	exists, existsErr := s.Exists(ctx, KindFile, id)
	require.NoError(t, existsErr)
	require.False(t, exists)
}

func TestCheckReportsOKOnCleanStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	content := []byte("A\n")
	id := hashcodec.Sum(content)
	require.NoError(t, s.PutFull(ctx, KindFile, id, content))

	report, err := s.Check(ctx)
	require.NoError(t, err)
	require.True(t, report.OK())
	require.Equal(t, 1, report.FilesChecked)
}

func TestCheckFlagsIncompleteManifest(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p, err := manifest.NewPath("a")
	require.NoError(t, err)
	missingFileHash := hashcodec.Sum([]byte("never stored"))
	m := manifest.New(map[manifest.Path]hashcodec.Hash{p: missingFileHash})
	require.NoError(t, s.PutFull(ctx, KindManifest, m.Hash(), m.Canonical()))

	report, err := s.Check(ctx)
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Len(t, report.IncompleteManifests, 1)
}

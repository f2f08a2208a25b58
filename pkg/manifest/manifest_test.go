package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-vcs/strata/pkg/hashcodec"
)

func mustPath(t *testing.T, s string) Path {
	t.Helper()
	p, err := NewPath(s)
	require.NoError(t, err)
	return p
}

func TestEmptyManifestHash(t *testing.T) {
	m := Empty()
	require.Empty(t, m.Canonical())
	require.Equal(t, hashcodec.Sum(nil), m.Hash())
}

func TestCanonicalSortedByPath(t *testing.T) {
	m := New(map[Path]hashcodec.Hash{
		mustPath(t, "b/file"): hashcodec.Sum([]byte("b")),
		mustPath(t, "a/file"): hashcodec.Sum([]byte("a")),
	})
	canon := string(m.Canonical())
	aLine := hashcodec.Sum([]byte("a")).String() + "  a/file\n"
	bLine := hashcodec.Sum([]byte("b")).String() + "  b/file\n"
	require.Equal(t, aLine+bLine, canon)
}

func TestParseCanonicalRoundTrip(t *testing.T) {
	m := New(map[Path]hashcodec.Hash{
		mustPath(t, "a"):     hashcodec.Sum([]byte("1")),
		mustPath(t, "b/c"):   hashcodec.Sum([]byte("2")),
		mustPath(t, "z/y/x"): hashcodec.Sum([]byte("3")),
	})
	parsed, err := Parse(m.Canonical())
	require.NoError(t, err)
	require.True(t, m.Equal(parsed))
	require.Equal(t, m.Hash(), parsed.Hash())
}

func TestParseEmptyIsEmptyManifest(t *testing.T) {
	m, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, 0, m.Len())
}

func TestParseRejectsOutOfOrderPaths(t *testing.T) {
	_, err := Parse([]byte(hashcodec.Sum([]byte("1")).String() + "  z\n" + hashcodec.Sum([]byte("2")).String() + "  a\n"))
	require.Error(t, err)
}

func TestParseRejectsDuplicatePath(t *testing.T) {
	line := hashcodec.Sum([]byte("1")).String() + "  a\n"
	_, err := Parse([]byte(line + line))
	require.Error(t, err)
}

func TestPathValidation(t *testing.T) {
	valid := []string{"a", "a/b/c", "a.txt", "dir/sub/file.go"}
	for _, s := range valid {
		if _, err := NewPath(s); err != nil {
			t.Errorf("expected %q to be valid, got error: %v", s, err)
		}
	}

	invalid := []string{"", "/abs", "a//b", "a/../b", "../a", "a/", "_MTN/x", "a\x00b"}
	for _, s := range invalid {
		if _, err := NewPath(s); err == nil {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}

func TestWithAndWithoutLeaveOriginalUntouched(t *testing.T) {
	base := Empty()
	p := mustPath(t, "a")
	h := hashcodec.Sum([]byte("x"))

	withA := base.With(p, h)
	require.Equal(t, 0, base.Len())
	require.Equal(t, 1, withA.Len())

	withoutA := withA.Without(p)
	require.Equal(t, 1, withA.Len())
	require.Equal(t, 0, withoutA.Len())
}

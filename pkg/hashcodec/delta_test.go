package hashcodec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, old, new string) {
	t.Helper()
	delta := Diff([]byte(old), []byte(new))
	got, err := delta.Apply([]byte(old))
	require.NoError(t, err)
	require.Equal(t, new, string(got))
}

func TestDiffApplyRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		old, new string
	}{
		{"identical", "a\nb\nc\n", "a\nb\nc\n"},
		{"empty to content", "", "a\nb\n"},
		{"content to empty", "a\nb\n", ""},
		{"both empty", "", ""},
		{"pure append", "a\nb\n", "a\nb\nc\nd\n"},
		{"pure prepend", "b\nc\n", "a\nb\nc\n"},
		{"leading delete", "x\na\nb\nc\n", "a\nb\nc\n"},
		{"middle substitution", "x\na\nb\nc\nd\n", "a\ny\nb\ne\nd\n"},
		{"trailing no newline", "a\nb\nc", "a\nb\nc"},
		{"no common lines", "one\ntwo\n", "three\nfour\nfive\n"},
		{"interleaved insert delete", "x\na\nb\nc\nd\n", "a\ny\nb\ne\nd\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			roundTrip(t, c.old, c.new)
		})
	}
}

func TestDiffIdenticalProducesEmptyDelta(t *testing.T) {
	delta := Diff([]byte("a\nb\nc\n"), []byte("a\nb\nc\n"))
	if !delta.Empty() {
		t.Fatalf("expected empty delta for identical inputs, got %d directives", len(delta.Directives))
	}
}

func TestApplyInterleavedExample(t *testing.T) {
	// Walks the specific interleaved insert/delete/match pattern used to
	// derive the cursor semantics: X is deleted, Y is inserted, B matches,
	// C is deleted and replaced by E, D matches.
	old := []byte("X\nA\nB\nC\nD\n")
	new := []byte("A\nY\nB\nE\nD\n")
	roundTrip(t, string(old), string(new))
}

func TestApplyCorruptDeltaOutOfRangePosition(t *testing.T) {
	delta := Delta{Directives: []Directive{{Kind: Delete, Pos: 100, N: 1}}}
	_, err := delta.Apply([]byte("a\nb\n"))
	if err == nil {
		t.Fatal("expected error applying delta with out-of-range position")
	}
}

func TestApplyCorruptDeltaUnknownDirective(t *testing.T) {
	delta := Delta{Directives: []Directive{{Kind: 'z', Pos: 1, N: 1}}}
	_, err := delta.Apply([]byte("a\nb\n"))
	if err == nil {
		t.Fatal("expected error applying delta with unrecognized directive kind")
	}
}

func TestChainApplicatorReconstructsLongChain(t *testing.T) {
	// Build a chain of deltas v0 -> v1 -> ... -> vN and confirm a piecewise
	// applicator reconstructs vN while only ever holding the current and
	// next version in memory.
	const chainLength = 50
	versions := make([][]byte, 0, chainLength+1)
	versions = append(versions, []byte("line0\n"))
	for i := 1; i <= chainLength; i++ {
		prev := versions[i-1]
		next := append(bytes.TrimSuffix(append([]byte{}, prev...), nil), []byte("line"+itoa(i)+"\n")...)
		versions = append(versions, next)
	}

	applicator := NewChainApplicator(versions[0])
	for i := 1; i <= chainLength; i++ {
		delta := Diff(versions[i-1], versions[i])
		if err := applicator.Apply(delta); err != nil {
			t.Fatalf("chain step %d: %v", i, err)
		}
	}
	got := applicator.Finish()
	if string(got) != string(versions[chainLength]) {
		t.Fatalf("chain reconstruction mismatch")
	}
}

func TestMarshalParseDeltaRoundTrip(t *testing.T) {
	cases := []struct {
		old, new string
	}{
		{"a\nb\nc\n", "a\nx\nc\n"},
		{"a\nb\nc", "a\nb\nc\nd"},
		{"", "only line no newline"},
		{"one\ntwo\n", "three\nfour\nfive\n"},
	}
	for _, c := range cases {
		delta := Diff([]byte(c.old), []byte(c.new))
		marshaled := delta.Marshal()
		parsed, err := ParseDelta(marshaled)
		require.NoError(t, err)
		require.Equal(t, delta, parsed)

		got, err := parsed.Apply([]byte(c.old))
		require.NoError(t, err)
		require.Equal(t, c.new, string(got))
	}
}

func TestParseDeltaRejectsMalformedHeader(t *testing.T) {
	_, err := ParseDelta([]byte("not a directive\n"))
	require.Error(t, err)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

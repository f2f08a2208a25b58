package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/store"
)

func TestAnnotateSmallFile(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	r1, m1 := commitRoot(t, ctx, s, "f", "A\nB\nC\n")
	r2, m2 := commitChild(t, ctx, s, r1, m1, "f", "A\nB\nC\nD\n")
	r3, _ := commitChild(t, ctx, s, r2, m2, "f", "A\nE\nC\nD\n")

	p, err := manifest.NewPath("f")
	require.NoError(t, err)

	assignments, warning, err := Annotate(ctx, s, r3, p)
	require.NoError(t, err)
	require.Empty(t, warning)
	require.Len(t, assignments, 4)
	require.Equal(t, r1, assignments[0])
	require.Equal(t, r3, assignments[1])
	require.Equal(t, r1, assignments[2])
	require.Equal(t, r2, assignments[3])
}

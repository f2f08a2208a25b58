// Package lcs computes the longest common subsequence of two integer
// sequences. It is the shared foundation for both the line-level delta
// codec (pkg/hashcodec) and the three-way merge and annotate algorithms
// (pkg/merge): both need to know which elements of two token sequences
// correspond to each other.
package lcs

// Pair is a single element of a longest common subsequence: index I in the
// first sequence corresponds to index J in the second, with a[I] == b[J].
type Pair struct {
	I, J int
}

// Of computes the longest common subsequence of a and b, returning the
// matched index pairs in strictly ascending order of both I and J. Callers
// (notably the merge engine's annotate pass) rely on that ascending-order
// guarantee.
func Of(a, b []int32) []Pair {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}

	// Standard dynamic-programming LCS length table. This is O(n*m) time and
	// space, which is adequate for line-granularity diffing of individual
	// files; it is not intended for whole-repository-scale inputs.
	lengths := make([][]int32, n+1)
	for i := range lengths {
		lengths[i] = make([]int32, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lengths[i][j] = lengths[i+1][j+1] + 1
			} else if lengths[i+1][j] >= lengths[i][j+1] {
				lengths[i][j] = lengths[i+1][j]
			} else {
				lengths[i][j] = lengths[i][j+1]
			}
		}
	}

	// Walk the table forward, emitting a pair whenever elements agree.
	pairs := make([]Pair, 0, lengths[0][0])
	i, j := 0, 0
	for i < n && j < m {
		if a[i] == b[j] {
			pairs = append(pairs, Pair{I: i, J: j})
			i++
			j++
		} else if lengths[i+1][j] >= lengths[i][j+1] {
			i++
		} else {
			j++
		}
	}
	return pairs
}

// Interner assigns stable integer identifiers to byte-string tokens (lines,
// in the typical case). Its scope is meant to be a single diff or annotate
// invocation; it is deliberately not a process-global table, so that it can
// be garbage collected as soon as that invocation completes.
type Interner struct {
	ids    map[string]int32
	tokens []string
}

// NewInterner creates an empty Interner.
func NewInterner() *Interner {
	return &Interner{ids: make(map[string]int32)}
}

// Intern returns the stable id for token, assigning a new one if this is the
// first time token has been seen.
func (in *Interner) Intern(token string) int32 {
	if id, ok := in.ids[token]; ok {
		return id
	}
	id := int32(len(in.tokens))
	in.tokens = append(in.tokens, token)
	in.ids[token] = id
	return id
}

// InternAll interns every token in order, returning the resulting id slice.
func (in *Interner) InternAll(tokens []string) []int32 {
	ids := make([]int32, len(tokens))
	for i, t := range tokens {
		ids[i] = in.Intern(t)
	}
	return ids
}

// Token returns the token originally associated with id.
func (in *Interner) Token(id int32) string {
	return in.tokens[id]
}

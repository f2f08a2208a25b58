package manifest

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"
	"github.com/strata-vcs/strata/pkg/hashcodec"
)

// Manifest is an immutable snapshot of path-to-file-hash bindings. The zero
// value is the empty manifest.
type Manifest struct {
	entries map[Path]hashcodec.Hash
}

// New builds a Manifest from a path-to-hash mapping. It is the caller's
// responsibility to have constructed valid Paths; New does not re-validate
// them.
func New(entries map[Path]hashcodec.Hash) *Manifest {
	m := &Manifest{entries: make(map[Path]hashcodec.Hash, len(entries))}
	for p, h := range entries {
		m.entries[p] = h
	}
	return m
}

// Empty returns a fresh empty manifest.
func Empty() *Manifest {
	return &Manifest{}
}

// Lookup returns the hash bound to p, if any.
func (m *Manifest) Lookup(p Path) (hashcodec.Hash, bool) {
	if m == nil {
		return "", false
	}
	h, ok := m.entries[p]
	return h, ok
}

// Len reports the number of paths in the manifest.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Paths returns the manifest's paths in ascending lexicographic order.
func (m *Manifest) Paths() []Path {
	if m == nil {
		return nil
	}
	paths := make([]Path, 0, len(m.entries))
	for p := range m.entries {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Less(paths[j]) })
	return paths
}

// With returns a new Manifest equal to m but with p bound to h, leaving m
// itself untouched (manifests are immutable once built).
func (m *Manifest) With(p Path, h hashcodec.Hash) *Manifest {
	out := &Manifest{entries: make(map[Path]hashcodec.Hash, m.Len()+1)}
	if m != nil {
		for k, v := range m.entries {
			out.entries[k] = v
		}
	}
	out.entries[p] = h
	return out
}

// Without returns a new Manifest equal to m but with p removed.
func (m *Manifest) Without(p Path) *Manifest {
	out := &Manifest{entries: make(map[Path]hashcodec.Hash, m.Len())}
	for k, v := range m.entries {
		if k != p {
			out.entries[k] = v
		}
	}
	return out
}

// Canonical renders the manifest's canonical serialisation: lines of
// "<hash>  <path>\n", sorted by path ascending, with no trailing blank
// line. This is the exact byte sequence that feeds manifest hashing, so its
// format is load-bearing, not cosmetic.
func (m *Manifest) Canonical() []byte {
	var buf bytes.Buffer
	for _, p := range m.Paths() {
		h := m.entries[p]
		buf.WriteString(string(h))
		buf.WriteString("  ")
		buf.WriteString(string(p))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Hash computes the manifest's identity: the hash of its canonical
// serialisation. An empty manifest serialises to a zero-byte string, whose
// hash is therefore the fixed empty-string hash.
func (m *Manifest) Hash() hashcodec.Hash {
	return hashcodec.Sum(m.Canonical())
}

// Parse reconstructs a Manifest from its canonical serialisation. It
// rejects malformed lines, duplicate paths, and a serialisation whose
// paths are not already in ascending order, since the canonical form's
// ordering is part of its definition rather than a fact re-derived here.
func Parse(data []byte) (*Manifest, error) {
	m := Empty()
	m.entries = make(map[Path]hashcodec.Hash)

	if len(data) == 0 {
		return m, nil
	}

	var lastPath Path
	haveLast := false

	lines := bytes.Split(data, []byte("\n"))
	// A canonical serialisation ends with a newline, so splitting on "\n"
	// leaves one trailing empty element; drop it.
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}

	for _, raw := range lines {
		line := string(raw)
		if len(line) < 42 || line[40] != ' ' || line[41] != ' ' {
			return nil, errors.Errorf("malformed manifest line %q", line)
		}
		h := hashcodec.Hash(line[:40])
		if !h.Valid() || h.IsNull() {
			return nil, errors.Errorf("malformed manifest line %q: invalid hash", line)
		}
		p, err := NewPath(line[42:])
		if err != nil {
			return nil, errors.Wrapf(err, "malformed manifest line %q", line)
		}
		if haveLast && !lastPath.Less(p) {
			return nil, errors.Errorf("manifest paths out of order: %q does not follow %q", p, lastPath)
		}
		if _, dup := m.entries[p]; dup {
			return nil, errors.Errorf("duplicate manifest path %q", p)
		}
		m.entries[p] = h
		lastPath = p
		haveLast = true
	}

	return m, nil
}

// Equal reports whether two manifests bind exactly the same paths to the
// same hashes.
func (m *Manifest) Equal(other *Manifest) bool {
	if m.Len() != other.Len() {
		return false
	}
	for p, h := range m.entries {
		if oh, ok := other.entries[p]; !ok || oh != h {
			return false
		}
	}
	return true
}

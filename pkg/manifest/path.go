// Package manifest implements component C's snapshot half: the mapping from
// workspace path to file-blob hash that a revision commits to, along with
// its canonical on-disk serialisation.
package manifest

import (
	"strings"

	"github.com/pkg/errors"
)

// ReservedDirectory is the single top-level directory name that may never
// appear in a tracked path. Bookkeeping state (revision-id caches,
// workspace options, pending change-sets) lives there, but that state is a
// workspace concern the core never reads or writes.
const ReservedDirectory = "_MTN"

// Path is a relative, slash-separated workspace path. The zero value is not
// a valid Path; construct one with NewPath.
type Path string

// NewPath validates s and returns it as a Path. It rejects: absolute paths,
// ".." components, empty components (including a leading or trailing
// slash), null bytes, and any path whose first component is the reserved
// bookkeeping directory.
func NewPath(s string) (Path, error) {
	if s == "" {
		return "", errors.New("path is empty")
	}
	if strings.ContainsRune(s, 0) {
		return "", errors.New("path contains a null byte")
	}
	if strings.HasPrefix(s, "/") {
		return "", errors.Errorf("path %q is absolute", s)
	}
	components := strings.Split(s, "/")
	for i, c := range components {
		switch c {
		case "":
			return "", errors.Errorf("path %q has an empty component", s)
		case ".":
			return "", errors.Errorf("path %q has a \".\" component", s)
		case "..":
			return "", errors.Errorf("path %q has a \"..\" component", s)
		}
		if i == 0 && c == ReservedDirectory {
			return "", errors.Errorf("path %q enters the reserved bookkeeping directory", s)
		}
	}
	return Path(s), nil
}

// String implements fmt.Stringer.
func (p Path) String() string {
	return string(p)
}

// Less reports whether p sorts before other in the lexicographic ascending
// order the canonical forms require.
func (p Path) Less(other Path) bool {
	return p < other
}

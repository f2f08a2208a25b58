// Package revision implements the DAG node that component B stores and
// component D merges over: a new manifest bound to its parent(s) through
// change-sets, plus the canonical serialisation that determines a
// revision's identity.
package revision

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/changeset"
	"github.com/strata-vcs/strata/pkg/hashcodec"
)

// Edge binds a revision to one parent: the parent's own identity and
// manifest, plus the change-set that carries the parent's manifest forward
// to this revision's manifest. A root revision (no real parent) is
// represented by a single edge with a null parent revision and manifest,
// and a change-set that adds every path in the new manifest.
type Edge struct {
	ParentRevision hashcodec.Hash
	ParentManifest hashcodec.Hash
	ChangeSet      *changeset.ChangeSet
}

// Revision is an immutable DAG node: a manifest bound to its parent(s). A
// revision with two or more edges is a merge.
type Revision struct {
	NewManifest hashcodec.Hash
	Edges       []Edge
}

// IsMerge reports whether r has more than one parent edge.
func (r *Revision) IsMerge() bool {
	return len(r.Edges) >= 2
}

// IsRoot reports whether r is a root: its single edge has a null parent.
func (r *Revision) IsRoot() bool {
	return len(r.Edges) == 1 && r.Edges[0].ParentRevision.IsNull()
}

// Canonical renders r's canonical serialisation: a new_manifest line
// followed by, for each edge in ascending parent-revision order, an
// old_revision line, an old_manifest line, and the edge's change-set
// canonical stanzas indented by two spaces. This exact byte sequence is
// the input to revision hashing.
func (r *Revision) Canonical() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "new_manifest %s\n", r.NewManifest)

	edges := make([]Edge, len(r.Edges))
	copy(edges, r.Edges)
	sort.Slice(edges, func(i, j int) bool { return edges[i].ParentRevision < edges[j].ParentRevision })

	for _, e := range edges {
		fmt.Fprintf(&buf, "old_revision %s\n", e.ParentRevision)
		fmt.Fprintf(&buf, "old_manifest %s\n", e.ParentManifest)
		stanzas := e.ChangeSet.Canonical()
		for _, line := range bytes.Split(bytes.TrimSuffix(stanzas, []byte("\n")), []byte("\n")) {
			if len(line) == 0 {
				continue
			}
			buf.WriteString("  ")
			buf.Write(line)
			buf.WriteByte('\n')
		}
	}

	return buf.Bytes()
}

// Hash computes r's identity: the hash of its canonical serialisation.
func (r *Revision) Hash() hashcodec.Hash {
	return hashcodec.Sum(r.Canonical())
}

// Parse reconstructs a Revision from its canonical serialisation.
func Parse(data []byte) (*Revision, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("empty revision text")
	}

	var newManifest hashcodec.Hash
	if _, err := fmt.Sscanf(lines[0], "new_manifest %s", &newManifest); err != nil {
		return nil, errors.Wrap(err, "malformed new_manifest line")
	}
	r := &Revision{NewManifest: newManifest}

	i := 1
	for i < len(lines) {
		// A root edge's parent hashes are null (empty), so these lines are
		// matched by prefix rather than with a %s verb, which rejects an
		// empty field.
		if !strings.HasPrefix(lines[i], "old_revision ") {
			return nil, errors.Errorf("malformed old_revision line %q", lines[i])
		}
		parentRevision := hashcodec.Hash(strings.TrimPrefix(lines[i], "old_revision "))
		i++
		if i >= len(lines) {
			return nil, errors.New("truncated revision text: missing old_manifest line")
		}
		if !strings.HasPrefix(lines[i], "old_manifest ") {
			return nil, errors.Errorf("malformed old_manifest line %q", lines[i])
		}
		parentManifest := hashcodec.Hash(strings.TrimPrefix(lines[i], "old_manifest "))
		i++

		var stanzaLines []string
		for i < len(lines) && strings.HasPrefix(lines[i], "  ") {
			stanzaLines = append(stanzaLines, lines[i][2:])
			i++
		}
		cs, err := changeset.ParseCanonical([]byte(strings.Join(stanzaLines, "\n")))
		if err != nil {
			return nil, errors.Wrap(err, "malformed change-set stanzas")
		}
		r.Edges = append(r.Edges, Edge{
			ParentRevision: parentRevision,
			ParentManifest: parentManifest,
			ChangeSet:      cs,
		})
	}

	if len(r.Edges) == 0 {
		return nil, errors.New("revision has no edges")
	}
	return r, nil
}

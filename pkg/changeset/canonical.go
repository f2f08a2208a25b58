package changeset

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
)

// Canonical renders cs in its canonical textual form: one stanza per
// operation, grouped in a fixed order (delete_file, delete_dir,
// rename_file, rename_dir, add_file, patch), each group sorted by path (or
// by source path, for renames). This exact byte sequence feeds revision
// hashing, so the grouping and ordering are part of the format rather than
// a presentation choice.
func (cs *ChangeSet) Canonical() []byte {
	var buf bytes.Buffer

	deleted := sortedPaths(cs.DeletedFiles)
	for _, p := range deleted {
		fmt.Fprintf(&buf, "delete_file %s\n", quote(string(p)))
	}

	deletedDirs := sortedPaths(cs.DeletedDirs)
	for _, p := range deletedDirs {
		fmt.Fprintf(&buf, "delete_dir %s\n", quote(string(p)))
	}

	for _, src := range sortedRenameSources(cs.RenamedFiles) {
		fmt.Fprintf(&buf, "rename_file %s %s\n", quote(string(src)), quote(string(cs.RenamedFiles[src])))
	}

	for _, src := range sortedRenameSources(cs.RenamedDirs) {
		fmt.Fprintf(&buf, "rename_dir %s %s\n", quote(string(src)), quote(string(cs.RenamedDirs[src])))
	}

	added := make([]manifest.Path, 0, len(cs.AddedFiles))
	for p := range cs.AddedFiles {
		added = append(added, p)
	}
	sort.Slice(added, func(i, j int) bool { return added[i].Less(added[j]) })
	for _, p := range added {
		fmt.Fprintf(&buf, "add_file %s %s\n", quote(string(p)), quote(string(cs.AddedFiles[p])))
	}

	patched := make([]manifest.Path, 0, len(cs.Deltas))
	for p := range cs.Deltas {
		patched = append(patched, p)
	}
	sort.Slice(patched, func(i, j int) bool { return patched[i].Less(patched[j]) })
	for _, p := range patched {
		d := cs.Deltas[p]
		fmt.Fprintf(&buf, "patch %s %s %s\n", quote(string(p)), quote(string(d.Old)), quote(string(d.New)))
	}

	return buf.Bytes()
}

func sortedPaths(set map[manifest.Path]struct{}) []manifest.Path {
	paths := make([]manifest.Path, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Less(paths[j]) })
	return paths
}

func sortedRenameSources(renames map[manifest.Path]manifest.Path) []manifest.Path {
	paths := make([]manifest.Path, 0, len(renames))
	for p := range renames {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i].Less(paths[j]) })
	return paths
}

func quote(s string) string {
	return strconv.Quote(s)
}

// ParseCanonical reconstructs a ChangeSet from its canonical textual form.
func ParseCanonical(data []byte) (*ChangeSet, error) {
	cs := New()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields, err := splitStanza(line)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed change-set line %q", line)
		}
		if len(fields) == 0 {
			continue
		}
		keyword, args := fields[0], fields[1:]
		switch keyword {
		case "delete_file":
			if len(args) != 1 {
				return nil, errors.Errorf("delete_file expects 1 argument, got %d", len(args))
			}
			p, err := manifest.NewPath(args[0])
			if err != nil {
				return nil, err
			}
			cs.DeletedFiles[p] = struct{}{}
		case "delete_dir":
			if len(args) != 1 {
				return nil, errors.Errorf("delete_dir expects 1 argument, got %d", len(args))
			}
			p, err := manifest.NewPath(args[0])
			if err != nil {
				return nil, err
			}
			cs.DeletedDirs[p] = struct{}{}
		case "rename_file":
			if len(args) != 2 {
				return nil, errors.Errorf("rename_file expects 2 arguments, got %d", len(args))
			}
			src, err := manifest.NewPath(args[0])
			if err != nil {
				return nil, err
			}
			dst, err := manifest.NewPath(args[1])
			if err != nil {
				return nil, err
			}
			cs.RenamedFiles[src] = dst
		case "rename_dir":
			if len(args) != 2 {
				return nil, errors.Errorf("rename_dir expects 2 arguments, got %d", len(args))
			}
			src, err := manifest.NewPath(args[0])
			if err != nil {
				return nil, err
			}
			dst, err := manifest.NewPath(args[1])
			if err != nil {
				return nil, err
			}
			cs.RenamedDirs[src] = dst
		case "add_file":
			if len(args) != 2 {
				return nil, errors.Errorf("add_file expects 2 arguments, got %d", len(args))
			}
			p, err := manifest.NewPath(args[0])
			if err != nil {
				return nil, err
			}
			h := hashcodec.Hash(args[1])
			if !h.Valid() {
				return nil, errors.Errorf("add_file: invalid hash %q", args[1])
			}
			cs.AddedFiles[p] = h
		case "patch":
			if len(args) != 3 {
				return nil, errors.Errorf("patch expects 3 arguments, got %d", len(args))
			}
			p, err := manifest.NewPath(args[0])
			if err != nil {
				return nil, err
			}
			from := hashcodec.Hash(args[1])
			to := hashcodec.Hash(args[2])
			if !from.Valid() || !to.Valid() {
				return nil, errors.Errorf("patch: invalid hash in %q", line)
			}
			cs.Deltas[p] = FileDelta{Old: from, New: to}
		default:
			return nil, errors.Errorf("unrecognized change-set stanza keyword %q", keyword)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cs, nil
}

// splitStanza tokenizes a single canonical-form line into its keyword and
// quoted arguments.
func splitStanza(line string) ([]string, error) {
	var fields []string
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		if line[i] == '"' {
			j := i + 1
			for j < len(line) {
				if line[j] == '\\' {
					j += 2
					continue
				}
				if line[j] == '"' {
					break
				}
				j++
			}
			if j >= len(line) {
				return nil, errors.New("unterminated quoted field")
			}
			unquoted, err := strconv.Unquote(line[i : j+1])
			if err != nil {
				return nil, err
			}
			fields = append(fields, unquoted)
			i = j + 1
		} else {
			j := i
			for j < len(line) && line[j] != ' ' {
				j++
			}
			fields = append(fields, line[i:j])
			i = j
		}
	}
	return fields, nil
}

package hashcodec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/strata-vcs/strata/pkg/lcs"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

// DirectiveKind distinguishes the two forms of delta directive.
type DirectiveKind byte

const (
	// Add inserts literal lines at the current source position.
	Add DirectiveKind = 'a'
	// Delete skips a run of source lines without copying them.
	Delete DirectiveKind = 'd'
)

// Directive is a single step of a delta program. Pos and N are interpreted
// against the 1-indexed line numbering of the source (base) document being
// applied against:
//
//   - Add{Pos, N, Lines}: copy source lines up through Pos into the output,
//     then append the N literal Lines.
//   - Delete{Pos, N}: copy source lines up through Pos-1 into the output,
//     then skip the next N source lines without copying them.
//
// A delta is meaningful only relative to the specific base it was computed
// against; applying it to any other base is undefined and will generally
// surface as a CorruptDelta error or a silently wrong reconstruction.
type Directive struct {
	Kind  DirectiveKind
	Pos   int
	N     int
	Lines []string
}

// Delta is an ordered sequence of directives that transforms one document
// into another.
type Delta struct {
	Directives []Directive
}

// Empty reports whether the delta carries no directives, i.e. applying it
// to a base reproduces the base unchanged.
func (d Delta) Empty() bool {
	return len(d.Directives) == 0
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := string(data)
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// Diff computes a Delta that, applied to old, reconstructs new. Diff is free
// to choose any directive sequence it likes; the only contract is that
// Apply(Diff(old, new), old) == new. The implementation matches lines by
// longest common subsequence so that unrelated insertions and deletions
// don't bleed into one another.
func Diff(old, new []byte) Delta {
	oldLines := splitLines(old)
	newLines := splitLines(new)

	interner := lcs.NewInterner()
	oldIDs := interner.InternAll(oldLines)
	newIDs := interner.InternAll(newLines)
	pairs := lcs.Of(oldIDs, newIDs)

	var directives []Directive

	// lastSeen is the 1-indexed position of the furthest old line that has
	// been accounted for (matched or deleted) so far; it anchors both the
	// flush-prefix of the next delete and the flush-prefix of the next
	// insert. prevNewIdx is the 0-indexed count of new lines already
	// accounted for (matched or inserted).
	lastSeen := 0
	prevNewIdx := 0

	process := func(oi, oj int, final bool) {
		if unmatchedOld := oi - lastSeen - 1; unmatchedOld > 0 {
			pos := lastSeen + 1
			directives = append(directives, Directive{Kind: Delete, Pos: pos, N: unmatchedOld})
			lastSeen = oi - 1
		}
		if unmatchedNew := oj - prevNewIdx - 1; unmatchedNew > 0 {
			lines := append([]string(nil), newLines[prevNewIdx:prevNewIdx+unmatchedNew]...)
			directives = append(directives, Directive{Kind: Add, Pos: lastSeen, N: unmatchedNew, Lines: lines})
		}
		if !final {
			lastSeen = oi
			prevNewIdx = oj
		}
	}

	for _, p := range pairs {
		process(p.I+1, p.J+1, false)
	}
	process(len(oldLines)+1, len(newLines)+1, true)

	return Delta{Directives: directives}
}

// Apply reconstructs a document by walking base under the instructions in
// d. It returns strataerrors.CorruptDelta if any directive references a
// position outside the bounds established by the directives processed
// before it.
func (d Delta) Apply(base []byte) ([]byte, error) {
	lines := splitLines(base)
	var out bytes.Buffer

	// cursor is the 1-indexed position of the next source line that has not
	// yet been written to out.
	cursor := 1

	flushTo := func(upTo int) error {
		if upTo < cursor-1 {
			return errors.Wrapf(strataerrors.CorruptDelta, "flush target %d precedes cursor %d", upTo, cursor)
		}
		for ; cursor <= upTo; cursor++ {
			if cursor < 1 || cursor > len(lines) {
				return errors.Wrapf(strataerrors.CorruptDelta, "flush position %d out of range (source has %d lines)", cursor, len(lines))
			}
			out.WriteString(lines[cursor-1])
		}
		return nil
	}

	for _, dir := range d.Directives {
		switch dir.Kind {
		case Add:
			if err := flushTo(dir.Pos); err != nil {
				return nil, err
			}
			for _, line := range dir.Lines {
				out.WriteString(line)
			}
		case Delete:
			if err := flushTo(dir.Pos - 1); err != nil {
				return nil, err
			}
			if dir.N < 0 || cursor+dir.N-1 > len(lines) {
				return nil, errors.Wrapf(strataerrors.CorruptDelta, "delete of %d lines at position %d exceeds source length %d", dir.N, dir.Pos, len(lines))
			}
			cursor += dir.N
		default:
			return nil, errors.Wrapf(strataerrors.CorruptDelta, "unrecognized directive kind %q", rune(dir.Kind))
		}
	}

	if err := flushTo(len(lines)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// String renders a Delta in the spec's canonical textual form, one
// directive per pair of lines: "a POS N" followed by the N literal lines
// for an insertion, or "d POS N" for a deletion.
func (d Delta) String() string {
	var buf bytes.Buffer
	for _, dir := range d.Directives {
		switch dir.Kind {
		case Add:
			fmt.Fprintf(&buf, "a %d %d\n", dir.Pos, dir.N)
			for _, line := range dir.Lines {
				buf.WriteString(line)
			}
		case Delete:
			fmt.Fprintf(&buf, "d %d %d\n", dir.Pos, dir.N)
		}
	}
	return buf.String()
}

// Marshal renders a Delta into a self-delimiting binary form suitable for
// storage: each inserted line is prefixed with its exact byte length, so a
// line that happens to lack a trailing newline (the last line of a
// document) round-trips without being confused with the next directive's
// header. Use this instead of String for anything that must survive
// Parse; String is for display only.
func (d Delta) Marshal() []byte {
	var buf bytes.Buffer
	for _, dir := range d.Directives {
		switch dir.Kind {
		case Add:
			fmt.Fprintf(&buf, "a %d %d\n", dir.Pos, dir.N)
			for _, line := range dir.Lines {
				fmt.Fprintf(&buf, "%d\n", len(line))
				buf.WriteString(line)
			}
		case Delete:
			fmt.Fprintf(&buf, "d %d %d\n", dir.Pos, dir.N)
		}
	}
	return buf.Bytes()
}

// ParseDelta is the inverse of Marshal.
func ParseDelta(data []byte) (Delta, error) {
	r := bufio.NewReader(bytes.NewReader(data))
	var directives []Directive

	for {
		header, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && header == "" {
				break
			}
			if err != io.EOF {
				return Delta{}, errors.Wrap(err, "read delta directive header")
			}
		}
		header = strings.TrimSuffix(header, "\n")
		if header == "" {
			break
		}

		var kind byte
		var pos, n int
		if _, scanErr := fmt.Sscanf(header, "%c %d %d", &kind, &pos, &n); scanErr != nil {
			return Delta{}, errors.Wrapf(strataerrors.CorruptDelta, "malformed directive header %q", header)
		}

		switch DirectiveKind(kind) {
		case Add:
			lines := make([]string, 0, n)
			for i := 0; i < n; i++ {
				lenLine, lerr := r.ReadString('\n')
				if lerr != nil && lerr != io.EOF {
					return Delta{}, errors.Wrap(lerr, "read delta line length")
				}
				lenLine = strings.TrimSuffix(lenLine, "\n")
				length, aerr := strconv.Atoi(lenLine)
				if aerr != nil {
					return Delta{}, errors.Wrapf(strataerrors.CorruptDelta, "malformed line length %q", lenLine)
				}
				content := make([]byte, length)
				if _, rerr := io.ReadFull(r, content); rerr != nil {
					return Delta{}, errors.Wrap(rerr, "read delta line content")
				}
				lines = append(lines, string(content))
			}
			directives = append(directives, Directive{Kind: Add, Pos: pos, N: n, Lines: lines})
		case Delete:
			directives = append(directives, Directive{Kind: Delete, Pos: pos, N: n})
		default:
			return Delta{}, errors.Wrapf(strataerrors.CorruptDelta, "unrecognized directive kind %q", kind)
		}

		if err == io.EOF {
			break
		}
	}

	return Delta{Directives: directives}, nil
}

package merge

import (
	"bytes"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

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

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sideEdits collects, from a diff against the shared ancestor, which
// ancestor line numbers (1-indexed) were deleted and what was inserted at
// each anchor position. A substitution of ancestor line L shows up as
// both deleted[L] and insert[L] populated together, since Diff represents
// "replace" as a delete immediately followed by an insert at the same
// anchor.
type sideEdits struct {
	deleted map[int]bool
	insert  map[int][]string
}

func collectEdits(delta hashcodec.Delta) sideEdits {
	e := sideEdits{deleted: map[int]bool{}, insert: map[int][]string{}}
	for _, d := range delta.Directives {
		switch d.Kind {
		case hashcodec.Delete:
			for i := 0; i < d.N; i++ {
				e.deleted[d.Pos+i] = true
			}
		case hashcodec.Add:
			e.insert[d.Pos] = append(e.insert[d.Pos], d.Lines...)
		}
	}
	return e
}

// ThreeWayMergeContent merges leftBytes and rightBytes, both derived from
// ancBytes, by aligning each side's edits against the shared ancestor line
// numbering. Regions touched by only one side are taken from that side;
// regions left untouched by both are taken from the ancestor; regions
// touched identically by both sides collapse to the one result; regions
// touched differently by both sides are reported as a conflict and
// rendered with inline markers in the returned bytes.
func ThreeWayMergeContent(ancBytes, leftBytes, rightBytes []byte) ([]byte, *strataerrors.ConflictError) {
	ancLines := splitLines(ancBytes)
	left := collectEdits(hashcodec.Diff(ancBytes, leftBytes))
	right := collectEdits(hashcodec.Diff(ancBytes, rightBytes))

	var out bytes.Buffer
	var anyConflict bool

	writeLines := func(lines []string) {
		for _, l := range lines {
			out.WriteString(l)
		}
	}

	emitInsertAt := func(pos int) {
		li, lok := left.insert[pos]
		ri, rok := right.insert[pos]
		switch {
		case lok && rok:
			if linesEqual(li, ri) {
				writeLines(li)
			} else {
				anyConflict = true
				out.WriteString("<<<<<<< left\n")
				writeLines(li)
				out.WriteString("=======\n")
				writeLines(ri)
				out.WriteString(">>>>>>> right\n")
			}
		case lok:
			writeLines(li)
		case rok:
			writeLines(ri)
		}
	}

	emitInsertAt(0)

	for lineNum := 1; lineNum <= len(ancLines); lineNum++ {
		ld := left.deleted[lineNum]
		rd := right.deleted[lineNum]
		li, lok := left.insert[lineNum]
		ri, rok := right.insert[lineNum]

		switch {
		case !ld && !rd:
			out.WriteString(ancLines[lineNum-1])
			emitInsertAt(lineNum)

		case ld && rd:
			switch {
			case lok && rok:
				if linesEqual(li, ri) {
					writeLines(li)
				} else {
					anyConflict = true
					out.WriteString("<<<<<<< left\n")
					writeLines(li)
					out.WriteString("=======\n")
					writeLines(ri)
					out.WriteString(">>>>>>> right\n")
				}
			case lok || rok:
				// One side rewrote this line, the other plainly deleted it:
				// a structural delete/modify conflict, not a content one.
				anyConflict = true
				out.WriteString("<<<<<<< left\n")
				if lok {
					writeLines(li)
				} else {
					out.WriteString("(deleted)\n")
				}
				out.WriteString("=======\n")
				if rok {
					writeLines(ri)
				} else {
					out.WriteString("(deleted)\n")
				}
				out.WriteString(">>>>>>> right\n")
			default:
				// Both sides cleanly deleted the line; nothing to emit.
			}

		case ld && !rd:
			if lok {
				writeLines(li)
			}
			// else: left deleted, right left it untouched - clean delete.

		case rd && !ld:
			if rok {
				writeLines(ri)
			}
		}
	}

	if anyConflict {
		return out.Bytes(), &strataerrors.ConflictError{Kind: "content", Detail: "three-way merge produced overlapping edits"}
	}
	return out.Bytes(), nil
}

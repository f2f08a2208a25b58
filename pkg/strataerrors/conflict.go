package strataerrors

import "fmt"

// ConflictError carries the structured detail behind a MergeConflict: which
// path was in conflict and what kind of conflict it was. Merge callers that
// want to present conflicts to a human, rather than just fail, should
// errors.As into this type.
type ConflictError struct {
	// Path is the manifest path the conflict occurred at, or empty when the
	// producer only sees bytes (ThreeWayMergeContent) and the caller has
	// not attached a path.
	Path string
	// Kind names the conflict category in the vocabulary of the merge
	// engine: "content", "add-add", "delete-modify", or "rename-rename".
	Kind string
	// Detail is a human-readable elaboration, e.g. which side deleted the
	// path and which modified it for a delete-modify conflict.
	Detail string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("merge conflict (%s) at %q: %s", e.Kind, e.Path, e.Detail)
	}
	return fmt.Sprintf("merge conflict (%s): %s", e.Kind, e.Detail)
}

// Is allows errors.Is(err, MergeConflict) to match a *ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == MergeConflict
}

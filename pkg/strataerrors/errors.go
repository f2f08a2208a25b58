// Package strataerrors defines the sentinel error kinds shared across the
// store, change-set, merge, and certificate layers. Callers identify a
// particular failure mode with errors.Is against one of these sentinels;
// the wrapping chain (built with github.com/pkg/errors) carries whatever
// contextual detail - offending id, attempted operation - the layer that
// raised the error had on hand.
package strataerrors

import "errors"

var (
	// CorruptStore indicates that the object store's on-disk invariants
	// have been violated in a way that prevents it from continuing: a
	// delta chain that cycles back on itself, a row referencing a kind it
	// doesn't belong to, or similar.
	CorruptStore = errors.New("corrupt store")

	// MissingObject indicates that a hash was looked up but no full or
	// delta entry for it exists in the store.
	MissingObject = errors.New("missing object")

	// CorruptDelta indicates that a delta's directives could not be
	// applied to its base: a position outside the bounds established by
	// the directives processed before it, or an unrecognized directive.
	CorruptDelta = errors.New("corrupt delta")

	// SchemaMismatch indicates that the store's on-disk schema version
	// does not match what this build expects.
	SchemaMismatch = errors.New("schema mismatch")

	// InconsistentConcat indicates that two change-sets could not be
	// concatenated because the rearrangements they describe conflict.
	InconsistentConcat = errors.New("inconsistent change-set concatenation")

	// InconsistentChangeSet indicates that a change-set's own internal
	// structure is self-contradictory: a path both added and deleted, a
	// delta recorded against a path absent from the post-rearrangement
	// path set, and similar.
	InconsistentChangeSet = errors.New("inconsistent change-set")

	// SignatureBad indicates that a certificate's signature was
	// cryptographically checked against its claimed signer and failed.
	SignatureBad = errors.New("bad certificate signature")

	// SignatureUnknownKey indicates that a certificate names a signer key
	// that the verifier has no public key for, so its signature cannot be
	// checked at all.
	SignatureUnknownKey = errors.New("unknown certificate signer key")

	// MergeConflict indicates that a three-way merge could not produce a
	// single resolved result without human input. Callers that want the
	// structured conflict detail should use errors.As with
	// *ConflictError rather than matching this sentinel directly.
	MergeConflict = errors.New("merge conflict")

	// Duplicate indicates an attempt to write an object, revision, or
	// certificate that already exists unchanged in the store.
	Duplicate = errors.New("duplicate object")
)

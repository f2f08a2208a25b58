// Package hashcodec implements component A of the core: canonical hashing of
// byte blobs and the xdelta-style line-addressed delta codec used to
// reconstruct historic versions from a chain of reverse deltas.
package hashcodec

import (
	"crypto/sha1"
	"encoding/hex"
)

// Hash is a 160-bit digest rendered as 40 lowercase hex characters. The null
// hash is the empty string and is treated by every consumer in this module
// as the distinguished root ancestor / absence-of-content marker.
type Hash string

// NullHash is the distinguished empty hash.
const NullHash Hash = ""

// IsNull reports whether h is the null hash.
func (h Hash) IsNull() bool {
	return h == NullHash
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return string(h)
}

// Sum computes the canonical hash of data. The digest width (40 hex
// characters) is part of the wire format fixed by the specification; a
// different hash primitive is not a drop-in substitute without also
// changing every canonical form that embeds a Hash.
func Sum(data []byte) Hash {
	digest := sha1.Sum(data)
	return Hash(hex.EncodeToString(digest[:]))
}

// Valid reports whether h is syntactically a well-formed hash: either the
// null hash, or exactly 40 lowercase hex characters.
func (h Hash) Valid() bool {
	if h.IsNull() {
		return true
	}
	if len(h) != 40 {
		return false
	}
	for _, r := range string(h) {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}

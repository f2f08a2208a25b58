// Package cert implements component E's signed facts: name/value pairs
// attached to a revision hash and signed by a key, plus the trust
// evaluation that turns a pile of certs into an ok/bad/unknown verdict.
package cert

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/encoding"
	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

// Standard cert names, carried over unchanged from the system this was
// distilled from.
const (
	NameBranch     = "branch"
	NameAuthor     = "author"
	NameDate       = "date"
	NameChangelog  = "changelog"
	NameComment    = "comment"
	NameTag        = "tag"
	NameTestResult = "testresult"
)

// Cert is a signed fact: name/value attached to target, signed by the key
// named SignerKeyID.
type Cert struct {
	Target       hashcodec.Hash
	Name         string
	Value        []byte
	SignerKeyID  string
	Signature    []byte
}

// SignableText renders the exact bytes that get signed and verified:
// [name@target:base64(value)]. This is the wire format the original system
// used for its cert signable text, kept unchanged since it's part of the
// interop surface with anything that already speaks it.
func (c *Cert) SignableText() []byte {
	return []byte("[" + c.Name + "@" + string(c.Target) + ":" + encoding.EncodeBase64(c.Value) + "]")
}

// Sign populates Signature by signing c's signable text with priv, and sets
// SignerKeyID to keyID.
func (c *Cert) Sign(keyID string, priv ed25519.PrivateKey) {
	c.SignerKeyID = keyID
	c.Signature = ed25519.Sign(priv, c.SignableText())
}

// Verify checks c's signature against pub. It does not consult trust
// policy; it only answers "is this bytes-correct", returning
// strataerrors.SignatureBad on mismatch.
func (c *Cert) Verify(pub ed25519.PublicKey) error {
	if !ed25519.Verify(pub, c.SignableText(), c.Signature) {
		return errors.Wrap(strataerrors.SignatureBad, "cert signature does not verify")
	}
	return nil
}

// KeyLookup resolves a signer key id to a public key. It returns ok=false
// if the id is unknown, which Check treats as "unknown" trust rather
// than "bad".
type KeyLookup func(keyID string) (pub ed25519.PublicKey, ok bool)

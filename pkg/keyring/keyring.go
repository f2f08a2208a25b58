// Package keyring implements component E's signing identities: named
// ed25519 keypairs. On-disk key storage format is an embedder concern and
// deliberately out of scope here; Keyring is an in-memory registry that a
// caller populates however it sees fit (a file, a hardware token, a
// passphrase-derived secret) and then hands to the cert and merge layers.
package keyring

import (
	"crypto/ed25519"
	"crypto/rand"
	"sync"

	"github.com/pkg/errors"
)

// Identity is a named keypair.
type Identity struct {
	Name    string
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Keyring holds a set of identities in memory, keyed by name.
type Keyring struct {
	mu   sync.RWMutex
	byID map[string]Identity
}

// New returns an empty Keyring.
func New() *Keyring {
	return &Keyring{byID: make(map[string]Identity)}
}

// Generate creates a fresh ed25519 keypair under name and adds it to the
// keyring.
func (k *Keyring) Generate(name string) (Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, errors.Wrap(err, "generate ed25519 keypair")
	}
	id := Identity{Name: name, Public: pub, Private: priv}
	k.mu.Lock()
	k.byID[name] = id
	k.mu.Unlock()
	return id, nil
}

// AddPublic registers a public key under name without an associated
// private key, letting the keyring verify certs from signers this process
// cannot sign as.
func (k *Keyring) AddPublic(name string, pub ed25519.PublicKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	existing := k.byID[name]
	existing.Name = name
	existing.Public = pub
	k.byID[name] = existing
}

// Lookup satisfies cert.KeyLookup: it resolves a name to its public key.
func (k *Keyring) Lookup(name string) (ed25519.PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	id, ok := k.byID[name]
	if !ok || id.Public == nil {
		return nil, false
	}
	return id.Public, true
}

// Signer returns the private key registered under name, for use with
// cert.Cert.Sign. It fails if name has no private key in this keyring
// (for instance because it was added via AddPublic only).
func (k *Keyring) Signer(name string) (ed25519.PrivateKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	id, ok := k.byID[name]
	if !ok || id.Private == nil {
		return nil, errors.Errorf("no private key registered for %q", name)
	}
	return id.Private, nil
}

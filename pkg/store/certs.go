package store

import (
	"context"
	"crypto/ed25519"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/cert"
	"github.com/strata-vcs/strata/pkg/hashcodec"
)

// certRowID derives a primary key for a cert row from its identifying
// fields, so inserting the same cert twice is a harmless no-op rather than
// a duplicate row.
func certRowID(c *cert.Cert) string {
	h := sha1.New()
	h.Write([]byte(c.Target))
	h.Write([]byte{0})
	h.Write([]byte(c.Name))
	h.Write([]byte{0})
	h.Write(c.Value)
	h.Write([]byte{0})
	h.Write([]byte(c.SignerKeyID))
	h.Write([]byte{0})
	h.Write(c.Signature)
	return hex.EncodeToString(h.Sum(nil))
}

// PutCert records a cert. Certs are immutable facts: storing the same one
// twice is idempotent.
func (s *Store) PutCert(ctx context.Context, c *cert.Cert) error {
	_, err := s.exec(ctx,
		"INSERT OR IGNORE INTO certs(id, target, name, value, signer_key_id, signature) VALUES (?, ?, ?, ?, ?, ?)",
		certRowID(c), string(c.Target), c.Name, c.Value, c.SignerKeyID, c.Signature)
	if err != nil {
		return errors.Wrapf(err, "put cert %s@%s", c.Name, c.Target)
	}
	return nil
}

func scanCerts(rows *sql.Rows) ([]*cert.Cert, error) {
	defer rows.Close()
	var out []*cert.Cert
	for rows.Next() {
		var target, name, signerKeyID string
		var value, signature []byte
		if err := rows.Scan(&target, &name, &value, &signerKeyID, &signature); err != nil {
			return nil, errors.Wrap(err, "scan cert row")
		}
		out = append(out, &cert.Cert{
			Target:      hashcodec.Hash(target),
			Name:        name,
			Value:       value,
			SignerKeyID: signerKeyID,
			Signature:   signature,
		})
	}
	return out, rows.Err()
}

// CertsForTarget returns every cert attached to target, regardless of
// name or trust.
func (s *Store) CertsForTarget(ctx context.Context, target hashcodec.Hash) ([]*cert.Cert, error) {
	rows, err := s.query(ctx, "SELECT target, name, value, signer_key_id, signature FROM certs WHERE target = ?", string(target))
	if err != nil {
		return nil, errors.Wrapf(err, "query certs for %s", target)
	}
	return scanCerts(rows)
}

// CertsNamed returns every cert attached to target under the given name.
func (s *Store) CertsNamed(ctx context.Context, target hashcodec.Hash, name string) ([]*cert.Cert, error) {
	rows, err := s.query(ctx, "SELECT target, name, value, signer_key_id, signature FROM certs WHERE target = ? AND name = ?", string(target), name)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s certs for %s", name, target)
	}
	return scanCerts(rows)
}

// CertsByName returns every cert in the store under the given name,
// across all targets. Branch-head computation uses this to find every
// revision ever certified into a given branch.
func (s *Store) CertsByName(ctx context.Context, name string) ([]*cert.Cert, error) {
	rows, err := s.query(ctx, "SELECT target, name, value, signer_key_id, signature FROM certs WHERE name = ?", name)
	if err != nil {
		return nil, errors.Wrapf(err, "query certs named %s", name)
	}
	return scanCerts(rows)
}

// PutPublicKey registers a signer's public key under name, so future cert
// checks against this store can resolve that signer.
func (s *Store) PutPublicKey(ctx context.Context, name string, pub ed25519.PublicKey) error {
	_, err := s.exec(ctx, "INSERT OR REPLACE INTO keys(name, public_key) VALUES (?, ?)", name, []byte(pub))
	if err != nil {
		return errors.Wrapf(err, "put public key %s", name)
	}
	return nil
}

// LookupPublicKey resolves name against the store's keys relation.
func (s *Store) LookupPublicKey(ctx context.Context, name string) (ed25519.PublicKey, bool) {
	var raw []byte
	err := s.queryRow(ctx, "SELECT public_key FROM keys WHERE name = ?", name).Scan(&raw)
	if err != nil {
		return nil, false
	}
	return ed25519.PublicKey(raw), true
}

// KeyLookup returns a cert.KeyLookup bound to this store and ctx, for
// passing to cert.Check or cert.EraseBogus.
func (s *Store) KeyLookup(ctx context.Context) cert.KeyLookup {
	return func(name string) (ed25519.PublicKey, bool) {
		return s.LookupPublicKey(ctx, name)
	}
}

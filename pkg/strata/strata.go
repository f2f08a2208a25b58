// Package strata is the facade component E's embedders call through: the
// three operations named by the external interface - Lookup, Commit, and
// Merge - wired on top of the object store, change-set, and merge
// packages. A *strata.Repository owns one open *store.Store plus a
// signing identity and trust policy; everything else delegates to the
// lower layers.
package strata

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/cert"
	"github.com/strata-vcs/strata/pkg/changeset"
	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/logging"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/merge"
	"github.com/strata-vcs/strata/pkg/revision"
	"github.com/strata-vcs/strata/pkg/store"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

// Signer produces a signature over the given signable bytes, using
// whatever private key the caller's identity has bound to keyID.
type Signer func(keyID string, message []byte) []byte

// Repository is the embedder-facing handle on one strata object store.
type Repository struct {
	store  *store.Store
	sign   Signer
	keyID  string
	author string
	policy cert.Policy
}

// Open opens (creating if necessary, via store.Open's own schema
// initialization) the object store database at path and returns a
// Repository bound to the given signing identity. policy may be nil, in
// which case cert.DefaultPolicy is used.
func Open(databasePath string, logger *logging.Logger, keyID, author string, sign Signer, policy cert.Policy) (*Repository, error) {
	s, err := store.Open(databasePath, logger)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open object store")
	}
	if policy == nil {
		policy = cert.DefaultPolicy
	}
	return &Repository{store: s, sign: sign, keyID: keyID, author: author, policy: policy}, nil
}

// Close releases the underlying object store.
func (r *Repository) Close() error {
	return r.store.Close()
}

// LookupResult is the answer to a Lookup query: the revision itself, its
// manifest, and - when a path was requested - that path's file content.
type LookupResult struct {
	Revision    *revision.Revision
	Manifest    *manifest.Manifest
	FileContent []byte
}

// Lookup resolves a revision id to its manifest, and optionally reads the
// content of one path within it. Pass an empty path to skip the file read.
func (r *Repository) Lookup(ctx context.Context, revisionID hashcodec.Hash, path manifest.Path) (*LookupResult, error) {
	rev, err := r.store.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup revision %s", revisionID)
	}
	m, err := r.store.GetManifest(ctx, rev.NewManifest)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup manifest %s", rev.NewManifest)
	}
	result := &LookupResult{Revision: rev, Manifest: m}
	if path != "" {
		h, ok := m.Lookup(path)
		if !ok {
			return nil, errors.Errorf("path %q not present in revision %s", path, revisionID)
		}
		content, err := r.store.Get(ctx, store.KindFile, h)
		if err != nil {
			return nil, errors.Wrapf(err, "read file %s at %q", h, path)
		}
		result.FileContent = content
	}
	return result, nil
}

// Files describes the desired working-tree state for a Commit: the full
// set of paths and their content, not just the paths that changed.
type Files map[manifest.Path][]byte

// Commit stores every file in files, builds the resulting manifest, diffs
// it against parent's manifest (treating a null parent as the empty
// manifest, producing a root revision), and writes a new revision along
// with standard branch/author/date certs signed under the repository's
// identity. It returns the new revision's id.
func (r *Repository) Commit(ctx context.Context, parent hashcodec.Hash, branch string, files Files, changelog string) (hashcodec.Hash, error) {
	parentManifest := manifest.Empty()
	parentRevisionID := hashcodec.NullHash
	if !parent.IsNull() {
		parentRev, err := r.store.GetRevision(ctx, parent)
		if err != nil {
			return hashcodec.NullHash, errors.Wrapf(err, "lookup parent revision %s", parent)
		}
		parentManifest, err = r.store.GetManifest(ctx, parentRev.NewManifest)
		if err != nil {
			return hashcodec.NullHash, errors.Wrapf(err, "lookup parent manifest %s", parentRev.NewManifest)
		}
		parentRevisionID = parent
	}

	entries := make(map[manifest.Path]hashcodec.Hash, len(files))
	// demotedFull tracks which of the parent's file hashes have already
	// been flipped from a full object to a delta this commit, so that two
	// paths sharing the same old content hash don't both try to demote it.
	demotedFull := make(map[hashcodec.Hash]bool)
	for path, content := range files {
		h := hashcodec.Sum(content)
		entries[path] = h

		oldHash, existed := parentManifest.Lookup(path)
		switch {
		case existed && oldHash == h:
			// Content unchanged; already stored from a previous commit.
		case existed && !demotedFull[oldHash]:
			err := r.store.PutVersion(ctx, store.KindFile, oldHash, h, content)
			switch {
			case err == nil:
				demotedFull[oldHash] = true
			case errors.Is(err, strataerrors.MissingObject):
				// The old content is already a delta (demoted by an earlier
				// commit on another branch), so store the new content in full.
				if err := r.store.PutFull(ctx, store.KindFile, h, content); err != nil {
					return hashcodec.NullHash, errors.Wrapf(err, "store file at %q", path)
				}
			default:
				return hashcodec.NullHash, errors.Wrapf(err, "store file at %q", path)
			}
		default:
			if err := r.store.PutFull(ctx, store.KindFile, h, content); err != nil {
				return hashcodec.NullHash, errors.Wrapf(err, "store file at %q", path)
			}
		}
	}
	newManifest := manifest.New(entries)

	cs := changeset.DiffManifests(parentManifest, newManifest)
	rev := &revision.Revision{
		NewManifest: newManifest.Hash(),
		Edges: []revision.Edge{{
			ParentRevision: parentRevisionID,
			ParentManifest: parentManifest.Hash(),
			ChangeSet:      cs,
		}},
	}

	if err := r.store.PutRevision(ctx, rev, newManifest); err != nil {
		return hashcodec.NullHash, errors.Wrap(err, "store revision")
	}

	revisionID := rev.Hash()
	if err := r.signStandardCerts(ctx, revisionID, branch, changelog); err != nil {
		return hashcodec.NullHash, err
	}
	return revisionID, nil
}

func (r *Repository) signStandardCerts(ctx context.Context, target hashcodec.Hash, branch, changelog string) error {
	if r.sign == nil {
		return nil
	}
	certs := []*cert.Cert{
		{Target: target, Name: cert.NameBranch, Value: []byte(branch)},
		{Target: target, Name: cert.NameAuthor, Value: []byte(r.author)},
		{Target: target, Name: cert.NameDate, Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	}
	if changelog != "" {
		certs = append(certs, &cert.Cert{Target: target, Name: cert.NameChangelog, Value: []byte(changelog)})
	}
	for _, c := range certs {
		c.SignerKeyID = r.keyID
		c.Signature = r.sign(r.keyID, c.SignableText())
		if err := r.store.PutCert(ctx, c); err != nil {
			return errors.Wrapf(err, "store %s cert", c.Name)
		}
	}
	return nil
}

// Merge merges the two head revisions left and right, producing a new
// merge revision if the merge is clean. If any path conflicts, no
// revision is written and the conflicts are returned instead.
func (r *Repository) Merge(ctx context.Context, left, right hashcodec.Hash, branch string) (hashcodec.Hash, []*strataerrors.ConflictError, error) {
	var signer func([]byte) []byte
	if r.sign != nil {
		keyID := r.keyID
		signer = func(msg []byte) []byte { return r.sign(keyID, msg) }
	}
	id := merge.Identity{KeyID: r.keyID, Author: r.author, Branch: branch}
	return merge.Heads(ctx, r.store, left, right, id, signer)
}

// BranchHeads returns the current heads of branch, as trusted by this
// repository's policy and keyring.
func (r *Repository) BranchHeads(ctx context.Context, branch string) ([]hashcodec.Hash, error) {
	return merge.BranchHeads(ctx, r.store, branch, r.store.KeyLookup(ctx), r.policy)
}

// Check runs a full consistency sweep over the underlying object store.
func (r *Repository) Check(ctx context.Context) (*store.Report, error) {
	return r.store.Check(ctx)
}

// RegisterPublicKey records a signer's public key so that future cert
// trust checks (including this repository's own BranchHeads) can resolve
// signatures from that key id. The private half, if any, lives only with
// whatever Signer the caller supplied to Open.
func (r *Repository) RegisterPublicKey(ctx context.Context, keyID string, pub ed25519.PublicKey) error {
	return r.store.PutPublicKey(ctx, keyID, pub)
}

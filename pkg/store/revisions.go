package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/changeset"
	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/revision"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

// GetManifest reconstructs and parses the manifest stored under id.
func (s *Store) GetManifest(ctx context.Context, id hashcodec.Hash) (*manifest.Manifest, error) {
	data, err := s.Get(ctx, KindManifest, id)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, errors.Wrapf(strataerrors.CorruptStore, "manifest %s: %v", id, err)
	}
	return m, nil
}

// GetRevision reconstructs and parses the revision stored under id.
func (s *Store) GetRevision(ctx context.Context, id hashcodec.Hash) (*revision.Revision, error) {
	data, err := s.Get(ctx, KindRevision, id)
	if err != nil {
		return nil, err
	}
	r, err := revision.Parse(data)
	if err != nil {
		return nil, errors.Wrapf(strataerrors.CorruptStore, "revision %s: %v", id, err)
	}
	return r, nil
}

// PutRevision writes a fully formed revision and its new manifest to the
// store inside a single guarded transaction. Before anything is written it
// checks, for every non-root edge, that applying the edge's change-set to
// the parent manifest actually reproduces r.NewManifest - a revision whose
// graph doesn't add up is rejected rather than stored and discovered
// broken later by a reader.
func (s *Store) PutRevision(ctx context.Context, r *revision.Revision, newManifest *manifest.Manifest) error {
	if r.NewManifest != newManifest.Hash() {
		return errors.Wrapf(strataerrors.InconsistentChangeSet, "revision declares new_manifest %s but the supplied manifest hashes to %s", r.NewManifest, newManifest.Hash())
	}

	for _, e := range r.Edges {
		if e.ParentRevision.IsNull() {
			continue
		}
		parentManifest, err := s.GetManifest(ctx, e.ParentManifest)
		if err != nil {
			return errors.Wrapf(err, "load parent manifest %s for edge from %s", e.ParentManifest, e.ParentRevision)
		}
		got, err := changeset.ApplyToManifest(e.ChangeSet, parentManifest)
		if err != nil {
			return errors.Wrapf(err, "apply edge change-set from %s", e.ParentRevision)
		}
		if !got.Equal(newManifest) {
			return errors.Wrapf(strataerrors.InconsistentChangeSet, "edge from %s produces a manifest that does not match new_manifest %s", e.ParentRevision, r.NewManifest)
		}
	}

	guard, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	if err := s.putManifestDemotingParents(ctx, r, newManifest); err != nil {
		guard.Rollback()
		return err
	}
	if err := s.PutFull(ctx, KindRevision, r.Hash(), r.Canonical()); err != nil {
		guard.Rollback()
		return err
	}
	return guard.Commit()
}

// putManifestDemotingParents stores newManifest, flipping each non-root
// edge's parent manifest from a full object to a delta against it when that
// parent is still stored in full. This is what keeps component B's
// reverse-delta invariant honored for the manifest relation the same way
// PutVersion does for files: a long-lived branch's manifests end up as a
// delta chain rather than a run of unrelated full blobs. A merge revision's
// two edges can each independently demote their own parent manifest to a
// delta against the same new manifest.
func (s *Store) putManifestDemotingParents(ctx context.Context, r *revision.Revision, newManifest *manifest.Manifest) error {
	newID := newManifest.Hash()
	demoted := false
	for _, e := range r.Edges {
		if e.ParentRevision.IsNull() || e.ParentManifest == newID {
			continue
		}
		err := s.PutVersion(ctx, KindManifest, e.ParentManifest, newID, newManifest.Canonical())
		switch {
		case err == nil:
			demoted = true
		case errors.Is(err, strataerrors.MissingObject):
			// Parent manifest is already stored as a delta - shared with
			// another edge, or demoted by an earlier commit - nothing left
			// to flip for this edge.
		default:
			return err
		}
	}
	if !demoted {
		return s.PutFull(ctx, KindManifest, newID, newManifest.Canonical())
	}
	return nil
}

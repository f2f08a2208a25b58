package merge

import (
	"context"
	"fmt"

	"github.com/strata-vcs/strata/pkg/cert"
	"github.com/strata-vcs/strata/pkg/changeset"
	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/manifest"
	"github.com/strata-vcs/strata/pkg/revision"
	"github.com/strata-vcs/strata/pkg/store"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

// Source is the full store surface merging two heads needs.
type Source interface {
	RevisionSource
	FileSource
	GetManifest(ctx context.Context, id hashcodec.Hash) (*manifest.Manifest, error)
	PutFull(ctx context.Context, kind store.Kind, id hashcodec.Hash, data []byte) error
	PutRevision(ctx context.Context, r *revision.Revision, newManifest *manifest.Manifest) error
	PutCert(ctx context.Context, c *cert.Cert) error
}

// Identity names the signer and authorship metadata attached to a
// produced merge revision's standard certs.
type Identity struct {
	KeyID  string
	Author string
	Branch string
}

// Heads merges the two head revisions left and right. It computes their
// common ancestor, three-way merges the manifests (content-merging any
// file both sides touched), and - if the merge is clean - assembles,
// hashes, and stores a new revision with edges back to both heads, along
// with standard branch/author/changelog certs signed by id. If any path
// comes back conflicted, no revision is written and the conflicts are
// returned instead.
func Heads(ctx context.Context, s Source, left, right hashcodec.Hash, id Identity, signer func([]byte) []byte) (hashcodec.Hash, []*strataerrors.ConflictError, error) {
	anc, err := CommonAncestor(ctx, s, left, right)
	if err != nil {
		return hashcodec.NullHash, nil, err
	}

	var ancManifest *manifest.Manifest
	if anc.IsNull() {
		ancManifest = manifest.Empty()
	} else {
		ancRev, err := s.GetRevision(ctx, anc)
		if err != nil {
			return hashcodec.NullHash, nil, err
		}
		ancManifest, err = s.GetManifest(ctx, ancRev.NewManifest)
		if err != nil {
			return hashcodec.NullHash, nil, err
		}
	}

	leftRev, err := s.GetRevision(ctx, left)
	if err != nil {
		return hashcodec.NullHash, nil, err
	}
	rightRev, err := s.GetRevision(ctx, right)
	if err != nil {
		return hashcodec.NullHash, nil, err
	}
	leftManifest, err := s.GetManifest(ctx, leftRev.NewManifest)
	if err != nil {
		return hashcodec.NullHash, nil, err
	}
	rightManifest, err := s.GetManifest(ctx, rightRev.NewManifest)
	if err != nil {
		return hashcodec.NullHash, nil, err
	}

	result, err := MergeManifests(ctx, s, ancManifest, leftManifest, rightManifest)
	if err != nil {
		return hashcodec.NullHash, nil, err
	}
	if len(result.Conflicts) > 0 {
		return hashcodec.NullHash, result.Conflicts, nil
	}

	for h, content := range result.NewFileContent {
		if err := s.PutFull(ctx, store.KindFile, h, content); err != nil {
			return hashcodec.NullHash, nil, err
		}
	}

	leftCS := changeset.DiffManifests(leftManifest, result.Manifest)
	rightCS := changeset.DiffManifests(rightManifest, result.Manifest)

	merged := &revision.Revision{
		NewManifest: result.Manifest.Hash(),
		Edges: []revision.Edge{
			{ParentRevision: left, ParentManifest: leftRev.NewManifest, ChangeSet: leftCS},
			{ParentRevision: right, ParentManifest: rightRev.NewManifest, ChangeSet: rightCS},
		},
	}

	if err := s.PutRevision(ctx, merged, result.Manifest); err != nil {
		return hashcodec.NullHash, nil, err
	}

	mergeID := merged.Hash()
	if signer != nil {
		standardCerts := []*cert.Cert{
			{Target: mergeID, Name: cert.NameBranch, Value: []byte(id.Branch)},
			{Target: mergeID, Name: cert.NameAuthor, Value: []byte(id.Author)},
			{Target: mergeID, Name: cert.NameChangelog, Value: []byte(fmt.Sprintf("merge of %s and %s", left, right))},
		}
		for _, c := range standardCerts {
			c.SignerKeyID = id.KeyID
			c.Signature = signer(c.SignableText())
			if err := s.PutCert(ctx, c); err != nil {
				return hashcodec.NullHash, nil, err
			}
		}
	}

	return mergeID, nil, nil
}

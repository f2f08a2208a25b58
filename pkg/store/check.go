package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/changeset"
	"github.com/strata-vcs/strata/pkg/hashcodec"
)

// Report collects the outcome of a Check sweep. It never stops at the
// first problem; like the original fsck, it counts everything so the
// caller sees the whole picture of a damaged store in one pass.
type Report struct {
	FilesChecked      int
	ManifestsChecked  int
	RevisionsChecked  int
	MissingFiles      []hashcodec.Hash
	CorruptObjects    []hashcodec.Hash
	IncompleteManifests []hashcodec.Hash
	BrokenRevisions   []hashcodec.Hash
}

// OK reports whether the sweep found nothing wrong.
func (r *Report) OK() bool {
	return len(r.MissingFiles) == 0 && len(r.CorruptObjects) == 0 &&
		len(r.IncompleteManifests) == 0 && len(r.BrokenRevisions) == 0
}

func (s *Store) allIDs(ctx context.Context, kind Kind) ([]hashcodec.Hash, error) {
	seen := map[hashcodec.Hash]bool{}
	var ids []hashcodec.Hash
	collect := func(query string) error {
		rows, err := s.query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			h := hashcodec.Hash(id)
			if !seen[h] {
				seen[h] = true
				ids = append(ids, h)
			}
		}
		return rows.Err()
	}
	if err := collect("SELECT id FROM " + fullTable(kind)); err != nil {
		return nil, err
	}
	if err := collect("SELECT id FROM " + deltaTable(kind)); err != nil {
		return nil, err
	}
	return ids, nil
}

// Check performs a full consistency sweep of the store: every file,
// manifest, and revision is reconstructed and hash-verified, every
// manifest's file references are confirmed present, and every revision's
// edges are confirmed to actually produce their declared new manifest.
// Problems are accumulated into the returned Report rather than aborting
// the sweep early.
func (s *Store) Check(ctx context.Context) (*Report, error) {
	report := &Report{}

	fileIDs, err := s.allIDs(ctx, KindFile)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate files")
	}
	for _, id := range fileIDs {
		report.FilesChecked++
		if data, err := s.Get(ctx, KindFile, id); err != nil || hashcodec.Sum(data) != id {
			report.CorruptObjects = append(report.CorruptObjects, id)
		}
	}

	manifestIDs, err := s.allIDs(ctx, KindManifest)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate manifests")
	}
	for _, id := range manifestIDs {
		report.ManifestsChecked++
		m, err := s.GetManifest(ctx, id)
		if err != nil || m.Hash() != id {
			report.CorruptObjects = append(report.CorruptObjects, id)
			continue
		}
		incomplete := false
		for _, p := range m.Paths() {
			h, _ := m.Lookup(p)
			ok, err := s.Exists(ctx, KindFile, h)
			if err != nil || !ok {
				report.MissingFiles = append(report.MissingFiles, h)
				incomplete = true
			}
		}
		if incomplete {
			report.IncompleteManifests = append(report.IncompleteManifests, id)
		}
	}

	revisionIDs, err := s.allIDs(ctx, KindRevision)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate revisions")
	}
	for _, id := range revisionIDs {
		report.RevisionsChecked++
		r, err := s.GetRevision(ctx, id)
		if err != nil || r.Hash() != id {
			report.CorruptObjects = append(report.CorruptObjects, id)
			continue
		}
		newManifest, err := s.GetManifest(ctx, r.NewManifest)
		if err != nil {
			report.BrokenRevisions = append(report.BrokenRevisions, id)
			continue
		}
		broken := false
		for _, e := range r.Edges {
			if e.ParentRevision.IsNull() {
				continue
			}
			parentManifest, err := s.GetManifest(ctx, e.ParentManifest)
			if err != nil {
				broken = true
				continue
			}
			got, err := changeset.ApplyToManifest(e.ChangeSet, parentManifest)
			if err != nil || !got.Equal(newManifest) {
				broken = true
			}
		}
		if broken {
			report.BrokenRevisions = append(report.BrokenRevisions, id)
		}
	}

	return report, nil
}

package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

func fullTable(k Kind) string {
	return string(k) + "_full"
}

func deltaTable(k Kind) string {
	return string(k) + "_delta"
}

// PutFull stores data directly as a full object under id. It is a no-op if
// id is already present as a full; it does not disturb an existing delta
// entry for id (that would require PutVersion's full delta-flip dance).
func (s *Store) PutFull(ctx context.Context, kind Kind, id hashcodec.Hash, data []byte) error {
	_, err := s.exec(ctx,
		"INSERT OR IGNORE INTO "+fullTable(kind)+"(id, data) VALUES (?, ?)",
		string(id), data)
	if err != nil {
		return errors.Wrapf(err, "put %s full %s", kind, id)
	}
	return nil
}

// PutVersion records newBytes as the new full object under newID, and
// reduces the existing full object at oldID to a reverse delta against it.
// oldID must currently be present as a full object. This is the only way
// to introduce a delta edge: callers never write delta rows directly, so
// the "newest version is always full" invariant can't be violated by a
// partial or out-of-order write.
func (s *Store) PutVersion(ctx context.Context, kind Kind, oldID, newID hashcodec.Hash, newBytes []byte) error {
	if oldID == newID {
		return errors.Errorf("put %s version: old and new id are identical (%s)", kind, oldID)
	}

	oldBytes, err := s.getFull(ctx, kind, oldID)
	if err != nil {
		return err
	}

	if _, err := s.exec(ctx,
		"INSERT OR IGNORE INTO "+fullTable(kind)+"(id, data) VALUES (?, ?)",
		string(newID), newBytes); err != nil {
		return errors.Wrapf(err, "put %s full %s", kind, newID)
	}

	delta := hashcodec.Diff(newBytes, oldBytes)
	if _, err := s.exec(ctx,
		"INSERT OR REPLACE INTO "+deltaTable(kind)+"(id, base_id, delta) VALUES (?, ?, ?)",
		string(oldID), string(newID), delta.Marshal()); err != nil {
		return errors.Wrapf(err, "put %s delta %s->%s", kind, oldID, newID)
	}
	if _, err := s.exec(ctx, "DELETE FROM "+fullTable(kind)+" WHERE id = ?", string(oldID)); err != nil {
		return errors.Wrapf(err, "flip %s %s from full to delta", kind, oldID)
	}
	return nil
}

// getFull returns the raw bytes stored for id in <kind>_full, failing if it
// is not currently a full object (it may still exist as a delta).
func (s *Store) getFull(ctx context.Context, kind Kind, id hashcodec.Hash) ([]byte, error) {
	var data []byte
	err := s.queryRow(ctx, "SELECT data FROM "+fullTable(kind)+" WHERE id = ?", string(id)).Scan(&data)
	switch {
	case err == sql.ErrNoRows:
		return nil, errors.Wrapf(strataerrors.MissingObject, "%s %s is not stored as a full object", kind, id)
	case err != nil:
		return nil, errors.Wrapf(err, "read %s full %s", kind, id)
	}
	return data, nil
}

type deltaRow struct {
	baseID hashcodec.Hash
	delta  hashcodec.Delta
}

func (s *Store) getDelta(ctx context.Context, kind Kind, id hashcodec.Hash) (*deltaRow, error) {
	var baseID string
	var raw []byte
	err := s.queryRow(ctx, "SELECT base_id, delta FROM "+deltaTable(kind)+" WHERE id = ?", string(id)).Scan(&baseID, &raw)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, errors.Wrapf(err, "read %s delta %s", kind, id)
	}
	delta, err := hashcodec.ParseDelta(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s delta %s", kind, id)
	}
	return &deltaRow{baseID: hashcodec.Hash(baseID), delta: delta}, nil
}

// Exists reports whether id is present in kind's relations, either as a
// full object or as a delta.
func (s *Store) Exists(ctx context.Context, kind Kind, id hashcodec.Hash) (bool, error) {
	var dummy int
	err := s.queryRow(ctx, "SELECT 1 FROM "+fullTable(kind)+" WHERE id = ?", string(id)).Scan(&dummy)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, errors.Wrapf(err, "check %s full %s", kind, id)
	}
	err = s.queryRow(ctx, "SELECT 1 FROM "+deltaTable(kind)+" WHERE id = ?", string(id)).Scan(&dummy)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, errors.Wrapf(err, "check %s delta %s", kind, id)
	}
	return false, nil
}

// Get reconstructs the bytes stored for id. If id is a full object they are
// returned directly; otherwise Get walks the delta chain breadth-first out
// from id until it reaches a full object, detecting cycles along the way,
// then replays the recorded chain of deltas forward from that full object
// back to id. The reconstructed bytes are verified against id before being
// returned.
func (s *Store) Get(ctx context.Context, kind Kind, id hashcodec.Hash) ([]byte, error) {
	if data, ok := s.cacheGet(kind, id); ok {
		return data, nil
	}

	if data, err := s.getFull(ctx, kind, id); err == nil {
		return data, nil
	} else if !errors.Is(err, strataerrors.MissingObject) {
		return nil, err
	}

	type step struct {
		node hashcodec.Hash
		via  hashcodec.Delta
	}
	predecessor := make(map[hashcodec.Hash]step)
	visited := map[hashcodec.Hash]bool{id: true}

	var root hashcodec.Hash
	found := false
	frontier := []hashcodec.Hash{id}
	for len(frontier) > 0 && !found {
		var next []hashcodec.Hash
		for _, node := range frontier {
			row, err := s.getDelta(ctx, kind, node)
			if err != nil {
				return nil, err
			}
			if row == nil {
				continue
			}
			if visited[row.baseID] {
				return nil, errors.Wrapf(strataerrors.CorruptStore, "cycle detected reconstructing %s %s", kind, id)
			}
			visited[row.baseID] = true
			predecessor[row.baseID] = step{node: node, via: row.delta}

			if _, err := s.getFull(ctx, kind, row.baseID); err == nil {
				root = row.baseID
				found = true
				break
			} else if !errors.Is(err, strataerrors.MissingObject) {
				return nil, err
			}
			next = append(next, row.baseID)
		}
		frontier = next
	}
	if !found {
		return nil, errors.Wrapf(strataerrors.MissingObject, "no path to a full object reconstructing %s %s", kind, id)
	}

	rootBytes, err := s.getFull(ctx, kind, root)
	if err != nil {
		return nil, err
	}
	applicator := hashcodec.NewChainApplicator(rootBytes)

	// Walk the predecessor chain forward: root's successor, that node's
	// successor, and so on until we reach id.
	chain := []step{}
	for cur := root; cur != id; {
		s, ok := predecessor[cur]
		if !ok {
			return nil, errors.Wrapf(strataerrors.CorruptStore, "broken delta chain reconstructing %s %s", kind, id)
		}
		chain = append(chain, s)
		cur = s.node
	}
	for _, st := range chain {
		if err := applicator.Apply(st.via); err != nil {
			return nil, errors.Wrapf(err, "apply %s delta reconstructing %s", kind, id)
		}
	}
	result := applicator.Finish()

	if hashcodec.Sum(result) != id {
		return nil, errors.Wrapf(strataerrors.CorruptStore, "reconstructed %s %s does not hash back to its id", kind, id)
	}
	s.cachePut(kind, id, result)
	return result, nil
}

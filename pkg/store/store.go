// Package store implements component B: the content-addressed object
// store. Files, manifests, and revisions are each persisted as either a
// full blob or a reverse delta against a newer full, certs and public keys
// live in their own relations, and every mutation happens inside a
// reference-counted transaction guard.
package store

import (
	"context"
	"database/sql"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/strata-vcs/strata/pkg/hashcodec"
	"github.com/strata-vcs/strata/pkg/logging"
	"github.com/strata-vcs/strata/pkg/strataerrors"
)

// reconstructCacheEntries bounds the number of reconstructed delta-chain
// objects kept in memory per kind. Reconstruction replays a chain of
// deltas from the nearest full object, so a cache here turns repeated
// lookups of the same historic version (the common case when annotate or
// merge walks revisions near a branch tip) from an O(chain length) replay
// into an O(1) hit.
const reconstructCacheEntries = 256

// Kind identifies which of the three delta-chained relations an object
// belongs to.
type Kind string

const (
	KindFile     Kind = "file"
	KindManifest Kind = "manifest"
	KindRevision Kind = "revision"
)

// schemaVersion is bumped whenever the on-disk layout changes in a way
// that isn't forward compatible. Store.Open checks it against whatever a
// pre-existing database reports and raises SchemaMismatch on disagreement.
const schemaVersion = 1

// Store is a handle to a single SQLite-backed object store. It is safe for
// concurrent use by multiple readers; writers are serialised through the
// transaction guard.
type Store struct {
	db     *sql.DB
	logger *logging.Logger

	mu        sync.Mutex
	tx        *sql.Tx
	txDepth   int
	txAborted bool

	cacheMu sync.Mutex
	caches  map[Kind]*lru.Cache
}

// Open creates or opens a store at path (":memory:" for a purely in-memory
// store, used heavily in tests). It initializes the schema on first use and
// verifies it on subsequent opens.
func Open(path string, logger *logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}
	s := &Store{
		db:     db,
		logger: logger,
		caches: map[Kind]*lru.Cache{
			KindFile:     lru.New(reconstructCacheEntries),
			KindManifest: lru.New(reconstructCacheEntries),
			KindRevision: lru.New(reconstructCacheEntries),
		},
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// cacheGet returns a cached reconstruction of id under kind, if present.
func (s *Store) cacheGet(kind Kind, id hashcodec.Hash) ([]byte, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	v, ok := s.caches[kind].Get(string(id))
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// cachePut records a freshly-reconstructed object so the next lookup of
// the same id skips delta replay entirely.
func (s *Store) cachePut(kind Kind, id hashcodec.Hash, data []byte) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.caches[kind].Add(string(id), data)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS schema_info (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS file_full (id TEXT PRIMARY KEY, data BLOB NOT NULL);
CREATE TABLE IF NOT EXISTS file_delta (id TEXT PRIMARY KEY, base_id TEXT NOT NULL, delta BLOB NOT NULL);

CREATE TABLE IF NOT EXISTS manifest_full (id TEXT PRIMARY KEY, data BLOB NOT NULL);
CREATE TABLE IF NOT EXISTS manifest_delta (id TEXT PRIMARY KEY, base_id TEXT NOT NULL, delta BLOB NOT NULL);

CREATE TABLE IF NOT EXISTS revision_full (id TEXT PRIMARY KEY, data BLOB NOT NULL);
CREATE TABLE IF NOT EXISTS revision_delta (id TEXT PRIMARY KEY, base_id TEXT NOT NULL, delta BLOB NOT NULL);

CREATE TABLE IF NOT EXISTS certs (
	id TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	name TEXT NOT NULL,
	value BLOB NOT NULL,
	signer_key_id TEXT NOT NULL,
	signature BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_certs_target ON certs(target);
CREATE INDEX IF NOT EXISTS idx_certs_name ON certs(target, name);

CREATE TABLE IF NOT EXISTS keys (
	name TEXT PRIMARY KEY,
	public_key BLOB NOT NULL
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return errors.Wrap(err, "initialize schema")
	}

	row := s.db.QueryRow("SELECT version FROM schema_info LIMIT 1")
	var version int
	switch err := row.Scan(&version); err {
	case sql.ErrNoRows:
		if _, err := s.db.Exec("INSERT INTO schema_info(version) VALUES (?)", schemaVersion); err != nil {
			return errors.Wrap(err, "record schema version")
		}
	case nil:
		if version != schemaVersion {
			return errors.Wrapf(strataerrors.SchemaMismatch, "store schema version %d, expected %d", version, schemaVersion)
		}
	default:
		return errors.Wrap(err, "read schema version")
	}
	return nil
}

// Guard is a reference-counted transaction handle. Callers obtain one with
// Store.Begin and must call either Commit or Rollback exactly once.
// Nested guards share the single underlying SQL transaction: only the
// outermost Commit actually commits, and a Rollback at any depth aborts
// the whole transaction so that no partial write becomes observable.
type Guard struct {
	store   *Store
	id      string
	depth   int
	resolved bool
}

// Begin opens a new transaction guard. If a transaction is already open on
// this store (because an outer guard is active), the new guard shares it
// and increments the reference count instead of starting a second one.
func (s *Store) Begin(ctx context.Context) (*Guard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, errors.Wrap(err, "begin transaction")
		}
		s.tx = tx
		s.txDepth = 0
		s.txAborted = false
	}
	s.txDepth++

	id := uuid.NewString()
	s.logger.Debugf("tx %s: begin (depth %d)", id, s.txDepth)
	return &Guard{store: s, id: id, depth: s.txDepth}, nil
}

// Commit releases this guard's share of the transaction. Once every guard
// that was opened has committed, the underlying SQL transaction actually
// commits. If the transaction was aborted by a sibling guard's Rollback in
// the meantime, Commit reports that failure instead of silently succeeding.
func (g *Guard) Commit() error {
	s := g.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.resolved {
		return errors.New("transaction guard already resolved")
	}
	g.resolved = true
	s.txDepth--
	s.logger.Debugf("tx %s: commit (remaining depth %d)", g.id, s.txDepth)

	if s.txDepth > 0 {
		if s.txAborted {
			return errors.New("transaction was rolled back by a nested guard")
		}
		return nil
	}

	tx := s.tx
	aborted := s.txAborted
	s.tx = nil
	s.txAborted = false

	if aborted {
		if err := tx.Rollback(); err != nil {
			return errors.Wrap(err, "roll back transaction")
		}
		return errors.New("transaction was rolled back by a nested guard")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// Rollback aborts the entire transaction, regardless of how many guards
// are still outstanding. Any guard that later calls Commit will observe
// the abort.
func (g *Guard) Rollback() error {
	s := g.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.resolved {
		return errors.New("transaction guard already resolved")
	}
	g.resolved = true
	s.txDepth--
	s.txAborted = true
	s.logger.Debugf("tx %s: rollback (remaining depth %d)", g.id, s.txDepth)

	if s.txDepth > 0 {
		return nil
	}

	tx := s.tx
	s.tx = nil
	s.txAborted = false
	return tx.Rollback()
}

// exec runs a statement against the active transaction if one is open, or
// directly against the database otherwise.
func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()
	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()
	if tx != nil {
		return tx.QueryRowContext(ctx, query, args...)
	}
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	s.mu.Lock()
	tx := s.tx
	s.mu.Unlock()
	if tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return s.db.QueryContext(ctx, query, args...)
}

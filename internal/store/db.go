// Package store owns the on-disk class-graph database: schema, fingerprint
// persistence, the bulk-import transaction, and the failure ledger. It is
// the only package permitted to write SQL against the database file.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arma3tool/arma3tool/internal/apperrors"
	"github.com/arma3tool/arma3tool/internal/logging"
)

// DB is a handle to the class-graph database. Writers are serialized by a
// single underlying connection, the same discipline the teacher's
// LocalStore uses, because SQLite allows only one writer at a time and this
// avoids SQLITE_BUSY churn under WAL.
type DB struct {
	sqlDB *sql.DB
	mu    sync.RWMutex
	path  string
}

// Open creates (if needed) and opens the database at path, running schema
// setup and checking the schema version. A version mismatch is fatal: the
// operator is expected to delete the file and re-run extraction rather than
// have the tool silently reinterpret old rows under a new schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(apperrors.KindIoError, "store.Open", err).WithPath(path)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.Open", err).WithPath(path)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.Open", err).WithPath(path)
		}
	}

	d := &DB{sqlDB: sqlDB, path: path}

	if err := initSchema(d); err != nil {
		sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.Open", err).WithPath(path)
	}

	if err := d.checkSchemaVersion(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	logging.Get(logging.CategoryStore).Info("opened database at %s", path)
	return d, nil
}

func (d *DB) checkSchemaVersion() error {
	var raw string
	err := d.sqlDB.QueryRow(`SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		_, err := d.sqlDB.Exec(`INSERT INTO metadata(key, value) VALUES ('schema_version', ?)`,
			strconv.Itoa(CurrentSchemaVersion))
		if err != nil {
			return apperrors.Wrap(apperrors.KindDatabaseError, "store.checkSchemaVersion", err)
		}
		return nil
	case err != nil:
		return apperrors.Wrap(apperrors.KindDatabaseError, "store.checkSchemaVersion", err)
	}

	onDisk, convErr := strconv.Atoi(raw)
	if convErr != nil || onDisk != CurrentSchemaVersion {
		return apperrors.New(apperrors.KindSchemaVersionMismatch, "store.checkSchemaVersion",
			fmt.Sprintf("database at %s has schema version %q, expected %d; delete the file and re-run extraction",
				d.path, raw, CurrentSchemaVersion))
	}
	return nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.sqlDB.Close()
}

// Raw exposes the underlying *sql.DB for packages (graph, export) that need
// to issue their own read queries, notably recursive CTEs that don't belong
// in the store package's own API surface.
func (d *DB) Raw() *sql.DB {
	return d.sqlDB
}

// Lock/RLock are exposed so callers that need to straddle several
// statements (e.g. a read-modify-write against the fingerprint table) can
// hold the same mutex store's own write paths use, avoiding interleaved
// writers under the single-connection discipline.
func (d *DB) Lock()    { d.mu.Lock() }
func (d *DB) Unlock()  { d.mu.Unlock() }
func (d *DB) RLock()   { d.mu.RLock() }
func (d *DB) RUnlock() { d.mu.RUnlock() }

package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/arma3tool/arma3tool/internal/apperrors"
)

// OpenReadReplica opens a second, independently constructed connection to
// the same database file using the pure-Go modernc.org/sqlite driver
// instead of the primary cgo-based mattn/go-sqlite3 connection. It is
// read-only and schema-agnostic: callers (the report subcommand, via
// internal/graph) issue plain SELECT/WITH RECURSIVE queries against it and
// never write through it, so it can run a long report query without
// contending with the single-writer primary connection's lock.
func OpenReadReplica(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=0", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.OpenReadReplica", err).WithPath(path)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.OpenReadReplica", err).WithPath(path)
	}
	return &DB{sqlDB: sqlDB, path: path}, nil
}

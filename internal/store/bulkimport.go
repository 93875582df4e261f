package store

import (
	"context"
	"database/sql"

	"github.com/arma3tool/arma3tool/internal/apperrors"
	"github.com/arma3tool/arma3tool/internal/logging"
)

// ImportClass is one class definition as handed to BulkImport by the parse
// worker pool, before it has been assigned a database row id.
type ImportClass struct {
	Name                 string
	ParentName           string // empty means no parent
	ContainerClass       string // empty means not nested inside another class
	SourceFileIndex      int64
	HasSourceFile        bool
	IsForwardDeclaration bool
	Properties           map[string]PropertyValue
}

// ImportFileSource maps a source_file_index to the archive and normalized
// path it came from.
type ImportFileSource struct {
	FileIndex      int64
	ArchiveID      int64
	NormalizedPath string
}

// ImportStats summarizes one BulkImport call for logging and CLI output.
type ImportStats struct {
	RootClasses      int
	ChildClasses     int
	DuplicatesSkipped int
	FileIndexEntries int
}

// BulkImport replaces the entire class graph in one transaction: foreign
// keys are disabled for the duration, the classes and class_properties
// tables are truncated, root classes (no parent) are inserted first and
// deduplicated by exact name, then non-root classes are inserted skipping
// any name already processed, then file_index_mapping is refreshed, and
// finally foreign keys are re-enabled. This mirrors the reference
// importer's two-pass, dedup-by-name contract so cyclic or duplicate class
// definitions in the source data are tolerated rather than fatal.
func (d *DB) BulkImport(ctx context.Context, classes []ImportClass, fileSources []ImportFileSource) (ImportStats, error) {
	d.Lock()
	defer d.Unlock()

	log := logging.Get(logging.CategoryStore)
	stats := ImportStats{}

	if _, err := d.sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return stats, apperrors.Wrap(apperrors.KindDatabaseError, "store.BulkImport", err)
	}
	if _, err := d.sqlDB.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return stats, apperrors.Wrap(apperrors.KindDatabaseError, "store.BulkImport", err)
	}

	rollback := func(cause error) (ImportStats, error) {
		d.sqlDB.ExecContext(ctx, "ROLLBACK")
		d.sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON")
		return stats, apperrors.Wrap(apperrors.KindDatabaseError, "store.BulkImport", cause)
	}

	if _, err := d.sqlDB.ExecContext(ctx, "DELETE FROM class_properties"); err != nil {
		return rollback(err)
	}
	if _, err := d.sqlDB.ExecContext(ctx, "DELETE FROM classes"); err != nil {
		return rollback(err)
	}

	insertStmt, err := d.sqlDB.PrepareContext(ctx,
		`INSERT OR REPLACE INTO classes(name, parent_name, container_class, source_file_index, is_forward_declaration) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return rollback(err)
	}
	defer insertStmt.Close()

	propStmt, err := d.sqlDB.PrepareContext(ctx,
		`INSERT OR REPLACE INTO class_properties(class_id, key, type_tag, value_blob) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return rollback(err)
	}
	defer propStmt.Close()

	processed := make(map[string]struct{}, len(classes))

	insertOne := func(c ImportClass) error {
		var parentName sql.NullString
		if c.ParentName != "" {
			parentName = sql.NullString{String: c.ParentName, Valid: true}
		}
		var containerClass sql.NullString
		if c.ContainerClass != "" {
			containerClass = sql.NullString{String: c.ContainerClass, Valid: true}
		}
		var sourceIdx sql.NullInt64
		if c.HasSourceFile {
			sourceIdx = sql.NullInt64{Int64: c.SourceFileIndex, Valid: true}
		}
		res, err := insertStmt.ExecContext(ctx, c.Name, parentName, containerClass, sourceIdx, c.IsForwardDeclaration)
		if err != nil {
			return err
		}
		classID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for key, val := range c.Properties {
			blob, err := val.MarshalBlob()
			if err != nil {
				return err
			}
			if _, err := propStmt.ExecContext(ctx, classID, key, string(val.Kind), blob); err != nil {
				return err
			}
		}
		return nil
	}

	// Pass 1: root classes (no parent), deduplicated by exact name.
	for _, c := range classes {
		if c.ParentName != "" {
			continue
		}
		if _, dup := processed[c.Name]; dup {
			stats.DuplicatesSkipped++
			continue
		}
		if err := insertOne(c); err != nil {
			return rollback(err)
		}
		processed[c.Name] = struct{}{}
		stats.RootClasses++
	}

	// Pass 2: non-root classes, skipping names already processed.
	for _, c := range classes {
		if c.ParentName == "" {
			continue
		}
		if _, dup := processed[c.Name]; dup {
			stats.DuplicatesSkipped++
			continue
		}
		if err := insertOne(c); err != nil {
			return rollback(err)
		}
		processed[c.Name] = struct{}{}
		stats.ChildClasses++
	}

	fileStmt, err := d.sqlDB.PrepareContext(ctx,
		`INSERT OR REPLACE INTO file_index_mapping(file_index, archive_id, normalized_path) VALUES (?, ?, ?)`)
	if err != nil {
		return rollback(err)
	}
	defer fileStmt.Close()

	for _, fs := range fileSources {
		if _, err := fileStmt.ExecContext(ctx, fs.FileIndex, fs.ArchiveID, fs.NormalizedPath); err != nil {
			return rollback(err)
		}
		stats.FileIndexEntries++
	}

	if _, err := d.sqlDB.ExecContext(ctx, "COMMIT"); err != nil {
		return rollback(err)
	}
	if _, err := d.sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return stats, apperrors.Wrap(apperrors.KindDatabaseError, "store.BulkImport", err)
	}

	log.Info("bulk import complete: %d root, %d child, %d duplicates skipped, %d file index entries",
		stats.RootClasses, stats.ChildClasses, stats.DuplicatesSkipped, stats.FileIndexEntries)
	return stats, nil
}

// GetClass returns a class by exact (case-insensitive) name.
func (d *DB) GetClass(name string) (*Class, error) {
	d.RLock()
	defer d.RUnlock()
	return d.getClassLocked(name)
}

func (d *DB) getClassLocked(name string) (*Class, error) {
	var c Class
	var parentName, containerClass sql.NullString
	var sourceIdx sql.NullInt64
	var forwardDecl int
	err := d.sqlDB.QueryRow(
		`SELECT id, name, parent_name, container_class, source_file_index, is_forward_declaration
		 FROM classes WHERE name = ? COLLATE NOCASE`, name,
	).Scan(&c.ID, &c.Name, &parentName, &containerClass, &sourceIdx, &forwardDecl)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.GetClass", err)
	}
	c.ParentName = parentName.String
	c.ContainerClass = containerClass.String
	c.SourceFileIndex = sourceIdx.Int64
	c.HasSourceFile = sourceIdx.Valid
	c.IsForwardDeclaration = forwardDecl != 0
	return &c, nil
}

// ListClasses returns every class row ordered by id ascending.
func (d *DB) ListClasses() ([]Class, error) {
	d.RLock()
	defer d.RUnlock()
	rows, err := d.sqlDB.Query(
		`SELECT id, name, parent_name, container_class, source_file_index, is_forward_declaration
		 FROM classes ORDER BY id ASC`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.ListClasses", err)
	}
	defer rows.Close()
	return scanClassRows(rows)
}

func scanClassRows(rows *sql.Rows) ([]Class, error) {
	var out []Class
	for rows.Next() {
		var c Class
		var parentName, containerClass sql.NullString
		var sourceIdx sql.NullInt64
		var forwardDecl int
		if err := rows.Scan(&c.ID, &c.Name, &parentName, &containerClass, &sourceIdx, &forwardDecl); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.scanClassRows", err)
		}
		c.ParentName = parentName.String
		c.ContainerClass = containerClass.String
		c.SourceFileIndex = sourceIdx.Int64
		c.HasSourceFile = sourceIdx.Valid
		c.IsForwardDeclaration = forwardDecl != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetClassByID returns a class by its numeric row id, or nil if absent.
func (d *DB) GetClassByID(id int64) (*Class, error) {
	d.RLock()
	defer d.RUnlock()
	rows, err := d.sqlDB.Query(
		`SELECT id, name, parent_name, container_class, source_file_index, is_forward_declaration
		 FROM classes WHERE id = ?`, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.GetClassByID", err)
	}
	defer rows.Close()
	classes, err := scanClassRows(rows)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return nil, nil
	}
	return &classes[0], nil
}

// GetClassProperties returns all properties for a class id.
func (d *DB) GetClassProperties(classID int64) (map[string]PropertyValue, error) {
	d.RLock()
	defer d.RUnlock()
	rows, err := d.sqlDB.Query(`SELECT key, type_tag, value_blob FROM class_properties WHERE class_id = ?`, classID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.GetClassProperties", err)
	}
	defer rows.Close()

	out := make(map[string]PropertyValue)
	for rows.Next() {
		var key, tag string
		var blob []byte
		if err := rows.Scan(&key, &tag, &blob); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.GetClassProperties", err)
		}
		val, err := UnmarshalBlob(tag, blob)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.GetClassProperties", err)
		}
		out[key] = val
	}
	return out, rows.Err()
}

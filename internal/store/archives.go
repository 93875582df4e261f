package store

import (
	"database/sql"
	"time"

	"github.com/arma3tool/arma3tool/internal/apperrors"
)

// UpsertArchive inserts or updates an archive row and returns its id.
func (d *DB) UpsertArchive(a Archive) (int64, error) {
	d.Lock()
	defer d.Unlock()
	_, err := d.sqlDB.Exec(
		`INSERT INTO archives(path, kind, size_bytes, mod_time_unix, content_hash)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			kind=excluded.kind, size_bytes=excluded.size_bytes,
			mod_time_unix=excluded.mod_time_unix, content_hash=excluded.content_hash`,
		a.Path, string(a.Kind), a.SizeBytes, a.ModTime.Unix(), a.ContentHash,
	)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindDatabaseError, "store.UpsertArchive", err).WithPath(a.Path)
	}
	var id int64
	if err := d.sqlDB.QueryRow(`SELECT id FROM archives WHERE path = ?`, a.Path).Scan(&id); err != nil {
		return 0, apperrors.Wrap(apperrors.KindDatabaseError, "store.UpsertArchive", err).WithPath(a.Path)
	}
	return id, nil
}

// GetArchiveByPath returns the archive row for a path, or nil if absent.
func (d *DB) GetArchiveByPath(path string) (*Archive, error) {
	d.RLock()
	defer d.RUnlock()
	return d.scanArchiveRow(d.sqlDB.QueryRow(
		`SELECT id, path, kind, size_bytes, mod_time_unix, content_hash FROM archives WHERE path = ?`, path))
}

// GetArchiveByID returns the archive row for an id, or nil if absent.
func (d *DB) GetArchiveByID(id int64) (*Archive, error) {
	d.RLock()
	defer d.RUnlock()
	return d.scanArchiveRow(d.sqlDB.QueryRow(
		`SELECT id, path, kind, size_bytes, mod_time_unix, content_hash FROM archives WHERE id = ?`, id))
}

func (d *DB) scanArchiveRow(row *sql.Row) (*Archive, error) {
	var a Archive
	var kind string
	var modTime int64
	err := row.Scan(&a.ID, &a.Path, &kind, &a.SizeBytes, &modTime, &a.ContentHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.scanArchiveRow", err)
	}
	a.Kind = ArchiveKind(kind)
	a.ModTime = time.Unix(modTime, 0).UTC()
	return &a, nil
}

// ReplaceExtractedFiles deletes any previously recorded extracted-file rows
// for archiveID and inserts the given set, so a re-extraction replaces the
// prior file list rather than accumulating stale entries.
func (d *DB) ReplaceExtractedFiles(archiveID int64, files []ExtractedFile) error {
	d.Lock()
	defer d.Unlock()

	if _, err := d.sqlDB.Exec(`DELETE FROM extracted_files WHERE archive_id = ?`, archiveID); err != nil {
		return apperrors.Wrap(apperrors.KindDatabaseError, "store.ReplaceExtractedFiles", err)
	}
	stmt, err := d.sqlDB.Prepare(
		`INSERT INTO extracted_files(archive_id, rel_path, cache_path, size_bytes) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDatabaseError, "store.ReplaceExtractedFiles", err)
	}
	defer stmt.Close()
	for _, f := range files {
		if _, err := stmt.Exec(archiveID, f.RelPath, f.CachePath, f.SizeBytes); err != nil {
			return apperrors.Wrap(apperrors.KindDatabaseError, "store.ReplaceExtractedFiles", err)
		}
	}
	return nil
}

// ListArchives returns every archive row, ordered by path, for callers that
// need to walk the full extracted set (e.g. the parse stage).
func (d *DB) ListArchives() ([]Archive, error) {
	d.RLock()
	defer d.RUnlock()
	rows, err := d.sqlDB.Query(`SELECT id, path, kind, size_bytes, mod_time_unix, content_hash FROM archives ORDER BY path`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.ListArchives", err)
	}
	defer rows.Close()
	var out []Archive
	for rows.Next() {
		var a Archive
		var kind string
		var modTime int64
		if err := rows.Scan(&a.ID, &a.Path, &kind, &a.SizeBytes, &modTime, &a.ContentHash); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.ListArchives", err)
		}
		a.Kind = ArchiveKind(kind)
		a.ModTime = time.Unix(modTime, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetExtractedFiles returns the recorded extracted files for an archive.
func (d *DB) GetExtractedFiles(archiveID int64) ([]ExtractedFile, error) {
	d.RLock()
	defer d.RUnlock()
	rows, err := d.sqlDB.Query(
		`SELECT id, archive_id, rel_path, cache_path, size_bytes FROM extracted_files WHERE archive_id = ? ORDER BY rel_path`,
		archiveID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.GetExtractedFiles", err)
	}
	defer rows.Close()
	var out []ExtractedFile
	for rows.Next() {
		var f ExtractedFile
		if err := rows.Scan(&f.ID, &f.ArchiveID, &f.RelPath, &f.CachePath, &f.SizeBytes); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.GetExtractedFiles", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFileIndexEntry resolves a source_file_index to its archive and
// normalized path, used by reports to trace a class back to its source.
func (d *DB) GetFileIndexEntry(fileIndex int64) (*FileIndexEntry, error) {
	d.RLock()
	defer d.RUnlock()
	var e FileIndexEntry
	err := d.sqlDB.QueryRow(
		`SELECT file_index, archive_id, normalized_path FROM file_index_mapping WHERE file_index = ?`, fileIndex,
	).Scan(&e.FileIndex, &e.ArchiveID, &e.NormalizedPath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.GetFileIndexEntry", err)
	}
	return &e, nil
}

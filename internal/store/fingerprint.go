package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/arma3tool/arma3tool/internal/apperrors"
	"github.com/arma3tool/arma3tool/internal/pathutil"
)

// GetFingerprint returns the stored fingerprint for an archive path, or nil
// if none is recorded yet.
func (d *DB) GetFingerprint(archivePath string) (*FingerprintRecord, error) {
	d.RLock()
	defer d.RUnlock()

	var kind, extCSV string
	var size, modTime, extractedAt int64
	err := d.sqlDB.QueryRow(
		`SELECT kind, size_bytes, mod_time_unix, used_extensions, extracted_at_unix
		 FROM fingerprints WHERE archive_path = ?`, archivePath,
	).Scan(&kind, &size, &modTime, &extCSV, &extractedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.GetFingerprint", err)
	}
	return &FingerprintRecord{
		ArchivePath:    archivePath,
		Kind:           ArchiveKind(kind),
		SizeBytes:      size,
		ModTimeUnix:    modTime,
		UsedExtensions: splitExtensions(extCSV),
		ExtractedAt:    time.Unix(extractedAt, 0).UTC(),
	}, nil
}

// PutFingerprint stores (replacing any existing entry) the fingerprint for
// an archive. The extension list is normalized (sorted, deduplicated,
// lower-cased) before storage so a later reordering of the configured
// extension list does not, by itself, force re-extraction.
func (d *DB) PutFingerprint(rec FingerprintRecord) error {
	d.Lock()
	defer d.Unlock()

	norm := pathutil.ExtensionSet(rec.UsedExtensions)
	_, err := d.sqlDB.Exec(
		`INSERT INTO fingerprints(archive_path, kind, size_bytes, mod_time_unix, used_extensions, extracted_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(archive_path) DO UPDATE SET
			kind=excluded.kind, size_bytes=excluded.size_bytes, mod_time_unix=excluded.mod_time_unix,
			used_extensions=excluded.used_extensions, extracted_at_unix=excluded.extracted_at_unix`,
		rec.ArchivePath, string(rec.Kind), rec.SizeBytes, rec.ModTimeUnix, strings.Join(norm, ","),
		rec.ExtractedAt.Unix(),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDatabaseError, "store.PutFingerprint", err)
	}
	return nil
}

func splitExtensions(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}

// NeedsExtraction reports whether an archive must be re-extracted, given
// its current on-disk size/mtime and the extension set the caller intends
// to use. Per invariant P3, a reordering or re-casing of the same
// extension set must never, by itself, trigger re-extraction — both sides
// of the comparison are normalized identically.
func NeedsExtraction(existing *FingerprintRecord, sizeBytes, modTimeUnix int64, extensions []string) bool {
	if existing == nil {
		return true
	}
	if sizeBytes != existing.SizeBytes || modTimeUnix != existing.ModTimeUnix {
		return true
	}
	want := pathutil.ExtensionSet(extensions)
	have := pathutil.ExtensionSet(existing.UsedExtensions)
	if len(want) != len(have) {
		return true
	}
	for i := range want {
		if want[i] != have[i] {
			return true
		}
	}
	return false
}

// RecordFailedExtraction upserts a failure-ledger entry for archivePath.
func (d *DB) RecordFailedExtraction(f FailedExtraction) error {
	d.Lock()
	defer d.Unlock()
	_, err := d.sqlDB.Exec(
		`INSERT INTO failed_extractions(archive_path, kind, timestamp_unix, error_kind, message)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(archive_path) DO UPDATE SET
			kind=excluded.kind, timestamp_unix=excluded.timestamp_unix,
			error_kind=excluded.error_kind, message=excluded.message`,
		f.ArchivePath, string(f.Kind), f.Timestamp.Unix(), f.ErrorKind, f.Message,
	)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDatabaseError, "store.RecordFailedExtraction", err)
	}
	return nil
}

// GetFailedExtraction returns the failure-ledger entry for archivePath, or
// nil if the archive has no recorded failure.
func (d *DB) GetFailedExtraction(archivePath string) (*FailedExtraction, error) {
	d.RLock()
	defer d.RUnlock()

	var f FailedExtraction
	var kind string
	var ts int64
	err := d.sqlDB.QueryRow(
		`SELECT archive_path, kind, timestamp_unix, error_kind, message
		 FROM failed_extractions WHERE archive_path = ?`, archivePath,
	).Scan(&f.ArchivePath, &kind, &ts, &f.ErrorKind, &f.Message)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.GetFailedExtraction", err)
	}
	f.Kind = ArchiveKind(kind)
	f.Timestamp = time.Unix(ts, 0).UTC()
	return &f, nil
}

// ClearFailedExtraction removes a failure-ledger entry, used once an
// archive extracts successfully after a prior failure.
func (d *DB) ClearFailedExtraction(archivePath string) error {
	d.Lock()
	defer d.Unlock()
	_, err := d.sqlDB.Exec(`DELETE FROM failed_extractions WHERE archive_path = ?`, archivePath)
	if err != nil {
		return apperrors.Wrap(apperrors.KindDatabaseError, "store.ClearFailedExtraction", err)
	}
	return nil
}

// ListFailedExtractions returns every entry currently in the failure ledger.
func (d *DB) ListFailedExtractions() ([]FailedExtraction, error) {
	d.RLock()
	defer d.RUnlock()
	rows, err := d.sqlDB.Query(`SELECT archive_path, kind, timestamp_unix, error_kind, message FROM failed_extractions`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.ListFailedExtractions", err)
	}
	defer rows.Close()

	var out []FailedExtraction
	for rows.Next() {
		var f FailedExtraction
		var kind string
		var ts int64
		if err := rows.Scan(&f.ArchivePath, &kind, &ts, &f.ErrorKind, &f.Message); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabaseError, "store.ListFailedExtractions", err)
		}
		f.Kind = ArchiveKind(kind)
		f.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

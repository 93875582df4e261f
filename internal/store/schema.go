package store

// CurrentSchemaVersion is the schema version this binary understands. A
// mismatch against the on-disk metadata table is fatal (see Open):
// unlike the category-store's auto-migration, this pipeline would rather
// stop than silently reinterpret an older database's rows.
const CurrentSchemaVersion = 2

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS archives (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		mod_time_unix INTEGER NOT NULL,
		content_hash TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS fingerprints (
		archive_path TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		mod_time_unix INTEGER NOT NULL,
		used_extensions TEXT NOT NULL,
		extracted_at_unix INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extracted_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		archive_id INTEGER NOT NULL REFERENCES archives(id),
		rel_path TEXT NOT NULL,
		cache_path TEXT NOT NULL,
		size_bytes INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS failed_extractions (
		archive_path TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		timestamp_unix INTEGER NOT NULL,
		error_kind TEXT NOT NULL,
		message TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS file_index_mapping (
		file_index INTEGER PRIMARY KEY,
		archive_id INTEGER NOT NULL REFERENCES archives(id),
		normalized_path TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS classes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		parent_name TEXT COLLATE NOCASE,
		container_class TEXT COLLATE NOCASE,
		source_file_index INTEGER,
		is_forward_declaration INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS class_properties (
		class_id INTEGER NOT NULL REFERENCES classes(id),
		key TEXT NOT NULL,
		type_tag TEXT NOT NULL,
		value_blob BLOB NOT NULL,
		PRIMARY KEY (class_id, key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_classes_parent ON classes(parent_name)`,
	`CREATE INDEX IF NOT EXISTS idx_extracted_files_archive ON extracted_files(archive_id)`,
}

func initSchema(d *DB) error {
	for _, stmt := range schemaStatements {
		if _, err := d.sqlDB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

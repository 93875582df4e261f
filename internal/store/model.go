package store

import "time"

// ArchiveKind distinguishes game-data archives from mission archives; they
// are extracted into separate cache subtrees with separate extension lists.
type ArchiveKind string

const (
	ArchiveKindGameData ArchiveKind = "game_data"
	ArchiveKindMission  ArchiveKind = "mission"
)

// Archive is one source PBO (or staged directory standing in for one) that
// has been, or is eligible to be, extracted.
type Archive struct {
	ID         int64
	Path       string
	Kind       ArchiveKind
	SizeBytes  int64
	ModTime    time.Time
	ContentHash string
}

// ExtractedFile records one file pulled out of an archive into the cache.
type ExtractedFile struct {
	ID         int64
	ArchiveID  int64
	RelPath    string
	CachePath  string
	SizeBytes  int64
}

// FailedExtraction is an entry in the failure ledger: an archive that could
// not be extracted, with enough context to explain why without re-running.
type FailedExtraction struct {
	ArchivePath string
	Kind        ArchiveKind
	Timestamp   time.Time
	ErrorKind   string
	Message     string
}

// FingerprintRecord is the cached size/mtime/extension-set signature used to
// decide whether an archive needs re-extraction.
type FingerprintRecord struct {
	ArchivePath    string
	Kind           ArchiveKind
	SizeBytes      int64
	ModTimeUnix    int64
	UsedExtensions []string // normalized: lower-cased, deduplicated, sorted
	ExtractedAt    time.Time
}

// FileIndexEntry maps a source_file_index (used by Class.SourceFileIndex) to
// the archive and relative path it came from, letting reports resolve a
// class back to the archive that defines it.
type FileIndexEntry struct {
	FileIndex      int64
	ArchiveID      int64
	NormalizedPath string
}

// Class is one class definition node in the inheritance graph.
type Class struct {
	ID                   int64
	Name                 string
	ParentName           string // empty if this class has no parent
	ContainerClass       string // empty if this class has no enclosing class
	SourceFileIndex      int64
	HasSourceFile        bool
	IsForwardDeclaration bool // true for a bodyless "class X;" reference
}

// ClassProperty is one key/value pair attached to a Class.
type ClassProperty struct {
	ClassID int64
	Key     string
	Value   PropertyValue
}

package export

import (
	"strings"

	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/store"
)

// buildAncestryCache computes, for every class, which configured item types
// it belongs to (itself or any ancestor is one of that type's base
// classes). It is built once up front from the full in-memory class list so
// streaming the export afterward needs no further inheritance queries.
func buildAncestryCache(classes []store.Class, itemTypes map[string]config.ItemTypeConfig) map[int64]map[string]bool {
	byName := make(map[string]store.Class, len(classes))
	for _, c := range classes {
		byName[strings.ToLower(c.Name)] = c
	}

	baseNamesByType := make(map[string][]string, len(itemTypes))
	for typeName, cfg := range itemTypes {
		lowered := make([]string, len(cfg.BaseClasses))
		for i, b := range cfg.BaseClasses {
			lowered[i] = strings.ToLower(b)
		}
		baseNamesByType[typeName] = lowered
	}

	ancestorSets := make(map[int64]map[string]bool, len(classes))
	var ancestorSetOf func(c store.Class, visiting map[int64]bool) map[string]bool
	ancestorSetOf = func(c store.Class, visiting map[int64]bool) map[string]bool {
		if cached, ok := ancestorSets[c.ID]; ok {
			return cached
		}
		set := map[string]bool{strings.ToLower(c.Name): true}
		if !visiting[c.ID] && c.ParentName != "" {
			if parent, ok := byName[strings.ToLower(c.ParentName)]; ok {
				visiting[c.ID] = true
				for k := range ancestorSetOf(parent, visiting) {
					set[k] = true
				}
				delete(visiting, c.ID)
			}
		}
		ancestorSets[c.ID] = set
		return set
	}

	result := make(map[int64]map[string]bool, len(classes))
	for _, c := range classes {
		ancestors := ancestorSetOf(c, map[int64]bool{})
		matched := make(map[string]bool)
		for typeName, bases := range baseNamesByType {
			for _, base := range bases {
				if ancestors[base] {
					matched[typeName] = true
					break
				}
			}
		}
		if len(matched) > 0 {
			result[c.ID] = matched
		}
	}
	return result
}

// sourcePathCache resolves a source_file_index to "archive_path::rel_path",
// memoizing archive lookups since many classes share the same source
// archive.
type sourcePathCache struct {
	db          *store.DB
	archivePath map[int64]string
}

func newSourcePathCache(db *store.DB) *sourcePathCache {
	return &sourcePathCache{db: db, archivePath: make(map[int64]string)}
}

func (s *sourcePathCache) resolve(fileIndex int64) string {
	entry, err := s.db.GetFileIndexEntry(fileIndex)
	if err != nil || entry == nil {
		return ""
	}
	path, ok := s.archivePath[entry.ArchiveID]
	if !ok {
		archive, err := s.db.GetArchiveByID(entry.ArchiveID)
		if err != nil || archive == nil {
			path = ""
		} else {
			path = archive.Path
		}
		s.archivePath[entry.ArchiveID] = path
	}
	if path == "" {
		return entry.NormalizedPath
	}
	return path + "::" + entry.NormalizedPath
}

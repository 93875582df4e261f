// Package pathutil normalizes filesystem paths so the same archive member
// produces the same index key regardless of host OS or the separators used
// when it was referenced.
//
// This is implemented on the standard library rather than an example-pack
// dependency: the transformation is a handful of string operations
// (separator canonicalization, case-folding, Clean), and no library in the
// retrieved pack offers anything beyond what path/filepath and strings
// already provide for it.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Normalize converts path to a forward-slash, lower-cased, cleaned relative
// form suitable for use as a cache or index key. It never returns a path
// with backslashes or a leading "./".
func Normalize(path string) string {
	if path == "" {
		return ""
	}
	p := strings.ReplaceAll(path, "\\", "/")
	p = filepath.ToSlash(filepath.Clean(p))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return strings.ToLower(p)
}

// ToRelative rewrites absPath relative to rootDir using forward slashes.
// If absPath does not lie under rootDir, the normalized absPath is returned
// unchanged, matching the "fall back to absolute" behavior used elsewhere
// in this codebase's path helpers.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" {
		return ""
	}
	if rootDir == "" {
		return Normalize(absPath)
	}
	rel, err := filepath.Rel(rootDir, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Normalize(absPath)
	}
	return Normalize(rel)
}

// ExtensionSet normalizes a slice of extensions (without leading dots,
// lower-cased, deduplicated, sorted) so fingerprint comparisons are
// insensitive to reordering or casing of the configured extension list.
func ExtensionSet(exts []string) []string {
	seen := make(map[string]struct{}, len(exts))
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	sortStrings(out)
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

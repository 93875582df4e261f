// Package export renders the class graph, filtered by an item-type/
// exclusion configuration, to a delimited text stream. It precomputes an
// ancestry cache up front so membership in an item type ("is this class a
// Weapon") is an O(1) lookup per class instead of one inheritance query per
// class per item type.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/arma3tool/arma3tool/internal/apperrors"
	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/logging"
	"github.com/arma3tool/arma3tool/internal/store"
)

// Record is one exported row.
type Record struct {
	ClassID        int64
	Name           string
	DisplayLabel   string
	Categories     []string
	ParentName     string
	ContainerClass string
	SourcePath     string
	Properties     map[string]store.PropertyValue
}

// Exporter renders filtered class records.
type Exporter struct {
	db     *store.DB
	filter config.ItemFilterConfig
}

// New builds an Exporter.
func New(db *store.DB, filter config.ItemFilterConfig) *Exporter {
	return &Exporter{db: db, filter: filter}
}

// Export writes every class that matches at least one configured item type,
// one per line, separator-delimited with RFC4180-style quoting. The rendered
// lines are sorted lexicographically for deterministic output, mirroring the
// reference exporter's results.sort() over formatted rows; if limit > 0 the
// output is truncated to the first limit lines after sorting.
func (ex *Exporter) Export(ctx context.Context, w io.Writer, sep rune, limit int) error {
	timer := logging.StartTimer(logging.CategoryExport, "Export")
	defer timer.Stop()

	classes, err := ex.db.ListClasses()
	if err != nil {
		return err
	}

	ancestry := buildAncestryCache(classes, ex.filter.ItemTypes)
	sourceCache := newSourcePathCache(ex.db)

	var records []Record
	for _, c := range classes {
		if err := ctx.Err(); err != nil {
			return err
		}
		categories := ancestry[c.ID]
		if len(categories) == 0 {
			continue
		}
		if c.IsForwardDeclaration {
			continue
		}
		if ex.filter.IsExcludedByPrefix(c.Name) {
			continue
		}
		props, err := ex.db.GetClassProperties(c.ID)
		if err != nil {
			return err
		}
		if scope, ok := props["scope"]; ok && scope.Kind == store.PropertyNumber {
			if int(scope.Num) <= ex.filter.ExclusionRules.MaxScope {
				continue
			}
		}
		sourcePath := ""
		if c.HasSourceFile {
			sourcePath = sourceCache.resolve(c.SourceFileIndex)
		}
		records = append(records, Record{
			ClassID:        c.ID,
			Name:           c.Name,
			DisplayLabel:   displayLabel(props, c.Name),
			Categories:     sortedKeys(categories),
			ParentName:     c.ParentName,
			ContainerClass: c.ContainerClass,
			SourcePath:     sourcePath,
			Properties:     props,
		})
	}

	lines := make([]string, len(records))
	for i, r := range records {
		line, err := renderLine(sep, r)
		if err != nil {
			return apperrors.Wrap(apperrors.KindIoError, "export.Export", err)
		}
		lines[i] = line
	}
	sort.Strings(lines)

	if limit > 0 && len(lines) > limit {
		logging.Get(logging.CategoryExport).Warn("export truncated to %d of %d matching records", limit, len(lines))
		lines = lines[:limit]
	}

	for _, line := range lines {
		if _, err := io.WriteString(w, line); err != nil {
			return apperrors.Wrap(apperrors.KindIoError, "export.Export", err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return apperrors.Wrap(apperrors.KindIoError, "export.Export", err)
		}
	}
	return nil
}

func displayLabel(props map[string]store.PropertyValue, fallback string) string {
	if v, ok := props["displayName"]; ok && v.Kind == store.PropertyString && v.Str != "" {
		return v.Str
	}
	return fallback
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// renderLine formats r as a single separator-delimited line (no trailing
// newline), so callers can sort the rendered lines before writing them.
func renderLine(sep rune, r Record) (string, error) {
	propsJSON, err := json.Marshal(r.Properties)
	if err != nil {
		return "", err
	}
	fields := []string{
		strconv.FormatInt(r.ClassID, 10),
		r.Name,
		r.DisplayLabel,
		strings.Join(r.Categories, ";"),
		r.ParentName,
		r.ContainerClass,
		r.SourcePath,
		string(propsJSON),
	}
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(sep)
		}
		b.WriteString(escapeField(f, sep))
	}
	return b.String(), nil
}

// escapeField quotes a field if it contains the separator, a double quote,
// or a newline, doubling any embedded quotes, mirroring the reference
// exporter's own escape_csv rather than reaching for encoding/csv (the
// reference tool hand-rolls this too).
func escapeField(field string, sep rune) string {
	needsQuoting := strings.ContainsRune(field, sep) || strings.ContainsAny(field, "\"\n\r")
	if !needsQuoting {
		return field
	}
	escaped := strings.ReplaceAll(field, `"`, `""`)
	return fmt.Sprintf(`"%s"`, escaped)
}

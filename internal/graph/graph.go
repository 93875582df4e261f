// Package graph answers inheritance questions over the class table: full and
// rooted hierarchy walks, "does X inherit from any of these" checks, and
// change-impact analysis for a proposed set of class removals. Every walk is
// expressed as a single WITH RECURSIVE query bounded by an explicit depth, so
// a cyclic parent chain in the source data terminates instead of looping.
package graph

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/arma3tool/arma3tool/internal/apperrors"
	"github.com/arma3tool/arma3tool/internal/logging"
	"github.com/arma3tool/arma3tool/internal/store"
)

// DefaultMaxDepth bounds recursive walks when the caller doesn't supply one.
// It mirrors the reference engine's own depth guard against cyclic parents.
const DefaultMaxDepth = 64

// Node is one class as it appears in a hierarchy or impact-analysis result.
type Node struct {
	ClassID              int64
	Name                 string
	ParentName           string
	Role                 Role
	FileIndex            int64
	HasFileIndex         bool
	IsForwardDeclaration bool
	Depth                int
}

// Edge is a parent-to-child relationship between two Nodes already present
// in the same result's node set. Edges are never emitted for a parent that
// isn't itself in the node set ("no dangling edges").
type Edge struct {
	ParentID int64
	ChildID  int64
	Weight   float64
}

// Engine answers inheritance-graph queries against a class store.
type Engine struct {
	db *store.DB
}

// New wraps a store for graph queries.
func New(db *store.DB) *Engine {
	return &Engine{db: db}
}

// GetHierarchy walks descendants of rootName down to maxDepth levels,
// returning one Node per distinct class reached (deduplicated by the
// shortest depth at which it was found).
func (e *Engine) GetHierarchy(ctx context.Context, rootName string, maxDepth int) ([]Node, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	timer := logging.StartTimer(logging.CategoryGraph, "GetHierarchy")
	defer timer.Stop()

	rows, err := e.db.Raw().QueryContext(ctx, `
		WITH RECURSIVE hierarchy(id, name, parent_name, container_class, source_file_index, is_forward_declaration, depth) AS (
			SELECT id, name, parent_name, container_class, source_file_index, is_forward_declaration, 0
			FROM classes WHERE name = ? COLLATE NOCASE
			UNION ALL
			SELECT c.id, c.name, c.parent_name, c.container_class, c.source_file_index, c.is_forward_declaration, h.depth + 1
			FROM classes c JOIN hierarchy h ON c.parent_name = h.name COLLATE NOCASE
			WHERE h.depth < ?
		)
		SELECT id, name, parent_name, source_file_index, is_forward_declaration, MIN(depth) AS depth
		FROM hierarchy GROUP BY id ORDER BY id ASC`, rootName, maxDepth)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "graph.GetHierarchy", err)
	}
	defer rows.Close()
	return scanNodes(rows, RoleNormal)
}

// GetFullHierarchy walks the entire forest (every root with no parent) down
// to maxDepth levels from each root.
func (e *Engine) GetFullHierarchy(ctx context.Context, maxDepth int) ([]Node, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	timer := logging.StartTimer(logging.CategoryGraph, "GetFullHierarchy")
	defer timer.Stop()

	rows, err := e.db.Raw().QueryContext(ctx, `
		WITH RECURSIVE hierarchy(id, name, parent_name, source_file_index, is_forward_declaration, depth) AS (
			SELECT id, name, parent_name, source_file_index, is_forward_declaration, 0
			FROM classes WHERE parent_name IS NULL
			UNION ALL
			SELECT c.id, c.name, c.parent_name, c.source_file_index, c.is_forward_declaration, h.depth + 1
			FROM classes c JOIN hierarchy h ON c.parent_name = h.name COLLATE NOCASE
			WHERE h.depth < ?
		)
		SELECT id, name, parent_name, source_file_index, is_forward_declaration, MIN(depth) AS depth
		FROM hierarchy GROUP BY id ORDER BY id ASC`, maxDepth)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "graph.GetFullHierarchy", err)
	}
	defer rows.Close()
	return scanNodes(rows, RoleNormal)
}

// InheritsFromAny reports whether className inherits, directly or
// transitively (within maxDepth steps), from any of baseNames. A class is
// considered to inherit from itself, matching the original engine's "quick
// check" before it ever queries the store.
func (e *Engine) InheritsFromAny(ctx context.Context, className string, baseNames []string, maxDepth int) (bool, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	for _, base := range baseNames {
		if strings.EqualFold(base, className) {
			return true, nil
		}
	}
	if len(baseNames) == 0 {
		return false, nil
	}

	placeholders := make([]string, len(baseNames))
	args := make([]interface{}, 0, len(baseNames)+2)
	args = append(args, className, maxDepth)
	for i, b := range baseNames {
		placeholders[i] = "?"
		args = append(args, b)
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE chain(id, name, parent_name, depth) AS (
			SELECT id, name, parent_name, 0 FROM classes WHERE name = ? COLLATE NOCASE
			UNION ALL
			SELECT c.id, c.name, c.parent_name, ch.depth + 1
			FROM classes c JOIN chain ch ON c.name = ch.parent_name COLLATE NOCASE
			WHERE ch.depth < ?
		)
		SELECT EXISTS(SELECT 1 FROM chain WHERE name IN (%s) COLLATE NOCASE)`,
		strings.Join(placeholders, ","))

	var found int
	if err := e.db.Raw().QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, apperrors.Wrap(apperrors.KindDatabaseError, "graph.InheritsFromAny", err)
	}
	return found != 0, nil
}

func scanNodes(rows *sql.Rows, role Role) ([]Node, error) {
	var out []Node
	for rows.Next() {
		var n Node
		var parentName sql.NullString
		var sourceIdx sql.NullInt64
		var forwardDecl int
		if err := rows.Scan(&n.ClassID, &n.Name, &parentName, &sourceIdx, &forwardDecl, &n.Depth); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabaseError, "graph.scanNodes", err)
		}
		n.ParentName = parentName.String
		n.FileIndex = sourceIdx.Int64
		n.HasFileIndex = sourceIdx.Valid
		n.IsForwardDeclaration = forwardDecl != 0
		n.Role = role
		out = append(out, n)
	}
	return out, rows.Err()
}

package graph

import (
	"context"
	"database/sql"
	"strings"

	"github.com/arma3tool/arma3tool/internal/apperrors"
	"github.com/arma3tool/arma3tool/internal/logging"
	"github.com/arma3tool/arma3tool/internal/store"
)

// Role classifies a node's relationship to a proposed set of removals.
type Role string

const (
	RoleNormal   Role = "normal"
	RoleRemoved  Role = "removed"
	RoleOrphaned Role = "orphaned"
	RoleAffected Role = "affected"
)

// Result is the outcome of ImpactAnalysis: the three named name-lists plus
// the node/edge set a caller can render as a graph.
type Result struct {
	Removed  []string
	Orphaned []string
	Affected []string
	Nodes    []Node
	Edges    []Edge
}

// FindOrphanedByParentRemoval returns every class whose parent_name names one
// of removedNames, excluding classes that are themselves in removedNames
// (those are Removed, not Orphaned).
func (e *Engine) FindOrphanedByParentRemoval(ctx context.Context, removedNames []string) ([]store.Class, error) {
	if len(removedNames) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(removedNames)), ",")
	args := make([]interface{}, 0, len(removedNames)*2)
	for _, n := range removedNames {
		args = append(args, n)
	}
	for _, n := range removedNames {
		args = append(args, n)
	}
	rows, err := e.db.Raw().QueryContext(ctx, `
		SELECT id, name, parent_name, container_class, source_file_index, is_forward_declaration
		FROM classes
		WHERE parent_name IN (`+placeholders+`) AND name NOT IN (`+placeholders+`)
		ORDER BY id ASC`, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "graph.FindOrphanedByParentRemoval", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

// FindAffectedChildren returns every descendant (within maxDepth levels) of
// the classes named in orphanNames, excluding the orphans themselves.
func (e *Engine) FindAffectedChildren(ctx context.Context, orphanNames []string, maxDepth int) ([]store.Class, error) {
	if len(orphanNames) == 0 {
		return nil, nil
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(orphanNames)), ",")
	args := make([]interface{}, 0, len(orphanNames)+1)
	for _, n := range orphanNames {
		args = append(args, n)
	}
	args = append(args, maxDepth)

	rows, err := e.db.Raw().QueryContext(ctx, `
		WITH RECURSIVE desc(id, name, depth) AS (
			SELECT id, name, 0 FROM classes WHERE name IN (`+placeholders+`)
			UNION ALL
			SELECT c.id, c.name, d.depth + 1
			FROM classes c
			JOIN desc d ON c.parent_name = d.name COLLATE NOCASE
			WHERE d.depth < ?
		)
		SELECT c.id, c.name, c.parent_name, c.container_class, c.source_file_index, c.is_forward_declaration
		FROM classes c
		JOIN (SELECT id, MIN(depth) AS depth FROM desc GROUP BY id) d ON d.id = c.id
		WHERE d.depth > 0
		ORDER BY c.id ASC`, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabaseError, "graph.FindAffectedChildren", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

func scanClasses(rows *sql.Rows) ([]store.Class, error) {
	var out []store.Class
	for rows.Next() {
		var c store.Class
		var parentName, containerClass sql.NullString
		var sourceIdx sql.NullInt64
		var forwardDecl int
		if err := rows.Scan(&c.ID, &c.Name, &parentName, &containerClass, &sourceIdx, &forwardDecl); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabaseError, "graph.scanClasses", err)
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

// ImpactAnalysis classifies every class reachable from a proposed removal
// set R: R's own members become Removed, their direct children that aren't
// themselves in R become Orphaned, and every descendant of an orphan becomes
// Affected. The returned node set includes, for every Removed/Orphaned/
// Affected node, its immediate parent too (as a Normal node, unless the parent
// already has a Removed/Orphaned/Affected role of its own) so the result
// renders as a connected graph; an edge parent->child is only emitted when
// both endpoints are present in the node set.
func (e *Engine) ImpactAnalysis(ctx context.Context, removedNames []string) (Result, error) {
	if len(removedNames) == 0 {
		return Result{}, nil
	}
	timer := logging.StartTimer(logging.CategoryGraph, "ImpactAnalysis")
	defer timer.Stop()

	nodes := make(map[string]*Node) // keyed by lower-cased class name
	var edges []Edge

	addNode := func(c store.Class, role Role) *Node {
		key := strings.ToLower(c.Name)
		if n, ok := nodes[key]; ok {
			return n
		}
		n := &Node{
			ClassID: c.ID, Name: c.Name, ParentName: c.ParentName, Role: role,
			FileIndex: c.SourceFileIndex, HasFileIndex: c.HasSourceFile,
			IsForwardDeclaration: c.IsForwardDeclaration,
		}
		nodes[key] = n
		return n
	}
	addEdge := func(parent, child *Node) {
		edges = append(edges, Edge{ParentID: parent.ClassID, ChildID: child.ClassID, Weight: 1})
	}
	isRemoved := func(name string) bool {
		for _, r := range removedNames {
			if strings.EqualFold(r, name) {
				return true
			}
		}
		return false
	}

	for _, name := range removedNames {
		c, err := e.db.GetClass(name)
		if err != nil {
			return Result{}, err
		}
		if c == nil {
			continue
		}
		n := addNode(*c, RoleRemoved)
		if c.ParentName != "" && !isRemoved(c.ParentName) {
			if parent, err := e.db.GetClass(c.ParentName); err == nil && parent != nil {
				pn := addNode(*parent, RoleNormal)
				addEdge(pn, n)
			}
		}
	}

	orphaned, err := e.FindOrphanedByParentRemoval(ctx, removedNames)
	if err != nil {
		return Result{}, err
	}
	orphanNames := classNames(orphaned)
	orphanSet := foldSet(orphanNames)
	for _, c := range orphaned {
		n := addNode(c, RoleOrphaned)
		if c.ParentName != "" {
			if parent, ok := nodes[strings.ToLower(c.ParentName)]; ok {
				addEdge(parent, n)
			}
		}
	}

	affected, err := e.FindAffectedChildren(ctx, orphanNames, DefaultMaxDepth)
	if err != nil {
		return Result{}, err
	}
	affectedNames := classNames(affected)
	affectedSet := foldSet(affectedNames)
	for _, c := range affected {
		n := addNode(c, RoleAffected)
		if c.ParentName == "" {
			continue
		}
		parentKey := strings.ToLower(c.ParentName)
		parentNode, ok := nodes[parentKey]
		if !ok {
			if parent, err := e.db.GetClass(c.ParentName); err == nil && parent != nil {
				role := RoleNormal
				switch {
				case orphanSet[parentKey]:
					role = RoleOrphaned
				case affectedSet[parentKey]:
					role = RoleAffected
				}
				parentNode = addNode(*parent, role)
			}
		}
		if parentNode != nil {
			addEdge(parentNode, n)
		}
	}

	result := Result{
		Removed:  append([]string{}, removedNames...),
		Orphaned: orphanNames,
		Affected: affectedNames,
		Nodes:    sortedNodes(nodes),
		Edges:    edges,
	}
	return result, nil
}

func classNames(classes []store.Class) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Name
	}
	return out
}

func foldSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[strings.ToLower(n)] = true
	}
	return out
}

func sortedNodes(nodes map[string]*Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, *n)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ClassID < out[j-1].ClassID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

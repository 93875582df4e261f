package graph

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/arma3tool/arma3tool/internal/store"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(t.TempDir() + "/graph_test.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func importChain(t *testing.T, db *store.DB, classes []store.ImportClass) {
	t.Helper()
	_, err := db.BulkImport(context.Background(), classes, nil)
	require.NoError(t, err)
}

func TestGetHierarchy(t *testing.T) {
	db := openTestDB(t)
	importChain(t, db, []store.ImportClass{
		{Name: "Base"},
		{Name: "Mid", ParentName: "Base"},
		{Name: "Leaf", ParentName: "Mid"},
		{Name: "Unrelated"},
	})

	nodes, err := New(db).GetHierarchy(context.Background(), "Base", 10)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	names := []string{nodes[0].Name, nodes[1].Name, nodes[2].Name}
	require.ElementsMatch(t, []string{"Base", "Mid", "Leaf"}, names)
}

func TestInheritsFromAnyIncludesSelf(t *testing.T) {
	db := openTestDB(t)
	importChain(t, db, []store.ImportClass{
		{Name: "Base"},
		{Name: "Mid", ParentName: "Base"},
		{Name: "Leaf", ParentName: "Mid"},
	})
	eng := New(db)

	ok, err := eng.InheritsFromAny(context.Background(), "Leaf", []string{"Base"}, 10)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = eng.InheritsFromAny(context.Background(), "Base", []string{"Base"}, 10)
	require.NoError(t, err)
	require.True(t, ok, "a class inherits from itself")

	ok, err = eng.InheritsFromAny(context.Background(), "Leaf", []string{"Unrelated"}, 10)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInheritsFromAnySurvivesCycle(t *testing.T) {
	db := openTestDB(t)
	importChain(t, db, []store.ImportClass{
		{Name: "Cyclic1", ParentName: "Cyclic2"},
		{Name: "Cyclic2", ParentName: "Cyclic1"},
	})
	eng := New(db)

	done := make(chan struct{})
	go func() {
		_, _ = eng.InheritsFromAny(context.Background(), "Cyclic1", []string{"NothingHere"}, 8)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("query did not terminate")
	}
}

func TestImpactAnalysis(t *testing.T) {
	db := openTestDB(t)
	importChain(t, db, []store.ImportClass{
		{Name: "Base"},
		{Name: "Orphan1", ParentName: "Base"},
		{Name: "Orphan2", ParentName: "Base"},
		{Name: "Grandchild", ParentName: "Orphan1"},
		{Name: "Unrelated"},
	})

	result, err := New(db).ImpactAnalysis(context.Background(), []string{"Base"})
	require.NoError(t, err)

	require.Equal(t, []string{"Base"}, result.Removed)
	require.ElementsMatch(t, []string{"Orphan1", "Orphan2"}, result.Orphaned)
	require.ElementsMatch(t, []string{"Grandchild"}, result.Affected)

	roles := map[string]Role{}
	for _, n := range result.Nodes {
		roles[n.Name] = n.Role
	}
	require.Equal(t, RoleRemoved, roles["Base"])
	require.Equal(t, RoleOrphaned, roles["Orphan1"])
	require.Equal(t, RoleAffected, roles["Grandchild"])
	require.NotContains(t, roles, "Unrelated")

	for _, e := range result.Edges {
		foundParent, foundChild := false, false
		for _, n := range result.Nodes {
			if n.ClassID == e.ParentID {
				foundParent = true
			}
			if n.ClassID == e.ChildID {
				foundChild = true
			}
		}
		require.True(t, foundParent, "edge parent must be in node set")
		require.True(t, foundChild, "edge child must be in node set")
	}
}

func TestGetHierarchyNodeSetMatchesExpected(t *testing.T) {
	db := openTestDB(t)
	importChain(t, db, []store.ImportClass{
		{Name: "Base"},
		{Name: "Mid", ParentName: "Base"},
		{Name: "Leaf", ParentName: "Mid"},
		{Name: "Unrelated"},
	})

	nodes, err := New(db).GetHierarchy(context.Background(), "Base", 10)
	require.NoError(t, err)

	var names []string
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	want := []string{"Base", "Mid", "Leaf"}
	if diff := cmp.Diff(want, names, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("hierarchy node set mismatch (-want +got):\n%s", diff)
	}
}

func TestImpactAnalysisEmptyInput(t *testing.T) {
	db := openTestDB(t)
	result, err := New(db).ImpactAnalysis(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, result.Nodes)
}

package mission

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/arma3tool/arma3tool/internal/store"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "mission_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCheckAllOrdersVerdictsBySpecificity(t *testing.T) {
	db := openTestDB(t)
	_, err := db.BulkImport(context.Background(), []store.ImportClass{
		{Name: "Rifle_Base_F"},
		{Name: "MyCustomRifle", ParentName: "Rifle_Base_F"},
	}, nil)
	require.NoError(t, err)

	cc := New(db, NewFuzzyMatcher(0.75), 2)
	verdicts, err := cc.CheckAll(context.Background(), []string{
		"Rifle_Base_F", "rifle_base_f", "MyCustomRifl", "TotallyUnknownThing",
	})
	require.NoError(t, err)
	require.Len(t, verdicts, 4)

	byRef := map[string]Verdict{}
	for _, v := range verdicts {
		byRef[v.Reference] = v
	}

	require.Equal(t, ExactMatch, byRef["Rifle_Base_F"].Kind)
	require.Equal(t, "Rifle_Base_F", byRef["Rifle_Base_F"].MatchedAs)

	require.Equal(t, CaseInsensitiveMatch, byRef["rifle_base_f"].Kind)
	require.Equal(t, "Rifle_Base_F", byRef["rifle_base_f"].MatchedAs)

	require.Equal(t, PartialMatch, byRef["MyCustomRifl"].Kind)
	require.NotEmpty(t, byRef["MyCustomRifl"].Candidates)

	require.Equal(t, NotFound, byRef["TotallyUnknownThing"].Kind)
}

func TestFindCandidatesCapsAtMaxFuzzyMatches(t *testing.T) {
	db := openTestDB(t)
	classes := []store.ImportClass{{Name: "Rifle_Base_F"}}
	for i := 0; i < 10; i++ {
		classes = append(classes, store.ImportClass{Name: "RifleVariant" + string(rune('A'+i)), ParentName: "Rifle_Base_F"})
	}
	_, err := db.BulkImport(context.Background(), classes, nil)
	require.NoError(t, err)

	cc := New(db, NewFuzzyMatcher(0.1), 2)
	verdict, err := cc.Check("RifleVariant")
	require.NoError(t, err)
	require.Equal(t, PartialMatch, verdict.Kind)
	require.LessOrEqual(t, len(verdict.Candidates), MaxFuzzyMatches)
}

func TestStripPrefixHeuristicFindsUnderlyingClass(t *testing.T) {
	db := openTestDB(t)
	_, err := db.BulkImport(context.Background(), []store.ImportClass{
		{Name: "Rifle_Base_F"},
	}, nil)
	require.NoError(t, err)

	cc := New(db, NewFuzzyMatcher(0.75), 2)
	verdict, err := cc.Check("item_rifle_base_f")
	require.NoError(t, err)
	require.Equal(t, PartialMatch, verdict.Kind)
	require.Equal(t, "Rifle_Base_F", verdict.Candidates[0].ClassName)
	require.Equal(t, 1.0, verdict.Candidates[0].Similarity)
}

func TestFuzzyMatcherSimilarity(t *testing.T) {
	fm := NewFuzzyMatcher(0.75)
	require.Equal(t, 1.0, fm.Similarity("Rifle", "Rifle"))
	require.Equal(t, 0.0, fm.Similarity("", "Rifle"))
	require.Greater(t, fm.Similarity("Rifle_Base_F", "Rifle_Base_X"), 0.8)
}

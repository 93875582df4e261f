package export

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/store"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "export_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExportFiltersByItemType(t *testing.T) {
	db := openTestDB(t)
	_, err := db.BulkImport(context.Background(), []store.ImportClass{
		{Name: "Rifle_Base_F", Properties: map[string]store.PropertyValue{"scope": store.NewNumber(2)}},
		{Name: "MyRifle", ParentName: "Rifle_Base_F", Properties: map[string]store.PropertyValue{
			"scope": store.NewNumber(2), "displayName": store.NewString("My Rifle"),
		}},
		{Name: "Unrelated", Properties: map[string]store.PropertyValue{"scope": store.NewNumber(2)}},
	}, nil)
	require.NoError(t, err)

	filter := config.ItemFilterConfig{
		Version:        "1.0",
		ItemTypes:      map[string]config.ItemTypeConfig{"weapons": {BaseClasses: []string{"Rifle_Base_F"}}},
		ExclusionRules: config.ExclusionRules{MaxScope: 1},
	}

	var buf bytes.Buffer
	err = New(db, filter).Export(context.Background(), &buf, ',', 0)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "MyRifle")
	require.Contains(t, out, "My Rifle")
	require.NotContains(t, out, "Unrelated")
}

func TestExportExcludesLowScope(t *testing.T) {
	db := openTestDB(t)
	_, err := db.BulkImport(context.Background(), []store.ImportClass{
		{Name: "Rifle_Base_F"},
		{Name: "HiddenRifle", ParentName: "Rifle_Base_F", Properties: map[string]store.PropertyValue{"scope": store.NewNumber(1)}},
	}, nil)
	require.NoError(t, err)

	filter := config.ItemFilterConfig{
		ItemTypes:      map[string]config.ItemTypeConfig{"weapons": {BaseClasses: []string{"Rifle_Base_F"}}},
		ExclusionRules: config.ExclusionRules{MaxScope: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, New(db, filter).Export(context.Background(), &buf, ',', 0))
	require.NotContains(t, buf.String(), "HiddenRifle")
}

func TestExportSortsLinesLexicographically(t *testing.T) {
	db := openTestDB(t)
	_, err := db.BulkImport(context.Background(), []store.ImportClass{
		{Name: "Rifle_Base_F"},
		{Name: "Zulu", ParentName: "Rifle_Base_F"},
		{Name: "Alpha", ParentName: "Rifle_Base_F"},
		{Name: "Mike", ParentName: "Rifle_Base_F"},
	}, nil)
	require.NoError(t, err)

	filter := config.ItemFilterConfig{ItemTypes: map[string]config.ItemTypeConfig{"weapons": {BaseClasses: []string{"Rifle_Base_F"}}}}
	var buf bytes.Buffer
	require.NoError(t, New(db, filter).Export(context.Background(), &buf, ',', 0))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	sorted := append([]string(nil), lines...)
	sort.Strings(sorted)
	require.Equal(t, sorted, lines, "export lines must already be in lexicographic order")
}

func TestEscapeFieldQuotesWhenNeeded(t *testing.T) {
	require.Equal(t, `plain`, escapeField("plain", ','))
	require.Equal(t, `"has,comma"`, escapeField("has,comma", ','))
	require.Equal(t, `"has ""quote"""`, escapeField(`has "quote"`, ','))
}

func TestExportRespectsLimit(t *testing.T) {
	db := openTestDB(t)
	classes := []store.ImportClass{{Name: "Rifle_Base_F"}}
	for i := 0; i < 5; i++ {
		classes = append(classes, store.ImportClass{Name: "Rifle" + string(rune('A'+i)), ParentName: "Rifle_Base_F"})
	}
	_, err := db.BulkImport(context.Background(), classes, nil)
	require.NoError(t, err)

	filter := config.ItemFilterConfig{ItemTypes: map[string]config.ItemTypeConfig{"weapons": {BaseClasses: []string{"Rifle_Base_F"}}}}
	var buf bytes.Buffer
	require.NoError(t, New(db, filter).Export(context.Background(), &buf, ',', 2))
	lines := strings.Count(buf.String(), "\n")
	require.Equal(t, 2, lines)
}

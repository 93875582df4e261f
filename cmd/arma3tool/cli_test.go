package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/store"
)

// newTestApp builds an App rooted at a temp workspace, the way runInit/
// runScan tests in the reference CLI set the package-level workspace before
// calling a run function directly rather than going through cobra.Execute.
func newTestApp(t *testing.T) *App {
	t.Helper()
	ws := t.TempDir()

	gameDataDir := filepath.Join(ws, "gamedata")
	require.NoError(t, os.MkdirAll(gameDataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(gameDataDir, "weapons.hpp"), []byte(`
class Rifle_Base_F {
	scope = 2;
	displayName = "Base Rifle";
};
class MX_F: Rifle_Base_F {
	scope = 2;
	displayName = "MX 6.5 mm";
};
`), 0o644))

	cfg := config.Default()
	cfg.Store.Path = filepath.Join(ws, "arma3.db")
	cfg.Extraction.CacheDir = filepath.Join(ws, "cache")
	cfg.Extraction.Threads = 2
	cfg.Extraction.TimeoutSeconds = 10
	cfg.Extraction.GameDataDirs = []string{gameDataDir}
	cfg.Extraction.GameDataExt = []string{"hpp"}

	db, err := store.Open(cfg.Store.Path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &App{Config: cfg, DB: db, Logger: zap.NewNop()}
}

func TestRunExtractThenProcessThenExport(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, runExtract(ctx, app))

	archives, err := app.DB.ListArchives()
	require.NoError(t, err)
	require.Len(t, archives, 1)

	require.NoError(t, runProcess(ctx, app))

	classes, err := app.DB.ListClasses()
	require.NoError(t, err)
	require.Len(t, classes, 2)

	filterPath := filepath.Join(t.TempDir(), "item_filter.json")
	require.NoError(t, config.SaveItemFilter(config.DefaultItemFilterConfig(), filterPath))

	exportFilterCfg = filterPath
	exportOutput = filepath.Join(t.TempDir(), "out.csv")
	exportSeparator = ","
	exportLimit = 0
	defer func() {
		exportFilterCfg = "item_filter.json"
		exportOutput = "export.csv"
	}()

	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	require.NoError(t, runExport(cmd, app))

	data, err := os.ReadFile(exportOutput)
	require.NoError(t, err)
	require.Contains(t, string(data), "MX_F")
}

func TestRunExtractSkipsWhenNothingConfigured(t *testing.T) {
	app := newTestApp(t)
	app.Config.Extraction.GameDataDirs = nil
	app.Config.Extraction.MissionDirs = nil

	require.NoError(t, runExtract(context.Background(), app))

	archives, err := app.DB.ListArchives()
	require.NoError(t, err)
	require.Empty(t, archives)
}

func TestRunReportPrintsClassCountByDefault(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, runExtract(ctx, app))
	require.NoError(t, runProcess(ctx, app))

	reportRoot, reportImpact, reportMissionRefs = "", "", ""
	require.NoError(t, runReport(ctx, app.DB))
}

func TestRunReportHierarchyForConfiguredRoot(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, runExtract(ctx, app))
	require.NoError(t, runProcess(ctx, app))

	reportRoot = "Rifle_Base_F"
	reportImpact, reportMissionRefs = "", ""
	defer func() { reportRoot = "" }()

	require.NoError(t, runReport(ctx, app.DB))
}

func TestRunReportMissionCrossCheck(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, runExtract(ctx, app))
	require.NoError(t, runProcess(ctx, app))

	reportRoot, reportImpact = "", ""
	reportMissionRefs = "MX_F,NotAClass_X"
	defer func() { reportMissionRefs = "" }()

	require.NoError(t, runReport(ctx, app.DB))
}

func TestRunDiagnosticRunsOverExtractedFiles(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, runExtract(ctx, app))

	diagnosticScannerConfig = ""
	require.NoError(t, runDiagnostic(ctx, app))
}

func TestRunAllChainsExtractProcessExport(t *testing.T) {
	app := newTestApp(t)

	exportFilterCfg = filepath.Join(t.TempDir(), "missing-filter.json")
	exportOutput = filepath.Join(t.TempDir(), "all-out.csv")
	defer func() {
		exportFilterCfg = "item_filter.json"
		exportOutput = "export.csv"
	}()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, runAll(cmd, app))

	data, err := os.ReadFile(exportOutput)
	require.NoError(t, err)
	require.True(t, bytes.Contains(data, []byte("MX_F")))
}

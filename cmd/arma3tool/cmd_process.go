package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arma3tool/arma3tool/internal/classparser"
	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/parse"
	"github.com/arma3tool/arma3tool/internal/store"
	"github.com/arma3tool/arma3tool/internal/tui"
)

var scannerConfigPath string

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Parse every extracted file and rebuild the class graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(configPath, logger)
		if err != nil {
			return err
		}
		defer app.Close()
		return runProcess(cmd.Context(), app)
	},
}

func init() {
	processCmd.Flags().StringVar(&scannerConfigPath, "scanner-config", "", "path to a YAML/JSON/TOML scanner config (overrides built-in defaults)")
}

// runProcess parses every previously extracted file and replaces the class
// graph in one bulk-import transaction. File source indices are assigned in
// the order files are visited, which is also the order recorded in
// file_index_mapping, so a later report can trace any class back to its
// originating archive and relative path.
func runProcess(ctx context.Context, app *App) error {
	sc, err := loadScannerConfig()
	if err != nil {
		return err
	}

	archives, err := app.DB.ListArchives()
	if err != nil {
		return err
	}

	type located struct {
		cachePath string
		archiveID int64
		relPath   string
	}
	var files []located
	for _, a := range archives {
		extracted, err := app.DB.GetExtractedFiles(a.ID)
		if err != nil {
			return err
		}
		for _, f := range extracted {
			files = append(files, located{cachePath: f.CachePath, archiveID: a.ID, relPath: f.RelPath})
		}
	}
	if len(files) == 0 {
		app.Logger.Warn("no extracted files found; run extract first")
		return nil
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.cachePath
	}

	pool := parse.NewPool(classparser.New(), *sc)

	var result parse.ScannerResult
	if sc.ShowProgress {
		result, err = scanWithProgress(ctx, pool, paths)
	} else {
		result, err = pool.Scan(ctx, paths)
	}
	if err != nil {
		return err
	}

	byPath := make(map[string]located, len(files))
	for _, f := range files {
		byPath[f.cachePath] = f
	}

	var importClasses []store.ImportClass
	var fileSources []store.ImportFileSource
	var nextFileIndex int64
	var parsedFiles int

	for _, fr := range result.Files {
		if !fr.Success {
			continue
		}
		if len(fr.Classes) == 0 {
			continue
		}
		loc := byPath[fr.Path]
		fileIndex := nextFileIndex
		nextFileIndex++
		fileSources = append(fileSources, store.ImportFileSource{
			FileIndex: fileIndex, ArchiveID: loc.archiveID, NormalizedPath: loc.relPath,
		})
		parsedFiles++
		for _, c := range fr.Classes {
			importClasses = append(importClasses, store.ImportClass{
				Name:                 c.Name,
				ParentName:           c.ParentName,
				ContainerClass:       c.ContainerClass,
				SourceFileIndex:      fileIndex,
				HasSourceFile:        true,
				IsForwardDeclaration: c.IsForwardDeclaration,
				Properties:           c.Properties,
			})
		}
	}

	stats, err := app.DB.BulkImport(ctx, importClasses, fileSources)
	if err != nil {
		return err
	}

	app.Logger.Sugar().Infof("process: %d files parsed, %d hard failures, stopped_early=%v, imported %d root + %d child classes (%d duplicates skipped)",
		parsedFiles, result.HardFailureCount, result.StoppedEarly, stats.RootClasses, stats.ChildClasses, stats.DuplicatesSkipped)
	fmt.Printf("parsed=%d hard_failures=%d stopped_early=%v root_classes=%d child_classes=%d duplicates_skipped=%d\n",
		parsedFiles, result.HardFailureCount, result.StoppedEarly, stats.RootClasses, stats.ChildClasses, stats.DuplicatesSkipped)
	return nil
}

// scanWithProgress runs the scan pool in the background while a Bubble Tea
// progress bar renders each file's completion in the foreground, mirroring
// the teacher's own split between a worker pool and its display.
func scanWithProgress(ctx context.Context, pool *parse.Pool, paths []string) (parse.ScannerResult, error) {
	updates := make(chan tui.StepMsg)
	pool.SetProgress(func(done, total int, path string) {
		updates <- tui.StepMsg{Label: path, Current: done, Total: total}
	})

	var result parse.ScannerResult
	var scanErr error
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		defer close(updates)
		result, scanErr = pool.Scan(ctx, paths)
	}()

	if err := tui.RunProgress("process", updates); err != nil {
		<-scanDone
		return result, err
	}
	<-scanDone
	return result, scanErr
}

func loadScannerConfig() (*config.ScannerConfig, error) {
	if scannerConfigPath == "" {
		return config.DefaultScannerConfig(), nil
	}
	return config.LoadScanner(scannerConfigPath)
}

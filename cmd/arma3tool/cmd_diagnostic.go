package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arma3tool/arma3tool/internal/classparser"
	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/parse"
)

var diagnosticScannerConfig string

var diagnosticCmd = &cobra.Command{
	Use:   "diagnostic",
	Short: "Re-parse extracted files with diagnostic mode on and print every warning",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(configPath, logger)
		if err != nil {
			return err
		}
		defer app.Close()
		return runDiagnostic(cmd.Context(), app)
	},
}

func init() {
	diagnosticCmd.Flags().StringVar(&diagnosticScannerConfig, "scanner-config", "", "path to a YAML/JSON/TOML scanner config (overrides built-in defaults)")
}

// runDiagnostic re-runs the scan stage with diagnostic_mode forced on, so
// every warning a file raised is retained in the result rather than being
// dropped once a file is classified as successful (§4.4's diagnostic_mode
// edge case: "when true, every warning is also kept in the result").
func runDiagnostic(ctx context.Context, app *App) error {
	cfg, err := loadDiagnosticScannerConfig()
	if err != nil {
		return err
	}
	cfg.DiagnosticMode = true

	archives, err := app.DB.ListArchives()
	if err != nil {
		return err
	}
	var paths []string
	for _, a := range archives {
		extracted, err := app.DB.GetExtractedFiles(a.ID)
		if err != nil {
			return err
		}
		for _, f := range extracted {
			paths = append(paths, f.CachePath)
		}
	}
	if len(paths) == 0 {
		app.Logger.Warn("no extracted files found; run extract first")
		return nil
	}

	pool := parse.NewPool(classparser.New(), *cfg)
	result, err := pool.Scan(ctx, paths)
	if err != nil {
		return err
	}

	warningCount := 0
	for _, fr := range result.Files {
		for _, w := range fr.Warnings {
			warningCount++
			fmt.Printf("%s: [%s] %s\n", fr.Path, w.Code, w.Message)
		}
		if fr.Hard != nil {
			fmt.Printf("%s: HARD [%s] %s\n", fr.Path, fr.Hard.Code, fr.Hard.Message)
		}
	}

	app.Logger.Sugar().Infof("diagnostic: %d files scanned, %d warnings, %d hard failures, stopped_early=%v",
		len(result.Files), warningCount, result.HardFailureCount, result.StoppedEarly)
	fmt.Printf("files=%d warnings=%d hard_failures=%d stopped_early=%v\n",
		len(result.Files), warningCount, result.HardFailureCount, result.StoppedEarly)
	return nil
}

func loadDiagnosticScannerConfig() (*config.ScannerConfig, error) {
	if diagnosticScannerConfig == "" {
		return config.DefaultScannerConfig(), nil
	}
	return config.LoadScanner(diagnosticScannerConfig)
}

// Package main implements the arma3tool CLI: extract, process, report,
// export, diagnostic, and a composite "all" pipeline over Arma 3 game-data
// and mission archives.
//
// # File Index
//
//   - main.go         - entry point, rootCmd, global flags
//   - app.go          - App context struct threaded through every subcommand
//   - cmd_extract.go  - extractCmd, runExtract()
//   - cmd_process.go  - processCmd, runProcess()
//   - cmd_report.go   - reportCmd, runReport()
//   - cmd_export.go   - exportCmd, runExport()
//   - cmd_diagnostic.go - diagnosticCmd, runDiagnostic()
//   - cmd_all.go      - allCmd, runAll()
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/logging"
)

var (
	verbose    bool
	configPath string
	workspace  string

	logger *zap.Logger
	// runID tags every boot-category log line for one invocation, so
	// interleaved extract/process/report runs against the same workspace
	// can be told apart in the log files.
	runID string
)

var rootCmd = &cobra.Command{
	Use:   "arma3tool",
	Short: "Scan, store, and query Arma 3 game-data and mission class graphs",
	Long: `arma3tool extracts game-data and mission archives into a content-
addressed cache, parses the extracted configs into a class-inheritance
graph, and answers inheritance/impact/cross-check questions against it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		settings := logging.Settings{DebugMode: verbose, Level: levelName()}
		if cfg, cfgErr := config.Load(configPath); cfgErr == nil {
			settings = logging.Settings{
				DebugMode:  cfg.Logging.DebugMode || verbose,
				Categories: cfg.Logging.Categories,
				Level:      cfg.Logging.Level,
				JSONFormat: cfg.Logging.JSONFormat,
			}
			if verbose {
				settings.Level = "debug"
			}
		}
		if err := logging.Initialize(ws, settings); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}

		runID = uuid.New().String()
		logging.Get(logging.CategoryBoot).Info("run %s starting: %s", runID, cmd.Name())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func levelName() string {
	if verbose {
		return "debug"
	}
	return "info"
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "arma3tool.yaml", "path to the app config file")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")

	rootCmd.AddCommand(extractCmd, processCmd, reportCmd, exportCmd, diagnosticCmd, allCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

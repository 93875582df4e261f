package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/export"
)

var (
	exportOutput    string
	exportFilterCfg string
	exportSeparator string
	exportLimit     int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Stream item-filtered classes to a delimited file",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(configPath, logger)
		if err != nil {
			return err
		}
		defer app.Close()
		return runExport(cmd, app)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "export.csv", "output file path")
	exportCmd.Flags().StringVar(&exportFilterCfg, "filter", "item_filter.json", "path to the item filter config")
	exportCmd.Flags().StringVar(&exportSeparator, "separator", ",", "field separator (single character)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "truncate output to this many rows after sorting (0 = unlimited)")
}

func runExport(cmd *cobra.Command, app *App) error {
	filter, err := loadItemFilter()
	if err != nil {
		return err
	}

	sep := rune(',')
	if len(exportSeparator) > 0 {
		sep = []rune(exportSeparator)[0]
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return err
	}
	defer f.Close()

	exporter := export.New(app.DB, *filter)
	if err := exporter.Export(cmd.Context(), f, sep, exportLimit); err != nil {
		return err
	}
	app.Logger.Sugar().Infof("export: wrote %s", exportOutput)
	return nil
}

// loadItemFilter reads the configured item filter (or the built-in default
// if the file is absent), then lets ARMA3_MAX_SCOPE/ARMA3_EXCLUDED_PREFIXES
// override it for a one-off export without editing the on-disk config.
func loadItemFilter() (*config.ItemFilterConfig, error) {
	filter := config.DefaultItemFilterConfig()
	if _, err := os.Stat(exportFilterCfg); err == nil {
		filter, err = config.LoadItemFilter(exportFilterCfg)
		if err != nil {
			return nil, err
		}
	}
	filter.ApplyEnv()
	return filter, nil
}

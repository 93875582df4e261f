package main

import (
	"context"

	"github.com/spf13/cobra"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run extract, process, then export in sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(configPath, logger)
		if err != nil {
			return err
		}
		defer app.Close()
		return runAll(cmd, app)
	},
}

// runAll chains the three stages a fresh checkout needs to go from raw
// game-data/mission directories to a filtered export: extract populates the
// cache and archive table, process rebuilds the class graph from it, and
// export renders the filtered result. Each stage shares the same App so they
// run against the same opened database connection.
func runAll(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	if err := runExtract(ctx, app); err != nil {
		return err
	}
	if err := runProcess(ctx, app); err != nil {
		return err
	}
	return runExport(cmd, app)
}

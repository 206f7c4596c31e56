package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	daerrors "da/internal/errors"
	"da/internal/query"
	"da/internal/report"
	"da/internal/storage"
)

var analyzeSave bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Compute the design metrics of a package",
	Long: `Compute inDepth, instability, responsibility and workload for every type
of the package in <path> and print them, sorted by qualified name.

With --save the result is also stored in the history database
(storage.path, default .da/history.db) for 'da history'.

Examples:
  da analyze build/classes/com/example/shapes
  da analyze build/classes/com/example/shapes --format json --precision 3
  da analyze build/classes/com/example/shapes --classpath lib/base.jar --strict
  da analyze build/classes/com/example/shapes --save`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store the result in the history database")
	rootCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store the result in the history database")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	renderer, err := report.NewRenderer(report.Options{
		Format:    report.Format(cfg.Format),
		Precision: cfg.Precision,
		Color:     isTerminal(cmd),
	})
	if err != nil {
		return err
	}

	a, err := newEngine(logger).Analyze(cmd.Context(), args[0], analysisOptions())
	if err != nil {
		return err
	}

	if analyzeSave {
		if err := saveRun(cmd, a); err != nil {
			return err
		}
	}
	return renderer.Render(cmd.OutOrStdout(), a.Report())
}

// saveRun stores the analysis in the history database.
func saveRun(cmd *cobra.Command, a *query.Analysis) error {
	db, err := openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.SaveRun(a.Snapshot())
	if err != nil {
		return daerrors.New(daerrors.StorageError, daerrors.StageStore, "cannot save run", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved run %s (%d types)\n", run.ID, run.TypeCount)
	return nil
}

func openHistory() (*storage.DB, error) {
	db, err := storage.Open(cfg.Storage.Path, logger)
	if err != nil {
		return nil, daerrors.New(daerrors.StorageError, daerrors.StageStore, "cannot open history database "+cfg.Storage.Path, err)
	}
	return db, nil
}

// isTerminal reports whether command output goes to a terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"da/internal/envelope"
	daerrors "da/internal/errors"
)

var (
	historyPackage string
	historyType    string
	historyLimit   int
	historyPrune   time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored analysis runs",
	Long: `Show the runs stored with 'da analyze --save', newest first, or with
--type the metrics of one type across those runs.

Examples:
  da history
  da history --package shapes --limit 5
  da history --type Circle
  da history --prune 720h`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyPackage, "package", "", "Only runs of this package")
	historyCmd.Flags().StringVar(&historyType, "type", "", "Show the metrics of this type (qualified or simple name)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of entries (0 for all)")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Delete runs older than this age instead of listing")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	if historyPrune > 0 {
		cutoff := time.Now().Add(-historyPrune)
		deleted, err := db.DeleteRunsBefore(cutoff)
		if err != nil {
			return daerrors.New(daerrors.StorageError, daerrors.StageStore, "cannot prune history", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s) older than %s\n", deleted, cutoff.Format(time.RFC3339))
		return nil
	}

	b := envelope.New().WithProvenance(envelope.Provenance{Package: historyPackage})
	if historyType != "" {
		points, err := db.TypeHistory(historyPackage, historyType, historyLimit)
		if err != nil {
			return daerrors.New(daerrors.StorageError, daerrors.StageStore, "cannot read history", err)
		}
		b.Data(points)
	} else {
		runs, err := db.ListRuns(historyPackage, historyLimit)
		if err != nil {
			return daerrors.New(daerrors.StorageError, daerrors.StageStore, "cannot read history", err)
		}
		b.Data(runs)
	}

	out, err := FormatResponse(b.Build(), responseFormat(cfg.Format))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

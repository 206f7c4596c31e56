package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"da/internal/report"
	"da/internal/watcher"
)

var (
	watchInterval time.Duration
	watchDebounce time.Duration
	watchSave     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Recompute the metrics whenever the package changes",
	Long: `Print the metrics of the package in <path>, then poll the directory and
print them again after its .class, .jar or .java files change. Failed
recomputations (for example while a build is half done) are reported and
watching continues. Stop with Ctrl-C.

Examples:
  da watch build/classes/com/example/shapes
  da watch src/main/java/com/example/shapes --source --interval 2s --save`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	d := watcher.DefaultConfig()
	watchCmd.Flags().DurationVar(&watchInterval, "interval", d.PollInterval, "Polling interval")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", d.Debounce, "Quiet period before recomputing")
	watchCmd.Flags().BoolVar(&watchSave, "save", false, "Store every recomputation in the history database")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	renderer, err := report.NewRenderer(report.Options{
		Format:    report.Format(cfg.Format),
		Precision: cfg.Precision,
		Color:     isTerminal(cmd),
	})
	if err != nil {
		return err
	}
	engine := newEngine(logger)
	dir := args[0]

	analyze := func() error {
		a, err := engine.Analyze(cmd.Context(), dir, analysisOptions())
		if err != nil {
			return err
		}
		if watchSave {
			if err := saveRun(cmd, a); err != nil {
				return err
			}
		}
		return renderer.Render(cmd.OutOrStdout(), a.Report())
	}

	// The first analysis must succeed so that a wrong path fails fast.
	if err := analyze(); err != nil {
		return err
	}

	config := watcher.DefaultConfig()
	config.PollInterval = watchInterval
	config.Debounce = watchDebounce
	var mu sync.Mutex
	w := watcher.New(dir, config, logger, func(_ string, events []watcher.Event) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(cmd.ErrOrStderr(), "%d file(s) changed, recomputing\n", len(events))
		if err := analyze(); err != nil {
			logger.Error("Recomputation failed", "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
	return w.Run(cmd.Context())
}

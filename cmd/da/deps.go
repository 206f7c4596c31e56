package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"da/internal/envelope"
)

var depsCmd = &cobra.Command{
	Use:   "deps <path> <type>",
	Short: "Show the providers and clients of one type",
	Long: `Show which types of the package <type> depends on (providers) and which
depend on it (clients), with the mechanisms linking them: supertype, field,
interface or parameter.

<type> is a qualified name or a simple name that is unique in the package.

Examples:
  da deps build/classes/com/example/shapes Circle
  da deps build/classes/com/example/shapes com.example.shapes.Shape --format json`,
	Args: cobra.ExactArgs(2),
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	a, err := newEngine(logger).Analyze(cmd.Context(), args[0], analysisOptions())
	if err != nil {
		return err
	}
	deps, err := a.Dependencies(args[1])
	if err != nil {
		return err
	}

	resp := envelope.New().
		Data(deps).
		WithProvenance(envelope.Provenance{
			Package:       a.Package,
			SourcePath:    a.SourcePath,
			InterfaceMode: string(a.InterfaceMode),
		}).
		Build()
	out, err := FormatResponse(resp, responseFormat(cfg.Format))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

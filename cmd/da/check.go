package main

import (
	"fmt"

	"github.com/spf13/cobra"

	daerrors "da/internal/errors"
	"da/internal/rules"
)

var checkRulesFile string

var checkCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Check the metrics of a package against threshold rules",
	Long: `Evaluate the threshold rules of a TOML file against every type of the
package in <path>. Exits with status 2 when a rule is violated.

Rules file format:

  [[rule]]
  name = "shallow hierarchies"
  metric = "in_depth"          # in_depth, instability, responsibility, workload
  max = 3
  types = ["com.example.*"]    # optional globs on qualified or simple names

  [[rule]]
  metric = "workload"
  min = 0.01
  max = 0.5

Examples:
  da check build/classes/com/example/shapes --rules design-rules.toml
  da check build/classes/com/example/shapes --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkRulesFile, "rules", "", "Rules file (default: rules.path from the config)")
	rootCmd.AddCommand(checkCmd)
}

// checkResult is the printed outcome of a check.
type checkResult struct {
	Package    string            `json:"package"`
	Rules      int               `json:"rules"`
	Types      int               `json:"types"`
	Violations []rules.Violation `json:"violations"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	file := checkRulesFile
	if file == "" {
		file = cfg.Rules.Path
	}
	rs, err := rules.Load(file)
	if err != nil {
		return err
	}

	a, err := newEngine(logger).Analyze(cmd.Context(), args[0], analysisOptions())
	if err != nil {
		return err
	}

	violations := rs.Evaluate(a.Records)
	result := &checkResult{
		Package:    a.Package,
		Rules:      len(rs.Rules),
		Types:      len(a.Records),
		Violations: violations,
	}
	if result.Violations == nil {
		result.Violations = []rules.Violation{}
	}
	logger.Info("Checked rules", "package", a.Package, "rules", len(rs.Rules), "violations", len(violations))

	out, err := FormatResponse(result, responseFormat(cfg.Format))
	if err != nil {
		return daerrors.New(daerrors.InternalError, daerrors.StageRender, "cannot format check result", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return rules.ViolationError(violations)
}

package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"da/internal/config"
	"da/internal/dependency"
	daerrors "da/internal/errors"
	"da/internal/query"
	"da/internal/slogutil"
	"da/internal/version"
)

var (
	configFile string
	verbosity  int
	quiet      bool

	formatFlag        string
	precisionFlag     int
	interfaceModeFlag string
	classpathFlag     []string
	strictFlag        bool
	sourceFlag        bool
	workersFlag       int
)

// Set by setup before any command runs.
var (
	cfg    *config.Config
	logger *slog.Logger
)

// newEngine is replaced in tests.
var newEngine = func(logger *slog.Logger) *query.Engine {
	return query.NewEngine(logger)
}

var rootCmd = &cobra.Command{
	Use:   "da [path]",
	Short: "da - Design Analyzer",
	Long: `da computes design metrics for the types of one JVM package:

  inDepth         supertypes above the type (java.lang.Object excluded)
  instability     types it depends on / types in the package
  responsibility  references it receives / types in the package
  workload        methods it declares / methods the package declares

Point it at the directory holding the package's .class files. The package
name is the final segment of the path.

Examples:
  da build/classes/com/example/shapes
  da analyze build/classes/com/example/shapes --format json
  da src/main/java/com/example/shapes --source --format pretty`,
	Version:           version.Info(),
	Args:              cobra.MaximumNArgs(1),
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runAnalyze(cmd, args)
	},
}

func init() {
	rootCmd.SetVersionTemplate("da version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default: .da.yaml|.da.toml|.da.json in the working directory)")
	pf.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress all logging")

	pf.StringVarP(&formatFlag, "format", "f", "table", "Output format (table, pretty, json, yaml, toml, prometheus)")
	pf.IntVar(&precisionFlag, "precision", 2, "Decimal places of the ratios (0-6)")
	pf.StringVar(&interfaceModeFlag, "interface-mode", "faithful", "Client interface matching (faithful, symmetric)")
	pf.StringSliceVar(&classpathFlag, "classpath", nil, "Directories and jars that define external supertypes")
	pf.BoolVar(&strictFlag, "strict", false, "Fail when a supertype cannot be resolved")
	pf.BoolVar(&sourceFlag, "source", false, "Parse .java sources instead of compiled classes")
	pf.IntVar(&workersFlag, "workers", 1, "Types measured in parallel")
}

// setup loads the configuration, applies flag overrides and creates the
// logger. Logs go to stderr so stdout carries only command output.
func setup(cmd *cobra.Command, _ []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return daerrors.New(daerrors.IOError, daerrors.StageConfig, "cannot determine working directory", err)
	}
	c, err := config.Load(wd, configFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, c)
	if err := c.Validate(); err != nil {
		return daerrors.New(daerrors.ConfigInvalid, daerrors.StageConfig, "invalid flags", err)
	}

	level := slogutil.LevelFromVerbosity(verbosity, quiet, slogutil.LevelFromString(c.Logging.Level))
	logger = slogutil.NewLogger(cmd.ErrOrStderr(), level, c.Logging.Format)
	cfg = c
	logger.Debug("Configuration loaded", "format", c.Format, "interface_mode", c.InterfaceMode, "workers", c.Workers)
	return nil
}

// applyFlagOverrides lets explicitly set flags win over the config file and
// the environment.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		c.Format = strings.ToLower(formatFlag)
	}
	if flags.Changed("precision") {
		c.Precision = precisionFlag
	}
	if flags.Changed("interface-mode") {
		c.InterfaceMode = strings.ToLower(interfaceModeFlag)
	}
	if flags.Changed("classpath") {
		c.Classpath = classpathFlag
	}
	if flags.Changed("strict") {
		c.StrictResolution = strictFlag
	}
	if flags.Changed("workers") {
		c.Workers = workersFlag
	}
}

// analysisOptions returns the engine options of the current configuration.
func analysisOptions() query.Options {
	return query.Options{
		Source:        sourceFlag,
		InterfaceMode: dependency.InterfaceMode(cfg.InterfaceMode),
		Classpath:     cfg.Classpath,
		Strict:        cfg.StrictResolution,
		Workers:       cfg.Workers,
	}
}

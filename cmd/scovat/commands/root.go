// Package commands implements CLI command handlers for scovat.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/scovat/pkg/config"
	"github.com/Sumatoshi-tech/scovat/pkg/merge"
	"github.com/Sumatoshi-tech/scovat/pkg/observability"
	"github.com/Sumatoshi-tech/scovat/pkg/profile"
	"github.com/Sumatoshi-tech/scovat/pkg/version"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
	quiet      bool
	logJSON    bool
}

// NewRootCommand builds the scovat command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "scovat",
		Short: "Merge and compare gcov intermediate coverage profiles",
		Long: `scovat folds gcov intermediate coverage profiles with set operations
and compares coverage between profiles.

Commands:
  union         Entities hit in any profile
  intersection  Entities hit in every profile
  difference    Entities hit in the first profile only
  analyze       Compare an anchor profile against the others
  mcp           Start an MCP server on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: scovat.yaml in ., ~/.config/scovat, /etc/scovat)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress output")
	rootCmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "log in JSON format")

	for _, op := range merge.Operations() {
		rootCmd.AddCommand(newMergeCommand(opts, op))
	}

	rootCmd.AddCommand(newAnalyzeCommand(opts))
	rootCmd.AddCommand(newMCPCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// runtimeEnv is the configured stack a command runs against.
type runtimeEnv struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.RunMetrics
	store     *profile.Store
}

// setup loads configuration and initializes observability for one command.
// Each tweak may adjust the observability configuration before Init.
func (o *rootOptions) setup(
	mode observability.AppMode,
	logOut io.Writer,
	tweaks ...func(*observability.Config),
) (*runtimeEnv, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	maxSize, err := cfg.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	obsCfg := o.observabilityConfig(cfg, mode, logOut)
	for _, tweak := range tweaks {
		tweak(&obsCfg)
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	return &runtimeEnv{
		cfg:       cfg,
		providers: providers,
		metrics:   metrics,
		store: &profile.Store{
			MaxEntrySize:      maxSize,
			SkipUnknownTokens: cfg.Codec.SkipUnknownTokens,
		},
	}, nil
}

func (o *rootOptions) observabilityConfig(cfg *config.Config, mode observability.AppMode, logOut io.Writer) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogWriter = logOut
	obsCfg.LogLevel = cfg.LogLevel()
	obsCfg.LogJSON = o.logJSON || cfg.Logging.Format == config.LogFormatJSON
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.MetricsFile = cfg.Telemetry.MetricsFile
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.DebugTrace = cfg.Telemetry.DebugTrace

	switch {
	case o.verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case o.quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	return obsCfg
}

// shutdown flushes telemetry and writes the metrics textfile, if configured.
func (e *runtimeEnv) shutdown() {
	err := e.providers.Shutdown(context.Background())
	if err != nil {
		e.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

// workers resolves the worker count from a flag or the configuration.
func (e *runtimeEnv) workers(cmd *cobra.Command, flagValue int) (int, error) {
	if !cmd.Flags().Changed(flagWorkers) {
		return e.cfg.Fold.Workers, nil
	}

	if flagValue < 0 {
		return 0, fmt.Errorf("%w: %d", config.ErrInvalidWorkers, flagValue)
	}

	return flagValue, nil
}

// overwrite resolves --force against the configuration.
func (e *runtimeEnv) overwrite(cmd *cobra.Command, flagValue bool) bool {
	if cmd.Flags().Changed(flagForce) {
		return flagValue
	}

	return e.cfg.Fold.Overwrite
}

const (
	flagOutput  = "output"
	flagForce   = "force"
	flagWorkers = "workers"
)

func addOutputFlags(cmd *cobra.Command, output *string, force *bool, workers *int) {
	cmd.Flags().StringVarP(output, flagOutput, "o", "", "output profile directory")
	cmd.Flags().BoolVar(force, flagForce, false, "replace an existing output directory")
	cmd.Flags().IntVar(workers, flagWorkers, 0, "number of parallel workers (0 = use CPU count)")

	_ = cmd.MarkFlagRequired(flagOutput)
}

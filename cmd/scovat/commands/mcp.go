package commands

import (
	"cmp"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/scovat/pkg/mcp"
	"github.com/Sumatoshi-tech/scovat/pkg/observability"
)

func newMCPCommand(root *rootOptions) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes scovat as tools that AI agents can discover and invoke:
  - scovat_merge: fold profile directories with union, intersection or difference
  - scovat_analyze: compare an anchor profile against the union of others`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := root.setup(observability.ModeMCP, cmd.ErrOrStderr(), func(cfg *observability.Config) {
				mcpOverrides(cfg, debug)
			})
			if err != nil {
				return err
			}
			defer env.shutdown()

			red, err := observability.NewREDMetrics(env.providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:     env.providers.Logger,
				Metrics:    red,
				RunMetrics: env.metrics,
				Tracer:     env.providers.Tracer,
				Store:      env.store,
				Workers:    env.cfg.Fold.Workers,
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}

// mcpOverrides applies the standard OTEL_EXPORTER_OTLP_* variables and the
// MCP log settings on top of the configured observability.
func mcpOverrides(cfg *observability.Config, debug bool) {
	cfg.OTLPEndpoint = cmp.Or(cfg.OTLPEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if cfg.OTLPHeaders == nil {
		cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	}

	cfg.OTLPInsecure = cfg.OTLPInsecure || os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	cfg.LogJSON = true

	if debug {
		cfg.LogLevel = slog.LevelDebug
		cfg.DebugTrace = true
	}
}

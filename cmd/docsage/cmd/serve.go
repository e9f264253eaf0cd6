package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/logging"
	"github.com/docsage/docsage/internal/mcp"
	"github.com/docsage/docsage/pkg/answerer"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	indexFlags
	transport string
	logLevel  string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server over stdio.

Exposes the documentation-answering pipeline as MCP tools (ask, search,
cancel) so agent hosts can query the documentation directly.

The MCP protocol reserves stdout for JSON-RPC framing, so all logging
goes to the rotating log files under ~/.docsage/logs/.

Example host configuration:
  { "command": "docsage", "args": ["serve"] }`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	registerIndexFlags(cmd, &opts.indexFlags)
	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport protocol (stdio)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := opts.logLevel
	if level == "" {
		level = cfg.Server.LogLevel
	}
	cleanup, err := logging.SetupMCPModeWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()
	logger := slog.Default()

	target, err := resolveSearchTarget(cfg, opts.indexFlags)
	if err != nil {
		logger.Error("Search index unavailable", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = target.Close() }()

	ans, err := answerer.New(cfg, answerer.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to build answering pipeline", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = ans.Close() }()

	asker, searcher := ans.Orchestrators()
	srv, err := mcp.NewServer(asker, searcher, target.client, target.index, cfg,
		mcp.WithServerLogger(logger))
	if err != nil {
		return err
	}
	if m := ans.Metrics(); m != nil {
		srv.SetMetrics(m)
	}
	defer func() { _ = srv.Close() }()

	transport := opts.transport
	if transport == "" {
		transport = cfg.Server.Transport
	}
	return srv.Serve(ctx, transport)
}

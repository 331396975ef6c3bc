// Command grok-mcp serves the grounded query modes as MCP tools over stdio.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/diogo/grok-ask/internal/config"
	"github.com/diogo/grok-ask/internal/logging"
	"github.com/diogo/grok-ask/internal/mcp"
	"github.com/diogo/grok-ask/pkg/client"
)

// Version is set via ldflags during build.
var Version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(client.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:           "grok-mcp",
		Short:         "MCP server exposing Grok search, ask, think and chat tools",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol, so logs go to stderr.
			var logger *zap.Logger
			if debug {
				logger = logging.New(true, os.Stderr)
			} else {
				logger = logging.NewJSON(zapcore.InfoLevel, os.Stderr)
			}
			defer logging.Sync(logger)

			mgr, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}
			cfg, err := mgr.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			client.Version = Version
			clientCfg := cfg.ClientConfig()
			clientCfg.Logger = logger
			c, err := client.New(clientCfg)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting MCP server",
				zap.String("version", Version),
				zap.Duration("worst_case_latency", c.WorstCaseLatency()),
			)

			server := mcp.NewServer(c, logger, Version)
			if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil && ctx.Err() == nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Human-readable debug logging on stderr")
	return cmd
}

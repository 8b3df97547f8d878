// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/repurposing-engine/internal/mcpserver"
	"github.com/pdiddy/repurposing-engine/internal/predict"
)

// shutdownTimeout bounds how long pending report jobs may run after the
// server stops.
const shutdownTimeout = 30 * time.Second

var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve the analysis tools over the Model Context Protocol (stdio)",
	Long: `Serve-mcp exposes analyze_query, get_query_status, get_audit_trail, and the
prediction models as MCP tools on stdin/stdout, for use by an MCP client
such as Claude Desktop. Logs go to stderr. The server runs until the
client disconnects or the process is interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(appConfig, logger)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := a.Close(sctx); err != nil {
				logger.Warn("shutdown", zap.Error(err))
			}
		}()

		h := mcpserver.NewHandlers(a.service, &predict.Predictor{Logger: logger}, logger)
		logger.Info("serving MCP over stdio", zap.String("version", version))
		return mcpserver.Serve(ctx, mcpserver.New(h, version))
	},
}

func init() {
	rootCmd.AddCommand(serveMCPCmd)
}

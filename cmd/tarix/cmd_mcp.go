package main

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/tarix-ai/tarix/internal/answer"
	tarixmcp "github.com/tarix-ai/tarix/internal/mcp"
	"github.com/tarix-ai/tarix/internal/retriever"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve tariff retrieval tools over the Model Context Protocol (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("connecting to store: %w", err)
			}
			defer st.Close()

			ret := retriever.New(newEmbedder(logger), st, cfg.Retrieval.TopK, logger)

			var ans *answer.Answerer
			if cfg.Claude.APIKey != "" {
				gen := answer.NewClaude(cfg.Claude.APIKey, cfg.Claude.Model, logger)
				ans = answer.New(ret, gen, cfg.Retrieval.TopK, logger)
			} else {
				logger.Warn("claude.api_key not set, ask_tariff tool will be unavailable")
			}

			srv := tarixmcp.NewServer(ret, ans, st, logger)

			logger.Info("mcp server listening on stdio")
			if err := mcpserver.ServeStdio(srv.MCPServer()); err != nil {
				return fmt.Errorf("serving mcp: %w", err)
			}
			return nil
		},
	}
}

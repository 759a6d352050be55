package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tarix-ai/tarix/internal/config"
	"github.com/tarix-ai/tarix/internal/embedder"
	"github.com/tarix-ai/tarix/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "tarix",
		Short: "Tarix — semantic search over the Harmonized Tariff Schedule",
		Long:  "Tarix embeds every row of the Harmonized Tariff Schedule into a pgvector column and answers natural-language tariff questions by nearest-neighbor retrieval with optional Claude-grounded answers.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		indexCmd(),
		searchCmd(),
		lookupCmd(),
		askCmd(),
		serveCmd(),
		mcpCmd(),
		statsCmd(),
		healthCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newEmbedder(logger *slog.Logger) *embedder.Batcher {
	hf := embedder.NewHuggingFaceWithURL(
		cfg.Embedding.BaseURL,
		cfg.Embedding.Token,
		cfg.Embedding.Model,
		cfg.Embedding.Dimension,
		logger,
	)
	return embedder.NewBatcher(hf, cfg.Embedding.BatchSize)
}

func newStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	return store.NewPostgres(
		ctx,
		cfg.Postgres.ConnString(),
		cfg.Embedding.Dimension,
		cfg.Embedding.Model,
		logger,
	)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarix-ai/tarix/internal/answer"
	"github.com/tarix-ai/tarix/internal/retriever"
)

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a tariff question and get a Claude-synthesized answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			question := strings.Join(args, " ")

			if cfg.Claude.APIKey == "" {
				return fmt.Errorf("claude.api_key is required (set ANTHROPIC_API_KEY)")
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("connecting to store: %w", err)
			}
			defer st.Close()

			ret := retriever.New(newEmbedder(logger), st, cfg.Retrieval.TopK, logger)
			gen := answer.NewClaude(cfg.Claude.APIKey, cfg.Claude.Model, logger)
			ans := answer.New(ret, gen, cfg.Retrieval.TopK, logger)

			result, err := ans.Answer(ctx, question)
			if err != nil {
				return err
			}

			fmt.Println(result.Response)
			if len(result.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, src := range result.Sources {
					fmt.Printf("  %s\n", src)
				}
			}
			return nil
		},
	}
}

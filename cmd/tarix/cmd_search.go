package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarix-ai/tarix/internal/retriever"
)

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over the tariff schedule",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			query := strings.Join(args, " ")

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("connecting to store: %w", err)
			}
			defer st.Close()

			ret := retriever.New(newEmbedder(logger), st, cfg.Retrieval.TopK, logger)
			results, err := ret.Search(ctx, query, limit)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Println("No results found.")
				return nil
			}

			for i, res := range results {
				rec := res.Record
				fmt.Printf("%d. [%.4f] %s\n", i+1, res.Distance, display(rec.HTSNumber))
				fmt.Printf("   %s\n", truncate(display(rec.Description), 100))
				fmt.Printf("   General: %s  Special: %s\n",
					display(rec.GeneralRateOfDuty), display(rec.SpecialRateOfDuty))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "maximum number of results")
	return cmd
}

// display renders a nullable field for terminal output.
func display(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarix-ai/tarix/internal/retriever"
)

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <hts-number>",
		Short: "Look up tariff records by HTS number substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("connecting to store: %w", err)
			}
			defer st.Close()

			ret := retriever.New(newEmbedder(logger), st, cfg.Retrieval.TopK, logger)
			matches, err := ret.Lookup(ctx, args[0])
			if err != nil {
				return err
			}

			if len(matches) == 0 {
				fmt.Println("No results found.")
				return nil
			}

			for _, m := range matches {
				fmt.Printf("%s  %s  (%s)\n",
					m.HTSNumber, truncate(display(m.Description), 80), display(m.GeneralRateOfDuty))
			}
			return nil
		},
	}
}

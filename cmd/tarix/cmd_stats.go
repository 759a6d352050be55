package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show tariff table statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("connecting to store: %w", err)
			}
			defer st.Close()

			stats, err := st.Stats(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Total rows:    %d\n", stats.TotalRows)
			fmt.Printf("Embedded rows: %d\n", stats.EmbeddedRows)
			fmt.Printf("Model version: %s\n", stats.ModelVersion)
			fmt.Printf("Dimension:     %d\n", stats.Dimension)
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("connecting to store: %w", err)
			}
			defer st.Close()

			if err := st.Ping(ctx); err != nil {
				return fmt.Errorf("database unreachable: %w", err)
			}
			fmt.Println("ok")
			return nil
		},
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tarix-ai/tarix/internal/indexer"
	"github.com/tarix-ai/tarix/internal/store"
)

func indexCmd() *cobra.Command {
	var appendMode bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed every tariff record and persist the vectors",
		Long:  "Reads the full hts table, canonicalizes each record, embeds the texts in batches through the Hugging Face inference API, and writes the vectors back in a single transaction.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("connecting to store: %w", err)
			}
			defer st.Close()

			if err := st.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("preparing schema: %w", err)
			}

			mode := store.Upsert
			if appendMode {
				mode = store.Append
			}

			ix := indexer.New(newEmbedder(logger), st, logger)

			var bar *progressbar.ProgressBar
			ix.OnProgress(func(done, total int) {
				if bar == nil {
					bar = progressbar.Default(int64(total), "embedding")
				}
				_ = bar.Set(done)
			})

			summary, err := ix.Run(ctx, mode)
			if err != nil {
				return err
			}
			if bar != nil {
				_ = bar.Finish()
			}

			fmt.Printf("Indexed %d records (model %s, dimension %d) in %s\n",
				summary.Rows, summary.ModelVersion, summary.Dimension, summary.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&appendMode, "append", false, "insert rows without upserting on (htsnumber, indent)")
	return cmd
}

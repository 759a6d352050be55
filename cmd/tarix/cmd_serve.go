package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tarix-ai/tarix/internal/answer"
	"github.com/tarix-ai/tarix/internal/api"
	"github.com/tarix-ai/tarix/internal/retriever"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tariff query API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()

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
			srv := api.NewServer(ret, ans, st, logger, cfg.API.AuthToken)

			addr := listenAddr
			if addr == "" {
				addr = cfg.API.ListenAddr
			}
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("api server listening", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serving api: %w", err)
			case <-ctx.Done():
				logger.Info("shutting down api server")
				if err := api.Shutdown(httpSrv, shutdownTimeout); err != nil {
					return fmt.Errorf("shutting down api server: %w", err)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides api.listen_addr)")
	return cmd
}

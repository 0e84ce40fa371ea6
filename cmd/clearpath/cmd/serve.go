package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/clearpath/clearpath/ingest"
	"github.com/clearpath/clearpath/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Clearpath HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		if cfg.GroqAPIKey == "" {
			return errors.New("CLEARPATH_GROQ_API_KEY is required to serve")
		}

		engine, err := buildEngine(cfg, logger)
		if err != nil {
			return err
		}

		srv := server.New(cfg, engine, logger.With().Str("component", "http").Logger())
		httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("http server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		if cfg.WatchPDFDir {
			g.Go(func() error {
				watcher := ingest.NewWatcher(cfg.PDFDir, engine.Ingester(),
					logger.With().Str("component", "watcher").Logger())
				if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})

		err = g.Wait()
		logger.Info().Msg("server stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carblue/pricing-cli/internal/api"
	"github.com/carblue/pricing-cli/internal/monitoring"
)

var (
	servePort  int
	serveGuess bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pricing JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		metrics := monitoring.NewMetrics()
		eng, err := newEngine(engineOptions{
			guess: serveGuess || cfg.Import.GuessCategory,
			obs:   metrics,
		})
		if err != nil {
			return err
		}

		srv := api.NewServer(eng, cfg.Server,
			api.WithMetrics(metrics),
			api.WithAlerter(monitoring.NewAlerter(cfg.Monitoring)),
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("fee_version", eng.Catalog().Version()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveGuess, "guess-category", false, "guess missing categories from descriptions")
	rootCmd.AddCommand(serveCmd)
}

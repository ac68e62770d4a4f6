package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/statement-redactor/internal/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload form and redaction endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, r, err := setup("")
		if err != nil {
			return err
		}
		if listenAddr == "" {
			listenAddr = cfg.Server.ListenAddr
		}

		h := server.New(r, server.Options{
			Whitelist:    cfg.Whitelist,
			MaxUploadMB:  cfg.Server.MaxUploadMB,
			CurrencyCode: cfg.CurrencyCode,
			Logger:       slog.Default(),
		})
		mux := http.NewServeMux()
		h.Register(mux)

		srv := &http.Server{
			Addr:         listenAddr,
			Handler:      mux,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 300 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		slog.Info("starting redaction server",
			"addr", listenAddr,
			"section", cfg.SectionTitle,
			"whitelist", len(cfg.Whitelist),
		)

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		slog.Info("shutting down", "cause", context.Cause(ctx))
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (default from config)")
}

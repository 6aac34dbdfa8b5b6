package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelkehle/research-assistant/internal/server"
	"github.com/joelkehle/research-assistant/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research pipeline over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		shutdown, err := telemetry.Setup(cmd.Context(), cfg.OTLPEndpoint)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		orch, err := buildOrchestrator(cfg, store)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           server.New(orch, store, cfg.RunTimeout).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Println("listening on", cfg.ListenAddr)
			errCh <- srv.ListenAndServe()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-sigCh:
			fmt.Println("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

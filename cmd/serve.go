package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfscan/shelfscan/internal/config"
	"github.com/shelfscan/shelfscan/internal/handlers"
	"github.com/shelfscan/shelfscan/internal/scanning"
	"github.com/shelfscan/shelfscan/internal/storage"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scan API server",
		Long: `Starts the Shelfscan HTTP API.

POST a bookshelf image to /api/scan as multipart form data or as JSON
with a base64 image or image URL. The response lists the books found and
how each provider fared.`,
		Example: `  # Start server on the port from PORT (default 8888)
  shelfscan serve

  # Start server on custom port
  shelfscan serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port == "" {
				port = cfg.Port
			}

			service, err := scanning.FromConfig(cfg, slog.Default())
			if err != nil {
				return err
			}
			handler := handlers.New(service, storage.New(cfg.DailyScanLimit))

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Shelfscan API available",
					"addr", addr,
					"providers", cfg.Providers,
					"validation", cfg.ValidationProvider,
					"daily_limit", cfg.DailyScanLimit)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (defaults to PORT or 8888)")

	return cmd
}

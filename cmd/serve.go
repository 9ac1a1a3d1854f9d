package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lehigh-university-libraries/gallery/internal/handlers"
	"github.com/lehigh-university-libraries/gallery/internal/identity"
	"github.com/lehigh-university-libraries/gallery/internal/manifest"
	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/review"
	"github.com/lehigh-university-libraries/gallery/internal/screens"
	"github.com/lehigh-university-libraries/gallery/internal/stats"
	"github.com/lehigh-university-libraries/gallery/internal/uploads"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gallery API server",
		Long: `Starts the gallery HTTP API and serves the content root on the specified port.

Each viewer creates a screen, queries the merged catalog through it and reports
its viewport so media is only delivered once it comes near.`,
		Example: `  # Start server on default port 8888
  gallery serve

  # Rebuild the static manifest whenever the content root changes
  gallery serve --port 3000 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a := newApp(cfg)
			if err := a.start(ctx); err != nil {
				return err
			}
			defer a.stop()

			if watch {
				go func() {
					if err := manifest.Watch(ctx, cfg.ContentRoot, a.rebuild); err != nil {
						slog.Error("Content root watcher stopped", "root", cfg.ContentRoot, "err", err)
					}
				}()
			}

			content := os.DirFS(cfg.ContentRoot)
			resolver := media.NewResolver(content, media.NewFetcher())
			screenStore := screens.New(a.newLoader, screens.Layout{
				PriorityCount: cfg.PriorityCount,
				ViewportRows:  cfg.ViewportRows,
				Margin:        cfg.Margin,
			})
			defer screenStore.CloseAll()

			opts := handlers.Options{
				Config:  cfg,
				Catalog: a.store,
				Loading: a.loading,
				Screens: screenStore,
				Media:   resolver,
				Stats:   stats.NewCalculator(resolver, func(l string) string { return l }),
				Content: content,
			}
			if a.client != nil {
				opts.Users = identity.NewClient(cfg.Storage.URL, cfg.Storage.AnonKey)
				opts.Submit = review.NewSubmitter(a.client, cfg.Storage.ReviewFunction)
				opts.Uploads = uploads.FromClient(a.client)
			}
			handler := handlers.New(opts)

			// Set up routes
			mux := http.NewServeMux()
			handler.Routes(mux)

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Gallery available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
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

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild the static manifest when the content root changes")

	return cmd
}

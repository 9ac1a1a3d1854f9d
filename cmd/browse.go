package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/gallery/internal/browse"
	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/spf13/cobra"
)

func newBrowseCmd(root *rootOptions) *cobra.Command {
	var (
		fileType string
		query    string
		logFile  string
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the catalog in the terminal",
		Long: `Opens an interactive terminal browser over the merged catalog.

Use tab to switch type filters, / to search, j/k to move and y to copy the
selected item's absolute URL to the clipboard.`,
		Example: `  # Browse everything
  gallery browse

  # Start on the GIF tab with a query
  gallery browse --type gifs --query cat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, err := models.ParseFileType(fileType)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			// The TUI owns the terminal, so logs go to a file or nowhere.
			var out io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			prev := slog.Default()
			slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})))
			defer slog.SetDefault(prev)

			ctx := cmd.Context()
			a := newApp(cfg)
			if err := a.start(ctx); err != nil {
				return err
			}
			defer a.stop()

			loader := a.newLoader()
			defer loader.Release()

			return browse.Run(ctx, browse.Options{
				Store:         a.store,
				Loader:        loader,
				Sizer:         media.NewResolver(os.DirFS(cfg.ContentRoot), media.NewFetcher()),
				AbsoluteURL:   cfg.AbsoluteURL,
				Loading:       a.loading,
				PriorityCount: cfg.PriorityCount,
				ViewportRows:  cfg.ViewportRows,
				Margin:        cfg.Margin,
				Filter:        ft,
				Query:         query,
			})
		},
	}

	cmd.Flags().StringVarP(&fileType, "type", "t", "", "Initial type filter (all, images, gifs, videos, tickets, documents, links)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Initial search query")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file while the browser runs")

	return cmd
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/gallery/internal/export"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/query"
	"github.com/spf13/cobra"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var (
		out      string
		compress bool
		fileType string
		text     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the merged catalog to JSONL or Parquet",
		Long: `Builds the merged catalog once and writes the entries matching the filters.

The format follows the output extension: .parquet writes Parquet, .jsonl or
.ndjson writes JSON lines and a trailing .zst (or --compress) compresses the
JSON lines with zstd.`,
		Example: `  # Export everything as Parquet
  gallery export --out catalog.parquet

  # Export only GIFs matching "cat" as compressed JSON lines
  gallery export --out gifs.jsonl --compress --type gifs --query cat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			ft, err := models.ParseFileType(fileType)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			entries, err := collect(cmd.Context(), cfg, query.Options{Text: text, Type: ft})
			if err != nil {
				return err
			}
			if err := export.WriteFile(out, entries, compress); err != nil {
				return fmt.Errorf("failed to export catalog: %w", err)
			}

			slog.Info("Catalog exported", "path", out, "entries", len(entries))
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(entries), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (.parquet, .jsonl, .ndjson, .jsonl.zst)")
	cmd.Flags().BoolVar(&compress, "compress", false, "Compress JSON lines output with zstd")
	cmd.Flags().StringVarP(&fileType, "type", "t", "", "Type filter")
	cmd.Flags().StringVarP(&text, "query", "q", "", "Search query")

	return cmd
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/gallery/internal/catalog"
	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/lehigh-university-libraries/gallery/internal/models"
	"github.com/lehigh-university-libraries/gallery/internal/stats"
	"github.com/spf13/cobra"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var (
		fileType string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report the count and total storage of the static media",
		Long: `Sizes every static entry from the content root, or with a HEAD request for
remote locators. Entries whose size cannot be read are estimated from
their extension.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, err := models.ParseFileType(fileType)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}

			m, err := loadManifest(cfg)
			if err != nil {
				return fmt.Errorf("failed to load manifest: %w", err)
			}
			static, err := m.StaticEntries()
			if err != nil {
				return fmt.Errorf("failed to read static entries: %w", err)
			}
			var entries []models.Entry
			for _, e := range static {
				if catalog.MatchesType(e, ft) {
					entries = append(entries, e)
				}
			}

			resolver := media.NewResolver(os.DirFS(cfg.ContentRoot), media.NewFetcher())
			result := stats.NewCalculator(resolver, func(l string) string { return l }).Compute(cmd.Context(), entries)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\nStorage: %.1f MB\n", result.TotalEntries, result.TotalStorageMB)
			if result.Estimated > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Estimated: %d\n", result.Estimated)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&fileType, "type", "t", "", "Type filter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newManifestCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Manage the static media manifest",
	}
	cmd.AddCommand(newManifestBuildCmd(root))
	return cmd
}

func newManifestBuildCmd(root *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Scan the content root and write the static manifest",
		Long: `Enumerates static media under the content root's static prefix and PDF
documents anywhere under the content root, then writes the manifest file that
serve and browse load at startup.`,
		Example: `  gallery manifest build --out public/manifest.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Manifest
			}
			if out == "" {
				return fmt.Errorf("no output path: pass --out or set manifest in the config")
			}

			m, err := buildManifest(cfg)
			if err != nil {
				return fmt.Errorf("failed to build manifest: %w", err)
			}
			if err := m.Save(out); err != nil {
				return fmt.Errorf("failed to save manifest: %w", err)
			}

			slog.Info("Manifest written", "path", out, "static", len(m.Static), "documents", len(m.Documents))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d static entries and %d documents to %s\n", len(m.Static), len(m.Documents), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Manifest output path (defaults to the configured manifest)")

	return cmd
}

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/gallery/internal/describe"
	"github.com/lehigh-university-libraries/gallery/internal/manifest"
	"github.com/lehigh-university-libraries/gallery/internal/media"
	"github.com/spf13/cobra"
)

func newDescribeCmd(root *rootOptions) *cobra.Command {
	var (
		provider     string
		model        string
		manifestPath string
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Generate alt text for static images that lack it",
		Long: `Sends every static image without a useful description to a vision model and
stores the generated alt text in the manifest file.

Supported providers:
  - ollama: local models (OLLAMA_URL, defaults to http://localhost:11434)
  - openai: OpenAI compatible APIs (OPENAI_API_KEY, OPENAI_BASE_URL)
  - gemini: Google Gemini (GEMINI_API_KEY)`,
		Example: `  # Describe with the default local model
  gallery describe --manifest public/manifest.json

  # Describe with OpenAI
  gallery describe --provider openai --model gpt-4o`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if manifestPath == "" {
				manifestPath = cfg.Manifest
			}
			if manifestPath == "" {
				return fmt.Errorf("no manifest path: pass --manifest or set manifest in the config")
			}

			var m manifest.Manifest
			if _, err := os.Stat(manifestPath); err == nil {
				m, err = manifest.Load(manifestPath)
				if err != nil {
					return fmt.Errorf("failed to load manifest: %w", err)
				}
			} else {
				m, err = buildManifest(cfg)
				if err != nil {
					return fmt.Errorf("failed to build manifest: %w", err)
				}
			}

			static, err := m.StaticEntries()
			if err != nil {
				return fmt.Errorf("failed to read static entries: %w", err)
			}
			documents, err := m.DocumentEntries()
			if err != nil {
				return fmt.Errorf("failed to read documents: %w", err)
			}

			p, err := describe.NewProvider(provider)
			if err != nil {
				return err
			}
			if model == "" {
				model = describe.DefaultModel(p.Name())
			}

			resolver := media.NewResolver(os.DirFS(cfg.ContentRoot), media.NewFetcher())
			svc := describe.NewService(p, model, resolver)

			slog.Info("Describing static media", "provider", p.Name(), "model", model, "entries", len(static))
			updated, n := svc.DescribeAll(cmd.Context(), static)

			if err := manifest.New(updated, documents).Save(manifestPath); err != nil {
				return fmt.Errorf("failed to save manifest: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Described %d entries, manifest written to %s\n", n, manifestPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Vision provider: ollama, openai or gemini")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model name (defaults per provider)")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Manifest file to update (defaults to the configured manifest)")

	return cmd
}

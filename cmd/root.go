package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Media gallery catalog server and browser",
		Long: `Gallery serves a searchable catalog of static media, user uploads,
HTML tickets, PDF documents and external links.

Static media is enumerated from the content root at build time, user uploads are
kept in sync with the storage provider's change feed, and heavy media is only
delivered once it comes near the viewer's viewport.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if opts.verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a .yaml or .toml config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newBrowseCmd(opts))
	cmd.AddCommand(newManifestCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newDescribeCmd(opts))
	cmd.AddCommand(newSubmitCmd(opts))

	return cmd
}

package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/gallery/internal/identity"
	"github.com/lehigh-university-libraries/gallery/internal/review"
	"github.com/lehigh-university-libraries/gallery/internal/uploads"
	"github.com/spf13/cobra"
)

func newSubmitCmd(root *rootOptions) *cobra.Command {
	var (
		token string
		list  bool
	)

	cmd := &cobra.Command{
		Use:   "submit [FILE]",
		Short: "Submit an image for review or list your uploads",
		Long: `Sends an image to the review function on behalf of the signed in user.
Approved images appear in the gallery once they land in the upload namespace.

The access token is read from --token or GALLERY_TOKEN.`,
		Example: `  # Submit an image
  gallery submit cat.png --token $TOKEN

  # List your approved uploads
  gallery submit --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("GALLERY_TOKEN")
			}
			if !list && len(args) == 0 {
				return fmt.Errorf("a file is required unless --list is given")
			}

			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			client, err := requireStorage(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			user, err := identity.NewClient(cfg.Storage.URL, cfg.Storage.AnonKey).CurrentUser(ctx, token)
			if err != nil {
				return fmt.Errorf("failed to resolve user: %w", err)
			}

			if list {
				urls, err := uploads.OwnUploads(ctx, uploads.FromClient(client), cfg.Storage.Namespace, user.Username())
				if err != nil {
					return fmt.Errorf("failed to list uploads: %w", err)
				}
				for _, u := range urls {
					fmt.Fprintln(cmd.OutOrStdout(), u)
				}
				return nil
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			submitter := review.NewSubmitter(client, cfg.Storage.ReviewFunction)
			contentType := mime.TypeByExtension(filepath.Ext(path))
			if err := submitter.Submit(ctx, token, *user, filepath.Base(path), contentType, data); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s for review as %s\n", filepath.Base(path), user.Username())
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Access token of the signed in user")
	cmd.Flags().BoolVar(&list, "list", false, "List your uploads instead of submitting")

	return cmd
}

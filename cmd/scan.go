package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfscan/shelfscan/internal/config"
	"github.com/shelfscan/shelfscan/internal/images"
	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/scanning"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <image path or URL>",
		Short: "Scan one bookshelf image and print the books as JSON",
		Example: `  shelfscan scan ./shelf.jpg
  SHELFSCAN_PROVIDERS=ollama VALIDATION_PROVIDER=none shelfscan scan ./shelf.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			service, err := scanning.FromConfig(cfg, slog.Default())
			if err != nil {
				return err
			}

			var img models.Image
			if strings.HasPrefix(args[0], "http://") || strings.HasPrefix(args[0], "https://") {
				img, err = images.NewFetcher().Fetch(cmd.Context(), args[0])
			} else {
				img, err = images.Load(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			outcome := service.Scan(cmd.Context(), img)

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(outcome)
		},
	}

	return cmd
}

package evalcmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shelfscan/shelfscan/internal/eval/dataset"
)

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var datasetPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect dataset records",
		Long: `Inspect records from a parquet, jsonl or json dataset file.

Prints each shelf's image path, whether the image exists, and the
expected books.`,
		Example: `  # Inspect the first 5 shelves
  shelfscan eval inspect --dataset ./shelves.jsonl --limit 5

  # Inspect every shelf
  shelfscan eval inspect --dataset ./shelves.parquet --limit 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return executeInspect(ctx, cmd.OutOrStdout(), datasetPath, limit)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to dataset file (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of records to inspect (0 for all)")

	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func executeInspect(ctx context.Context, w io.Writer, datasetPath string, limit int) error {
	records, err := dataset.NewLoader(datasetPath).LoadSample(limit)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	fmt.Fprintf(w, "Loaded %d records from %s\n", len(records), datasetPath)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	for i, record := range records {
		if ctx.Err() != nil {
			fmt.Fprintln(w, "\nInspection interrupted.")
			return nil
		}

		imagePath := record.ResolveImagePath(datasetPath)
		status := "ok"
		if _, err := os.Stat(imagePath); err != nil {
			status = "missing"
		}

		fmt.Fprintf(w, "\nRECORD %d/%d\n", i+1, len(records))
		fmt.Fprintln(w, strings.Repeat("-", 80))
		fmt.Fprintf(w, "ID:     %s\n", record.ID)
		fmt.Fprintf(w, "Image:  %s (%s)\n", imagePath, status)
		if record.Notes != "" {
			fmt.Fprintf(w, "Notes:  %s\n", record.Notes)
		}
		fmt.Fprintf(w, "Books:  %d\n", len(record.Books))
		for j, book := range record.Books {
			author := book.Author
			if author == "" {
				author = "unknown"
			}
			fmt.Fprintf(w, "  %2d. %s / %s\n", j+1, book.Title, author)
		}
	}

	return nil
}

package evalcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var datasetPath string
	var outputDir string
	var sampleSize int
	var concurrency int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan every shelf in a dataset and score the results",
		Long: `Run the full scan pipeline against a dataset of labeled shelf photos.

Each record names a shelf image and the books actually on it. The scanned
book list is compared with the expected list and precision and recall are
reported per shelf and in aggregate.

Providers, models and credentials come from the environment, exactly as
for the serve command.`,
		Example: `  # Evaluate the first 10 shelves
  shelfscan eval run --dataset ./shelves.jsonl --sample 10

  # Evaluate a parquet dataset with 4 concurrent scans
  shelfscan eval run --dataset ./shelves.parquet --concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(datasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s", datasetPath)
			}
			return executeRun(cmd.Context(), datasetPath, outputDir, sampleSize, concurrency)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to jsonl, json or parquet dataset file (required)")
	cmd.Flags().StringVar(&outputDir, "output", "evals", "Directory for YAML results")
	cmd.Flags().IntVar(&sampleSize, "sample", 0, "Number of shelves to evaluate (0 for all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Number of shelves scanned at once")

	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var resultsPath string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a saved evaluation",
		Example: `  shelfscan eval report --results evals/gemini+openai-2026-01-02_03-04-05.yaml
  shelfscan eval report --results evals/gemini-2026-01-02_03-04-05.yaml --format csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(cmd.OutOrStdout(), resultsPath, format)
		},
	}

	cmd.Flags().StringVar(&resultsPath, "results", "", "Path to a YAML results file (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")

	_ = cmd.MarkFlagRequired("results")
	return cmd
}

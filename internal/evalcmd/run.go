package evalcmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shelfscan/shelfscan/internal/config"
	"github.com/shelfscan/shelfscan/internal/eval/dataset"
	"github.com/shelfscan/shelfscan/internal/eval/metrics"
	"github.com/shelfscan/shelfscan/internal/eval/results"
	"github.com/shelfscan/shelfscan/internal/images"
	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/scanning"
)

// Scanner runs the pipeline on one image
type Scanner interface {
	Scan(ctx context.Context, img models.Image) models.ScanOutcome
}

// newScanner is swapped in tests
var newScanner = func(cfg config.Config) (Scanner, error) {
	return scanning.FromConfig(cfg, slog.Default())
}

func executeRun(ctx context.Context, datasetPath, outputDir string, sampleSize, concurrency int) error {
	slog.Info("Starting evaluation run", "dataset", datasetPath, "sample", sampleSize)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	scanner, err := newScanner(cfg)
	if err != nil {
		return fmt.Errorf("failed to build scanner: %w", err)
	}

	records, err := dataset.NewLoader(datasetPath).LoadSample(sampleSize)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	slog.Info("Dataset loaded", "shelves", len(records))

	evaluated := evaluate(ctx, scanner, records, datasetPath, concurrency)
	agg := metrics.AggregateEvaluationResults(evaluated)
	agg.PrintSummary()

	path, err := results.SaveToYAML(outputDir, results.EvalConfig{
		Providers:          cfg.Providers,
		ValidationProvider: cfg.ValidationProvider,
		ValidationModel:    cfg.ValidationModel,
		DatasetPath:        datasetPath,
		SampleSize:         sampleSize,
	}, agg)
	if err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nResults saved to: %s\n", path)
	fmt.Printf("\nPrint them again with:\n")
	fmt.Printf("  shelfscan eval report --results %s\n", path)

	return nil
}

// evaluate scans every record with at most concurrency scans in flight.
// Results keep the dataset order.
func evaluate(ctx context.Context, scanner Scanner, records []dataset.ShelfRecord, datasetPath string, concurrency int) []metrics.EvaluationResult {
	if concurrency < 1 {
		concurrency = 1
	}

	out := make([]metrics.EvaluationResult, len(records))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, record := range records {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			slog.Info("Processing shelf", "id", record.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(records)))
			out[i] = processRecord(ctx, scanner, record, datasetPath)
		}()
	}

	wg.Wait()
	return out
}

func processRecord(ctx context.Context, scanner Scanner, record dataset.ShelfRecord, datasetPath string) metrics.EvaluationResult {
	start := time.Now()
	result := metrics.EvaluationResult{
		ID:        record.ID,
		ImagePath: record.ResolveImagePath(datasetPath),
	}

	if err := ctx.Err(); err != nil {
		result.Error = err.Error()
		return result
	}

	img, err := images.Load(result.ImagePath)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read image: %v", err)
		result.ProcessingTime = time.Since(start)
		return result
	}

	outcome := scanner.Scan(ctx, img)
	result.Outcome = &outcome
	result.Comparison = metrics.CompareShelf(record.Books, outcome.Books)
	result.ProcessingTime = time.Since(start)

	slog.Debug("Shelf scored",
		"id", record.ID,
		"expected", result.Comparison.Expected,
		"found", result.Comparison.Found,
		"matched", result.Comparison.Matched)

	return result
}

package metrics

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shelfscan/shelfscan/internal/models"
)

// EvaluationResult represents the results for a single shelf
type EvaluationResult struct {
	ID             string
	ImagePath      string
	Outcome        *models.ScanOutcome
	Comparison     *ShelfComparison
	ProcessingTime time.Duration
	Error          string // If the image could not be loaded
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalRecords int
	SuccessCount int
	FailureCount int

	// Micro averages pool every book across shelves
	MicroPrecision float64
	MicroRecall    float64
	MicroF1        float64

	// Macro averages weight every shelf equally
	MacroPrecision float64
	MacroRecall    float64

	AuthorAgreement float64

	// Providers maps provider name to statistics across shelves
	Providers map[string]ProviderStats

	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	Results []EvaluationResult

	EvaluationDate time.Time
}

// ProviderStats summarizes one provider's diagnostics over a run
type ProviderStats struct {
	Scans      int
	Succeeded  int
	Candidates int
}

// AggregateEvaluationResults aggregates multiple evaluation results
func AggregateEvaluationResults(results []EvaluationResult) *AggregateResults {
	agg := &AggregateResults{
		TotalRecords:   len(results),
		Results:        results,
		EvaluationDate: time.Now(),
		Providers:      make(map[string]ProviderStats),
	}

	var (
		totalDuration   time.Duration
		successDuration time.Duration
		expected        int
		found           int
		matched         int
		authorAgree     int
		sumPrecision    float64
		sumRecall       float64
	)

	for _, result := range results {
		totalDuration += result.ProcessingTime

		if result.Error != "" || result.Comparison == nil {
			agg.FailureCount++
			continue
		}

		agg.SuccessCount++
		successDuration += result.ProcessingTime

		c := result.Comparison
		expected += c.Expected
		found += c.Found
		matched += c.Matched
		sumPrecision += c.Precision
		sumRecall += c.Recall
		for _, m := range c.Matches {
			if m.AuthorAgree {
				authorAgree++
			}
		}

		if result.Outcome != nil {
			for name, diag := range result.Outcome.ProviderDiagnostics {
				stats := agg.Providers[name]
				stats.Scans++
				if diag.Succeeded {
					stats.Succeeded++
				}
				stats.Candidates += diag.Count
				agg.Providers[name] = stats
			}
		}
	}

	if found > 0 {
		agg.MicroPrecision = float64(matched) / float64(found)
	}
	if expected > 0 {
		agg.MicroRecall = float64(matched) / float64(expected)
	}
	if agg.MicroPrecision+agg.MicroRecall > 0 {
		agg.MicroF1 = 2 * agg.MicroPrecision * agg.MicroRecall / (agg.MicroPrecision + agg.MicroRecall)
	}
	if matched > 0 {
		agg.AuthorAgreement = float64(authorAgree) / float64(matched)
	}
	if agg.SuccessCount > 0 {
		agg.MacroPrecision = sumPrecision / float64(agg.SuccessCount)
		agg.MacroRecall = sumRecall / float64(agg.SuccessCount)
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}

	agg.TotalProcessingTime = totalDuration

	return agg
}

// PrintSummary prints a human-readable summary of the evaluation
func (a *AggregateResults) PrintSummary() {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("SHELFSCAN EVALUATION SUMMARY")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Println()

	fmt.Println("PROCESSING STATISTICS")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Total Shelves: %d\n", a.TotalRecords)
	if a.TotalRecords > 0 {
		fmt.Printf("Scanned: %d (%.1f%%)\n", a.SuccessCount, float64(a.SuccessCount)/float64(a.TotalRecords)*100)
		fmt.Printf("Failed: %d (%.1f%%)\n", a.FailureCount, float64(a.FailureCount)/float64(a.TotalRecords)*100)
	}
	fmt.Printf("Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Printf("Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Println()

	fmt.Println("PROVIDERS")
	fmt.Println(strings.Repeat("-", 70))
	for _, name := range slices.Sorted(maps.Keys(a.Providers)) {
		stats := a.Providers[name]
		fmt.Printf("  %-10s succeeded %d/%d, %d candidates\n", name, stats.Succeeded, stats.Scans, stats.Candidates)
	}
	fmt.Println()

	fmt.Println("ACCURACY")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Precision (micro): %.2f%%\n", a.MicroPrecision*100)
	fmt.Printf("Recall (micro):    %.2f%%\n", a.MicroRecall*100)
	fmt.Printf("F1 (micro):        %.2f%%\n", a.MicroF1*100)
	fmt.Printf("Precision (macro): %.2f%%\n", a.MacroPrecision*100)
	fmt.Printf("Recall (macro):    %.2f%%\n", a.MacroRecall*100)
	fmt.Printf("Author agreement:  %.2f%%\n", a.AuthorAgreement*100)
	fmt.Println(strings.Repeat("=", 70))
}

// SaveToJSON saves the aggregate results to a JSON file
func (a *AggregateResults) SaveToJSON(filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}

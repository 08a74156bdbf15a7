package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shelfscan/shelfscan/internal/eval/metrics"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Providers          []string `yaml:"providers"`
	ValidationProvider string   `yaml:"validationprovider"`
	ValidationModel    string   `yaml:"validationmodel"`
	DatasetPath        string   `yaml:"datasetpath"`
	SampleSize         int      `yaml:"samplesize"`
	Timestamp          string   `yaml:"timestamp"`
}

// EvalSummary holds the aggregate scores of a run
type EvalSummary struct {
	Shelves        int     `yaml:"shelves"`
	Failed         int     `yaml:"failed"`
	MicroPrecision float64 `yaml:"microprecision"`
	MicroRecall    float64 `yaml:"microrecall"`
	MicroF1        float64 `yaml:"microf1"`
	MacroPrecision float64 `yaml:"macroprecision"`
	MacroRecall    float64 `yaml:"macrorecall"`
}

// EvalResult represents a single evaluation result
type EvalResult struct {
	Identifier string                    `yaml:"identifier"`
	ImagePath  string                    `yaml:"imagepath"`
	ScanID     string                    `yaml:"scanid,omitempty"`
	Precision  float64                   `yaml:"precision"`
	Recall     float64                   `yaml:"recall"`
	Expected   int                       `yaml:"expected"`
	Found      int                       `yaml:"found"`
	Matched    int                       `yaml:"matched"`
	Missing    []string                  `yaml:"missing,omitempty"`
	Extra      []string                  `yaml:"extra,omitempty"`
	Providers  map[string]ProviderResult `yaml:"providers,omitempty"`
	DurationMS int64                     `yaml:"durationms"`
	Error      string                    `yaml:"error,omitempty"`
}

// ProviderResult is the per-provider diagnostic of one scan
type ProviderResult struct {
	Count     int    `yaml:"count"`
	Succeeded bool   `yaml:"succeeded"`
	Error     string `yaml:"error,omitempty"`
}

// EvalSpec is one saved evaluation run
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Summary EvalSummary  `yaml:"summary"`
	Results []EvalResult `yaml:"results"`
}

// Build converts an aggregate into the YAML document shape
func Build(cfg EvalConfig, agg *metrics.AggregateResults) EvalSpec {
	spec := EvalSpec{
		Config: cfg,
		Summary: EvalSummary{
			Shelves:        agg.TotalRecords,
			Failed:         agg.FailureCount,
			MicroPrecision: agg.MicroPrecision,
			MicroRecall:    agg.MicroRecall,
			MicroF1:        agg.MicroF1,
			MacroPrecision: agg.MacroPrecision,
			MacroRecall:    agg.MacroRecall,
		},
		Results: make([]EvalResult, 0, len(agg.Results)),
	}

	for _, r := range agg.Results {
		result := EvalResult{
			Identifier: r.ID,
			ImagePath:  r.ImagePath,
			DurationMS: r.ProcessingTime.Milliseconds(),
			Error:      r.Error,
		}
		if c := r.Comparison; c != nil {
			result.Precision = c.Precision
			result.Recall = c.Recall
			result.Expected = c.Expected
			result.Found = c.Found
			result.Matched = c.Matched
			result.Missing = c.Missing
			result.Extra = c.Extra
		}
		if o := r.Outcome; o != nil {
			result.ScanID = o.ScanID
			result.Providers = make(map[string]ProviderResult, len(o.ProviderDiagnostics))
			for name, diag := range o.ProviderDiagnostics {
				result.Providers[name] = ProviderResult{Count: diag.Count, Succeeded: diag.Succeeded, Error: diag.Error}
			}
		}
		spec.Results = append(spec.Results, result)
	}

	return spec
}

// SaveToYAML writes the evaluation to dir and returns the file path
func SaveToYAML(dir string, cfg EvalConfig, agg *metrics.AggregateResults) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}

	name := strings.Join(cfg.Providers, "+")
	if name == "" {
		name = "eval"
	}
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", name, cfg.Timestamp))

	data, err := yaml.Marshal(Build(cfg, agg))
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}

// LoadYAML reads a previously saved evaluation
func LoadYAML(path string) (*EvalSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	var spec EvalSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	return &spec, nil
}

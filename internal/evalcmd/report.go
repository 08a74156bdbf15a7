package evalcmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/shelfscan/shelfscan/internal/eval/results"
)

func executeReport(w io.Writer, resultsPath, format string) error {
	spec, err := results.LoadYAML(resultsPath)
	if err != nil {
		return err
	}

	switch format {
	case "text":
		return printTextReport(w, spec)
	case "json":
		return printJSONReport(w, spec)
	case "csv":
		return printCSVReport(w, spec)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printTextReport(w io.Writer, spec *results.EvalSpec) error {
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintln(w, "Shelf Scan Evaluation Report")
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "Providers:  %s\n", strings.Join(spec.Config.Providers, ", "))
	if spec.Config.ValidationProvider != "" {
		fmt.Fprintf(w, "Validation: %s %s\n", spec.Config.ValidationProvider, spec.Config.ValidationModel)
	}
	fmt.Fprintf(w, "Dataset:    %s\n", spec.Config.DatasetPath)
	fmt.Fprintf(w, "Run:        %s\n", spec.Config.Timestamp)
	fmt.Fprintln(w)

	s := spec.Summary
	fmt.Fprintf(w, "Shelves:            %d (%d failed)\n", s.Shelves, s.Failed)
	fmt.Fprintf(w, "Precision (micro):  %.2f%%\n", s.MicroPrecision*100)
	fmt.Fprintf(w, "Recall (micro):     %.2f%%\n", s.MicroRecall*100)
	fmt.Fprintf(w, "F1 (micro):         %.2f%%\n", s.MicroF1*100)
	fmt.Fprintf(w, "Precision (macro):  %.2f%%\n", s.MacroPrecision*100)
	fmt.Fprintf(w, "Recall (macro):     %.2f%%\n", s.MacroRecall*100)

	fmt.Fprintln(w, "\nDetailed Results:")
	fmt.Fprintln(w, strings.Repeat("=", 40))

	for i, r := range spec.Results {
		fmt.Fprintf(w, "\n[%d] Shelf: %s\n", i+1, r.Identifier)
		if r.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", r.Error)
			continue
		}

		fmt.Fprintf(w, "  Matched %d of %d expected, %d found (precision %.2f, recall %.2f)\n",
			r.Matched, r.Expected, r.Found, r.Precision, r.Recall)
		for _, name := range slices.Sorted(maps.Keys(r.Providers)) {
			p := r.Providers[name]
			status := "ok"
			if !p.Succeeded {
				status = "failed: " + p.Error
			}
			fmt.Fprintf(w, "  %-8s %d candidates, %s\n", name, p.Count, status)
		}
		for _, title := range r.Missing {
			fmt.Fprintf(w, "  - missing: %s\n", title)
		}
		for _, title := range r.Extra {
			fmt.Fprintf(w, "  + extra:   %s\n", title)
		}
	}

	return nil
}

func printJSONReport(w io.Writer, spec *results.EvalSpec) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(spec)
}

func printCSVReport(w io.Writer, spec *results.EvalSpec) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"identifier", "expected", "found", "matched", "precision", "recall", "duration_ms", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range spec.Results {
		row := []string{
			r.Identifier,
			strconv.Itoa(r.Expected),
			strconv.Itoa(r.Found),
			strconv.Itoa(r.Matched),
			strconv.FormatFloat(r.Precision, 'f', 4, 64),
			strconv.FormatFloat(r.Recall, 'f', 4, 64),
			strconv.FormatInt(r.DurationMS, 10),
			r.Error,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/dircompare/pkg/models"
)

// TypeDetector returns the media type of a file in the new tree
type TypeDetector func(path string) string

// WriteReport writes the result of a completed run to a file.
// Format can be "human" or "json". When detect is not nil, added and
// changed files are annotated with their media type.
func WriteReport(summary *models.Summary, path string, format string, detect TypeDetector) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	types := contentTypes(summary, detect)

	switch format {
	case "json":
		err = writeReportJSON(summary, types, file)
	default: // "human"
		err = writeReportHuman(summary, types, file)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// writeReportHuman writes every category with one path per line
func writeReportHuman(s *models.Summary, types map[string]string, w io.Writer) error {
	fmt.Fprintf(w, "Comparison Report\n")
	fmt.Fprintf(w, "=================\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Old: %s\n", s.OldRoot)
	fmt.Fprintf(w, "New: %s\n", s.NewRoot)
	fmt.Fprintf(w, "Results: %s\n\n", s.ResultsRoot)

	fmt.Fprintf(w, "%s\n\n", CompletionText(s))

	sections := []struct {
		label string
		paths []string
	}{
		{"Added files", s.NewFiles},
		{"Changed files", s.ChangedFiles},
	}

	for _, section := range sections {
		if len(section.paths) == 0 {
			continue
		}

		label := fmt.Sprintf("%s (%d files)", section.label, len(section.paths))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))
		for _, p := range section.paths {
			if t, ok := types[p]; ok {
				fmt.Fprintf(w, "  %s [%s]\n", p, t)
			} else {
				fmt.Fprintf(w, "  %s\n", p)
			}
		}
		fmt.Fprintf(w, "\n")
	}

	if len(s.PointerFailures) > 0 {
		label := fmt.Sprintf("Pointer errors (%d)", len(s.PointerFailures))
		fmt.Fprintf(w, "%s\n", label)
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", len(label)))
		for _, pf := range s.PointerFailures {
			fmt.Fprintf(w, "  %s\n", pf.Target)
			fmt.Fprintf(w, "    Details: %s\n", pf.Error)
		}
	}

	return nil
}

// writeReportJSON writes the summary with a generation timestamp
func writeReportJSON(s *models.Summary, types map[string]string, w io.Writer) error {
	output := struct {
		Generated    string            `json:"generated"`
		Summary      *models.Summary   `json:"summary"`
		ContentTypes map[string]string `json:"content_types,omitempty"`
	}{
		Generated:    time.Now().Format(time.RFC3339),
		Summary:      s,
		ContentTypes: types,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func contentTypes(s *models.Summary, detect TypeDetector) map[string]string {
	if detect == nil {
		return nil
	}

	types := make(map[string]string, len(s.NewFiles)+len(s.ChangedFiles))
	for _, paths := range [][]string{s.NewFiles, s.ChangedFiles} {
		for _, p := range paths {
			types[p] = detect(p)
		}
	}
	return types
}

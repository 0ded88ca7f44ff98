// Package cli provides output helpers for the katalog command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/katalog/internal/models"
	"github.com/hyperjump/katalog/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	switch response.Mode {
	case models.ModeSimilar:
		fmt.Fprintf(w, "\nFound %d items similar to %s in %dms\n\n", response.Total, response.ItemID, response.QueryTime)
	default:
		fmt.Fprintf(w, "\nFound %d results (%s search) in %dms\n\n", response.Total, response.Mode, response.QueryTime)
	}
	for i, m := range response.Results {
		writeMatch(w, i+1, m)
	}
	return nil
}

func writeMatch(w io.Writer, rank int, m models.Match) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Similarity: %.4f\n", rank, m.Similarity)
	writeItemFields(w, m.Item)
	fmt.Fprintln(w)
}

func writeItemFields(w io.Writer, item models.Item) {
	fmt.Fprintf(w, "ID: %s\n", item.ID)
	fmt.Fprintf(w, "Name: %s\n", item.Name)
	fmt.Fprintf(w, "Category: %s\n", item.Category)
	if item.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", utils.Truncate(item.Description, 120))
	}
	if item.DetailURL != "" {
		fmt.Fprintf(w, "URL: %s\n", item.DetailURL)
	}
}

// WriteItem writes one item.
func WriteItem(w io.Writer, item models.Item, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, item)
	}
	writeItemFields(w, item)
	if item.LocalImagePath != "" {
		fmt.Fprintf(w, "Image: %s\n", item.LocalImagePath)
	}
	return nil
}

// WriteStats writes catalog statistics. run may be nil when no ingest metadata is available.
func WriteStats(w io.Writer, stats models.Stats, run *models.IngestRun, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			Stats      models.Stats      `json:"stats"`
			LastIngest *models.IngestRun `json:"last_ingest,omitempty"`
		}{stats, run})
	}
	fmt.Fprintf(w, "Products:   %d\n", stats.TotalItems)
	fmt.Fprintf(w, "Embeddings: %d (dimension %d, %d empty)\n", stats.TotalEmbeddings, stats.EmbeddingDimension, stats.ZeroEmbeddings)
	fmt.Fprintf(w, "Categories: %d\n", len(stats.Categories))
	for _, c := range stats.Categories {
		fmt.Fprintf(w, "  - %s\n", c)
	}
	if run != nil {
		WriteIngestRun(w, run)
	}
	return nil
}

// WriteIngestRun writes an ingest run summary as text.
func WriteIngestRun(w io.Writer, run *models.IngestRun) {
	fmt.Fprintf(w, "Last ingest: %s (%s)\n", run.CreatedAt.Format("2006-01-02 15:04:05"), run.RunID)
	fmt.Fprintf(w, "  model %s, %d/%d embedded\n", run.ModelID, run.SuccessfulEmbeddings, run.TotalItems)
	if len(run.FailedItems) > 0 {
		fmt.Fprintf(w, "  failed: %s\n", TruncateList(run.FailedItems, 10))
	}
}

// TruncateList joins up to max entries with ", " and notes how many were left out.
func TruncateList(list []string, max int) string {
	if max <= 0 || len(list) <= max {
		return strings.Join(list, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(list[:max], ", "), len(list)-max)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

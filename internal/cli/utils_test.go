package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/katalog/internal/models"
)

func testResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Mode:      models.ModeText,
		Query:     "oak desk",
		TopK:      2,
		QueryTime: 42,
		Total:     2,
		Results: []models.Match{
			{Item: models.Item{ID: "p1", Name: "Oak desk", Category: "desk", Description: strings.Repeat("x", 300)}, Similarity: 0.91},
			{Item: models.Item{ID: "p2", Name: "Mesh chair", Category: "chair", DetailURL: "https://example.com/p2"}, Similarity: 0.5},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, testResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "oak desk" || decoded.Total != 2 || decoded.Results[0].ID != "p1" {
		t.Errorf("decoded: %+v", decoded)
	}
	if !strings.Contains(buf.String(), `"product_id": "p1"`) {
		t.Errorf("items should keep the catalog field names:\n%s", buf.String())
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, testResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 2 results (text search) in 42ms", "Rank: 1 | Similarity: 0.9100", "Name: Mesh chair", "URL: https://example.com/p2"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("x", 200)) {
		t.Error("long descriptions should be truncated")
	}

	resp := testResponse()
	resp.Mode = models.ModeSimilar
	resp.ItemID = "p9"
	buf.Reset()
	_ = WriteSearchResults(&buf, resp, OutputText)
	if !strings.Contains(buf.String(), "similar to p9") {
		t.Errorf("similar header missing:\n%s", buf.String())
	}
}

func TestWriteItem(t *testing.T) {
	var buf bytes.Buffer
	item := models.Item{ID: "p1", Name: "Oak desk", Category: "desk", LocalImagePath: "images/p1.jpg"}
	if err := WriteItem(&buf, item, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Image: images/p1.jpg") {
		t.Errorf("got:\n%s", buf.String())
	}
	buf.Reset()
	if err := WriteItem(&buf, item, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Item
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || decoded != item {
		t.Errorf("json round trip: %+v, %v", decoded, err)
	}
}

func TestWriteStats(t *testing.T) {
	stats := models.Stats{TotalItems: 3, EmbeddingDimension: 1024, TotalEmbeddings: 3, ZeroEmbeddings: 1, Categories: []string{"chair", "desk"}}
	run := &models.IngestRun{RunID: "r1", TotalItems: 3, SuccessfulEmbeddings: 2, FailedItems: []string{"p3"}, ModelID: "mock", CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}

	var buf bytes.Buffer
	if err := WriteStats(&buf, stats, run, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Products:   3", "dimension 1024, 1 empty", "  - desk", "2/3 embedded", "failed: p3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteStats(&buf, stats, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "last_ingest") {
		t.Errorf("nil run should be omitted:\n%s", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	if f, err := ParseOutputFormat("JSON"); err != nil || f != OutputJSON {
		t.Errorf("JSON: %v %v", f, err)
	}
	if f, err := ParseOutputFormat(""); err != nil || f != OutputText {
		t.Errorf("empty: %v %v", f, err)
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error")
	}
}

func TestTruncateList(t *testing.T) {
	if got := TruncateList([]string{"a", "b", "c"}, 2); got != "a, b and 1 more" {
		t.Errorf("got %q", got)
	}
	if got := TruncateList([]string{"a"}, 2); got != "a" {
		t.Errorf("got %q", got)
	}
}

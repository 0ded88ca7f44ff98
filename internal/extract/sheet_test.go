package extract

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// buildSheet returns an .xlsx workbook whose first sheet holds rows.
func buildSheet(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestItemsFromSheet(t *testing.T) {
	content := buildSheet(t, [][]interface{}{
		{"SKU", "Name", "Category", "Description", "Image Path"},
		{"P-1", "Oak desk", "desk", "Solid oak", "images/p1.jpg"},
		{"", "", "", "", ""},
		{"P-2", "Mesh chair", "chair"},
	})
	items, err := ItemsFromSheet(content, "")
	if err != nil {
		t.Fatalf("ItemsFromSheet: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID != "P-1" || items[0].Name != "Oak desk" || items[0].Description != "Solid oak" {
		t.Errorf("row 1: %+v", items[0])
	}
	if items[1].ID != "P-2" || items[1].Category != "chair" || items[1].Description != "" {
		t.Errorf("short row: %+v", items[1])
	}
}

func TestItemsFromSheet_headerAliases(t *testing.T) {
	content := buildSheet(t, [][]interface{}{
		{"product_id", "product_name", "category", "local_image_path", "url"},
		{"P-9", "Lamp", "lighting", "img/p9.png", "https://example.com/p9"},
	})
	items, err := ItemsFromSheet(content, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}
	got := items[0]
	if got.Name != "Lamp" || got.LocalImagePath != "img/p9.png" || got.DetailURL != "https://example.com/p9" {
		t.Errorf("aliases not mapped: %+v", got)
	}
}

func TestItemsFromSheet_errors(t *testing.T) {
	noID := buildSheet(t, [][]interface{}{{"name", "category"}, {"Desk", "desk"}})
	if _, err := ItemsFromSheet(noID, ""); !errors.Is(err, ErrNoIDColumn) {
		t.Errorf("missing id column: got %v", err)
	}
	missingID := buildSheet(t, [][]interface{}{{"id", "name"}, {"", "Desk"}})
	if _, err := ItemsFromSheet(missingID, ""); err == nil {
		t.Error("expected error for row without id")
	}
	if _, err := ItemsFromSheet([]byte("not a workbook"), ""); err == nil {
		t.Error("expected error for invalid workbook")
	}
	empty := buildSheet(t, nil)
	items, err := ItemsFromSheet(empty, "")
	if err != nil || len(items) != 0 {
		t.Errorf("empty sheet: %v, %v", items, err)
	}
}

func TestSheetItems_ReadItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	content := buildSheet(t, [][]interface{}{{"id", "name"}, {"P-1", "Desk"}})
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	items, err := SheetItems{Path: path}.ReadItems(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != "P-1" {
		t.Errorf("got %+v", items)
	}
	if _, err := (SheetItems{Path: path + ".missing"}).ReadItems(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
	if !IsSheet("Catalog.XLSX") || IsSheet("products.json") {
		t.Error("IsSheet")
	}
}

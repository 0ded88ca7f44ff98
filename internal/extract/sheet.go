// Package extract reads catalog items out of product spreadsheets so a
// merchandising sheet can be ingested without converting it to JSON first.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/katalog/internal/models"
)

// ErrNoIDColumn is returned when a sheet has no product id header.
var ErrNoIDColumn = errors.New("sheet has no product_id column")

// headerAliases maps accepted header spellings (lowercased, spaces as underscores) to item fields.
var headerAliases = map[string]string{
	"product_id":       "id",
	"id":               "id",
	"sku":              "id",
	"name":             "name",
	"product_name":     "name",
	"category":         "category",
	"description":      "description",
	"image_url":        "image_url",
	"local_image_path": "local_image_path",
	"image_path":       "local_image_path",
	"detail_url":       "detail_url",
	"url":              "detail_url",
}

// SheetItems reads items from the first worksheet of an .xlsx file. It
// satisfies vector.ItemSource.
type SheetItems struct {
	Path string
	// Sheet selects a worksheet by name; empty means the first one.
	Sheet string
}

// ReadItems opens the workbook and converts its rows.
func (s SheetItems) ReadItems(ctx context.Context) ([]models.Item, error) {
	content, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	return ItemsFromSheet(content, s.Sheet)
}

// IsSheet reports whether path names a spreadsheet this package reads.
func IsSheet(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".xlsx")
}

// ItemsFromSheet parses an .xlsx workbook. The first row is the header; blank
// rows are skipped and row order is kept.
func ItemsFromSheet(content []byte, sheet string) ([]models.Item, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return []models.Item{}, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []models.Item{}, nil
	}

	columns := make(map[string]int)
	for i, h := range rows[0] {
		if field, ok := headerAliases[strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = i
			}
		}
	}
	if _, ok := columns["id"]; !ok {
		return nil, ErrNoIDColumn
	}

	items := make([]models.Item, 0, len(rows)-1)
	for n, row := range rows[1:] {
		cell := func(field string) string {
			i, ok := columns[field]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if blank(row) {
			continue
		}
		item := models.Item{
			ID:             cell("id"),
			Name:           cell("name"),
			Category:       cell("category"),
			Description:    cell("description"),
			ImageURL:       cell("image_url"),
			LocalImagePath: cell("local_image_path"),
			DetailURL:      cell("detail_url"),
		}
		if item.ID == "" {
			return nil, fmt.Errorf("row %d: missing product id", n+2)
		}
		items = append(items, item)
	}
	return items, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

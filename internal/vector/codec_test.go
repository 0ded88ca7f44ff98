package vector

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/katalog/internal/models"
)

func TestNPYRoundTrip(t *testing.T) {
	rows := [][]float32{{1, 2, 3}, {0, 0, 0}, {-1.5, 0.25, 1e-3}}
	var buf bytes.Buffer
	if err := WriteNPY(&buf, rows); err != nil {
		t.Fatal(err)
	}
	if (buf.Len()-3*3*4)%64 != 0 {
		t.Errorf("header not aligned to 64 bytes: total %d", buf.Len())
	}
	got, err := ReadNPY(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("got %v, want %v", got, rows)
	}
}

// npyFixture builds a version 1.0 file the way numpy.save does for float64 data.
func npyFixture(t *testing.T, header string, data []float64) []byte {
	t.Helper()
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	for _, v := range data {
		_ = binary.Write(&buf, binary.LittleEndian, math.Float64bits(v))
	}
	return buf.Bytes()
}

func TestReadNPY_Float64(t *testing.T) {
	raw := npyFixture(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (2, 2), }", []float64{1, 2, 3, 4})
	got, err := ReadNPY(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if want := [][]float32{{1, 2}, {3, 4}}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReadNPY_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"bad magic", []byte("not numpy at all")},
		{"fortran order", npyFixture(t, "{'descr': '<f8', 'fortran_order': True, 'shape': (1, 1), }", []float64{1})},
		{"one dimensional", npyFixture(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (3,), }", []float64{1, 2, 3})},
		{"int dtype", npyFixture(t, "{'descr': '<i8', 'fortran_order': False, 'shape': (1, 1), }", []float64{1})},
		{"truncated", npyFixture(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (2, 2), }", []float64{1})},
		{"negative rows", npyFixture(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (-1, 4), }", nil)},
		{"negative cols", npyFixture(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (2, -4), }", nil)},
		{"oversized dimension", npyFixture(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (1, 4294967295), }", []float64{1})},
		{"oversized row count", npyFixture(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (9223372036854775807, 4), }", []float64{1, 2, 3, 4})},
		{"rows without columns", npyFixture(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (1000000000, 0), }", nil)},
		{"oversized header length", append([]byte("\x93NUMPY\x02\x00"), 0xff, 0xff, 0xff, 0x7f)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadNPY(bytes.NewReader(tt.raw)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadNPY_EmptyArray(t *testing.T) {
	raw := npyFixture(t, "{'descr': '<f4', 'fortran_order': False, 'shape': (0,), }", nil)
	got, err := ReadNPY(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rows, want 0", len(got))
	}
}

func TestMatrixRoundTrip(t *testing.T) {
	rows := [][]float32{{0.5, -0.5}, {1, 1}}
	var buf bytes.Buffer
	if err := WriteMatrix(&buf, rows); err != nil {
		t.Fatal(err)
	}
	got, err := ReadMatrix(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("got %v, want %v", got, rows)
	}
}

// matrixHeader returns a raw matrix layout header followed by data.
func matrixHeader(dim, n uint32, data ...float32) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, dim)
	_ = binary.Write(&buf, binary.LittleEndian, n)
	_ = binary.Write(&buf, binary.LittleEndian, data)
	return buf.Bytes()
}

func TestReadMatrix_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"short header", []byte{1, 0, 0}},
		{"oversized dimension", matrixHeader(math.MaxUint32, 1, 1)},
		{"oversized count", matrixHeader(4, math.MaxUint32, 1, 2, 3, 4)},
		{"rows without columns", matrixHeader(0, math.MaxUint32)},
		{"truncated", matrixHeader(2, 2, 1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadMatrix(bytes.NewReader(tt.raw)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_CorruptEmbeddingsKeepsSnapshot(t *testing.T) {
	s := abcStore(t)
	dir := t.TempDir()
	items := filepath.Join(dir, "products.json")
	if err := WriteItemsFile(items, []models.Item{item("X", "desk")}); err != nil {
		t.Fatal(err)
	}
	corrupt := map[string][]byte{
		"embeddings.npy": npyFixture(t, "{'descr': '<f8', 'fortran_order': False, 'shape': (-1, 2), }", nil),
		"embeddings.vec": matrixHeader(math.MaxUint32, math.MaxUint32),
	}
	for name, raw := range corrupt {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, raw, 0644); err != nil {
			t.Fatal(err)
		}
		if err := s.Load(context.Background(), EmbeddingsFile{Path: path}, ItemsFile{Path: items}); err == nil {
			t.Errorf("%s: expected load error", name)
		}
		if got := s.Stats().TotalItems; got != 3 {
			t.Errorf("%s: previous snapshot lost, TotalItems = %d", name, got)
		}
	}
}

func TestWriteRaggedRowsFails(t *testing.T) {
	rows := [][]float32{{1, 2}, {1}}
	if err := WriteNPY(&bytes.Buffer{}, rows); err == nil {
		t.Error("WriteNPY: expected error")
	}
	if err := WriteMatrix(&bytes.Buffer{}, rows); err == nil {
		t.Error("WriteMatrix: expected error")
	}
}

func TestVectorBlob(t *testing.T) {
	v := []float32{3.5, -2, 0}
	got, err := DecodeVector(EncodeVector(v))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("got %v, want %v", got, v)
	}
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for odd blob length")
	}
}

func TestFileSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"embeddings.npy", "embeddings.vec"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			rows := [][]float32{{1, 0}, {0, 1}}
			if err := WriteEmbeddingsFile(path, rows); err != nil {
				t.Fatal(err)
			}
			got, err := EmbeddingsFile{Path: path}.ReadEmbeddings(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, rows) {
				t.Errorf("got %v", got)
			}
		})
	}

	itemsPath := filepath.Join(dir, "products.json")
	raw := `[{"product_id":"1075","name":"Desk","category":"Desks","description":"white","local_image_path":"data/images/1075.jpg","detail_url":"https://example.com/1075","extra":"ignored"}]`
	if err := os.WriteFile(itemsPath, []byte(raw), 0600); err != nil {
		t.Fatal(err)
	}
	items, err := ItemsFile{Path: itemsPath}.ReadItems(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != "1075" || items[0].LocalImagePath != "data/images/1075.jpg" {
		t.Errorf("items = %+v", items)
	}
	if err := WriteItemsFile(itemsPath, items); err != nil {
		t.Fatal(err)
	}
	again, _ := ItemsFile{Path: itemsPath}.ReadItems(context.Background())
	if !reflect.DeepEqual(items, again) {
		t.Errorf("round trip mismatch: %+v", again)
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{"), 0600)
	if _, err := (ItemsFile{Path: bad}).ReadItems(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}

package vector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Embedding matrices are stored in one of two dense row-major layouts:
//
//   - NumPy .npy (version 1.0-3.0, '<f4' or '<f8', C order, 2-D), the format
//     the ingestion pipeline has always produced;
//   - the raw matrix layout: dimension (u32), n (u32), then n*dimension
//     little-endian float32 values.

var npyMagic = []byte("\x93NUMPY")

const (
	// MaxDimension bounds the row width a decoder accepts from a file header.
	MaxDimension = 1 << 16
	// maxNPYHeader bounds the npy header length field.
	maxNPYHeader = 1 << 16
	// rowPrealloc caps capacity reserved from a header's row count; rows
	// beyond it are appended as they are read.
	rowPrealloc = 4096
)

var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ReadNPY decodes a 2-D float32 or float64 NumPy array into rows.
func ReadNPY(r io.Reader) ([][]float32, error) {
	br := bufio.NewReader(r)
	magic := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("read npy magic: %w", err)
	}
	if !bytes.Equal(magic[:len(npyMagic)], npyMagic) {
		return nil, fmt.Errorf("not a npy file")
	}
	var headerLen int
	switch major := magic[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("read npy header length: %w", err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("read npy header length: %w", err)
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("unsupported npy version %d", major)
	}
	if headerLen > maxNPYHeader {
		return nil, fmt.Errorf("npy header length %d exceeds %d", headerLen, maxNPYHeader)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("read npy header: %w", err)
	}
	descr, rows, cols, err := parseNPYHeader(string(header))
	if err != nil {
		return nil, err
	}

	var size int
	switch descr {
	case "<f4":
		size = 4
	case "<f8":
		size = 8
	default:
		return nil, fmt.Errorf("unsupported npy dtype %q (want <f4 or <f8)", descr)
	}
	out := make([][]float32, 0, min(rows, rowPrealloc))
	buf := make([]byte, cols*size)
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read npy row %d: %w", i, err)
		}
		row := make([]float32, cols)
		for j := range row {
			if size == 4 {
				row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
			} else {
				row[j] = float32(math.Float64frombits(binary.LittleEndian.Uint64(buf[j*8:])))
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func parseNPYHeader(h string) (descr string, rows, cols int, err error) {
	m := npyDescrRe.FindStringSubmatch(h)
	if m == nil {
		return "", 0, 0, fmt.Errorf("npy header missing descr")
	}
	descr = m[1]
	if f := npyFortranRe.FindStringSubmatch(h); f != nil && f[1] == "True" {
		return "", 0, 0, fmt.Errorf("fortran-ordered npy arrays are not supported")
	}
	s := npyShapeRe.FindStringSubmatch(h)
	if s == nil {
		return "", 0, 0, fmt.Errorf("npy header missing shape")
	}
	var dims []int
	for _, part := range strings.Split(s[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil {
			return "", 0, 0, fmt.Errorf("bad npy shape %q: %w", s[1], convErr)
		}
		dims = append(dims, n)
	}
	switch {
	case len(dims) == 2:
		if err := checkShape(dims[0], dims[1]); err != nil {
			return "", 0, 0, err
		}
		return descr, dims[0], dims[1], nil
	case len(dims) == 1 && dims[0] == 0:
		return descr, 0, 0, nil
	default:
		return "", 0, 0, fmt.Errorf("npy array must be 2-D, got shape (%s)", s[1])
	}
}

// checkShape rejects header shapes that cannot describe an embedding matrix.
func checkShape(rows, cols int) error {
	switch {
	case rows < 0 || cols < 0:
		return fmt.Errorf("negative matrix shape (%d, %d)", rows, cols)
	case cols > MaxDimension:
		return fmt.Errorf("matrix dimension %d exceeds %d", cols, MaxDimension)
	case rows > 0 && cols == 0:
		return fmt.Errorf("matrix has %d rows of dimension 0", rows)
	}
	return nil
}

// WriteNPY encodes rows as a version 1.0 '<f4' NumPy array. All rows must share one length.
func WriteNPY(w io.Writer, rows [][]float32) error {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", len(rows), cols)
	// magic(6) + version(2) + length(2) + header + '\n' is padded to a multiple of 64.
	total := len(npyMagic) + 4 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(npyMagic); err != nil {
		return err
	}
	if _, err := bw.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint16(len(header))); err != nil {
		return fmt.Errorf("write npy header length: %w", err)
	}
	if _, err := bw.WriteString(header); err != nil {
		return fmt.Errorf("write npy header: %w", err)
	}
	for i, row := range rows {
		if len(row) != cols {
			return fmt.Errorf("row %d has dimension %d, expected %d", i, len(row), cols)
		}
		if _, err := bw.Write(float32SliceToBytes(row)); err != nil {
			return fmt.Errorf("write npy row %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadMatrix decodes the raw matrix layout.
func ReadMatrix(r io.Reader) ([][]float32, error) {
	br := bufio.NewReader(r)
	var dim, n uint32
	if err := binary.Read(br, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if err := checkShape(int(n), int(dim)); err != nil {
		return nil, err
	}
	out := make([][]float32, 0, min(int(n), rowPrealloc))
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		out = append(out, bytesToFloat32Slice(buf))
	}
	return out, nil
}

// WriteMatrix encodes rows in the raw matrix layout.
func WriteMatrix(w io.Writer, rows [][]float32) error {
	dim := 0
	if len(rows) > 0 {
		dim = len(rows[0])
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint32(dim)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(rows))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, row := range rows {
		if len(row) != dim {
			return fmt.Errorf("row %d has dimension %d, expected %d", i, len(row), dim)
		}
		if _, err := bw.Write(float32SliceToBytes(row)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return bw.Flush()
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// EncodeVector and DecodeVector convert one vector to and from its little-endian float32 blob.
func EncodeVector(v []float32) []byte { return float32SliceToBytes(v) }

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	return bytesToFloat32Slice(b), nil
}

package files

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

var npyMagic = []byte("\x93NUMPY")

var (
	descrPattern   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranPattern = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapePattern   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

type npyHeader struct {
	descr   string
	fortran bool
	shape   []int
}

// ReadNPY decodes a 2-D little-endian float32 or float64 C-order array.
// float64 values are narrowed to float32.
func ReadNPY(r io.Reader) ([][]float32, error) {
	br := bufio.NewReader(r)

	hdr, err := readNPYHeader(br)
	if err != nil {
		return nil, err
	}
	if hdr.fortran {
		return nil, fmt.Errorf("npy: fortran-order arrays are not supported")
	}
	if len(hdr.shape) != 2 {
		return nil, fmt.Errorf("npy: expected a 2-D array, got shape %v", hdr.shape)
	}

	var width int
	switch hdr.descr {
	case "<f4":
		width = 4
	case "<f8":
		width = 8
	default:
		return nil, fmt.Errorf("npy: unsupported dtype %q", hdr.descr)
	}

	rows, cols := hdr.shape[0], hdr.shape[1]
	matrix := make([][]float32, rows)
	buf := make([]byte, cols*width)
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("npy: reading row %d: %w", i, err)
		}
		row := make([]float32, cols)
		for j := range row {
			if width == 4 {
				row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
			} else {
				row[j] = float32(math.Float64frombits(binary.LittleEndian.Uint64(buf[j*8:])))
			}
		}
		matrix[i] = row
	}
	return matrix, nil
}

func readNPYHeader(r io.Reader) (*npyHeader, error) {
	preamble := make([]byte, 8)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return nil, fmt.Errorf("npy: reading preamble: %w", err)
	}
	if !bytes.Equal(preamble[:6], npyMagic) {
		return nil, fmt.Errorf("npy: bad magic")
	}

	var headerLen int
	switch major := preamble[6]; major {
	case 1:
		lenBuf := make([]byte, 2)
		if _, err := io.ReadFull(r, lenBuf); err != nil {
			return nil, fmt.Errorf("npy: reading header length: %w", err)
		}
		headerLen = int(binary.LittleEndian.Uint16(lenBuf))
	case 2, 3:
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(r, lenBuf); err != nil {
			return nil, fmt.Errorf("npy: reading header length: %w", err)
		}
		headerLen = int(binary.LittleEndian.Uint32(lenBuf))
	default:
		return nil, fmt.Errorf("npy: unsupported format version %d", major)
	}

	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("npy: reading header: %w", err)
	}
	return parseNPYHeader(string(raw))
}

func parseNPYHeader(s string) (*npyHeader, error) {
	descr := descrPattern.FindStringSubmatch(s)
	fortran := fortranPattern.FindStringSubmatch(s)
	shape := shapePattern.FindStringSubmatch(s)
	if descr == nil || fortran == nil || shape == nil {
		return nil, fmt.Errorf("npy: malformed header %q", strings.TrimSpace(s))
	}

	hdr := &npyHeader{
		descr:   descr[1],
		fortran: fortran[1] == "True",
	}
	for _, part := range strings.Split(shape[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(part, "L"))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("npy: bad shape dimension %q", part)
		}
		hdr.shape = append(hdr.shape, n)
	}
	return hdr, nil
}

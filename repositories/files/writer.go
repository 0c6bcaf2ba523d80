package files

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/repositories"
	"go.uber.org/zap"
)

// WriteRecipes encodes recipes as a CSV table readable by ReadRecipes.
// Ingredients are written as single-quoted list literals.
func WriteRecipes(w io.Writer, recipes []models.Recipe) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"title", "ingredients", "directions"}); err != nil {
		return err
	}
	for _, r := range recipes {
		if err := cw.Write([]string{r.Title, formatListLiteral(r.Ingredients), r.Directions}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatListLiteral(items []string) string {
	quoted := make([]string, len(items))
	escaper := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	for i, item := range items {
		quoted[i] = "'" + escaper.Replace(item) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// WriteNPY encodes matrix as a version 1.0 little-endian float32 array
func WriteNPY(w io.Writer, matrix [][]float32) error {
	cols := 0
	if len(matrix) > 0 {
		cols = len(matrix[0])
	}

	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", len(matrix), cols)
	// magic(6) + version(2) + header length(2) + header, padded to 64 bytes
	pad := 64 - (10+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(npyMagic); err != nil {
		return err
	}
	if _, err := bw.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := bw.WriteString(header); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for i, row := range matrix {
		if len(row) != cols {
			return fmt.Errorf("npy: row %d has %d columns, expected %d", i, len(row), cols)
		}
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Save writes ds to the source's CSV and .npy paths, replacing both files
func (s *Source) Save(ctx context.Context, ds *repositories.Dataset) error {
	indexes := make([]int, ds.Len())
	for i := range indexes {
		indexes[i] = i
	}
	recipes, err := ds.Records(indexes)
	if err != nil {
		return err
	}

	if err := writeFile(s.csvPath, func(w io.Writer) error { return WriteRecipes(w, recipes) }); err != nil {
		return fmt.Errorf("write %s: %w", s.csvPath, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFile(s.npyPath, func(w io.Writer) error { return WriteNPY(w, ds.Embeddings()) }); err != nil {
		return fmt.Errorf("write %s: %w", s.npyPath, err)
	}

	s.logger.Info("dataset written to files",
		zap.String("recipes", s.csvPath),
		zap.String("embeddings", s.npyPath),
		zap.Int("records", ds.Len()))
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

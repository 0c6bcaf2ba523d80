package files

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/upb/recipe-api/models"
)

var requiredColumns = []string{"title", "ingredients", "directions"}

// ReadRecipes decodes a recipe table with a header row. Column names are
// matched case-insensitively and extra columns are ignored.
func ReadRecipes(r io.Reader) ([]models.Recipe, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: missing header row")
		}
		return nil, fmt.Errorf("csv: reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	idx := make([]int, len(requiredColumns))
	for i, name := range requiredColumns {
		pos, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("csv: missing required column %q", name)
		}
		idx[i] = pos
	}

	var recipes []models.Recipe
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}

		cell := func(i int) string {
			if idx[i] < len(row) {
				return row[idx[i]]
			}
			return ""
		}

		ingredients, err := parseIngredients(cell(1))
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: ingredients: %w", line, err)
		}

		recipes = append(recipes, models.Recipe{
			Title:       cell(0),
			Ingredients: ingredients,
			Directions:  cell(2),
		})
	}
	return recipes, nil
}

// Package dataset reads forecast history from CSV files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/go-playground/validator/v10"
)

const (
	SalesFile       = "sales.csv"
	RecipesFile     = "recipes.csv"
	IngredientsFile = "ingredients.csv"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the three history files from dir. Timezone and Days are left
// for the caller.
func Load(dir string) (forecast.Input, error) {
	var in forecast.Input

	err := readCSV(filepath.Join(dir, SalesFile), []string{"product_id", "quantity", "sold_at"}, func(row csvRow) error {
		qty, err := strconv.Atoi(row.get("quantity"))
		if err != nil {
			return fmt.Errorf("invalid quantity %q", row.get("quantity"))
		}
		soldAt, err := time.Parse(time.RFC3339, row.get("sold_at"))
		if err != nil {
			return fmt.Errorf("invalid sold_at %q: want RFC3339", row.get("sold_at"))
		}
		rec := forecast.SaleRecord{ProductID: row.get("product_id"), Quantity: qty, SoldAt: soldAt}
		if err := validate.Struct(rec); err != nil {
			return err
		}
		in.Sales = append(in.Sales, rec)
		return nil
	})
	if err != nil {
		return in, err
	}

	err = readCSV(filepath.Join(dir, RecipesFile), []string{"product_id", "ingredient_id", "quantity"}, func(row csvRow) error {
		qty, err := parseFloat(row.get("quantity"))
		if err != nil {
			return err
		}
		rec := forecast.RecipeRecord{ProductID: row.get("product_id"), IngredientID: row.get("ingredient_id"), Quantity: qty}
		if err := validate.Struct(rec); err != nil {
			return err
		}
		in.Recipes = append(in.Recipes, rec)
		return nil
	})
	if err != nil {
		return in, err
	}

	err = readCSV(filepath.Join(dir, IngredientsFile), []string{"id", "stock_current", "reorder_point"}, func(row csvRow) error {
		stock, err := parseFloat(row.get("stock_current"))
		if err != nil {
			return err
		}
		reorderPoint, err := parseFloat(row.get("reorder_point"))
		if err != nil {
			return err
		}
		rec := forecast.IngredientRecord{ID: row.get("id"), StockCurrent: stock, ReorderPoint: reorderPoint}
		if err := validate.Struct(rec); err != nil {
			return err
		}
		in.Ingredients = append(in.Ingredients, rec)
		return nil
	})
	return in, err
}

type csvRow struct {
	header map[string]int
	record []string
}

func (r csvRow) get(column string) string {
	idx, ok := r.header[column]
	if !ok || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

// readCSV calls fn for every data row. The header must name every column in
// required; extra columns are ignored.
func readCSV(path string, required []string, fn func(row csvRow) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header of %s: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("failed to read CSV record in %s: %w", path, err)
		}
		if isBlank(record) {
			continue
		}
		if err := fn(csvRow{header: index, record: record}); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

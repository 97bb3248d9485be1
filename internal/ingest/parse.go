package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// RecordRow is one parsed line of a records file.
type RecordRow struct {
	Line   int
	Record domain.HistoricalRecord
}

// RecipeRow is one recipe ingredient line of a recipes file, carrying the
// recipe and ingredient it belongs to.
type RecipeRow struct {
	Line           int
	Recipe         domain.RecipeCostSnapshot
	IngredientName string
	Ingredient     domain.RecipeIngredientLine
}

// RowError reports a malformed CSV line.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

var dateFormats = []string{
	"2006-01-02",
	"2/1/2006",
	"2/1/06",
	time.RFC3339,
}

type csvTable struct {
	reader *csv.Reader
	colMap map[string]int
	line   int
}

func newCSVTable(r io.Reader, required ...string) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	for _, col := range required {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	return &csvTable{reader: reader, colMap: colMap, line: 1}, nil
}

// next returns the next non-blank row, or io.EOF.
func (t *csvTable) next() ([]string, error) {
	for {
		row, err := t.reader.Read()
		if err != nil {
			return nil, err
		}
		t.line, _ = t.reader.FieldPos(0)
		if isBlank(row) {
			continue
		}
		return row, nil
	}
}

func (t *csvTable) value(row []string, col string) string {
	i, ok := t.colMap[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *csvTable) int64(row []string, col string, required bool) (int64, error) {
	raw := t.value(row, col)
	if raw == "" {
		if required {
			return 0, &RowError{Line: t.line, Column: col, Err: errors.New("value is required")}
		}
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &RowError{Line: t.line, Column: col, Err: err}
	}
	return v, nil
}

func (t *csvTable) decimal(row []string, col string, required bool) (decimal.Decimal, error) {
	d, err := t.nullDecimal(row, col)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.Valid {
		if required {
			return decimal.Zero, &RowError{Line: t.line, Column: col, Err: errors.New("value is required")}
		}
		return decimal.Zero, nil
	}
	return d.Decimal, nil
}

func (t *csvTable) nullDecimal(row []string, col string) (decimal.NullDecimal, error) {
	raw := strings.ReplaceAll(t.value(row, col), ",", "")
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, &RowError{Line: t.line, Column: col, Err: err}
	}
	return decimal.NewNullDecimal(d), nil
}

func (t *csvTable) date(row []string, col string) (time.Time, error) {
	raw := t.value(row, col)
	if raw == "" {
		return time.Time{}, &RowError{Line: t.line, Column: col, Err: errors.New("value is required")}
	}
	for _, format := range dateFormats {
		if parsed, err := time.Parse(format, raw); err == nil {
			return domain.TruncateDay(parsed), nil
		}
	}
	return time.Time{}, &RowError{Line: t.line, Column: col, Err: fmt.Errorf("unrecognised date %q", raw)}
}

// ParseRecords reads a records file. Columns: date, entity_type, entity_id,
// kind, quantity and the optional category_id, unit_cost, unit_revenue.
func ParseRecords(r io.Reader, companyID int64) ([]RecordRow, error) {
	table, err := newCSVTable(r, "date", "entity_type", "entity_id", "kind", "quantity")
	if err != nil {
		return nil, err
	}

	var rows []RecordRow
	for {
		row, err := table.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record: %w", err)
		}

		rec := domain.HistoricalRecord{CompanyID: companyID}

		entityType, ok := domain.ParseEntityType(table.value(row, "entity_type"))
		if !ok {
			return nil, &RowError{Line: table.line, Column: "entity_type", Err: fmt.Errorf("unknown entity type %q", table.value(row, "entity_type"))}
		}
		rec.EntityType = entityType

		kind, ok := domain.ParseRecordKind(table.value(row, "kind"))
		if !ok {
			return nil, &RowError{Line: table.line, Column: "kind", Err: fmt.Errorf("unknown record kind %q", table.value(row, "kind"))}
		}
		rec.Kind = kind

		if rec.OccurredOn, err = table.date(row, "date"); err != nil {
			return nil, err
		}
		if rec.EntityID, err = table.int64(row, "entity_id", true); err != nil {
			return nil, err
		}
		if rec.CategoryID, err = table.int64(row, "category_id", false); err != nil {
			return nil, err
		}
		if rec.Quantity, err = table.decimal(row, "quantity", true); err != nil {
			return nil, err
		}
		if rec.UnitCost, err = table.decimal(row, "unit_cost", false); err != nil {
			return nil, err
		}
		if rec.UnitRevenue, err = table.decimal(row, "unit_revenue", false); err != nil {
			return nil, err
		}

		rows = append(rows, RecordRow{Line: table.line, Record: rec})
	}
	return rows, nil
}

// ParseStockLevels reads an inventory file with ingredient_id and quantity
// columns.
func ParseStockLevels(r io.Reader) ([]domain.StockLevel, error) {
	table, err := newCSVTable(r, "ingredient_id", "quantity")
	if err != nil {
		return nil, err
	}

	var levels []domain.StockLevel
	for {
		row, err := table.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading stock level: %w", err)
		}

		var level domain.StockLevel
		if level.IngredientID, err = table.int64(row, "ingredient_id", true); err != nil {
			return nil, err
		}
		if level.Quantity, err = table.decimal(row, "quantity", true); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// ParseRecipes reads a recipes file, one row per recipe ingredient. Columns:
// recipe_id, recipe_name, ingredient_id, quantity, unit_cost and the optional
// category_id, selling_price, ingredient_name. A blank selling_price means
// the recipe is unpriced.
func ParseRecipes(r io.Reader) ([]RecipeRow, error) {
	table, err := newCSVTable(r, "recipe_id", "recipe_name", "ingredient_id", "quantity", "unit_cost")
	if err != nil {
		return nil, err
	}

	var rows []RecipeRow
	for {
		row, err := table.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading recipe: %w", err)
		}

		out := RecipeRow{Line: table.line}
		if out.Recipe.RecipeID, err = table.int64(row, "recipe_id", true); err != nil {
			return nil, err
		}
		out.Recipe.Name = table.value(row, "recipe_name")
		if out.Recipe.CategoryID, err = table.int64(row, "category_id", false); err != nil {
			return nil, err
		}
		if out.Recipe.SellingPrice, err = table.nullDecimal(row, "selling_price"); err != nil {
			return nil, err
		}

		out.Ingredient.RecipeID = out.Recipe.RecipeID
		if out.Ingredient.IngredientID, err = table.int64(row, "ingredient_id", true); err != nil {
			return nil, err
		}
		if out.Ingredient.Quantity, err = table.decimal(row, "quantity", true); err != nil {
			return nil, err
		}
		if out.Ingredient.UnitCost, err = table.decimal(row, "unit_cost", true); err != nil {
			return nil, err
		}
		out.IngredientName = table.value(row, "ingredient_name")
		if out.IngredientName == "" {
			out.IngredientName = "Ingredient " + strconv.FormatInt(out.Ingredient.IngredientID, 10)
		}

		rows = append(rows, out)
	}
	return rows, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecords(t *testing.T) {
	input := "Date,Entity_Type,Entity_ID,Kind,Quantity,Unit_Revenue,Category_ID\n" +
		"2024-01-02,recipe,12,sale,3,4.50,7\n" +
		"\n" +
		"5/1/2024,ingredient,3,usage,\"1,200.5\",,\n"

	rows, err := ParseRecords(strings.NewReader(input), 9)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, int64(9), first.Record.CompanyID)
	assert.Equal(t, domain.EntityRecipe, first.Record.EntityType)
	assert.Equal(t, domain.RecordSale, first.Record.Kind)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), first.Record.OccurredOn)
	assert.Equal(t, int64(7), first.Record.CategoryID)
	assert.True(t, first.Record.UnitRevenue.Equal(decimal.RequireFromString("4.5")))

	second := rows[1]
	assert.Equal(t, 4, second.Line)
	assert.Equal(t, domain.RecordIngredientUsage, second.Record.Kind)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), second.Record.OccurredOn)
	assert.True(t, second.Record.Quantity.Equal(decimal.RequireFromString("1200.5")))
	assert.True(t, second.Record.UnitRevenue.IsZero())
}

func TestParseRecordsErrors(t *testing.T) {
	_, err := ParseRecords(strings.NewReader("date,entity_type,entity_id,kind\n"), 1)
	assert.ErrorContains(t, err, `missing required column "quantity"`)

	_, err = ParseRecords(strings.NewReader("date,entity_type,entity_id,kind,quantity\n2024-01-01,recipe,1,refund,1\n"), 1)
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Line)
	assert.Equal(t, "kind", rowErr.Column)

	_, err = ParseRecords(strings.NewReader("date,entity_type,entity_id,kind,quantity\n2024-13-45,recipe,1,sale,1\n"), 1)
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "date", rowErr.Column)

	_, err = ParseRecords(strings.NewReader("date,entity_type,entity_id,kind,quantity\n2024-01-01,recipe,,sale,1\n"), 1)
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "entity_id", rowErr.Column)
}

func TestParseStockLevels(t *testing.T) {
	levels, err := ParseStockLevels(strings.NewReader("ingredient_id,quantity\n1,10.5\n2,0\n"))
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, int64(1), levels[0].IngredientID)
	assert.True(t, levels[0].Quantity.Equal(decimal.RequireFromString("10.5")))
}

func TestParseRecipes(t *testing.T) {
	input := "recipe_id,recipe_name,category_id,selling_price,ingredient_id,ingredient_name,quantity,unit_cost\n" +
		"1,Soup,2,12.00,10,Onion,0.2,1.5\n" +
		"1,Soup,2,12.00,11,,1,0.4\n" +
		"2,Staff meal,2,,10,Onion,0.5,1.5\n"

	rows, err := ParseRecipes(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, int64(1), rows[0].Recipe.RecipeID)
	assert.True(t, rows[0].Recipe.SellingPrice.Valid)
	assert.Equal(t, "Onion", rows[0].IngredientName)
	assert.Equal(t, int64(1), rows[0].Ingredient.RecipeID)
	assert.Equal(t, "Ingredient 11", rows[1].IngredientName)
	assert.False(t, rows[2].Recipe.SellingPrice.Valid)
}

func TestDetectFileType(t *testing.T) {
	ft, err := DetectFileType(filepath.Join("data", "Records", "2024-01.csv"))
	require.NoError(t, err)
	assert.Equal(t, FileRecords, ft)

	_, err = DetectFileType(filepath.Join("data", "misc", "x.csv"))
	assert.Error(t, err)

	assert.Equal(t, "records/2024-01.csv", sourceName(filepath.Join("/tmp", "import", "records", "2024-01.csv")))
}

func TestOrderFiles(t *testing.T) {
	files := []string{"a/records/b.csv", "a/inventory/x.csv", "a/recipes/z.csv", "a/records/a.csv"}
	assert.Equal(t, []string{"a/recipes/z.csv", "a/inventory/x.csv", "a/records/a.csv", "a/records/b.csv"}, OrderFiles(files))
}

func TestProcessFilesLoadsRecipesFirst(t *testing.T) {
	files := []string{"d/records/1.csv", "d/records/2.csv", "d/recipes/r.csv", "d/inventory/i.csv"}

	var (
		mu    sync.Mutex
		order []string
	)
	summary, err := processFiles(context.Background(), files, 3, func(ctx context.Context, path string) (int, error) {
		mu.Lock()
		order = append(order, path)
		mu.Unlock()
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Files)
	assert.Equal(t, int64(8), summary.Rows)
	assert.Equal(t, "d/recipes/r.csv", order[0])
	assert.Len(t, order, 4)
}

func TestProcessFilesStopsOnError(t *testing.T) {
	files := []string{"d/recipes/r.csv", "d/records/1.csv"}
	_, err := processFiles(context.Background(), files, 2, func(ctx context.Context, path string) (int, error) {
		if strings.Contains(path, "recipes") {
			return 0, errors.New("bad row")
		}
		return 1, nil
	})
	assert.ErrorContains(t, err, "error processing d/recipes/r.csv: bad row")
}

func TestCollectCSVFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "records"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "records", "b.CSV"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "records", "a.csv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	files, err := CollectCSVFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "records", "a.csv"),
		filepath.Join(root, "records", "b.CSV"),
	}, files)
}

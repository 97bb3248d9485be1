package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	query string
	args  []any
}

type recordingExecer struct {
	calls []execCall
}

func (r *recordingExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	r.calls = append(r.calls, execCall{query: query, args: args})
	return nil, nil
}

func TestRecipeCatalogUpsertsAreScopedByCompany(t *testing.T) {
	db := &recordingExecer{}
	repo := NewIngestRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertIngredient(ctx, 2, 5, "flour", decimal.RequireFromString("9.99")))
	require.NoError(t, repo.UpsertRecipe(ctx, 2, domain.RecipeCostSnapshot{RecipeID: 7, CategoryID: 1, Name: "bread"}))
	require.NoError(t, repo.UpsertRecipeIngredient(ctx, 2, domain.RecipeIngredientLine{
		RecipeID:     7,
		IngredientID: 5,
		Quantity:     decimal.NewFromInt(3),
	}))

	require.Len(t, db.calls, 3)
	assert.Contains(t, db.calls[0].query, "ON CONFLICT (company_id, id)")
	assert.Equal(t, []any{int64(2), int64(5)}, db.calls[0].args[:2])

	assert.Contains(t, db.calls[1].query, "ON CONFLICT (company_id, id)")
	assert.Equal(t, []any{int64(2), int64(7)}, db.calls[1].args[:2])

	assert.Contains(t, db.calls[2].query, "ON CONFLICT (company_id, recipe_id, ingredient_id)")
	assert.Equal(t, []any{int64(2), int64(7), int64(5)}, db.calls[2].args[:3])
}

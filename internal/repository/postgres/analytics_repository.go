package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/andresuchdata/costbook/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type recordRepository struct {
	db *sqlx.DB
}

func NewRecordRepository(db *DB) repository.RecordRepository {
	return &recordRepository{db: db.DB}
}

func (r *recordRepository) ListRecords(ctx context.Context, filter domain.AnalyticsFilter, kinds ...domain.RecordKind) ([]domain.HistoricalRecord, error) {
	query := `
        SELECT
            hr.id,
            hr.company_id,
            hr.entity_id,
            hr.entity_type,
            hr.category_id,
            hr.kind,
            hr.occurred_on,
            hr.quantity,
            hr.unit_cost,
            hr.unit_revenue
        FROM historical_records hr
        WHERE hr.company_id = $1
    `
	args := []interface{}{filter.CompanyID}

	if len(kinds) > 0 {
		query += fmt.Sprintf(" AND hr.kind = ANY($%d)", len(args)+1)
		args = append(args, pq.Array(kindStrings(kinds)))
	}

	clause, clauseArgs := buildRecordFilterClause(filter, "hr", len(args)+1)
	query += clause + " ORDER BY hr.occurred_on, hr.id"
	args = append(args, clauseArgs...)

	records := []domain.HistoricalRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, errors.Wrapf(err, "list historical records for company %d", filter.CompanyID)
	}
	return records, nil
}

type inventoryRepository struct {
	db *sqlx.DB
}

func NewInventoryRepository(db *DB) repository.InventoryRepository {
	return &inventoryRepository{db: db.DB}
}

func (r *inventoryRepository) ListStockLevels(ctx context.Context, companyID int64, ingredientIDs []int64) ([]domain.StockLevel, error) {
	query := `
        SELECT ingredient_id, quantity
        FROM inventory_levels
        WHERE company_id = $1
    `
	args := []interface{}{companyID}
	if len(ingredientIDs) > 0 {
		query += " AND ingredient_id = ANY($2)"
		args = append(args, pq.Array(ingredientIDs))
	}
	query += " ORDER BY ingredient_id"

	levels := []domain.StockLevel{}
	if err := r.db.SelectContext(ctx, &levels, query, args...); err != nil {
		return nil, errors.Wrapf(err, "list stock levels for company %d", companyID)
	}
	return levels, nil
}

const recipeLinesQuery = `
        SELECT ri.recipe_id, ri.ingredient_id, ri.quantity, i.unit_cost
        FROM recipe_ingredients ri
        JOIN ingredients i ON i.company_id = ri.company_id AND i.id = ri.ingredient_id
        WHERE ri.company_id = $1 AND ri.recipe_id = ANY($2)
        ORDER BY ri.recipe_id, ri.ingredient_id
    `

type recipeRepository struct {
	db *sqlx.DB
}

func NewRecipeRepository(db *DB) repository.RecipeRepository {
	return &recipeRepository{db: db.DB}
}

func (r *recipeRepository) ListCostSnapshots(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.RecipeCostSnapshot, error) {
	query := `
        SELECT r.id, r.category_id, r.name, r.selling_price
        FROM recipes r
        WHERE r.company_id = $1
    `
	clause, clauseArgs := buildRecipeFilterClause(filter, "r", 2)
	query += clause + " ORDER BY r.id"
	args := append([]interface{}{filter.CompanyID}, clauseArgs...)

	snapshots := []domain.RecipeCostSnapshot{}
	if err := r.db.SelectContext(ctx, &snapshots, query, args...); err != nil {
		return nil, errors.Wrapf(err, "list recipes for company %d", filter.CompanyID)
	}
	if len(snapshots) == 0 {
		return snapshots, nil
	}

	ids := make([]int64, len(snapshots))
	index := make(map[int64]int, len(snapshots))
	for i, s := range snapshots {
		ids[i] = s.RecipeID
		index[s.RecipeID] = i
	}

	var lines []domain.RecipeIngredientLine
	if err := r.db.SelectContext(ctx, &lines, recipeLinesQuery, filter.CompanyID, pq.Array(ids)); err != nil {
		return nil, errors.Wrapf(err, "list recipe ingredients for company %d", filter.CompanyID)
	}

	for _, line := range lines {
		i, ok := index[line.RecipeID]
		if !ok {
			continue
		}
		snapshots[i].Ingredients = append(snapshots[i].Ingredients, line)
	}
	return snapshots, nil
}

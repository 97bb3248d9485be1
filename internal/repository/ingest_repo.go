package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IngestRepository writes imported rows. Every write is an upsert so that
// re-importing the same file is harmless.
type IngestRepository struct {
	db Execer
}

func NewIngestRepository(db Execer) *IngestRepository {
	return &IngestRepository{db: db}
}

// RecordSource identifies the file line a historical record was read from.
type RecordSource struct {
	File string
	Line int
}

func (r *IngestRepository) UpsertRecord(ctx context.Context, rec domain.HistoricalRecord, src RecordSource) error {
	query := `
		INSERT INTO historical_records (
			company_id, entity_id, entity_type, category_id, kind,
			occurred_on, quantity, unit_cost, unit_revenue, source, line_no
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (company_id, source, line_no)
		DO UPDATE SET
			entity_id = EXCLUDED.entity_id,
			entity_type = EXCLUDED.entity_type,
			category_id = EXCLUDED.category_id,
			kind = EXCLUDED.kind,
			occurred_on = EXCLUDED.occurred_on,
			quantity = EXCLUDED.quantity,
			unit_cost = EXCLUDED.unit_cost,
			unit_revenue = EXCLUDED.unit_revenue
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.CompanyID,
		rec.EntityID,
		string(rec.EntityType),
		rec.CategoryID,
		string(rec.Kind),
		domain.TruncateDay(rec.OccurredOn),
		rec.Quantity,
		rec.UnitCost,
		rec.UnitRevenue,
		src.File,
		src.Line,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s:%d: %w", src.File, src.Line, err)
	}
	return nil
}

func (r *IngestRepository) UpsertStockLevel(ctx context.Context, companyID int64, level domain.StockLevel) error {
	query := `
		INSERT INTO inventory_levels (company_id, ingredient_id, quantity, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (company_id, ingredient_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, companyID, level.IngredientID, level.Quantity); err != nil {
		return fmt.Errorf("failed to upsert stock level for ingredient %d: %w", level.IngredientID, err)
	}
	return nil
}

func (r *IngestRepository) UpsertIngredient(ctx context.Context, companyID, ingredientID int64, name string, unitCost decimal.Decimal) error {
	query := `
		INSERT INTO ingredients (company_id, id, name, unit_cost, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (company_id, id)
		DO UPDATE SET name = EXCLUDED.name, unit_cost = EXCLUDED.unit_cost, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, companyID, ingredientID, name, unitCost); err != nil {
		return fmt.Errorf("failed to upsert ingredient %d: %w", ingredientID, err)
	}
	return nil
}

func (r *IngestRepository) UpsertRecipe(ctx context.Context, companyID int64, snap domain.RecipeCostSnapshot) error {
	query := `
		INSERT INTO recipes (company_id, id, category_id, name, selling_price, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (company_id, id)
		DO UPDATE SET
			category_id = EXCLUDED.category_id,
			name = EXCLUDED.name,
			selling_price = EXCLUDED.selling_price,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, companyID, snap.RecipeID, snap.CategoryID, snap.Name, snap.SellingPrice); err != nil {
		return fmt.Errorf("failed to upsert recipe %d: %w", snap.RecipeID, err)
	}
	return nil
}

func (r *IngestRepository) UpsertRecipeIngredient(ctx context.Context, companyID int64, line domain.RecipeIngredientLine) error {
	query := `
		INSERT INTO recipe_ingredients (company_id, recipe_id, ingredient_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (company_id, recipe_id, ingredient_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, companyID, line.RecipeID, line.IngredientID, line.Quantity); err != nil {
		return fmt.Errorf("failed to upsert recipe %d ingredient %d: %w", line.RecipeID, line.IngredientID, err)
	}
	return nil
}

package repository

import (
	"context"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
)

// RecordRepository reads historical sales, production and usage records.
type RecordRepository interface {
	ListRecords(ctx context.Context, filter domain.AnalyticsFilter, kinds ...domain.RecordKind) ([]domain.HistoricalRecord, error)
}

// InventoryRepository reads current ingredient stock levels.
type InventoryRepository interface {
	ListStockLevels(ctx context.Context, companyID int64, ingredientIDs []int64) ([]domain.StockLevel, error)
}

// RecipeRepository reads the current cost and price of recipes.
type RecipeRepository interface {
	ListCostSnapshots(ctx context.Context, filter domain.AnalyticsFilter) ([]domain.RecipeCostSnapshot, error)
}

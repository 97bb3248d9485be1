package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies what a historical record is about.
type EntityType string

const (
	EntityRecipe     EntityType = "recipe"
	EntityIngredient EntityType = "ingredient"
	EntityCategory   EntityType = "category"
)

// RecordKind identifies the record family a HistoricalRecord belongs to.
type RecordKind string

const (
	RecordSale            RecordKind = "sale"
	RecordProduction      RecordKind = "production"
	RecordIngredientUsage RecordKind = "ingredient_usage"
)

var recordKinds = map[string]RecordKind{
	"sale":             RecordSale,
	"sales":            RecordSale,
	"production":       RecordProduction,
	"ingredient_usage": RecordIngredientUsage,
	"usage":            RecordIngredientUsage,
}

// ParseRecordKind returns the record kind for a label (case-insensitive).
func ParseRecordKind(label string) (RecordKind, bool) {
	kind, ok := recordKinds[strings.ToLower(strings.TrimSpace(label))]
	return kind, ok
}

// ParseEntityType returns the entity type for a label (case-insensitive).
func ParseEntityType(label string) (EntityType, bool) {
	switch EntityType(strings.ToLower(strings.TrimSpace(label))) {
	case EntityRecipe:
		return EntityRecipe, true
	case EntityIngredient:
		return EntityIngredient, true
	case EntityCategory:
		return EntityCategory, true
	}
	return "", false
}

// HistoricalRecord is one observed fact. Records are owned by the persistence
// layer and are read-only to the analytics engine.
type HistoricalRecord struct {
	ID          int64           `json:"id" db:"id"`
	CompanyID   int64           `json:"company_id" db:"company_id"`
	EntityID    int64           `json:"entity_id" db:"entity_id"`
	EntityType  EntityType      `json:"entity_type" db:"entity_type"`
	CategoryID  int64           `json:"category_id,omitempty" db:"category_id"`
	Kind        RecordKind      `json:"kind" db:"kind"`
	OccurredOn  time.Time       `json:"occurred_on" db:"occurred_on"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	UnitRevenue decimal.Decimal `json:"unit_revenue" db:"unit_revenue"`
}

// StockLevel is the current on-hand quantity of an ingredient.
type StockLevel struct {
	IngredientID int64           `json:"ingredient_id" db:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
}

// RecipeIngredientLine is one ingredient of a recipe at its current cost.
type RecipeIngredientLine struct {
	RecipeID     int64           `json:"-" db:"recipe_id"`
	IngredientID int64           `json:"ingredient_id" db:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost" db:"unit_cost"`
}

// RecipeCostSnapshot is the current cost and price of a recipe.
// SellingPrice is invalid when the recipe has no price set.
type RecipeCostSnapshot struct {
	RecipeID     int64                  `json:"recipe_id" db:"id"`
	CategoryID   int64                  `json:"category_id" db:"category_id"`
	Name         string                 `json:"name" db:"name"`
	SellingPrice decimal.NullDecimal    `json:"selling_price" db:"selling_price"`
	Ingredients  []RecipeIngredientLine `json:"ingredients" db:"-"`
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodBucket is a contiguous calendar slot [PeriodStart, PeriodEnd).
type PeriodBucket struct {
	PeriodStart time.Time   `json:"period_start"`
	PeriodEnd   time.Time   `json:"period_end"`
	Granularity Granularity `json:"granularity"`
}

// Days returns the number of calendar days the bucket spans.
func (b PeriodBucket) Days() int {
	return int(b.PeriodEnd.Sub(b.PeriodStart).Hours() / 24)
}

// Contains reports whether t falls inside the bucket.
func (b PeriodBucket) Contains(t time.Time) bool {
	return !t.Before(b.PeriodStart) && t.Before(b.PeriodEnd)
}

// SeriesPoint is a single bucket value.
type SeriesPoint struct {
	Bucket PeriodBucket    `json:"bucket"`
	Value  decimal.Decimal `json:"value"`
}

// Series is an ordered, gapless sequence of bucket values for one entity.
type Series struct {
	EntityID    int64         `json:"entity_id"`
	Granularity Granularity   `json:"granularity"`
	Points      []SeriesPoint `json:"points"`
}

// Values returns the point values in bucket order.
func (s Series) Values() []decimal.Decimal {
	values := make([]decimal.Decimal, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// TrendDirection is the sign of a fitted slope.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// Confidence is a coarse reliability label on a forecast.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ForecastBasis describes the historical window a forecast was fitted on.
type ForecastBasis struct {
	Start          time.Time   `json:"start"`
	End            time.Time   `json:"end"`
	Granularity    Granularity `json:"granularity"`
	Buckets        int         `json:"buckets"`
	NonZeroBuckets int         `json:"non_zero_buckets"`
}

// ForecastResult is a forward projection for one entity. ProjectedValue is the
// per-bucket estimate at the horizon; ProjectedTotal is the expected amount
// across all horizon buckets.
type ForecastResult struct {
	EntityID       int64           `json:"entity_id"`
	EntityType     EntityType      `json:"entity_type"`
	ProjectedValue decimal.Decimal `json:"projected_value"`
	ProjectedTotal decimal.Decimal `json:"projected_total"`
	HorizonBuckets int             `json:"horizon_buckets"`
	HorizonDays    int             `json:"horizon_days"`
	Slope          decimal.Decimal `json:"slope"`
	TrendDirection TrendDirection  `json:"trend_direction"`
	Confidence     Confidence      `json:"confidence"`
	Basis          ForecastBasis   `json:"basis"`
}

// ReorderReasonLowStock is the reason code of every reorder suggestion.
const ReorderReasonLowStock = "low_stock_relative_to_forecast"

// ReorderSuggestion recommends replenishing an ingredient before it runs out.
type ReorderSuggestion struct {
	IngredientID          int64           `json:"ingredient_id"`
	RecommendedQuantity   decimal.Decimal `json:"recommended_quantity"`
	RecommendedByDate     time.Time       `json:"recommended_by_date"`
	Reason                string          `json:"reason"`
	ProjectedStockoutDate time.Time       `json:"projected_stockout_date"`
	CurrentStock          decimal.Decimal `json:"current_stock"`
	DailyUsageRate        decimal.Decimal `json:"daily_usage_rate"`
	DaysUntilStockout     decimal.Decimal `json:"days_until_stockout"`
}

// ProfitabilityMetric holds cost and margin figures for one recipe. The
// percentages and margin are invalid when the recipe has no positive price.
type ProfitabilityMetric struct {
	RecipeID            int64               `json:"recipe_id"`
	CategoryID          int64               `json:"category_id"`
	Name                string              `json:"name"`
	FoodCostPercent     decimal.NullDecimal `json:"food_cost_percent"`
	MarginAmount        decimal.NullDecimal `json:"margin_amount"`
	MarginPercent       decimal.NullDecimal `json:"margin_percent"`
	SellingPrice        decimal.NullDecimal `json:"selling_price"`
	TotalIngredientCost decimal.Decimal     `json:"total_ingredient_cost"`
	UnitsSold           decimal.Decimal     `json:"units_sold"`
	Revenue             decimal.Decimal     `json:"revenue"`
}

// CategoryProfitability aggregates recipe profitability per category.
type CategoryProfitability struct {
	CategoryID              int64               `json:"category_id"`
	RecipeCount             int                 `json:"recipe_count"`
	PricedRecipeCount       int                 `json:"priced_recipe_count"`
	TotalIngredientCost     decimal.Decimal     `json:"total_ingredient_cost"`
	TotalCostOfSales        decimal.Decimal     `json:"total_cost_of_sales"`
	TotalRevenue            decimal.Decimal     `json:"total_revenue"`
	WeightedMarginPercent   decimal.NullDecimal `json:"weighted_margin_percent"`
	WeightedFoodCostPercent decimal.NullDecimal `json:"weighted_food_cost_percent"`
}

// TrendPoint is one bucket of a trend series. PercentChangeFromPrevious is
// invalid for the first point and whenever the previous value was zero.
type TrendPoint struct {
	Bucket                    PeriodBucket        `json:"bucket"`
	Value                     decimal.Decimal     `json:"value"`
	PercentChangeFromPrevious decimal.NullDecimal `json:"percent_change_from_previous"`
}

// SeasonalPattern is the average value at one cyclical position.
type SeasonalPattern struct {
	Cycle         Cycle               `json:"cycle"`
	CyclePosition string              `json:"cycle_position"`
	AverageValue  decimal.Decimal     `json:"average_value"`
	SampleSize    int                 `json:"sample_size"`
	Reliable      bool                `json:"reliable"`
	SeasonalIndex decimal.NullDecimal `json:"seasonal_index"`
}

// YoYPoint aligns one month of the current window with the prior year.
type YoYPoint struct {
	Position      int                 `json:"position"`
	CurrentPeriod DateRange           `json:"current_period"`
	PriorPeriod   DateRange           `json:"prior_period"`
	CurrentValue  decimal.Decimal     `json:"current_value"`
	PriorValue    decimal.Decimal     `json:"prior_value"`
	PercentChange decimal.NullDecimal `json:"percent_change"`
}

// YoYComparison compares a metric over a year window with the year before.
type YoYComparison struct {
	Metric        Metric              `json:"metric"`
	CurrentPeriod DateRange           `json:"current_period"`
	PriorPeriod   DateRange           `json:"prior_period"`
	CurrentValue  decimal.Decimal     `json:"current_value"`
	PriorValue    decimal.Decimal     `json:"prior_value"`
	PercentChange decimal.NullDecimal `json:"percent_change"`
	Points        []YoYPoint          `json:"points"`
}

package analytics

import (
	"testing"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usageForecast(ingredientID int64, total string, horizonDays int) domain.ForecastResult {
	return domain.ForecastResult{
		EntityID:       ingredientID,
		EntityType:     domain.EntityIngredient,
		ProjectedTotal: dec(total),
		HorizonDays:    horizonDays,
	}
}

func TestReorderStockoutWithinLookahead(t *testing.T) {
	advisor := NewReorderAdvisor(DefaultOptions())
	asOf := day(t, "2024-03-01")

	out := advisor.Generate(
		[]domain.ForecastResult{usageForecast(1, "70", 7)},
		map[int64]decimal.Decimal{1: dec("20")},
		7, asOf,
	)
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, int64(1), s.IngredientID)
	assertDecimal(t, "10", s.DailyUsageRate)
	assertDecimal(t, "2", s.DaysUntilStockout)
	assert.Equal(t, day(t, "2024-03-03"), s.ProjectedStockoutDate)
	assert.Equal(t, day(t, "2024-03-03"), s.RecommendedByDate)
	assert.Equal(t, "low_stock_relative_to_forecast", s.Reason)
	// covers 7 lookahead days plus one 7-day safety cycle, minus stock on hand
	assertDecimal(t, "120", s.RecommendedQuantity)
	assertDecimal(t, "20", s.CurrentStock)
}

func TestReorderThresholdIsInclusive(t *testing.T) {
	advisor := NewReorderAdvisor(DefaultOptions())
	asOf := day(t, "2024-03-01")
	forecasts := []domain.ForecastResult{usageForecast(1, "70", 7), usageForecast(2, "70", 7)}

	out := advisor.Generate(forecasts, map[int64]decimal.Decimal{
		1: dec("70"),
		2: dec("70.5"),
	}, 7, asOf)

	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].IngredientID)
	assertDecimal(t, "7", out[0].DaysUntilStockout)
	assert.Equal(t, day(t, "2024-03-08"), out[0].ProjectedStockoutDate)
}

func TestReorderThresholdIsInclusiveForUnevenRates(t *testing.T) {
	advisor := NewReorderAdvisor(DefaultOptions())
	asOf := day(t, "2024-03-01")

	out := advisor.Generate([]domain.ForecastResult{
		usageForecast(1, "1", 3),
		usageForecast(2, "10", 7),
		usageForecast(3, "1", 3),
	}, map[int64]decimal.Decimal{
		1: dec("1"),
		2: dec("10"),
		3: dec("1.01"),
	}, 3, asOf)

	// 1 unit over 3 days runs out on day 3, 10 over 7 days on day 7
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].IngredientID)
	assertDecimal(t, "3", out[0].DaysUntilStockout)
	assert.Equal(t, day(t, "2024-03-04"), out[0].ProjectedStockoutDate)

	out = advisor.Generate([]domain.ForecastResult{usageForecast(2, "10", 7)},
		map[int64]decimal.Decimal{2: dec("10")}, 7, asOf)
	require.Len(t, out, 1)
	assertDecimal(t, "7", out[0].DaysUntilStockout)
	assert.Equal(t, day(t, "2024-03-08"), out[0].ProjectedStockoutDate)
}

func TestReorderSkipsZeroUsage(t *testing.T) {
	advisor := NewReorderAdvisor(DefaultOptions())

	out := advisor.Generate([]domain.ForecastResult{
		usageForecast(1, "0", 7),
		usageForecast(2, "10", 0),
	}, nil, 30, day(t, "2024-03-01"))
	assert.Empty(t, out)
}

func TestReorderMissingStockIsZero(t *testing.T) {
	advisor := NewReorderAdvisor(DefaultOptions())
	asOf := day(t, "2024-03-01")

	out := advisor.Generate([]domain.ForecastResult{usageForecast(4, "14", 7)}, nil, 3, asOf)
	require.Len(t, out, 1)
	assert.True(t, out[0].DaysUntilStockout.IsZero())
	assert.Equal(t, asOf, out[0].ProjectedStockoutDate)
	// 2/day over 3 + 7 days
	assertDecimal(t, "20", out[0].RecommendedQuantity)
}

func TestReorderRanksBySoonestStockout(t *testing.T) {
	advisor := NewReorderAdvisor(DefaultOptions())

	out := advisor.Generate([]domain.ForecastResult{
		usageForecast(1, "7", 7),
		usageForecast(2, "7", 7),
		usageForecast(3, "7", 7),
	}, map[int64]decimal.Decimal{
		1: dec("5"),
		2: dec("1"),
		3: dec("1"),
	}, 10, day(t, "2024-03-01"))

	require.Len(t, out, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{out[0].IngredientID, out[1].IngredientID, out[2].IngredientID})
}

func TestReorderLeadTimeNeverBeforeAsOf(t *testing.T) {
	opts := DefaultOptions()
	opts.LeadTimeDays = 5
	advisor := NewReorderAdvisor(opts)
	asOf := day(t, "2024-03-01")

	out := advisor.Generate([]domain.ForecastResult{
		usageForecast(1, "70", 7),
		usageForecast(2, "7", 7),
	}, map[int64]decimal.Decimal{
		1: dec("20"),
		2: dec("9"),
	}, 14, asOf)

	require.Len(t, out, 2)
	assert.Equal(t, asOf, out[0].RecommendedByDate)
	assert.Equal(t, day(t, "2024-03-10"), out[1].ProjectedStockoutDate)
	assert.Equal(t, day(t, "2024-03-05"), out[1].RecommendedByDate)
}

func TestReorderQuantityNeverNegative(t *testing.T) {
	opts := DefaultOptions()
	opts.SafetyCycles = 0
	advisor := NewReorderAdvisor(opts)

	out := advisor.Generate([]domain.ForecastResult{usageForecast(1, "70", 7)},
		map[int64]decimal.Decimal{1: dec("70")}, 7, day(t, "2024-03-01"))
	require.Len(t, out, 1)
	assert.True(t, out[0].RecommendedQuantity.IsZero())
}

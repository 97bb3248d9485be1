package analytics

import (
	"sort"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// CalculateRecipeProfitability computes cost and margin figures for every
// snapshot that passes the filter's recipe and category allow-lists. Units sold
// and revenue come from recipe sale records inside the filter's date range.
// Recipes without a positive selling price get null percentages and margin.
// Results are ordered by recipe ID.
func CalculateRecipeProfitability(snapshots []domain.RecipeCostSnapshot, sales []domain.HistoricalRecord, filter domain.AnalyticsFilter) []domain.ProfitabilityMetric {
	allow := idSet(filter.RecipeIDs)
	window := filter.Range()

	units := make(map[int64]decimal.Decimal)
	revenue := make(map[int64]decimal.Decimal)
	for _, rec := range sales {
		if rec.Kind != domain.RecordSale || rec.EntityType != domain.EntityRecipe {
			continue
		}
		if !window.Contains(rec.OccurredOn) {
			continue
		}
		units[rec.EntityID] = units[rec.EntityID].Add(rec.Quantity)
		revenue[rec.EntityID] = revenue[rec.EntityID].Add(rec.Quantity.Mul(rec.UnitRevenue))
	}

	metrics := make([]domain.ProfitabilityMetric, 0, len(snapshots))
	for _, snap := range snapshots {
		if allow != nil && !allow[snap.RecipeID] {
			continue
		}
		if filter.CategoryID != nil && snap.CategoryID != *filter.CategoryID {
			continue
		}
		m := recipeMetric(snap)
		m.UnitsSold = units[snap.RecipeID]
		m.Revenue = revenue[snap.RecipeID]
		metrics = append(metrics, m)
	}

	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].RecipeID < metrics[j].RecipeID
	})
	return metrics
}

func recipeMetric(snap domain.RecipeCostSnapshot) domain.ProfitabilityMetric {
	cost := decimal.Zero
	for _, line := range snap.Ingredients {
		cost = cost.Add(line.Quantity.Mul(line.UnitCost))
	}

	m := domain.ProfitabilityMetric{
		RecipeID:            snap.RecipeID,
		CategoryID:          snap.CategoryID,
		Name:                snap.Name,
		SellingPrice:        snap.SellingPrice,
		TotalIngredientCost: cost,
		UnitsSold:           decimal.Zero,
		Revenue:             decimal.Zero,
	}

	price, ok := positivePrice(snap.SellingPrice)
	if !ok {
		return m
	}
	margin := price.Sub(cost)
	m.FoodCostPercent = percentOf(cost, price)
	m.MarginAmount = decimal.NewNullDecimal(margin)
	m.MarginPercent = percentOf(margin, price)
	return m
}

func positivePrice(price decimal.NullDecimal) (decimal.Decimal, bool) {
	if !price.Valid || !price.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return price.Decimal, true
}

// percentOf returns part / whole × 100, or null when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.NullDecimal {
	if whole.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(part.Div(whole).Mul(hundred))
}

// CalculateCategoryProfitability aggregates recipe profitability by category.
// Margin and food cost percentages are weighted by units sold in the range, so
// a best seller moves the category figure more than a recipe nobody orders.
// When no priced recipe of a category sold anything, each priced recipe weighs
// one unit. Categories are ordered by ID.
func CalculateCategoryProfitability(snapshots []domain.RecipeCostSnapshot, sales []domain.HistoricalRecord, filter domain.AnalyticsFilter) []domain.CategoryProfitability {
	return aggregateCategories(CalculateRecipeProfitability(snapshots, sales, filter))
}

type categoryAccumulator struct {
	summary domain.CategoryProfitability
	priced  []domain.ProfitabilityMetric
}

func aggregateCategories(metrics []domain.ProfitabilityMetric) []domain.CategoryProfitability {
	byCategory := make(map[int64]*categoryAccumulator)
	order := make([]int64, 0)

	for _, m := range metrics {
		acc, ok := byCategory[m.CategoryID]
		if !ok {
			acc = &categoryAccumulator{summary: domain.CategoryProfitability{
				CategoryID:          m.CategoryID,
				TotalIngredientCost: decimal.Zero,
				TotalCostOfSales:    decimal.Zero,
				TotalRevenue:        decimal.Zero,
			}}
			byCategory[m.CategoryID] = acc
			order = append(order, m.CategoryID)
		}
		acc.summary.RecipeCount++
		acc.summary.TotalIngredientCost = acc.summary.TotalIngredientCost.Add(m.TotalIngredientCost)
		acc.summary.TotalCostOfSales = acc.summary.TotalCostOfSales.Add(m.TotalIngredientCost.Mul(m.UnitsSold))
		acc.summary.TotalRevenue = acc.summary.TotalRevenue.Add(m.Revenue)
		if m.MarginAmount.Valid {
			acc.summary.PricedRecipeCount++
			acc.priced = append(acc.priced, m)
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]domain.CategoryProfitability, 0, len(order))
	for _, id := range order {
		acc := byCategory[id]
		acc.summary.WeightedMarginPercent, acc.summary.WeightedFoodCostPercent = weightedPercents(acc.priced)
		out = append(out, acc.summary)
	}
	return out
}

func weightedPercents(priced []domain.ProfitabilityMetric) (margin, foodCost decimal.NullDecimal) {
	anySold := false
	for _, m := range priced {
		if m.UnitsSold.IsPositive() {
			anySold = true
			break
		}
	}

	marginSum := decimal.Zero
	costSum := decimal.Zero
	priceSum := decimal.Zero
	for _, m := range priced {
		weight := decimal.NewFromInt(1)
		if anySold {
			weight = m.UnitsSold
			if weight.IsNegative() {
				weight = decimal.Zero
			}
		}
		marginSum = marginSum.Add(m.MarginAmount.Decimal.Mul(weight))
		costSum = costSum.Add(m.TotalIngredientCost.Mul(weight))
		priceSum = priceSum.Add(m.SellingPrice.Decimal.Mul(weight))
	}

	return percentOf(marginSum, priceSum), percentOf(costSum, priceSum)
}

// TopPerformingRecipes returns up to limit recipes with the highest margin
// amount. Recipes without a price are left out; ties go to the recipe that sold
// more, then to the lower ID.
func TopPerformingRecipes(snapshots []domain.RecipeCostSnapshot, sales []domain.HistoricalRecord, filter domain.AnalyticsFilter, limit int) ([]domain.ProfitabilityMetric, error) {
	if limit <= 0 {
		return nil, invalidRange("limit must be positive, got %d", limit)
	}

	ranked := make([]domain.ProfitabilityMetric, 0)
	for _, m := range CalculateRecipeProfitability(snapshots, sales, filter) {
		if m.MarginAmount.Valid {
			ranked = append(ranked, m)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if !a.MarginAmount.Decimal.Equal(b.MarginAmount.Decimal) {
			return a.MarginAmount.Decimal.GreaterThan(b.MarginAmount.Decimal)
		}
		if !a.UnitsSold.Equal(b.UnitsSold) {
			return a.UnitsSold.GreaterThan(b.UnitsSold)
		}
		return a.RecipeID < b.RecipeID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// RecipesNeedingAttention returns recipes whose food cost percent exceeds
// maxFoodCostPercent, plus every recipe whose food cost is undefined because it
// has no price. Unpriced recipes come first, then the worst food cost.
func RecipesNeedingAttention(snapshots []domain.RecipeCostSnapshot, sales []domain.HistoricalRecord, filter domain.AnalyticsFilter, maxFoodCostPercent decimal.Decimal) []domain.ProfitabilityMetric {
	flagged := make([]domain.ProfitabilityMetric, 0)
	for _, m := range CalculateRecipeProfitability(snapshots, sales, filter) {
		if !m.FoodCostPercent.Valid || m.FoodCostPercent.Decimal.GreaterThan(maxFoodCostPercent) {
			flagged = append(flagged, m)
		}
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		a, b := flagged[i].FoodCostPercent, flagged[j].FoodCostPercent
		if a.Valid != b.Valid {
			return !a.Valid
		}
		if a.Valid && !a.Decimal.Equal(b.Decimal) {
			return a.Decimal.GreaterThan(b.Decimal)
		}
		return flagged[i].RecipeID < flagged[j].RecipeID
	})
	return flagged
}

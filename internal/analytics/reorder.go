package analytics

import (
	"sort"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// ReorderAdvisor turns ingredient usage forecasts and stock levels into
// reorder suggestions.
type ReorderAdvisor struct {
	safetyCycles int
	leadTimeDays int
}

// NewReorderAdvisor creates an advisor from the engine options.
func NewReorderAdvisor(opts Options) *ReorderAdvisor {
	opts = opts.withDefaults()
	return &ReorderAdvisor{
		safetyCycles: opts.SafetyCycles,
		leadTimeDays: opts.LeadTimeDays,
	}
}

// Generate returns a suggestion for every ingredient projected to run out
// within maxDaysLookahead days of asOf (inclusive), soonest stockout first.
// Ingredients with no usage are skipped. An ingredient missing from stock is
// treated as having none on hand.
func (a *ReorderAdvisor) Generate(forecasts []domain.ForecastResult, stock map[int64]decimal.Decimal, maxDaysLookahead int, asOf time.Time) []domain.ReorderSuggestion {
	suggestions := make([]domain.ReorderSuggestion, 0)
	if maxDaysLookahead < 0 {
		return suggestions
	}

	today := domain.TruncateDay(asOf)
	lookahead := decimal.NewFromInt(int64(maxDaysLookahead))

	for _, fc := range forecasts {
		if fc.HorizonDays <= 0 || !fc.ProjectedTotal.IsPositive() {
			continue
		}
		horizon := decimal.NewFromInt(int64(fc.HorizonDays))
		rate := fc.ProjectedTotal.Div(horizon)

		onHand := stock[fc.EntityID]
		available := onHand
		if available.IsNegative() {
			available = decimal.Zero
		}

		// available*horizon <= lookahead*total is exact, so a stockout on the
		// last lookahead day is not lost to division rounding.
		usedInHorizon := available.Mul(horizon)
		if usedInHorizon.GreaterThan(lookahead.Mul(fc.ProjectedTotal)) {
			continue
		}
		days := usedInHorizon.Div(fc.ProjectedTotal)

		coverDays := lookahead.Add(horizon.Mul(decimal.NewFromInt(int64(a.safetyCycles))))
		quantity := fc.ProjectedTotal.Mul(coverDays).Div(horizon).Sub(available)
		if quantity.IsNegative() {
			quantity = decimal.Zero
		}

		stockout := today.AddDate(0, 0, int(days.Floor().IntPart()))
		orderBy := stockout.AddDate(0, 0, -a.leadTimeDays)
		if orderBy.Before(today) {
			orderBy = today
		}

		suggestions = append(suggestions, domain.ReorderSuggestion{
			IngredientID:          fc.EntityID,
			RecommendedQuantity:   quantity,
			RecommendedByDate:     orderBy,
			Reason:                domain.ReorderReasonLowStock,
			ProjectedStockoutDate: stockout,
			CurrentStock:          onHand,
			DailyUsageRate:        rate,
			DaysUntilStockout:     days,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if !a.DaysUntilStockout.Equal(b.DaysUntilStockout) {
			return a.DaysUntilStockout.LessThan(b.DaysUntilStockout)
		}
		return a.IngredientID < b.IngredientID
	})

	return suggestions
}

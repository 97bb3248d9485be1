package analytics

import (
	"testing"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// dailySeries builds a daily series starting 2024-01-01 with the given values.
func dailySeries(t *testing.T, entityID int64, values ...int64) domain.Series {
	t.Helper()
	start := day(t, "2024-01-01")
	points := make([]domain.SeriesPoint, len(values))
	for i, v := range values {
		points[i] = domain.SeriesPoint{
			Bucket: domain.PeriodBucket{
				PeriodStart: start.AddDate(0, 0, i),
				PeriodEnd:   start.AddDate(0, 0, i+1),
				Granularity: domain.GranularityDaily,
			},
			Value: decimal.NewFromInt(v),
		}
	}
	return domain.Series{EntityID: entityID, Granularity: domain.GranularityDaily, Points: points}
}

func usage(t *testing.T, ingredientID int64, on string, qty string) domain.HistoricalRecord {
	t.Helper()
	return domain.HistoricalRecord{
		CompanyID:  1,
		EntityID:   ingredientID,
		EntityType: domain.EntityIngredient,
		Kind:       domain.RecordIngredientUsage,
		OccurredOn: day(t, on),
		Quantity:   dec(qty),
		UnitCost:   dec("1"),
	}
}

func sale(t *testing.T, recipeID int64, on string, qty, unitRevenue string) domain.HistoricalRecord {
	t.Helper()
	return domain.HistoricalRecord{
		CompanyID:   1,
		EntityID:    recipeID,
		EntityType:  domain.EntityRecipe,
		Kind:        domain.RecordSale,
		OccurredOn:  day(t, on),
		Quantity:    dec(qty),
		UnitRevenue: dec(unitRevenue),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

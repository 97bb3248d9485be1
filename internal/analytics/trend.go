package analytics

import (
	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// AnalyzeRevenueTrends buckets recipe sales revenue over the filter range.
func AnalyzeRevenueTrends(records []domain.HistoricalRecord, filter domain.AnalyticsFilter) ([]domain.TrendPoint, error) {
	selected := selectRecords(records, filter, domain.EntityRecipe, domain.RecordSale)
	return analyzeTrend(selected, filter, RevenueValue)
}

// AnalyzeProductionTrends buckets produced recipe quantities over the filter
// range.
func AnalyzeProductionTrends(records []domain.HistoricalRecord, filter domain.AnalyticsFilter) ([]domain.TrendPoint, error) {
	selected := selectRecords(records, filter, domain.EntityRecipe, domain.RecordProduction)
	return analyzeTrend(selected, filter, QuantityValue)
}

// AnalyzeIngredientCostTrends buckets ingredient usage cost over the filter
// range.
func AnalyzeIngredientCostTrends(records []domain.HistoricalRecord, filter domain.AnalyticsFilter) ([]domain.TrendPoint, error) {
	selected := selectRecords(records, filter, domain.EntityIngredient, domain.RecordIngredientUsage)
	return analyzeTrend(selected, filter, CostValue)
}

func analyzeTrend(records []domain.HistoricalRecord, filter domain.AnalyticsFilter, selector ValueSelector) ([]domain.TrendPoint, error) {
	if filter.Granularity == "" {
		return nil, invalidRange("granularity is required for trend analysis")
	}
	buckets, err := BuildBuckets(filter.StartDate, filter.EndDate, filter.Granularity)
	if err != nil {
		return nil, err
	}
	series, err := BuildSeries(0, records, buckets, selector)
	if err != nil {
		return nil, err
	}
	return TrendPoints(series), nil
}

// TrendPoints annotates each point with its percent change from the previous
// point. The change is null for the first point and after a zero.
func TrendPoints(series domain.Series) []domain.TrendPoint {
	points := make([]domain.TrendPoint, len(series.Points))
	for i, p := range series.Points {
		points[i] = domain.TrendPoint{Bucket: p.Bucket, Value: p.Value}
		if i > 0 {
			points[i].PercentChangeFromPrevious = percentChange(series.Points[i-1].Value, p.Value)
		}
	}
	return points
}

// percentChange returns (current - previous) / previous × 100, or null when
// previous is zero.
func percentChange(previous, current decimal.Decimal) decimal.NullDecimal {
	if previous.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(current.Sub(previous).Div(previous).Mul(hundred))
}

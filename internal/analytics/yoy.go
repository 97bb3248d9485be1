package analytics

import (
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// CompareYearOverYear compares filter.Metric over calendar year filter.Year
// with the same window one year earlier. A year still in progress at asOf is
// cut at asOf, and the prior window is cut at the same day. Missing prior data
// is not an error: the prior value is zero and the percent change is null.
func CompareYearOverYear(records []domain.HistoricalRecord, filter domain.AnalyticsFilter, asOf time.Time) (domain.YoYComparison, error) {
	selected, selector, err := metricRecords(records, filter, filter.Metric)
	if err != nil {
		return domain.YoYComparison{}, err
	}

	current, err := yearWindow(filter.Year, asOf)
	if err != nil {
		return domain.YoYComparison{}, err
	}
	prior := domain.DateRange{Start: sameDayLastYear(current.Start), End: sameDayLastYear(current.End)}

	currentSeries, err := monthlySeries(selected, current, selector)
	if err != nil {
		return domain.YoYComparison{}, err
	}
	priorSeries, err := monthlySeries(selected, prior, selector)
	if err != nil {
		return domain.YoYComparison{}, err
	}

	n := len(currentSeries.Points)
	if len(priorSeries.Points) < n {
		n = len(priorSeries.Points)
	}

	cmp := domain.YoYComparison{
		Metric:        filter.Metric,
		CurrentPeriod: current,
		PriorPeriod:   prior,
		CurrentValue:  decimal.Sum(decimal.Zero, currentSeries.Values()...),
		PriorValue:    decimal.Sum(decimal.Zero, priorSeries.Values()...),
		Points:        make([]domain.YoYPoint, 0, n),
	}
	cmp.PercentChange = percentChange(cmp.PriorValue, cmp.CurrentValue)

	for i := 0; i < n; i++ {
		cur, pri := currentSeries.Points[i], priorSeries.Points[i]
		cmp.Points = append(cmp.Points, domain.YoYPoint{
			Position:      i + 1,
			CurrentPeriod: bucketRange(cur.Bucket),
			PriorPeriod:   bucketRange(pri.Bucket),
			CurrentValue:  cur.Value,
			PriorValue:    pri.Value,
			PercentChange: percentChange(pri.Value, cur.Value),
		})
	}

	return cmp, nil
}

// metricRecords narrows records to the family a metric is computed from.
func metricRecords(records []domain.HistoricalRecord, filter domain.AnalyticsFilter, metric domain.Metric) ([]domain.HistoricalRecord, ValueSelector, error) {
	switch metric {
	case domain.MetricRevenue:
		return selectRecords(records, filter, domain.EntityRecipe, domain.RecordSale), RevenueValue, nil
	case domain.MetricSalesQuantity:
		return selectRecords(records, filter, domain.EntityRecipe, domain.RecordSale), QuantityValue, nil
	case domain.MetricProduction:
		return selectRecords(records, filter, domain.EntityRecipe, domain.RecordProduction), QuantityValue, nil
	case domain.MetricIngredientCost:
		return selectRecords(records, filter, domain.EntityIngredient, domain.RecordIngredientUsage), CostValue, nil
	case "":
		return nil, nil, invalidRange("metric is required")
	default:
		return nil, nil, invalidRange("unknown metric %q", metric)
	}
}

func yearWindow(year int, asOf time.Time) (domain.DateRange, error) {
	if year <= 0 {
		return domain.DateRange{}, invalidRange("year is required")
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	if !asOf.IsZero() {
		today := domain.TruncateDay(asOf)
		if today.Before(start) {
			return domain.DateRange{}, invalidRange("year %d has not started as of %s", year, today.Format(dateLayout))
		}
		if today.Before(end) {
			end = today
		}
	}
	return domain.DateRange{Start: start, End: end}, nil
}

// sameDayLastYear shifts t back one year; February 29 becomes February 28.
func sameDayLastYear(t time.Time) time.Time {
	day := t.Day()
	if t.Month() == time.February && day == 29 {
		day = 28
	}
	return time.Date(t.Year()-1, t.Month(), day, 0, 0, 0, 0, time.UTC)
}

func monthlySeries(records []domain.HistoricalRecord, window domain.DateRange, selector ValueSelector) (domain.Series, error) {
	buckets, err := BuildBuckets(window.Start, window.End, domain.GranularityMonthly)
	if err != nil {
		return domain.Series{}, err
	}
	return BuildSeries(0, records, buckets, selector)
}

func bucketRange(b domain.PeriodBucket) domain.DateRange {
	return domain.DateRange{Start: b.PeriodStart, End: b.PeriodEnd.AddDate(0, 0, -1)}
}

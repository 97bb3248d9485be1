package analytics

import (
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// DetectSeasonalPatterns averages recipe sale quantities by cyclical position.
// Day of week needs at least seven days in the range and month of year at
// least twelve months; a cycle without that much history yields no patterns.
// With no cycles given, both are evaluated. Patterns are ordered Monday to
// Sunday, then January to December.
func DetectSeasonalPatterns(records []domain.HistoricalRecord, filter domain.AnalyticsFilter, cycles []domain.Cycle, minSamples int) ([]domain.SeasonalPattern, error) {
	if len(cycles) == 0 {
		cycles = []domain.Cycle{domain.CycleDayOfWeek, domain.CycleMonthOfYear}
	}
	want := make(map[domain.Cycle]bool, len(cycles))
	for _, c := range cycles {
		switch c {
		case domain.CycleDayOfWeek, domain.CycleMonthOfYear:
			want[c] = true
		default:
			return nil, invalidRange("unknown seasonality cycle %q", c)
		}
	}

	// validates the range once for both cycles
	days, err := BuildBuckets(filter.StartDate, filter.EndDate, domain.GranularityDaily)
	if err != nil {
		return nil, err
	}

	selected := selectRecords(records, filter, domain.EntityRecipe, domain.RecordSale)
	patterns := make([]domain.SeasonalPattern, 0)

	if want[domain.CycleDayOfWeek] && len(days) >= 7 {
		series, err := BuildSeries(0, selected, days, QuantityValue)
		if err != nil {
			return nil, err
		}
		groups := make(map[string][]decimal.Decimal, 7)
		for _, p := range series.Points {
			key := p.Bucket.PeriodStart.Weekday().String()
			groups[key] = append(groups[key], p.Value)
		}
		order := make([]string, len(weekdayOrder))
		for i, d := range weekdayOrder {
			order[i] = d.String()
		}
		patterns = append(patterns, seasonalPatterns(domain.CycleDayOfWeek, order, groups, series.Values(), minSamples)...)
	}

	from := days[0].PeriodStart
	to := days[len(days)-1].PeriodEnd
	if want[domain.CycleMonthOfYear] && !from.AddDate(0, 12, 0).After(to) {
		months, err := BuildBuckets(filter.StartDate, filter.EndDate, domain.GranularityMonthly)
		if err != nil {
			return nil, err
		}
		series, err := BuildSeries(0, selected, months, QuantityValue)
		if err != nil {
			return nil, err
		}
		groups := make(map[string][]decimal.Decimal, 12)
		for _, p := range series.Points {
			key := p.Bucket.PeriodStart.Month().String()
			groups[key] = append(groups[key], p.Value)
		}
		order := make([]string, 12)
		for m := time.January; m <= time.December; m++ {
			order[m-1] = m.String()
		}
		patterns = append(patterns, seasonalPatterns(domain.CycleMonthOfYear, order, groups, series.Values(), minSamples)...)
	}

	return patterns, nil
}

func seasonalPatterns(cycle domain.Cycle, order []string, groups map[string][]decimal.Decimal, all []decimal.Decimal, minSamples int) []domain.SeasonalPattern {
	overall := mean(all)
	patterns := make([]domain.SeasonalPattern, 0, len(order))
	for _, position := range order {
		samples := groups[position]
		if len(samples) == 0 {
			continue
		}
		avg := mean(samples)
		pattern := domain.SeasonalPattern{
			Cycle:         cycle,
			CyclePosition: position,
			AverageValue:  avg,
			SampleSize:    len(samples),
			Reliable:      len(samples) >= minSamples,
		}
		if !overall.IsZero() {
			pattern.SeasonalIndex = decimal.NewNullDecimal(avg.Div(overall))
		}
		patterns = append(patterns, pattern)
	}
	return patterns
}

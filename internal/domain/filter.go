package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Granularity is the calendar cadence of a bucketed series.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// ParseGranularity returns the granularity for a label (case-insensitive).
func ParseGranularity(label string) (Granularity, bool) {
	switch Granularity(strings.ToLower(strings.TrimSpace(label))) {
	case GranularityDaily:
		return GranularityDaily, true
	case GranularityWeekly:
		return GranularityWeekly, true
	case GranularityMonthly:
		return GranularityMonthly, true
	}
	return "", false
}

// ForecastType selects which entities a forecast request projects.
type ForecastType string

const (
	ForecastIngredients ForecastType = "ingredients"
	ForecastRecipes     ForecastType = "recipes"
)

// Metric names a value series used by year-over-year comparisons.
type Metric string

const (
	MetricRevenue        Metric = "revenue"
	MetricProduction     Metric = "production"
	MetricIngredientCost Metric = "ingredient_cost"
	MetricSalesQuantity  Metric = "sales_quantity"
)

// ParseMetric returns the metric for a label (case-insensitive).
func ParseMetric(label string) (Metric, bool) {
	switch Metric(strings.ToLower(strings.TrimSpace(label))) {
	case MetricRevenue:
		return MetricRevenue, true
	case MetricProduction:
		return MetricProduction, true
	case MetricIngredientCost:
		return MetricIngredientCost, true
	case MetricSalesQuantity:
		return MetricSalesQuantity, true
	}
	return "", false
}

// Cycle is a recurring calendar period used for seasonality.
type Cycle string

const (
	CycleDayOfWeek   Cycle = "day_of_week"
	CycleMonthOfYear Cycle = "month_of_year"
)

// AnalyticsFilter is the uniform filter accepted by every analytics request.
// It arrives already authorized and scoped to CompanyID.
type AnalyticsFilter struct {
	CompanyID          int64               `json:"company_id"`
	StartDate          time.Time           `json:"start_date"`
	EndDate            time.Time           `json:"end_date"`
	RecipeIDs          []int64             `json:"recipe_ids,omitempty"`
	IngredientIDs      []int64             `json:"ingredient_ids,omitempty"`
	CategoryID         *int64              `json:"category_id,omitempty"`
	Granularity        Granularity         `json:"granularity,omitempty"`
	HorizonBuckets     int                 `json:"horizon,omitempty"`
	ForecastType       ForecastType        `json:"forecast_type,omitempty"`
	MaxDaysLookahead   int                 `json:"max_days_lookahead,omitempty"`
	Limit              int                 `json:"limit,omitempty"`
	MaxFoodCostPercent decimal.NullDecimal `json:"max_food_cost_percent"`
	Year               int                 `json:"year,omitempty"`
	Metric             Metric              `json:"metric,omitempty"`
	Cycles             []Cycle             `json:"cycles,omitempty"`
}

// DateRange is an inclusive pair of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls on a day inside the range.
// A zero range contains everything.
func (r DateRange) Contains(t time.Time) bool {
	if r.Start.IsZero() && r.End.IsZero() {
		return true
	}
	day := TruncateDay(t)
	if !r.Start.IsZero() && day.Before(TruncateDay(r.Start)) {
		return false
	}
	if !r.End.IsZero() && day.After(TruncateDay(r.End)) {
		return false
	}
	return true
}

// Range returns the filter's date range.
func (f AnalyticsFilter) Range() DateRange {
	return DateRange{Start: f.StartDate, End: f.EndDate}
}

// TruncateDay returns midnight UTC of t's calendar date.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

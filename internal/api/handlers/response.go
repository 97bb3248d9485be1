package handlers

import (
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/analytics"
	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Money is rounded to cents and ratios to four places only here, at the edge.
func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func ratio(d decimal.Decimal) float64 {
	f, _ := d.Round(4).Float64()
	return f
}

func nullMoney(n decimal.NullDecimal) *float64 {
	if !n.Valid {
		return nil
	}
	f := money(n.Decimal)
	return &f
}

func nullRatio(n decimal.NullDecimal) *float64 {
	if !n.Valid {
		return nil
	}
	f := ratio(n.Decimal)
	return &f
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

type filterResponse struct {
	CompanyID          int64          `json:"company_id"`
	StartDate          string         `json:"start_date"`
	EndDate            string         `json:"end_date"`
	RecipeIDs          []int64        `json:"recipe_ids,omitempty"`
	IngredientIDs      []int64        `json:"ingredient_ids,omitempty"`
	CategoryID         *int64         `json:"category_id,omitempty"`
	Granularity        string         `json:"granularity,omitempty"`
	HorizonBuckets     int            `json:"horizon,omitempty"`
	ForecastType       string         `json:"forecast_type,omitempty"`
	MaxDaysLookahead   int            `json:"max_days_lookahead,omitempty"`
	Limit              int            `json:"limit,omitempty"`
	MaxFoodCostPercent *float64       `json:"max_food_cost_percent,omitempty"`
	Year               int            `json:"year,omitempty"`
	Metric             string         `json:"metric,omitempty"`
	Cycles             []domain.Cycle `json:"cycles,omitempty"`
}

func toFilterResponse(f domain.AnalyticsFilter) filterResponse {
	return filterResponse{
		CompanyID:          f.CompanyID,
		StartDate:          formatDate(f.StartDate),
		EndDate:            formatDate(f.EndDate),
		RecipeIDs:          f.RecipeIDs,
		IngredientIDs:      f.IngredientIDs,
		CategoryID:         f.CategoryID,
		Granularity:        string(f.Granularity),
		HorizonBuckets:     f.HorizonBuckets,
		ForecastType:       string(f.ForecastType),
		MaxDaysLookahead:   f.MaxDaysLookahead,
		Limit:              f.Limit,
		MaxFoodCostPercent: nullRatio(f.MaxFoodCostPercent),
		Year:               f.Year,
		Metric:             string(f.Metric),
		Cycles:             f.Cycles,
	}
}

type bucketResponse struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Granularity string `json:"granularity"`
}

func toBucketResponse(b domain.PeriodBucket) bucketResponse {
	return bucketResponse{
		PeriodStart: formatDate(b.PeriodStart),
		PeriodEnd:   formatDate(b.PeriodEnd),
		Granularity: string(b.Granularity),
	}
}

type rangeResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toRangeResponse(r domain.DateRange) rangeResponse {
	return rangeResponse{Start: formatDate(r.Start), End: formatDate(r.End)}
}

type forecastResponse struct {
	EntityID       int64   `json:"entity_id"`
	EntityType     string  `json:"entity_type"`
	ProjectedValue float64 `json:"projected_value"`
	ProjectedTotal float64 `json:"projected_total"`
	HorizonBuckets int     `json:"horizon_buckets"`
	HorizonDays    int     `json:"horizon_days"`
	Slope          float64 `json:"slope"`
	TrendDirection string  `json:"trend_direction"`
	Confidence     string  `json:"confidence"`
	Basis          struct {
		Start          string `json:"start"`
		End            string `json:"end"`
		Granularity    string `json:"granularity"`
		Buckets        int    `json:"buckets"`
		NonZeroBuckets int    `json:"non_zero_buckets"`
	} `json:"basis"`
}

type reorderResponse struct {
	IngredientID          int64   `json:"ingredient_id"`
	RecommendedQuantity   float64 `json:"recommended_quantity"`
	RecommendedByDate     string  `json:"recommended_by_date"`
	Reason                string  `json:"reason"`
	ProjectedStockoutDate string  `json:"projected_stockout_date"`
	CurrentStock          float64 `json:"current_stock"`
	DailyUsageRate        float64 `json:"daily_usage_rate"`
	DaysUntilStockout     float64 `json:"days_until_stockout"`
}

type profitabilityResponse struct {
	RecipeID            int64    `json:"recipe_id"`
	CategoryID          int64    `json:"category_id"`
	Name                string   `json:"name"`
	SellingPrice        *float64 `json:"selling_price"`
	TotalIngredientCost float64  `json:"total_ingredient_cost"`
	FoodCostPercent     *float64 `json:"food_cost_percent"`
	MarginAmount        *float64 `json:"margin_amount"`
	MarginPercent       *float64 `json:"margin_percent"`
	UnitsSold           float64  `json:"units_sold"`
	Revenue             float64  `json:"revenue"`
}

type categoryResponse struct {
	CategoryID              int64    `json:"category_id"`
	RecipeCount             int      `json:"recipe_count"`
	PricedRecipeCount       int      `json:"priced_recipe_count"`
	TotalIngredientCost     float64  `json:"total_ingredient_cost"`
	TotalCostOfSales        float64  `json:"total_cost_of_sales"`
	TotalRevenue            float64  `json:"total_revenue"`
	WeightedMarginPercent   *float64 `json:"weighted_margin_percent"`
	WeightedFoodCostPercent *float64 `json:"weighted_food_cost_percent"`
}

type trendPointResponse struct {
	Bucket                    bucketResponse `json:"bucket"`
	Value                     float64        `json:"value"`
	PercentChangeFromPrevious *float64       `json:"percent_change_from_previous"`
}

type seasonalPatternResponse struct {
	Cycle         string   `json:"cycle"`
	CyclePosition string   `json:"cycle_position"`
	AverageValue  float64  `json:"average_value"`
	SampleSize    int      `json:"sample_size"`
	Reliable      bool     `json:"reliable"`
	SeasonalIndex *float64 `json:"seasonal_index"`
}

type yoyPointResponse struct {
	Position      int           `json:"position"`
	CurrentPeriod rangeResponse `json:"current_period"`
	PriorPeriod   rangeResponse `json:"prior_period"`
	CurrentValue  float64       `json:"current_value"`
	PriorValue    float64       `json:"prior_value"`
	PercentChange *float64      `json:"percent_change"`
}

type yoyResponse struct {
	Metric        string             `json:"metric"`
	CurrentPeriod rangeResponse      `json:"current_period"`
	PriorPeriod   rangeResponse      `json:"prior_period"`
	CurrentValue  float64            `json:"current_value"`
	PriorValue    float64            `json:"prior_value"`
	PercentChange *float64           `json:"percent_change"`
	Points        []yoyPointResponse `json:"points"`
}

// toResponseData maps an engine result to its wire shape. Lists are never
// null on the wire.
func toResponseData(res analytics.Result) any {
	switch res.Kind {
	case analytics.KindForecast:
		return toForecastResponses(res.Forecasts)
	case analytics.KindReorder:
		return toReorderResponses(res.Reorders)
	case analytics.KindRecipeProfitability, analytics.KindTopRecipes, analytics.KindRecipesNeedingAttention:
		return toProfitabilityResponses(res.Recipes)
	case analytics.KindCategoryProfitability:
		return toCategoryResponses(res.Categories)
	case analytics.KindRevenueTrend, analytics.KindProductionTrend, analytics.KindIngredientCostTrend:
		return toTrendResponses(res.Trend)
	case analytics.KindSeasonality:
		return toSeasonalityResponses(res.Seasonality)
	case analytics.KindYearOverYear:
		if res.YoY == nil {
			return nil
		}
		return toYoYResponse(*res.YoY)
	}
	return nil
}

func toForecastResponses(in []domain.ForecastResult) []forecastResponse {
	out := make([]forecastResponse, 0, len(in))
	for _, f := range in {
		r := forecastResponse{
			EntityID:       f.EntityID,
			EntityType:     string(f.EntityType),
			ProjectedValue: money(f.ProjectedValue),
			ProjectedTotal: money(f.ProjectedTotal),
			HorizonBuckets: f.HorizonBuckets,
			HorizonDays:    f.HorizonDays,
			Slope:          ratio(f.Slope),
			TrendDirection: string(f.TrendDirection),
			Confidence:     string(f.Confidence),
		}
		r.Basis.Start = formatDate(f.Basis.Start)
		r.Basis.End = formatDate(f.Basis.End)
		r.Basis.Granularity = string(f.Basis.Granularity)
		r.Basis.Buckets = f.Basis.Buckets
		r.Basis.NonZeroBuckets = f.Basis.NonZeroBuckets
		out = append(out, r)
	}
	return out
}

func toReorderResponses(in []domain.ReorderSuggestion) []reorderResponse {
	out := make([]reorderResponse, 0, len(in))
	for _, s := range in {
		out = append(out, reorderResponse{
			IngredientID:          s.IngredientID,
			RecommendedQuantity:   money(s.RecommendedQuantity),
			RecommendedByDate:     formatDate(s.RecommendedByDate),
			Reason:                s.Reason,
			ProjectedStockoutDate: formatDate(s.ProjectedStockoutDate),
			CurrentStock:          money(s.CurrentStock),
			DailyUsageRate:        ratio(s.DailyUsageRate),
			DaysUntilStockout:     money(s.DaysUntilStockout),
		})
	}
	return out
}

func toProfitabilityResponses(in []domain.ProfitabilityMetric) []profitabilityResponse {
	out := make([]profitabilityResponse, 0, len(in))
	for _, m := range in {
		out = append(out, profitabilityResponse{
			RecipeID:            m.RecipeID,
			CategoryID:          m.CategoryID,
			Name:                m.Name,
			SellingPrice:        nullMoney(m.SellingPrice),
			TotalIngredientCost: money(m.TotalIngredientCost),
			FoodCostPercent:     nullRatio(m.FoodCostPercent),
			MarginAmount:        nullMoney(m.MarginAmount),
			MarginPercent:       nullRatio(m.MarginPercent),
			UnitsSold:           money(m.UnitsSold),
			Revenue:             money(m.Revenue),
		})
	}
	return out
}

func toCategoryResponses(in []domain.CategoryProfitability) []categoryResponse {
	out := make([]categoryResponse, 0, len(in))
	for _, c := range in {
		out = append(out, categoryResponse{
			CategoryID:              c.CategoryID,
			RecipeCount:             c.RecipeCount,
			PricedRecipeCount:       c.PricedRecipeCount,
			TotalIngredientCost:     money(c.TotalIngredientCost),
			TotalCostOfSales:        money(c.TotalCostOfSales),
			TotalRevenue:            money(c.TotalRevenue),
			WeightedMarginPercent:   nullRatio(c.WeightedMarginPercent),
			WeightedFoodCostPercent: nullRatio(c.WeightedFoodCostPercent),
		})
	}
	return out
}

func toTrendResponses(in []domain.TrendPoint) []trendPointResponse {
	out := make([]trendPointResponse, 0, len(in))
	for _, p := range in {
		out = append(out, trendPointResponse{
			Bucket:                    toBucketResponse(p.Bucket),
			Value:                     money(p.Value),
			PercentChangeFromPrevious: nullRatio(p.PercentChangeFromPrevious),
		})
	}
	return out
}

func toSeasonalityResponses(in []domain.SeasonalPattern) []seasonalPatternResponse {
	out := make([]seasonalPatternResponse, 0, len(in))
	for _, p := range in {
		out = append(out, seasonalPatternResponse{
			Cycle:         string(p.Cycle),
			CyclePosition: p.CyclePosition,
			AverageValue:  money(p.AverageValue),
			SampleSize:    p.SampleSize,
			Reliable:      p.Reliable,
			SeasonalIndex: nullRatio(p.SeasonalIndex),
		})
	}
	return out
}

func toYoYResponse(in domain.YoYComparison) yoyResponse {
	out := yoyResponse{
		Metric:        string(in.Metric),
		CurrentPeriod: toRangeResponse(in.CurrentPeriod),
		PriorPeriod:   toRangeResponse(in.PriorPeriod),
		CurrentValue:  money(in.CurrentValue),
		PriorValue:    money(in.PriorValue),
		PercentChange: nullRatio(in.PercentChange),
		Points:        make([]yoyPointResponse, 0, len(in.Points)),
	}
	for _, p := range in.Points {
		out.Points = append(out.Points, yoyPointResponse{
			Position:      p.Position,
			CurrentPeriod: toRangeResponse(p.CurrentPeriod),
			PriorPeriod:   toRangeResponse(p.PriorPeriod),
			CurrentValue:  money(p.CurrentValue),
			PriorValue:    money(p.PriorValue),
			PercentChange: nullRatio(p.PercentChange),
		})
	}
	return out
}

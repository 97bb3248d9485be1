package analytics

import (
	"context"
	"strings"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Kind selects the analysis an Engine runs.
type Kind int

const (
	KindForecast Kind = iota + 1
	KindReorder
	KindRecipeProfitability
	KindCategoryProfitability
	KindTopRecipes
	KindRecipesNeedingAttention
	KindRevenueTrend
	KindProductionTrend
	KindIngredientCostTrend
	KindSeasonality
	KindYearOverYear
)

var kindNames = map[Kind]string{
	KindForecast:                "forecast",
	KindReorder:                 "reorder",
	KindRecipeProfitability:     "recipe_profitability",
	KindCategoryProfitability:   "category_profitability",
	KindTopRecipes:              "top_recipes",
	KindRecipesNeedingAttention: "recipes_needing_attention",
	KindRevenueTrend:            "revenue_trend",
	KindProductionTrend:         "production_trend",
	KindIngredientCostTrend:     "ingredient_cost_trend",
	KindSeasonality:             "seasonality",
	KindYearOverYear:            "year_over_year",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind returns the kind for a name such as "revenue_trend".
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Request carries everything one analysis needs. Records, Stock and Snapshots
// are read-only snapshots already scoped to Filter.CompanyID.
type Request struct {
	Kind      Kind
	Filter    domain.AnalyticsFilter
	Records   []domain.HistoricalRecord
	Stock     []domain.StockLevel
	Snapshots []domain.RecipeCostSnapshot
	// AsOf anchors reorder dates and cuts an in-progress year. When zero, the
	// day after Filter.EndDate is used.
	AsOf time.Time
}

// Result holds the output of one analysis; only the field matching Kind is set.
type Result struct {
	Kind        Kind                           `json:"-"`
	Forecasts   []domain.ForecastResult        `json:"forecasts,omitempty"`
	Reorders    []domain.ReorderSuggestion     `json:"reorders,omitempty"`
	Recipes     []domain.ProfitabilityMetric   `json:"recipes,omitempty"`
	Categories  []domain.CategoryProfitability `json:"categories,omitempty"`
	Trend       []domain.TrendPoint            `json:"trend,omitempty"`
	Seasonality []domain.SeasonalPattern       `json:"seasonality,omitempty"`
	YoY         *domain.YoYComparison          `json:"yoy,omitempty"`
}

// Data returns the populated payload for the result's kind.
func (r Result) Data() any {
	switch r.Kind {
	case KindForecast:
		return r.Forecasts
	case KindReorder:
		return r.Reorders
	case KindRecipeProfitability, KindTopRecipes, KindRecipesNeedingAttention:
		return r.Recipes
	case KindCategoryProfitability:
		return r.Categories
	case KindRevenueTrend, KindProductionTrend, KindIngredientCostTrend:
		return r.Trend
	case KindSeasonality:
		return r.Seasonality
	case KindYearOverYear:
		return r.YoY
	}
	return nil
}

// Engine dispatches analysis requests. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	opts       Options
	forecaster *Forecaster
	advisor    *ReorderAdvisor
}

// NewEngine creates an engine; unset options fall back to DefaultOptions.
func NewEngine(opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts:       opts,
		forecaster: NewForecaster(opts),
		advisor:    NewReorderAdvisor(opts),
	}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Run executes the analysis named by req.Kind.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	if err := e.validate(req.Filter); err != nil {
		return Result{}, err
	}

	f := req.Filter
	res := Result{Kind: req.Kind}
	var err error

	switch req.Kind {
	case KindForecast:
		res.Forecasts, err = e.forecast(ctx, req.Records, f)
	case KindReorder:
		res.Reorders, err = e.reorder(ctx, req)
	case KindRecipeProfitability:
		res.Recipes = CalculateRecipeProfitability(req.Snapshots, req.Records, f)
	case KindCategoryProfitability:
		res.Categories = CalculateCategoryProfitability(req.Snapshots, req.Records, f)
	case KindTopRecipes:
		res.Recipes, err = TopPerformingRecipes(req.Snapshots, req.Records, f, f.Limit)
	case KindRecipesNeedingAttention:
		if !f.MaxFoodCostPercent.Valid {
			return Result{}, invalidRange("max food cost percent is required")
		}
		res.Recipes = RecipesNeedingAttention(req.Snapshots, req.Records, f, f.MaxFoodCostPercent.Decimal)
	case KindRevenueTrend:
		res.Trend, err = AnalyzeRevenueTrends(req.Records, f)
	case KindProductionTrend:
		res.Trend, err = AnalyzeProductionTrends(req.Records, f)
	case KindIngredientCostTrend:
		res.Trend, err = AnalyzeIngredientCostTrends(req.Records, f)
	case KindSeasonality:
		res.Seasonality, err = DetectSeasonalPatterns(req.Records, f, f.Cycles, e.opts.MinSeasonalSamples)
	case KindYearOverYear:
		var cmp domain.YoYComparison
		cmp, err = CompareYearOverYear(req.Records, f, asOf(req))
		if err == nil {
			res.YoY = &cmp
		}
	default:
		return Result{}, invalidRange("unknown analysis kind %d", int(req.Kind))
	}

	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (e *Engine) validate(f domain.AnalyticsFilter) error {
	if len(f.RecipeIDs) > e.opts.MaxEntityIDs {
		return invalidRange("%d recipe ids exceed the limit of %d", len(f.RecipeIDs), e.opts.MaxEntityIDs)
	}
	if len(f.IngredientIDs) > e.opts.MaxEntityIDs {
		return invalidRange("%d ingredient ids exceed the limit of %d", len(f.IngredientIDs), e.opts.MaxEntityIDs)
	}
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() &&
		domain.TruncateDay(f.StartDate).After(domain.TruncateDay(f.EndDate)) {
		return invalidRange("start date %s is after end date %s",
			f.StartDate.Format(dateLayout), f.EndDate.Format(dateLayout))
	}
	return nil
}

func (e *Engine) forecast(ctx context.Context, records []domain.HistoricalRecord, f domain.AnalyticsFilter) ([]domain.ForecastResult, error) {
	var (
		entityType domain.EntityType
		kind       domain.RecordKind
		ids        []int64
	)
	switch f.ForecastType {
	case domain.ForecastIngredients:
		entityType, kind, ids = domain.EntityIngredient, domain.RecordIngredientUsage, f.IngredientIDs
	case domain.ForecastRecipes:
		entityType, kind, ids = domain.EntityRecipe, domain.RecordSale, f.RecipeIDs
	case "":
		return nil, invalidRange("forecast type is required")
	default:
		return nil, invalidRange("unknown forecast type %q", f.ForecastType)
	}
	if f.Granularity == "" {
		return nil, invalidRange("granularity is required for forecasts")
	}
	if f.HorizonBuckets <= 0 {
		return nil, invalidRange("forecast horizon must be positive, got %d", f.HorizonBuckets)
	}

	buckets, err := BuildBuckets(f.StartDate, f.EndDate, f.Granularity)
	if err != nil {
		return nil, err
	}

	selected := selectRecords(records, f, entityType, kind)
	series, err := BuildEntitySeries(selected, ids, buckets, QuantityValue)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, invalidRange("no %s entities to forecast", entityType)
	}

	results := make([]domain.ForecastResult, len(series))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := range series {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fc, err := e.forecaster.Forecast(series[i], f.HorizonBuckets)
			if err != nil {
				return err
			}
			fc.EntityType = entityType
			results[i] = fc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) reorder(ctx context.Context, req Request) ([]domain.ReorderSuggestion, error) {
	f := req.Filter
	f.ForecastType = domain.ForecastIngredients
	if f.MaxDaysLookahead < 0 {
		return nil, invalidRange("max days lookahead must not be negative, got %d", f.MaxDaysLookahead)
	}

	forecasts, err := e.forecast(ctx, req.Records, f)
	if err != nil {
		return nil, err
	}

	stock := make(map[int64]decimal.Decimal, len(req.Stock))
	for _, level := range req.Stock {
		stock[level.IngredientID] = stock[level.IngredientID].Add(level.Quantity)
	}

	return e.advisor.Generate(forecasts, stock, f.MaxDaysLookahead, asOf(req)), nil
}

func asOf(req Request) time.Time {
	if !req.AsOf.IsZero() {
		return domain.TruncateDay(req.AsOf)
	}
	if !req.Filter.EndDate.IsZero() {
		return domain.TruncateDay(req.Filter.EndDate).AddDate(0, 0, 1)
	}
	return time.Time{}
}

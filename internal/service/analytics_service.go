package service

import (
	"context"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/analytics"
	"github.com/andresuchdata/costbook/backend-go/internal/cache"
	"github.com/andresuchdata/costbook/backend-go/internal/config"
	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/andresuchdata/costbook/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Defaults fills the parts of a filter the caller left out. Granularity is
// never defaulted. Seasonality looks back SeasonalLookbackDays so the window
// can hold whole yearly cycles.
type Defaults struct {
	LookbackDays         int
	SeasonalLookbackDays int
	ForecastType         domain.ForecastType
	HorizonBuckets       int
	MaxDaysLookahead     int
	TopLimit             int
	MaxFoodCostPercent   decimal.Decimal
	Metric               domain.Metric
}

// DefaultsFromConfig builds request defaults from configuration.
func DefaultsFromConfig(cfg config.AnalyticsConfig) Defaults {
	d := Defaults{
		LookbackDays:         cfg.LookbackDays,
		SeasonalLookbackDays: cfg.SeasonalLookbackDays,
		ForecastType:         domain.ForecastType(cfg.ForecastType),
		HorizonBuckets:       cfg.HorizonBuckets,
		MaxDaysLookahead:     cfg.MaxDaysLookahead,
		TopLimit:             cfg.TopLimit,
		Metric:               domain.MetricRevenue,
	}
	if pct, err := decimal.NewFromString(cfg.MaxFoodCostPercent); err == nil {
		d.MaxFoodCostPercent = pct
	} else {
		log.Warn().Err(err).Str("value", cfg.MaxFoodCostPercent).Msg("analytics: invalid max food cost percent, using 35")
		d.MaxFoodCostPercent = decimal.NewFromInt(35)
	}
	if d.LookbackDays <= 0 {
		d.LookbackDays = 90
	}
	if d.SeasonalLookbackDays <= 0 {
		d.SeasonalLookbackDays = 730
	}
	if d.ForecastType == "" {
		d.ForecastType = domain.ForecastIngredients
	}
	return d
}

// EngineOptionsFromConfig builds engine thresholds from configuration.
func EngineOptionsFromConfig(cfg config.AnalyticsConfig) analytics.Options {
	opts := analytics.DefaultOptions()
	opts.MinNonZeroBuckets = cfg.MinNonZeroBuckets
	opts.HighConfidenceBuckets = cfg.HighConfidenceBuckets
	opts.ForecastWindow = cfg.ForecastWindow
	if tol, err := decimal.NewFromString(cfg.FlatSlopeTolerance); err == nil {
		opts.FlatSlopeTolerance = tol
	}
	opts.SafetyCycles = cfg.SafetyCycles
	opts.LeadTimeDays = cfg.LeadTimeDays
	opts.MinSeasonalSamples = cfg.MinSeasonalSamples
	opts.MaxEntityIDs = cfg.MaxEntityIDs
	opts.Workers = cfg.Workers
	return opts
}

// Apply returns a copy of filter with defaults filled in for the given kind.
// now anchors the trailing lookback window and the current year.
func (d Defaults) Apply(kind analytics.Kind, filter domain.AnalyticsFilter, now time.Time) domain.AnalyticsFilter {
	today := domain.TruncateDay(now)

	if filter.EndDate.IsZero() {
		filter.EndDate = today
	}
	if filter.StartDate.IsZero() {
		lookback := d.LookbackDays
		if kind == analytics.KindSeasonality && d.SeasonalLookbackDays > lookback {
			lookback = d.SeasonalLookbackDays
		}
		filter.StartDate = domain.TruncateDay(filter.EndDate).AddDate(0, 0, -(lookback - 1))
	}

	switch kind {
	case analytics.KindForecast:
		if filter.ForecastType == "" {
			filter.ForecastType = d.ForecastType
		}
		if filter.HorizonBuckets == 0 {
			filter.HorizonBuckets = d.HorizonBuckets
		}
	case analytics.KindReorder:
		filter.ForecastType = domain.ForecastIngredients
		if filter.HorizonBuckets == 0 {
			filter.HorizonBuckets = d.HorizonBuckets
		}
		if filter.MaxDaysLookahead == 0 {
			filter.MaxDaysLookahead = d.MaxDaysLookahead
		}
	case analytics.KindTopRecipes:
		if filter.Limit == 0 {
			filter.Limit = d.TopLimit
		}
	case analytics.KindRecipesNeedingAttention:
		if !filter.MaxFoodCostPercent.Valid {
			filter.MaxFoodCostPercent = decimal.NewNullDecimal(d.MaxFoodCostPercent)
		}
	case analytics.KindYearOverYear:
		if filter.Year == 0 {
			filter.Year = today.Year()
		}
		if filter.Metric == "" {
			filter.Metric = d.Metric
		}
	}

	return filter
}

// AnalyticsService loads the inputs an analysis needs, runs the engine and
// caches the result.
type AnalyticsService struct {
	records   repository.RecordRepository
	inventory repository.InventoryRepository
	recipes   repository.RecipeRepository
	cache     cache.AnalyticsCache
	engine    *analytics.Engine
	defaults  Defaults
	now       func() time.Time
}

func NewAnalyticsService(
	records repository.RecordRepository,
	inventory repository.InventoryRepository,
	recipes repository.RecipeRepository,
	cacheImpl cache.AnalyticsCache,
	engine *analytics.Engine,
	defaults Defaults,
) *AnalyticsService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopAnalyticsCache()
	}
	if engine == nil {
		engine = analytics.NewEngine(analytics.DefaultOptions())
	}
	return &AnalyticsService{
		records:   records,
		inventory: inventory,
		recipes:   recipes,
		cache:     cacheImpl,
		engine:    engine,
		defaults:  defaults,
		now:       time.Now,
	}
}

// Run executes kind for the filter and returns the result with the filter as
// applied, defaults included.
func (s *AnalyticsService) Run(ctx context.Context, kind analytics.Kind, filter domain.AnalyticsFilter) (analytics.Result, domain.AnalyticsFilter, error) {
	now := s.now().UTC()
	applied := s.defaults.Apply(kind, filter, now)

	if res, ok, err := s.cache.Get(ctx, kind, applied, now); err == nil && ok {
		return res, applied, nil
	} else if err != nil {
		log.Warn().Err(err).Str("kind", kind.String()).Msg("analytics: cache get failed")
	}

	req := analytics.Request{Kind: kind, Filter: applied, AsOf: now}
	if err := s.load(ctx, &req); err != nil {
		return analytics.Result{}, applied, err
	}

	res, err := s.engine.Run(ctx, req)
	if err != nil {
		return analytics.Result{}, applied, err
	}

	if err := s.cache.Set(ctx, kind, applied, now, res); err != nil {
		log.Warn().Err(err).Str("kind", kind.String()).Msg("analytics: cache set failed")
	}

	return res, applied, nil
}

// Invalidate drops every cached result of a company.
func (s *AnalyticsService) Invalidate(ctx context.Context, companyID int64) error {
	return s.cache.InvalidateCompany(ctx, companyID)
}

// load fetches records, stock levels and recipe snapshots concurrently,
// whichever the kind needs.
func (s *AnalyticsService) load(ctx context.Context, req *analytics.Request) error {
	g, ctx := errgroup.WithContext(ctx)

	if kinds := recordKinds(req.Kind, req.Filter); len(kinds) > 0 {
		recordFilter := recordWindow(req.Kind, req.Filter, req.AsOf)
		g.Go(func() error {
			records, err := s.records.ListRecords(ctx, recordFilter, kinds...)
			if err != nil {
				return err
			}
			req.Records = records
			return nil
		})
	}

	if req.Kind == analytics.KindReorder {
		g.Go(func() error {
			levels, err := s.inventory.ListStockLevels(ctx, req.Filter.CompanyID, req.Filter.IngredientIDs)
			if err != nil {
				return err
			}
			req.Stock = levels
			return nil
		})
	}

	if needsSnapshots(req.Kind) {
		g.Go(func() error {
			snapshots, err := s.recipes.ListCostSnapshots(ctx, req.Filter)
			if err != nil {
				return err
			}
			req.Snapshots = snapshots
			return nil
		})
	}

	return g.Wait()
}

func recordKinds(kind analytics.Kind, filter domain.AnalyticsFilter) []domain.RecordKind {
	switch kind {
	case analytics.KindForecast:
		if filter.ForecastType == domain.ForecastRecipes {
			return []domain.RecordKind{domain.RecordSale}
		}
		return []domain.RecordKind{domain.RecordIngredientUsage}
	case analytics.KindReorder, analytics.KindIngredientCostTrend:
		return []domain.RecordKind{domain.RecordIngredientUsage}
	case analytics.KindProductionTrend:
		return []domain.RecordKind{domain.RecordProduction}
	case analytics.KindRecipeProfitability, analytics.KindCategoryProfitability,
		analytics.KindTopRecipes, analytics.KindRecipesNeedingAttention,
		analytics.KindRevenueTrend, analytics.KindSeasonality:
		return []domain.RecordKind{domain.RecordSale}
	case analytics.KindYearOverYear:
		switch filter.Metric {
		case domain.MetricProduction:
			return []domain.RecordKind{domain.RecordProduction}
		case domain.MetricIngredientCost:
			return []domain.RecordKind{domain.RecordIngredientUsage}
		}
		return []domain.RecordKind{domain.RecordSale}
	}
	return nil
}

// recordWindow widens the fetch window for year-over-year to cover the
// current and the prior calendar year.
func recordWindow(kind analytics.Kind, filter domain.AnalyticsFilter, asOf time.Time) domain.AnalyticsFilter {
	if kind != analytics.KindYearOverYear || filter.Year <= 0 {
		return filter
	}
	filter.StartDate = time.Date(filter.Year-1, time.January, 1, 0, 0, 0, 0, time.UTC)
	filter.EndDate = time.Date(filter.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if today := domain.TruncateDay(asOf); today.Before(filter.EndDate) {
		filter.EndDate = today
	}
	return filter
}

func needsSnapshots(kind analytics.Kind) bool {
	switch kind {
	case analytics.KindRecipeProfitability, analytics.KindCategoryProfitability,
		analytics.KindTopRecipes, analytics.KindRecipesNeedingAttention:
		return true
	}
	return false
}

package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/analytics"
	"github.com/andresuchdata/costbook/backend-go/internal/config"
	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const analyticsKeyPrefix = "analytics"

// AnalyticsCache stores engine results per company, kind and filter. asOf is
// the day the result was computed for; it only separates kinds whose output
// moves with the current date.
type AnalyticsCache interface {
	Get(ctx context.Context, kind analytics.Kind, filter domain.AnalyticsFilter, asOf time.Time) (analytics.Result, bool, error)
	Set(ctx context.Context, kind analytics.Kind, filter domain.AnalyticsFilter, asOf time.Time, result analytics.Result) error
	InvalidateCompany(ctx context.Context, companyID int64) error
}

type redisAnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopAnalyticsCache struct{}

func NewAnalyticsCache(cfg config.CacheConfig) (AnalyticsCache, error) {
	if !cfg.Enabled {
		return &noopAnalyticsCache{}, nil
	}

	client, err := connectRedis(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	return &redisAnalyticsCache{
		client: client,
		ttl:    analyticsTTL(cfg),
	}, nil
}

func NewNoopAnalyticsCache() AnalyticsCache {
	return &noopAnalyticsCache{}
}

func (c *redisAnalyticsCache) Get(ctx context.Context, kind analytics.Kind, filter domain.AnalyticsFilter, asOf time.Time) (analytics.Result, bool, error) {
	key := buildAnalyticsKey(kind, filter, asOf)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return analytics.Result{}, false, nil
	}
	if err != nil {
		return analytics.Result{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result analytics.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return analytics.Result{}, false, fmt.Errorf("decode %s cache: %w", kind, err)
	}
	result.Kind = kind

	return result, true, nil
}

func (c *redisAnalyticsCache) Set(ctx context.Context, kind analytics.Kind, filter domain.AnalyticsFilter, asOf time.Time, result analytics.Result) error {
	key := buildAnalyticsKey(kind, filter, asOf)
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s cache: %w", kind, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateCompany unlinks every cached result of the company, scanBatchSize
// keys per round trip.
func (c *redisAnalyticsCache) InvalidateCompany(ctx context.Context, companyID int64) error {
	iter := c.client.Scan(ctx, 0, companyKeyPrefix(companyID)+"*", scanBatchSize).Iterator()
	batch := make([]string, 0, scanBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("invalidate company %d: %w", companyID, err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache of company %d: %w", companyID, err)
	}
	return flush()
}

func (n *noopAnalyticsCache) Get(ctx context.Context, kind analytics.Kind, filter domain.AnalyticsFilter, asOf time.Time) (analytics.Result, bool, error) {
	return analytics.Result{}, false, nil
}

func (n *noopAnalyticsCache) Set(ctx context.Context, kind analytics.Kind, filter domain.AnalyticsFilter, asOf time.Time, result analytics.Result) error {
	return nil
}

func (n *noopAnalyticsCache) InvalidateCompany(ctx context.Context, companyID int64) error {
	return nil
}

func companyKeyPrefix(companyID int64) string {
	return fmt.Sprintf("%s:%d:", analyticsKeyPrefix, companyID)
}

func buildAnalyticsKey(kind analytics.Kind, filter domain.AnalyticsFilter, asOf time.Time) string {
	return companyKeyPrefix(filter.CompanyID) + kind.String() + ":" + analyticsFilterHash(kind, filter, asOf)
}

func analyticsFilterHash(kind analytics.Kind, filter domain.AnalyticsFilter, asOf time.Time) string {
	parts := []string{}

	// reorder dates and an in-progress year depend on today
	if (kind == analytics.KindReorder || kind == analytics.KindYearOverYear) && !asOf.IsZero() {
		parts = append(parts, "asof="+domain.TruncateDay(asOf).Format("2006-01-02"))
	}

	if !filter.StartDate.IsZero() {
		parts = append(parts, "start="+filter.StartDate.Format("2006-01-02"))
	}
	if !filter.EndDate.IsZero() {
		parts = append(parts, "end="+filter.EndDate.Format("2006-01-02"))
	}
	if len(filter.RecipeIDs) > 0 {
		parts = append(parts, "recipe_ids="+joinInt64s(filter.RecipeIDs))
	}
	if len(filter.IngredientIDs) > 0 {
		parts = append(parts, "ingredient_ids="+joinInt64s(filter.IngredientIDs))
	}
	if filter.CategoryID != nil {
		parts = append(parts, "category_id="+strconv.FormatInt(*filter.CategoryID, 10))
	}
	if filter.Granularity != "" {
		parts = append(parts, "granularity="+string(filter.Granularity))
	}
	if filter.HorizonBuckets > 0 {
		parts = append(parts, "horizon="+strconv.Itoa(filter.HorizonBuckets))
	}
	if filter.ForecastType != "" {
		parts = append(parts, "forecast_type="+string(filter.ForecastType))
	}
	if filter.MaxDaysLookahead > 0 {
		parts = append(parts, "max_days_lookahead="+strconv.Itoa(filter.MaxDaysLookahead))
	}
	if filter.Limit > 0 {
		parts = append(parts, "limit="+strconv.Itoa(filter.Limit))
	}
	if filter.MaxFoodCostPercent.Valid {
		parts = append(parts, "max_food_cost_percent="+filter.MaxFoodCostPercent.Decimal.String())
	}
	if filter.Year > 0 {
		parts = append(parts, "year="+strconv.Itoa(filter.Year))
	}
	if filter.Metric != "" {
		parts = append(parts, "metric="+string(filter.Metric))
	}
	if len(filter.Cycles) > 0 {
		cycles := make([]string, len(filter.Cycles))
		for i, c := range filter.Cycles {
			cycles[i] = string(c)
		}
		parts = append(parts, "cycles="+joinStrings(cycles))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func joinInt64s(values []int64) string {
	c := append([]int64(nil), values...)
	sort.Slice(c, func(i, j int) bool { return c[i] < c[j] })
	strs := make([]string, 0, len(c))
	for i, v := range c {
		if i > 0 && v == c[i-1] {
			continue
		}
		strs = append(strs, strconv.FormatInt(v, 10))
	}
	return strings.Join(strs, ",")
}

func joinStrings(values []string) string {
	c := append([]string(nil), values...)
	for i := range c {
		c[i] = strings.TrimSpace(strings.ToLower(c[i]))
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/analytics"
	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AnalyticsRunner runs one analysis for a filter and returns the filter as
// applied.
type AnalyticsRunner interface {
	Run(ctx context.Context, kind analytics.Kind, filter domain.AnalyticsFilter) (analytics.Result, domain.AnalyticsFilter, error)
}

type AnalyticsHandler struct {
	service AnalyticsRunner
}

func NewAnalyticsHandler(service AnalyticsRunner) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// badParamError marks a query parameter that could not be parsed.
type badParamError struct {
	param string
	value string
}

func (e *badParamError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.param, e.value)
}

func (h *AnalyticsHandler) GetForecast(c *gin.Context) {
	h.run(c, analytics.KindForecast)
}

func (h *AnalyticsHandler) GetReorderSuggestions(c *gin.Context) {
	h.run(c, analytics.KindReorder)
}

func (h *AnalyticsHandler) GetRecipeProfitability(c *gin.Context) {
	h.run(c, analytics.KindRecipeProfitability)
}

func (h *AnalyticsHandler) GetCategoryProfitability(c *gin.Context) {
	h.run(c, analytics.KindCategoryProfitability)
}

func (h *AnalyticsHandler) GetTopRecipes(c *gin.Context) {
	h.run(c, analytics.KindTopRecipes)
}

func (h *AnalyticsHandler) GetRecipesNeedingAttention(c *gin.Context) {
	h.run(c, analytics.KindRecipesNeedingAttention)
}

func (h *AnalyticsHandler) GetTrend(c *gin.Context) {
	metric := strings.ToLower(strings.TrimSpace(c.Param("metric")))
	var kind analytics.Kind
	switch metric {
	case "revenue":
		kind = analytics.KindRevenueTrend
	case "production":
		kind = analytics.KindProductionTrend
	case "ingredient_cost", "ingredient-cost":
		kind = analytics.KindIngredientCostTrend
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown trend metric", "details": metric})
		return
	}
	h.run(c, kind)
}

func (h *AnalyticsHandler) GetSeasonality(c *gin.Context) {
	h.run(c, analytics.KindSeasonality)
}

func (h *AnalyticsHandler) GetYearOverYear(c *gin.Context) {
	h.run(c, analytics.KindYearOverYear)
}

func (h *AnalyticsHandler) run(c *gin.Context, kind analytics.Kind) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	result, applied, err := h.service.Run(c.Request.Context(), kind, filter)
	if err != nil {
		status, message := errorStatus(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("kind", kind.String()).Int64("company_id", filter.CompanyID).Msg("analytics request failed")
		}
		c.JSON(status, gin.H{"error": message, "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filter": toFilterResponse(applied),
		"data":   toResponseData(result),
	})
}

func errorStatus(err error) (int, string) {
	switch {
	case analytics.IsInvalidRange(err):
		return http.StatusBadRequest, "invalid range"
	case analytics.IsInsufficientData(err):
		return http.StatusUnprocessableEntity, "insufficient data"
	}
	return http.StatusInternalServerError, "failed to run analytics"
}

func parseFilter(c *gin.Context) (domain.AnalyticsFilter, error) {
	var filter domain.AnalyticsFilter

	companyID, err := strconv.ParseInt(c.Param("companyID"), 10, 64)
	if err != nil || companyID <= 0 {
		return filter, &badParamError{param: "company id", value: c.Param("companyID")}
	}
	filter.CompanyID = companyID

	if filter.StartDate, err = parseDate(c, "start_date"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDate(c, "end_date"); err != nil {
		return filter, err
	}
	if filter.RecipeIDs, err = parseInt64List(c, "recipe_ids"); err != nil {
		return filter, err
	}
	if filter.IngredientIDs, err = parseInt64List(c, "ingredient_ids"); err != nil {
		return filter, err
	}

	if raw := strings.TrimSpace(c.Query("category_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, &badParamError{param: "category_id", value: raw}
		}
		filter.CategoryID = &id
	}

	if raw := strings.TrimSpace(c.Query("granularity")); raw != "" {
		g, ok := domain.ParseGranularity(raw)
		if !ok {
			return filter, &badParamError{param: "granularity", value: raw}
		}
		filter.Granularity = g
	}

	if raw := strings.TrimSpace(c.Query("forecast_type")); raw != "" {
		switch domain.ForecastType(strings.ToLower(raw)) {
		case domain.ForecastIngredients:
			filter.ForecastType = domain.ForecastIngredients
		case domain.ForecastRecipes:
			filter.ForecastType = domain.ForecastRecipes
		default:
			return filter, &badParamError{param: "forecast_type", value: raw}
		}
	}

	if filter.HorizonBuckets, err = parseInt(c, "horizon"); err != nil {
		return filter, err
	}
	if filter.MaxDaysLookahead, err = parseInt(c, "max_days_lookahead"); err != nil {
		return filter, err
	}
	if filter.Limit, err = parseInt(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Year, err = parseInt(c, "year"); err != nil {
		return filter, err
	}

	if raw := strings.TrimSpace(c.Query("max_food_cost_percent")); raw != "" {
		pct, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, &badParamError{param: "max_food_cost_percent", value: raw}
		}
		filter.MaxFoodCostPercent = decimal.NewNullDecimal(pct)
	}

	if raw := strings.TrimSpace(c.Query("metric")); raw != "" {
		m, ok := domain.ParseMetric(raw)
		if !ok {
			return filter, &badParamError{param: "metric", value: raw}
		}
		filter.Metric = m
	}

	for _, raw := range splitQueryValues(c, "cycles") {
		switch domain.Cycle(strings.ToLower(raw)) {
		case domain.CycleDayOfWeek:
			filter.Cycles = append(filter.Cycles, domain.CycleDayOfWeek)
		case domain.CycleMonthOfYear:
			filter.Cycles = append(filter.Cycles, domain.CycleMonthOfYear)
		default:
			return filter, &badParamError{param: "cycles", value: raw}
		}
	}

	return filter, nil
}

func parseDate(c *gin.Context, param string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(param))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, &badParamError{param: param, value: raw}
	}
	return t, nil
}

func parseInt(c *gin.Context, param string) (int, error) {
	raw := strings.TrimSpace(c.Query(param))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &badParamError{param: param, value: raw}
	}
	return v, nil
}

// parseInt64List accepts both ?ids=1&ids=2 and ?ids=1,2.
func parseInt64List(c *gin.Context, param string) ([]int64, error) {
	values := splitQueryValues(c, param)
	if len(values) == 0 {
		return nil, nil
	}
	result := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &badParamError{param: param, value: v}
		}
		result = append(result, id)
	}
	return result, nil
}

func splitQueryValues(c *gin.Context, param string) []string {
	var out []string
	for _, v := range c.QueryArray(param) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

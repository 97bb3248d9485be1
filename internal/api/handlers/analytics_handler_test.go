package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/analytics"
	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	result analytics.Result
	err    error
	kind   analytics.Kind
	filter domain.AnalyticsFilter
	calls  int
}

func (f *fakeRunner) Run(ctx context.Context, kind analytics.Kind, filter domain.AnalyticsFilter) (analytics.Result, domain.AnalyticsFilter, error) {
	f.calls++
	f.kind = kind
	f.filter = filter
	res := f.result
	res.Kind = kind
	return res, filter, f.err
}

func newTestRouter(runner AnalyticsRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewAnalyticsHandler(runner)
	group := router.Group("/companies/:companyID/analytics")
	group.GET("/forecast", h.GetForecast)
	group.GET("/trends/:metric", h.GetTrend)
	group.GET("/profitability/recipes", h.GetRecipeProfitability)
	group.GET("/seasonality", h.GetSeasonality)
	group.GET("/yoy", h.GetYearOverYear)
	return router
}

func doGet(t *testing.T, router *gin.Engine, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestParseFilterFromQuery(t *testing.T) {
	runner := &fakeRunner{}
	router := newTestRouter(runner)

	w, _ := doGet(t, router, "/companies/7/analytics/forecast?start_date=2024-01-01&end_date=2024-01-31"+
		"&granularity=Weekly&recipe_ids=1,2&recipe_ids=3&ingredient_ids=9&category_id=4"+
		"&horizon=3&forecast_type=recipes&max_food_cost_percent=32.5&cycles=day_of_week")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, analytics.KindForecast, runner.kind)

	f := runner.filter
	assert.Equal(t, int64(7), f.CompanyID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f.StartDate)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), f.EndDate)
	assert.Equal(t, domain.GranularityWeekly, f.Granularity)
	assert.Equal(t, []int64{1, 2, 3}, f.RecipeIDs)
	assert.Equal(t, []int64{9}, f.IngredientIDs)
	require.NotNil(t, f.CategoryID)
	assert.Equal(t, int64(4), *f.CategoryID)
	assert.Equal(t, 3, f.HorizonBuckets)
	assert.Equal(t, domain.ForecastRecipes, f.ForecastType)
	assert.True(t, f.MaxFoodCostPercent.Decimal.Equal(decimal.RequireFromString("32.5")))
	assert.Equal(t, []domain.Cycle{domain.CycleDayOfWeek}, f.Cycles)
}

func TestBadParamsReturnBadRequest(t *testing.T) {
	cases := []string{
		"/companies/abc/analytics/forecast",
		"/companies/1/analytics/forecast?start_date=01-01-2024",
		"/companies/1/analytics/forecast?granularity=hourly",
		"/companies/1/analytics/forecast?recipe_ids=1,x",
		"/companies/1/analytics/forecast?horizon=two",
		"/companies/1/analytics/yoy?metric=profit",
		"/companies/1/analytics/seasonality?cycles=quarter",
	}
	for _, target := range cases {
		runner := &fakeRunner{}
		w, body := doGet(t, newTestRouter(runner), target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, "invalid request", body["error"], target)
		assert.Zero(t, runner.calls, target)
	}
}

func TestUnknownTrendMetric(t *testing.T) {
	w, _ := doGet(t, newTestRouter(&fakeRunner{}), "/companies/1/analytics/trends/profit")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrendMetricSelectsKind(t *testing.T) {
	runner := &fakeRunner{}
	router := newTestRouter(runner)

	doGet(t, router, "/companies/1/analytics/trends/production?granularity=daily")
	assert.Equal(t, analytics.KindProductionTrend, runner.kind)

	doGet(t, router, "/companies/1/analytics/trends/ingredient_cost?granularity=daily")
	assert.Equal(t, analytics.KindIngredientCostTrend, runner.kind)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&analytics.InvalidRangeError{Reason: "start after end"}, http.StatusBadRequest},
		{&analytics.InsufficientDataError{Reason: "no buckets"}, http.StatusUnprocessableEntity},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w, body := doGet(t, newTestRouter(&fakeRunner{err: tc.err}), "/companies/1/analytics/forecast")
		assert.Equal(t, tc.status, w.Code)
		assert.Equal(t, tc.err.Error(), body["details"])
	}
}

func TestEmptyResultIsEmptyList(t *testing.T) {
	w, body := doGet(t, newTestRouter(&fakeRunner{}), "/companies/1/analytics/profitability/recipes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, body["data"])

	filter, ok := body["filter"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), filter["company_id"])
}

func TestProfitabilityResponseRounding(t *testing.T) {
	runner := &fakeRunner{result: analytics.Result{Recipes: []domain.ProfitabilityMetric{{
		RecipeID:            1,
		Name:                "Soup",
		SellingPrice:        decimal.NewNullDecimal(decimal.RequireFromString("12.499")),
		TotalIngredientCost: decimal.RequireFromString("4.1666"),
		FoodCostPercent:     decimal.NewNullDecimal(decimal.RequireFromString("33.333333")),
		MarginAmount:        decimal.NewNullDecimal(decimal.RequireFromString("8.3333")),
		MarginPercent:       decimal.NullDecimal{},
	}}}}

	w, body := doGet(t, newTestRouter(runner), "/companies/1/analytics/profitability/recipes")
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].([]any)
	require.Len(t, data, 1)
	row := data[0].(map[string]any)
	assert.Equal(t, 12.5, row["selling_price"])
	assert.Equal(t, 4.17, row["total_ingredient_cost"])
	assert.Equal(t, 33.3333, row["food_cost_percent"])
	assert.Equal(t, 8.33, row["margin_amount"])
	assert.Nil(t, row["margin_percent"])
}

func TestYearOverYearResponse(t *testing.T) {
	runner := &fakeRunner{result: analytics.Result{YoY: &domain.YoYComparison{
		Metric: domain.MetricRevenue,
		CurrentPeriod: domain.DateRange{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		CurrentValue:  decimal.NewFromInt(1200),
		PriorValue:    decimal.NewFromInt(1000),
		PercentChange: decimal.NewNullDecimal(decimal.NewFromInt(20)),
	}}}

	w, body := doGet(t, newTestRouter(runner), "/companies/1/analytics/yoy?year=2024&metric=revenue")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2024, runner.filter.Year)

	data := body["data"].(map[string]any)
	assert.Equal(t, float64(20), data["percent_change"])
	assert.Equal(t, []any{}, data["points"])
	current := data["current_period"].(map[string]any)
	assert.Equal(t, "2024-01-01", current["start"])
}

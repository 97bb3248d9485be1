package analytics

import (
	"testing"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearOverYearWithoutPriorData(t *testing.T) {
	records := []domain.HistoricalRecord{
		sale(t, 1, "2024-02-10", "4", "25"),
		sale(t, 1, "2024-11-10", "1", "50"),
	}
	filter := domain.AnalyticsFilter{CompanyID: 1, Metric: domain.MetricRevenue, Year: 2024}

	cmp, err := CompareYearOverYear(records, filter, day(t, "2025-01-15"))
	require.NoError(t, err)

	assertDecimal(t, "150", cmp.CurrentValue)
	assert.True(t, cmp.PriorValue.IsZero())
	assert.False(t, cmp.PercentChange.Valid)
	assert.Equal(t, day(t, "2024-01-01"), cmp.CurrentPeriod.Start)
	assert.Equal(t, day(t, "2024-12-31"), cmp.CurrentPeriod.End)
	assert.Equal(t, day(t, "2023-12-31"), cmp.PriorPeriod.End)
	require.Len(t, cmp.Points, 12)
	assert.False(t, cmp.Points[1].PercentChange.Valid)
}

func TestYearOverYearAlignsMonths(t *testing.T) {
	records := []domain.HistoricalRecord{
		sale(t, 1, "2023-03-05", "10", "10"),
		sale(t, 1, "2024-03-25", "15", "10"),
		sale(t, 1, "2023-04-01", "8", "10"),
	}
	filter := domain.AnalyticsFilter{Metric: domain.MetricSalesQuantity, Year: 2024}

	cmp, err := CompareYearOverYear(records, filter, day(t, "2024-04-15"))
	require.NoError(t, err)

	assert.Equal(t, day(t, "2024-04-15"), cmp.CurrentPeriod.End)
	assert.Equal(t, day(t, "2023-04-15"), cmp.PriorPeriod.End)
	require.Len(t, cmp.Points, 4)

	march := cmp.Points[2]
	assert.Equal(t, 3, march.Position)
	assertDecimal(t, "15", march.CurrentValue)
	assertDecimal(t, "10", march.PriorValue)
	require.True(t, march.PercentChange.Valid)
	assertDecimal(t, "50", march.PercentChange.Decimal)

	assertDecimal(t, "15", cmp.CurrentValue)
	assertDecimal(t, "18", cmp.PriorValue)
}

func TestYearOverYearLeapDay(t *testing.T) {
	filter := domain.AnalyticsFilter{Metric: domain.MetricProduction, Year: 2024}
	cmp, err := CompareYearOverYear(nil, filter, day(t, "2024-02-29"))
	require.NoError(t, err)
	assert.Equal(t, day(t, "2023-02-28"), cmp.PriorPeriod.End)
	assert.Len(t, cmp.Points, 2)
}

func TestYearOverYearRejectsBadInput(t *testing.T) {
	_, err := CompareYearOverYear(nil, domain.AnalyticsFilter{Metric: domain.MetricRevenue, Year: 2030}, day(t, "2024-01-01"))
	assert.True(t, IsInvalidRange(err))

	_, err = CompareYearOverYear(nil, domain.AnalyticsFilter{Year: 2024}, day(t, "2024-06-01"))
	assert.True(t, IsInvalidRange(err))

	_, err = CompareYearOverYear(nil, domain.AnalyticsFilter{Metric: domain.MetricRevenue}, day(t, "2024-06-01"))
	assert.True(t, IsInvalidRange(err))
}

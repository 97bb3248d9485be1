package analytics

import (
	"testing"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOfWeekPatterns(t *testing.T) {
	var records []domain.HistoricalRecord
	start := day(t, "2024-01-01") // Monday
	for i := 0; i < 14; i++ {
		qty := "2"
		if i%7 == 0 {
			qty = "10"
		}
		records = append(records, sale(t, 1, start.AddDate(0, 0, i).Format(dateLayout), qty, "1"))
	}

	filter := domain.AnalyticsFilter{StartDate: start, EndDate: day(t, "2024-01-14")}
	patterns, err := DetectSeasonalPatterns(records, filter, nil, 3)
	require.NoError(t, err)
	require.Len(t, patterns, 7)

	assert.Equal(t, "Monday", patterns[0].CyclePosition)
	assert.Equal(t, "Sunday", patterns[6].CyclePosition)
	assert.Equal(t, domain.CycleDayOfWeek, patterns[0].Cycle)
	assertDecimal(t, "10", patterns[0].AverageValue)
	assertDecimal(t, "2", patterns[1].AverageValue)
	assert.Equal(t, 2, patterns[0].SampleSize)
	// two samples are surfaced but flagged
	assert.False(t, patterns[0].Reliable)
	require.True(t, patterns[0].SeasonalIndex.Valid)
	assert.True(t, patterns[0].SeasonalIndex.Decimal.GreaterThan(patterns[1].SeasonalIndex.Decimal))
}

func TestSeasonalityNeedsAFullCycle(t *testing.T) {
	filter := domain.AnalyticsFilter{StartDate: day(t, "2024-01-01"), EndDate: day(t, "2024-01-06")}
	patterns, err := DetectSeasonalPatterns([]domain.HistoricalRecord{sale(t, 1, "2024-01-02", "1", "1")}, filter, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestMonthOfYearPatterns(t *testing.T) {
	var records []domain.HistoricalRecord
	for _, d := range []string{"2022-12-05", "2023-12-05", "2023-06-01", "2024-06-01"} {
		records = append(records, sale(t, 1, d, "30", "1"))
	}

	filter := domain.AnalyticsFilter{StartDate: day(t, "2022-01-01"), EndDate: day(t, "2024-12-31")}
	patterns, err := DetectSeasonalPatterns(records, filter, []domain.Cycle{domain.CycleMonthOfYear}, 3)
	require.NoError(t, err)
	require.Len(t, patterns, 12)

	assert.Equal(t, "January", patterns[0].CyclePosition)
	assert.Equal(t, "December", patterns[11].CyclePosition)
	assert.Equal(t, 3, patterns[11].SampleSize)
	assert.True(t, patterns[11].Reliable)
	assertDecimal(t, "20", patterns[11].AverageValue)
	assertDecimal(t, "20", patterns[5].AverageValue)
	assert.True(t, patterns[0].AverageValue.IsZero())
}

func TestMonthOfYearNeedsTwelveMonths(t *testing.T) {
	filter := domain.AnalyticsFilter{StartDate: day(t, "2024-01-01"), EndDate: day(t, "2024-11-30")}
	patterns, err := DetectSeasonalPatterns(nil, filter, []domain.Cycle{domain.CycleMonthOfYear}, 3)
	require.NoError(t, err)
	assert.Empty(t, patterns)

	filter.EndDate = day(t, "2024-12-31")
	patterns, err = DetectSeasonalPatterns(nil, filter, []domain.Cycle{domain.CycleMonthOfYear}, 3)
	require.NoError(t, err)
	assert.Len(t, patterns, 12)
	for _, p := range patterns {
		assert.False(t, p.SeasonalIndex.Valid)
	}
}

func TestSeasonalityRejectsUnknownCycle(t *testing.T) {
	filter := domain.AnalyticsFilter{StartDate: day(t, "2024-01-01"), EndDate: day(t, "2024-12-31")}
	_, err := DetectSeasonalPatterns(nil, filter, []domain.Cycle{"hour_of_day"}, 3)
	assert.True(t, IsInvalidRange(err))
}

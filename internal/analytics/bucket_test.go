package analytics

import (
	"testing"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBucketsDaily(t *testing.T) {
	buckets, err := BuildBuckets(day(t, "2024-01-01"), day(t, "2024-01-10"), domain.GranularityDaily)
	require.NoError(t, err)
	require.Len(t, buckets, 10)
	for _, b := range buckets {
		assert.Equal(t, 1, b.Days())
		assert.Equal(t, domain.GranularityDaily, b.Granularity)
	}
}

func TestBuildBucketsWeeklyAlignsToMonday(t *testing.T) {
	// 2024-01-03 is a Wednesday, 2024-01-20 a Saturday.
	buckets, err := BuildBuckets(day(t, "2024-01-03"), day(t, "2024-01-20"), domain.GranularityWeekly)
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, day(t, "2024-01-03"), buckets[0].PeriodStart)
	assert.Equal(t, day(t, "2024-01-08"), buckets[0].PeriodEnd)
	assert.Equal(t, day(t, "2024-01-08"), buckets[1].PeriodStart)
	assert.Equal(t, day(t, "2024-01-15"), buckets[1].PeriodEnd)
	assert.Equal(t, day(t, "2024-01-15"), buckets[2].PeriodStart)
	assert.Equal(t, day(t, "2024-01-21"), buckets[2].PeriodEnd)
}

func TestBuildBucketsMonthlyKeepsPartialMonths(t *testing.T) {
	buckets, err := BuildBuckets(day(t, "2024-01-15"), day(t, "2024-03-10"), domain.GranularityMonthly)
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, day(t, "2024-01-15"), buckets[0].PeriodStart)
	assert.Equal(t, day(t, "2024-02-01"), buckets[0].PeriodEnd)
	assert.Equal(t, 29, buckets[1].Days())
	assert.Equal(t, day(t, "2024-03-11"), buckets[2].PeriodEnd)
}

func TestBuildBucketsSingleDay(t *testing.T) {
	buckets, err := BuildBuckets(day(t, "2024-05-05"), day(t, "2024-05-05"), domain.GranularityMonthly)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, 1, buckets[0].Days())
}

func TestBuildBucketsCoverage(t *testing.T) {
	ranges := [][2]string{
		{"2023-12-28", "2024-03-03"},
		{"2024-02-29", "2025-02-28"},
		{"2024-01-01", "2024-01-07"},
		{"2024-06-30", "2024-07-01"},
	}
	granularities := []domain.Granularity{domain.GranularityDaily, domain.GranularityWeekly, domain.GranularityMonthly}

	for _, r := range ranges {
		for _, g := range granularities {
			start, end := day(t, r[0]), day(t, r[1])
			buckets, err := BuildBuckets(start, end, g)
			require.NoError(t, err)
			require.NotEmpty(t, buckets)

			assert.Equal(t, start, buckets[0].PeriodStart, "%s %v", g, r)
			assert.Equal(t, end.AddDate(0, 0, 1), buckets[len(buckets)-1].PeriodEnd, "%s %v", g, r)
			for i := 1; i < len(buckets); i++ {
				assert.Equal(t, buckets[i-1].PeriodEnd, buckets[i].PeriodStart, "%s %v gap at %d", g, r, i)
				assert.True(t, buckets[i].PeriodStart.Before(buckets[i].PeriodEnd))
			}
		}
	}
}

func TestBuildBucketsRejectsInvalidInput(t *testing.T) {
	_, err := BuildBuckets(day(t, "2024-02-01"), day(t, "2024-01-01"), domain.GranularityDaily)
	require.Error(t, err)
	assert.True(t, IsInvalidRange(err))

	_, err = BuildBuckets(day(t, "2024-01-01"), day(t, "2024-02-01"), domain.Granularity("hourly"))
	assert.True(t, IsInvalidRange(err))

	_, err = BuildBuckets(day(t, "2024-01-01"), day(t, "2024-02-01"), "")
	assert.True(t, IsInvalidRange(err))
}

func TestFollowingBuckets(t *testing.T) {
	last := domain.PeriodBucket{
		PeriodStart: day(t, "2024-01-29"),
		PeriodEnd:   day(t, "2024-02-05"),
		Granularity: domain.GranularityWeekly,
	}
	next := followingBuckets(last, 2)
	require.Len(t, next, 2)
	assert.Equal(t, day(t, "2024-02-05"), next[0].PeriodStart)
	assert.Equal(t, day(t, "2024-02-19"), next[1].PeriodEnd)
}

func TestFollowingBucketsAfterPartialPeriod(t *testing.T) {
	week := domain.PeriodBucket{
		PeriodStart: day(t, "2024-01-29"),
		PeriodEnd:   day(t, "2024-01-31"),
		Granularity: domain.GranularityWeekly,
	}
	next := followingBuckets(week, 2)
	require.Len(t, next, 2)
	assert.Equal(t, day(t, "2024-02-05"), next[0].PeriodStart)
	assert.Equal(t, day(t, "2024-02-19"), next[1].PeriodEnd)
	for _, b := range next {
		assert.Equal(t, 7, b.Days())
	}

	month := domain.PeriodBucket{
		PeriodStart: day(t, "2024-03-01"),
		PeriodEnd:   day(t, "2024-03-30"),
		Granularity: domain.GranularityMonthly,
	}
	next = followingBuckets(month, 1)
	require.Len(t, next, 1)
	assert.Equal(t, day(t, "2024-04-01"), next[0].PeriodStart)
	assert.Equal(t, day(t, "2024-05-01"), next[0].PeriodEnd)
	assert.Equal(t, 30, next[0].Days())
}

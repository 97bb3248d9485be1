package analytics

import (
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
)

// BuildBuckets splits the inclusive calendar range [start, end] into
// contiguous buckets of the given granularity. Weekly buckets begin on Monday
// and monthly buckets on the first of the month; the first and last bucket are
// clamped to the requested range, so their union is exactly [start, end+1d).
func BuildBuckets(start, end time.Time, granularity domain.Granularity) ([]domain.PeriodBucket, error) {
	if start.IsZero() || end.IsZero() {
		return nil, invalidRange("start and end dates are required")
	}

	from := domain.TruncateDay(start)
	to := domain.TruncateDay(end).AddDate(0, 0, 1)
	if !from.Before(to) {
		return nil, invalidRange("start date %s is after end date %s",
			from.Format(dateLayout), domain.TruncateDay(end).Format(dateLayout))
	}

	var next func(time.Time) time.Time
	switch granularity {
	case domain.GranularityDaily:
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case domain.GranularityWeekly:
		next = func(t time.Time) time.Time { return weekStart(t).AddDate(0, 0, 7) }
	case domain.GranularityMonthly:
		next = func(t time.Time) time.Time { return monthStart(t).AddDate(0, 1, 0) }
	case "":
		return nil, invalidRange("granularity is required")
	default:
		return nil, invalidRange("unknown granularity %q", granularity)
	}

	buckets := make([]domain.PeriodBucket, 0, estimateBuckets(from, to, granularity))
	for cursor := from; cursor.Before(to); {
		boundary := next(cursor)
		if boundary.After(to) {
			boundary = to
		}
		buckets = append(buckets, domain.PeriodBucket{
			PeriodStart: cursor,
			PeriodEnd:   boundary,
			Granularity: granularity,
		})
		cursor = boundary
	}

	return buckets, nil
}

// followingBuckets returns n full buckets after last. When last stops inside
// a week or month the horizon starts at the next aligned boundary, so every
// returned bucket spans a whole period.
func followingBuckets(last domain.PeriodBucket, n int) []domain.PeriodBucket {
	if n <= 0 {
		return nil
	}
	start := last.PeriodEnd
	var end time.Time
	switch last.Granularity {
	case domain.GranularityWeekly:
		if aligned := weekStart(start); !aligned.Equal(start) {
			start = aligned.AddDate(0, 0, 7)
		}
		end = start.AddDate(0, 0, 7*n)
	case domain.GranularityMonthly:
		if aligned := monthStart(start); !aligned.Equal(start) {
			start = aligned.AddDate(0, 1, 0)
		}
		end = start.AddDate(0, n, 0)
	default:
		end = start.AddDate(0, 0, n)
	}
	buckets, err := BuildBuckets(start, end.AddDate(0, 0, -1), last.Granularity)
	if err != nil {
		return nil
	}
	return buckets
}

const dateLayout = "2006-01-02"

// weekStart returns the Monday on or before t.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return domain.TruncateDay(t).AddDate(0, 0, -offset)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func estimateBuckets(from, to time.Time, granularity domain.Granularity) int {
	days := int(to.Sub(from).Hours()/24) + 1
	switch granularity {
	case domain.GranularityWeekly:
		return days/7 + 2
	case domain.GranularityMonthly:
		return days/28 + 2
	}
	return days
}

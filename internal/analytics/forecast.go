package analytics

import (
	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	two          = decimal.NewFromInt(2)
	twelve       = decimal.NewFromInt(12)
	hundred      = decimal.NewFromInt(100)
	minFlatSlope = decimal.New(1, -9)
)

// Forecaster projects a historical series forward.
type Forecaster struct {
	opts Options
}

// NewForecaster creates a forecaster; unset options fall back to defaults.
func NewForecaster(opts Options) *Forecaster {
	return &Forecaster{opts: opts.withDefaults()}
}

// Forecast projects the series horizonBuckets ahead.
//
// With fewer than MinNonZeroBuckets non-zero buckets the projection is the
// mean of the non-zero points, flat, with low confidence. Otherwise it is a
// linearly weighted moving average over the trailing window plus the OLS slope
// of that window times the horizon, never below zero.
func (f *Forecaster) Forecast(series domain.Series, horizonBuckets int) (domain.ForecastResult, error) {
	if len(series.Points) == 0 {
		return domain.ForecastResult{}, insufficientData("series for entity %d has no buckets", series.EntityID)
	}
	if horizonBuckets <= 0 {
		return domain.ForecastResult{}, invalidRange("forecast horizon must be positive, got %d", horizonBuckets)
	}

	values := series.Values()
	nonZero := countNonZero(values)

	window := values
	windowPoints := series.Points
	if n := f.opts.ForecastWindow; n > 0 && n < len(values) {
		window = values[len(values)-n:]
		windowPoints = series.Points[len(values)-n:]
	}

	result := domain.ForecastResult{
		EntityID:       series.EntityID,
		HorizonBuckets: horizonBuckets,
		HorizonDays:    horizonDays(series, horizonBuckets),
		Slope:          decimal.Zero,
		TrendDirection: domain.TrendFlat,
		Confidence:     domain.ConfidenceLow,
		Basis: domain.ForecastBasis{
			Start:          windowPoints[0].Bucket.PeriodStart,
			End:            windowPoints[len(windowPoints)-1].Bucket.PeriodEnd,
			Granularity:    series.Granularity,
			Buckets:        len(window),
			NonZeroBuckets: nonZero,
		},
	}

	if nonZero < f.opts.MinNonZeroBuckets {
		result.ProjectedValue = nonZeroMean(values)
		result.ProjectedTotal = result.ProjectedValue.Mul(decimal.NewFromInt(int64(horizonBuckets)))
		return result, nil
	}

	wma := weightedMovingAverage(window)
	slope := olsSlope(window)
	epsilon := flatEpsilon(mean(window), f.opts.FlatSlopeTolerance)

	projected := wma.Add(slope.Mul(decimal.NewFromInt(int64(horizonBuckets))))
	if projected.IsNegative() {
		projected = decimal.Zero
	}

	result.ProjectedValue = projected
	result.ProjectedTotal = projected.Mul(decimal.NewFromInt(int64(horizonBuckets)))
	result.Slope = slope
	result.TrendDirection = classifySlope(slope, epsilon)
	result.Confidence = domain.ConfidenceMedium

	if nonZero >= f.opts.HighConfidenceBuckets && len(window) >= 4 {
		half := len(window) / 2
		first := classifySlope(olsSlope(window[:half]), epsilon)
		second := classifySlope(olsSlope(window[half:]), epsilon)
		if first == second {
			result.Confidence = domain.ConfidenceHigh
		}
	}

	return result, nil
}

// weightedMovingAverage weights the i-th value by i+1 so the newest bucket
// counts most.
func weightedMovingAverage(values []decimal.Decimal) decimal.Decimal {
	n := int64(len(values))
	if n == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for i, v := range values {
		sum = sum.Add(v.Mul(decimal.NewFromInt(int64(i + 1))))
	}
	denominator := decimal.NewFromInt(n * (n + 1) / 2)
	return sum.Div(denominator)
}

// olsSlope fits value = a + b*index by ordinary least squares and returns b.
func olsSlope(values []decimal.Decimal) decimal.Decimal {
	n := int64(len(values))
	if n < 2 {
		return decimal.Zero
	}
	xMean := decimal.NewFromInt(n - 1).Div(two)
	yMean := mean(values)

	num := decimal.Zero
	for i, v := range values {
		dx := decimal.NewFromInt(int64(i)).Sub(xMean)
		num = num.Add(dx.Mul(v.Sub(yMean)))
	}
	// sum((i - xMean)^2) for i in [0, n) == n(n^2-1)/12
	den := decimal.NewFromInt(n * (n*n - 1)).Div(twelve)
	return num.Div(den)
}

func classifySlope(slope, epsilon decimal.Decimal) domain.TrendDirection {
	switch {
	case slope.GreaterThan(epsilon):
		return domain.TrendUp
	case slope.LessThan(epsilon.Neg()):
		return domain.TrendDown
	default:
		return domain.TrendFlat
	}
}

func flatEpsilon(windowMean, tolerance decimal.Decimal) decimal.Decimal {
	eps := windowMean.Abs().Mul(tolerance)
	if eps.LessThan(minFlatSlope) {
		return minFlatSlope
	}
	return eps
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...).Div(decimal.NewFromInt(int64(len(values))))
}

func nonZeroMean(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	count := 0
	for _, v := range values {
		if v.IsZero() {
			continue
		}
		sum = sum.Add(v)
		count++
	}
	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(count)))
}

func countNonZero(values []decimal.Decimal) int {
	count := 0
	for _, v := range values {
		if !v.IsZero() {
			count++
		}
	}
	return count
}

// horizonDays counts the calendar days spanned by the horizon buckets that
// follow the series.
func horizonDays(series domain.Series, horizonBuckets int) int {
	last := series.Points[len(series.Points)-1].Bucket
	days := 0
	for _, b := range followingBuckets(last, horizonBuckets) {
		days += b.Days()
	}
	return days
}

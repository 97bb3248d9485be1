package analytics

import "github.com/shopspring/decimal"

// Options tunes the engine's thresholds. The zero value is not useful; start
// from DefaultOptions and override what the deployment configures.
type Options struct {
	// MinNonZeroBuckets is the number of non-zero buckets below which a
	// forecast falls back to a flat mean with low confidence.
	MinNonZeroBuckets int
	// HighConfidenceBuckets is the number of non-zero buckets required for a
	// high-confidence forecast.
	HighConfidenceBuckets int
	// ForecastWindow is the number of trailing buckets fitted; 0 uses the
	// whole series.
	ForecastWindow int
	// FlatSlopeTolerance is the fraction of the window mean within which a
	// slope counts as flat.
	FlatSlopeTolerance decimal.Decimal

	// SafetyCycles is the number of extra forecast horizons a reorder
	// quantity covers beyond the lookahead window.
	SafetyCycles int
	// LeadTimeDays moves the recommended order date ahead of the stockout.
	LeadTimeDays int

	// MinSeasonalSamples is the sample size below which a seasonal pattern is
	// flagged unreliable.
	MinSeasonalSamples int

	// MaxEntityIDs bounds every ID allow-list in a request.
	MaxEntityIDs int
	// Workers bounds parallel per-entity evaluation.
	Workers int
}

// DefaultOptions returns the thresholds used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MinNonZeroBuckets:     3,
		HighConfidenceBuckets: 12,
		ForecastWindow:        0,
		FlatSlopeTolerance:    decimal.RequireFromString("0.01"),
		SafetyCycles:          1,
		LeadTimeDays:          0,
		MinSeasonalSamples:    3,
		MaxEntityIDs:          500,
		Workers:               4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinNonZeroBuckets <= 0 {
		o.MinNonZeroBuckets = d.MinNonZeroBuckets
	}
	if o.HighConfidenceBuckets <= 0 {
		o.HighConfidenceBuckets = d.HighConfidenceBuckets
	}
	if o.ForecastWindow < 0 {
		o.ForecastWindow = 0
	}
	if !o.FlatSlopeTolerance.IsPositive() {
		o.FlatSlopeTolerance = d.FlatSlopeTolerance
	}
	if o.SafetyCycles < 0 {
		o.SafetyCycles = 0
	}
	if o.LeadTimeDays < 0 {
		o.LeadTimeDays = 0
	}
	if o.MinSeasonalSamples <= 0 {
		o.MinSeasonalSamples = d.MinSeasonalSamples
	}
	if o.MaxEntityIDs <= 0 {
		o.MaxEntityIDs = d.MaxEntityIDs
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	return o
}

package analytics

import (
	"sort"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// ValueSelector extracts the value a record contributes to its bucket.
type ValueSelector func(domain.HistoricalRecord) decimal.Decimal

// QuantityValue selects the record quantity.
func QuantityValue(r domain.HistoricalRecord) decimal.Decimal {
	return r.Quantity
}

// RevenueValue selects quantity × unit revenue.
func RevenueValue(r domain.HistoricalRecord) decimal.Decimal {
	return r.Quantity.Mul(r.UnitRevenue)
}

// CostValue selects quantity × unit cost.
func CostValue(r domain.HistoricalRecord) decimal.Decimal {
	return r.Quantity.Mul(r.UnitCost)
}

// BuildSeries sums selector(record) into the bucket each record falls in and
// returns exactly one point per bucket, zero where nothing matched. Records
// outside the bucket span are ignored.
func BuildSeries(entityID int64, records []domain.HistoricalRecord, buckets []domain.PeriodBucket, selector ValueSelector) (domain.Series, error) {
	if len(buckets) == 0 {
		return domain.Series{}, insufficientData("no buckets for entity %d", entityID)
	}
	if selector == nil {
		selector = QuantityValue
	}

	sorted := make([]domain.HistoricalRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredOn.Before(sorted[j].OccurredOn)
	})

	points := make([]domain.SeriesPoint, len(buckets))
	for i, b := range buckets {
		points[i] = domain.SeriesPoint{Bucket: b, Value: decimal.Zero}
	}

	idx := 0
	for _, rec := range sorted {
		day := domain.TruncateDay(rec.OccurredOn)
		if day.Before(buckets[0].PeriodStart) {
			continue
		}
		for idx < len(buckets) && !day.Before(buckets[idx].PeriodEnd) {
			idx++
		}
		if idx == len(buckets) {
			break
		}
		points[idx].Value = points[idx].Value.Add(selector(rec))
	}

	return domain.Series{
		EntityID:    entityID,
		Granularity: buckets[0].Granularity,
		Points:      points,
	}, nil
}

// BuildEntitySeries builds one series per entity. When entityIDs is empty the
// entities are taken from the records; otherwise every listed entity gets a
// series, even one with no records. Series are ordered by entity ID.
func BuildEntitySeries(records []domain.HistoricalRecord, entityIDs []int64, buckets []domain.PeriodBucket, selector ValueSelector) ([]domain.Series, error) {
	grouped := make(map[int64][]domain.HistoricalRecord)
	for _, rec := range records {
		grouped[rec.EntityID] = append(grouped[rec.EntityID], rec)
	}

	ids := uniqueIDs(entityIDs)
	if len(ids) == 0 {
		for id := range grouped {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	series := make([]domain.Series, 0, len(ids))
	for _, id := range ids {
		s, err := BuildSeries(id, grouped[id], buckets, selector)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, nil
}

// selectRecords keeps records of the given kinds that pass the filter's
// allow-lists for the entity type.
func selectRecords(records []domain.HistoricalRecord, filter domain.AnalyticsFilter, entityType domain.EntityType, kinds ...domain.RecordKind) []domain.HistoricalRecord {
	kindSet := make(map[domain.RecordKind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}

	var allow map[int64]bool
	switch entityType {
	case domain.EntityRecipe:
		allow = idSet(filter.RecipeIDs)
	case domain.EntityIngredient:
		allow = idSet(filter.IngredientIDs)
	}

	out := make([]domain.HistoricalRecord, 0, len(records))
	for _, rec := range records {
		if len(kindSet) > 0 && !kindSet[rec.Kind] {
			continue
		}
		if entityType != "" && rec.EntityType != entityType {
			continue
		}
		if allow != nil && !allow[rec.EntityID] {
			continue
		}
		if filter.CategoryID != nil && rec.CategoryID != *filter.CategoryID {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func idSet(ids []int64) map[int64]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

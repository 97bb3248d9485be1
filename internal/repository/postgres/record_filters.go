package postgres

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/costbook/backend-go/internal/domain"
	"github.com/lib/pq"
)

// buildRecordFilterClause constructs SQL filter clauses for historical record
// queries. Recipe and ingredient allow-lists only constrain rows of their own
// entity type.
func buildRecordFilterClause(filter domain.AnalyticsFilter, alias string, startIndex int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	a := normalizeAlias(alias)
	idx := startIndex

	if !filter.StartDate.IsZero() {
		clauses = append(clauses, fmt.Sprintf("%soccurred_on >= $%d", a, idx))
		args = append(args, domain.TruncateDay(filter.StartDate))
		idx++
	}

	if !filter.EndDate.IsZero() {
		clauses = append(clauses, fmt.Sprintf("%soccurred_on <= $%d", a, idx))
		args = append(args, domain.TruncateDay(filter.EndDate))
		idx++
	}

	if len(filter.RecipeIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("(%[1]sentity_type <> 'recipe' OR %[1]sentity_id = ANY($%[2]d))", a, idx))
		args = append(args, pq.Array(filter.RecipeIDs))
		idx++
	}

	if len(filter.IngredientIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("(%[1]sentity_type <> 'ingredient' OR %[1]sentity_id = ANY($%[2]d))", a, idx))
		args = append(args, pq.Array(filter.IngredientIDs))
		idx++
	}

	if filter.CategoryID != nil {
		clauses = append(clauses, fmt.Sprintf("%scategory_id = $%d", a, idx))
		args = append(args, *filter.CategoryID)
		idx++
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " AND " + strings.Join(clauses, " AND "), args
}

// buildRecipeFilterClause constrains recipe rows by ID and category.
func buildRecipeFilterClause(filter domain.AnalyticsFilter, alias string, startIndex int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	a := normalizeAlias(alias)
	idx := startIndex

	if len(filter.RecipeIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("%sid = ANY($%d)", a, idx))
		args = append(args, pq.Array(filter.RecipeIDs))
		idx++
	}

	if filter.CategoryID != nil {
		clauses = append(clauses, fmt.Sprintf("%scategory_id = $%d", a, idx))
		args = append(args, *filter.CategoryID)
		idx++
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " AND " + strings.Join(clauses, " AND "), args
}

func normalizeAlias(alias string) string {
	if alias == "" {
		return ""
	}
	if !strings.HasSuffix(alias, ".") {
		return alias + "."
	}
	return alias
}

func kindStrings(kinds []domain.RecordKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

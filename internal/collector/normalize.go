package collector

import (
	"strings"

	"druglookup/internal/domain"
)

// NormalizeIngredients splits a comma-joined ingredient list, trims each
// entry, drops empty and repeated entries keeping the first occurrence, and
// rejoins with ", ".
func NormalizeIngredients(s string) string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}

// Normalize normalizes both ingredient fields of every record in place and
// returns the slice.
func Normalize(records []domain.DrugRecord) []domain.DrugRecord {
	for i := range records {
		records[i].ActiveIngredients = NormalizeIngredients(records[i].ActiveIngredients)
		records[i].InactiveIngredients = NormalizeIngredients(records[i].InactiveIngredients)
	}
	return records
}

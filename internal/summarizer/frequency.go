// Package summarizer describes a record set by its most frequent ingredients.
package summarizer

import (
	"fmt"
	"sort"
	"strings"

	"druglookup/internal/domain"
)

// Count is an ingredient and the number of records listing it.
type Count struct {
	Name    string
	Records int
}

// FrequencySummarizer ranks ingredients by how many records list them.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based ingredient ranker.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords()}
}

// TopActive returns the n most common active ingredients.
func (s *FrequencySummarizer) TopActive(records []domain.DrugRecord, n int) []Count {
	return s.top(records, n, func(r domain.DrugRecord) string { return r.ActiveIngredients })
}

// TopInactive returns the n most common inactive ingredients.
func (s *FrequencySummarizer) TopInactive(records []domain.DrugRecord, n int) []Count {
	return s.top(records, n, func(r domain.DrugRecord) string { return r.InactiveIngredients })
}

// Summarize returns a one-line description of the record set.
func (s *FrequencySummarizer) Summarize(records []domain.DrugRecord, n int) string {
	if len(records) == 0 {
		return "no local records"
	}
	top := s.TopActive(records, n)
	parts := make([]string, len(top))
	for i, c := range top {
		parts[i] = fmt.Sprintf("%s (%d)", c.Name, c.Records)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d local drugs", len(records))
	}
	return fmt.Sprintf("%d local drugs; common actives: %s", len(records), strings.Join(parts, ", "))
}

func (s *FrequencySummarizer) top(records []domain.DrugRecord, n int, field func(domain.DrugRecord) string) []Count {
	if n <= 0 {
		n = 5
	}
	freq := map[string]int{}
	display := map[string]string{}
	for _, r := range records {
		// count each ingredient once per record
		seen := map[string]struct{}{}
		for _, item := range strings.Split(field(r), ",") {
			name := strings.TrimSpace(item)
			key := strings.ToLower(name)
			if key == "" {
				continue
			}
			if _, ok := s.stopwords[key]; ok {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if _, ok := display[key]; !ok {
				display[key] = name
			}
			freq[key]++
		}
	}
	counts := make([]Count, 0, len(freq))
	for k, v := range freq {
		counts = append(counts, Count{Name: display[k], Records: v})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Records != counts[j].Records {
			return counts[i].Records > counts[j].Records
		}
		return strings.ToLower(counts[i].Name) < strings.ToLower(counts[j].Name)
	})
	if n > len(counts) {
		n = len(counts)
	}
	return counts[:n]
}

// defaultStopwords holds placeholder values that are not ingredients.
func defaultStopwords() map[string]struct{} {
	words := []string{"unknown", "n/a", "none", "nan"}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

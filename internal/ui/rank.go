package ui

import (
	"sort"

	"github.com/sahilm/fuzzy"
)

// Ranked is a candidate that matched a query
type Ranked struct {
	Index   int   // Position in the candidate list
	Matched []int // Byte offsets of the matched characters
}

// RankIndexes orders the candidates matching query by score, best first.
// An empty query keeps every candidate in its original order.
func RankIndexes(query string, candidates []string) []Ranked {
	if query == "" {
		out := make([]Ranked, len(candidates))
		for i := range candidates {
			out[i] = Ranked{Index: i}
		}
		return out
	}

	matches := fuzzy.Find(query, candidates)
	sort.Stable(matches)

	out := make([]Ranked, len(matches))
	for i, m := range matches {
		out[i] = Ranked{Index: m.Index, Matched: m.MatchedIndexes}
	}
	return out
}

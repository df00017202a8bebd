package match

import "sort"

// Rank orders score records by overall fit, best first. The sort is stable
// so records with equal fit keep their production order, and the input
// slice is left untouched. Ranking an already-ranked sequence returns the
// same sequence.
func Rank(records []*Score) []*Score {
	ranked := make([]*Score, len(records))
	copy(ranked, records)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OverallFit > ranked[j].OverallFit
	})

	return ranked
}

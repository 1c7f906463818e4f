package stats

import (
	"sort"

	"github.com/verte-zerg/ieltsmock/internal/model"
)

// SelectWeakSections selects up to top sections with the lowest average
// score. Sections already in the good band are never weak.
func SelectWeakSections(aggs []model.SectionAggregate, top int) map[model.Section]struct{} {
	weakSet := map[model.Section]struct{}{}
	candidates := make([]model.SectionAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Attempts == 0 || BandFor(Average(agg)) == BandGood {
			continue
		}
		candidates = append(candidates, agg)
	}
	if len(candidates) == 0 {
		return weakSet
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai := Average(candidates[i])
		aj := Average(candidates[j])
		if ai == aj {
			return candidates[i].Section < candidates[j].Section
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for i := 0; i < top; i++ {
		weakSet[candidates[i].Section] = struct{}{}
	}
	return weakSet
}

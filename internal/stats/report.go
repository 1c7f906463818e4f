package stats

import (
	"context"

	"github.com/verte-zerg/ieltsmock/internal/model"
	"github.com/verte-zerg/ieltsmock/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Attempts       []model.Attempt
	Summary        Summary
	SectionsWindow []model.SectionAggregate
	Distribution   []Bucket
}

// BuildReport loads and prepares data for history rendering. SectionsWindow
// covers the cfg.CurveWindow most recent attempts regardless of filters.
func BuildReport(ctx context.Context, st *store.Store, cfg model.HistoryConfig) (Report, error) {
	attempts, err := st.ListAttempts(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	window, err := st.SectionAggregates(ctx, cfg.CurveWindow)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Attempts:       attempts,
		Summary:        Summarize(attempts),
		SectionsWindow: window,
		Distribution:   Distribution(attempts),
	}, nil
}

// LatestFirst returns the attempts newest first.
func (r Report) LatestFirst() []model.Attempt {
	out := make([]model.Attempt, len(r.Attempts))
	for i, a := range r.Attempts {
		out[len(r.Attempts)-1-i] = a
	}
	return out
}

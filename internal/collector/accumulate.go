package collector

import (
	"github.com/IshaanNene/deskrank/internal/aggregate"
	"github.com/IshaanNene/deskrank/internal/types"
)

// accumulator folds mentions into one DiscoveredItem per ASIN, keeping the
// order in which codes were first seen.
type accumulator struct {
	source  types.SourceType
	combine aggregate.Combine
	order   []string
	byASIN  map[string]*types.DiscoveredItem
}

func newAccumulator(source types.SourceType, combine aggregate.Combine) *accumulator {
	return &accumulator{
		source:  source,
		combine: combine,
		byASIN:  make(map[string]*types.DiscoveredItem),
	}
}

// add records one mention. The first mention fixes the source URL and title.
func (a *accumulator) add(asin, sourceURL, sourceTitle string, engagement float64) {
	if engagement < 0 {
		engagement = 0
	}
	if it, ok := a.byASIN[asin]; ok {
		it.MentionCount++
		it.TotalEngagement = a.combine(it.TotalEngagement, engagement)
		return
	}
	a.order = append(a.order, asin)
	a.byASIN[asin] = &types.DiscoveredItem{
		ASIN:            asin,
		SourceType:      a.source,
		SourceURL:       sourceURL,
		SourceTitle:     sourceTitle,
		MentionCount:    1,
		TotalEngagement: engagement,
	}
}

func (a *accumulator) len() int { return len(a.order) }

func (a *accumulator) items() []types.DiscoveredItem {
	out := make([]types.DiscoveredItem, 0, len(a.order))
	for _, asin := range a.order {
		out = append(out, *a.byASIN[asin])
	}
	return out
}

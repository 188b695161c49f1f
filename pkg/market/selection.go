package market

import (
	"encoding/json"
	"sort"
)

const (
	// selectionMinOdds is the floor below which markets are considered noise.
	selectionMinOdds = 0.05
	// selectionMinMarkets is the fallback size when too few markets clear the floor.
	selectionMinMarkets = 2
	// selectionMaxMarkets caps how many markets are sent for analysis.
	selectionMaxMarkets = 5
)

// Selection is the condensed event handed to the analyzer: the surviving
// markets sorted by odds, each carrying its computed odds.
type Selection struct {
	Title       string
	Description string
	Markets     []Market
}

// SelectForAnalysis filters an event's markets down to the ones worth
// analyzing. Archived, inactive and closed markets are dropped, the rest are
// sorted by odds descending and trimmed: markets below the odds floor are cut,
// but at least two and at most five survive. Returns nil when nothing is
// eligible.
func SelectForAnalysis(ev *Event) *Selection {
	if ev == nil || len(ev.Markets) == 0 {
		return nil
	}

	eligible := make([]Market, 0, len(ev.Markets))
	for _, m := range ev.Markets {
		if m.Archived != nil && *m.Archived {
			continue
		}
		// Markets must be explicitly active.
		if m.Active == nil || !*m.Active {
			continue
		}
		if m.Closed != nil && *m.Closed {
			continue
		}
		eligible = append(eligible, m)
	}
	if len(eligible) == 0 {
		return nil
	}

	for i := range eligible {
		odds := eligible[i].Odds()
		eligible[i].CalculatedOdds = odds
		eligible[i].oddsComputed = true
		// Echo the odds back as a two-outcome price list for the prompt.
		prices, _ := json.Marshal([]string{formatFloat(odds), formatFloat(1 - odds)})
		eligible[i].OutcomePrices = prices
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].CalculatedOdds > eligible[j].CalculatedOdds
	})

	filtered := make([]Market, 0, len(eligible))
	for _, m := range eligible {
		if m.CalculatedOdds >= selectionMinOdds {
			filtered = append(filtered, m)
		}
	}

	var final []Market
	switch {
	case len(filtered) < selectionMinMarkets:
		if len(eligible) > selectionMinMarkets {
			final = eligible[:selectionMinMarkets]
		} else {
			final = eligible
		}
	case len(filtered) > selectionMaxMarkets:
		final = filtered[:selectionMaxMarkets]
	default:
		final = filtered
	}

	return &Selection{
		Title:       ev.Title,
		Description: ev.Description,
		Markets:     final,
	}
}

package correlation

import (
	"math"
	"sort"

	"github.com/quantpulse/corrseek-go/internal/models"
)

// Reduce compresses an anchor's raw correlation map for one window into the
// bounded top-n positively and top-n negatively correlated symbol lists, then
// deletes the raw map so memory stays O(n) per anchor per window regardless
// of universe size.
//
// Only strictly positive values qualify for the positive list and strictly
// negative values for the negative list; undefined (NaN) values are excluded
// from ranking entirely. Equal correlations tie-break by symbol lexical
// order, a deliberate choice to keep reduction deterministic.
//
// The lists are always non-nil once Reduce has run, so an anchor with zero
// qualifying candidates is distinguishable from one that was never computed.
func Reduce(anchor *models.AnchorSeries, window, n int) {
	corr := anchor.Correlations[window]

	positive := make([]models.CorrelatedSymbol, 0)
	negative := make([]models.CorrelatedSymbol, 0)
	for symbol, value := range corr {
		switch {
		case math.IsNaN(value):
		case value > 0:
			positive = append(positive, models.CorrelatedSymbol{Symbol: symbol, Correlation: value})
		case value < 0:
			negative = append(negative, models.CorrelatedSymbol{Symbol: symbol, Correlation: value})
		}
	}

	sort.Slice(positive, func(i, j int) bool {
		if positive[i].Correlation != positive[j].Correlation {
			return positive[i].Correlation > positive[j].Correlation
		}
		return positive[i].Symbol < positive[j].Symbol
	})
	sort.Slice(negative, func(i, j int) bool {
		if negative[i].Correlation != negative[j].Correlation {
			return negative[i].Correlation < negative[j].Correlation
		}
		return negative[i].Symbol < negative[j].Symbol
	})

	if len(positive) > n {
		positive = positive[:n]
	}
	if len(negative) > n {
		negative = negative[:n]
	}

	anchor.Positive[window] = positive
	anchor.Negative[window] = negative

	delete(anchor.Correlations, window)
}

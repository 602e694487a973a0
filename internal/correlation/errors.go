package correlation

import "errors"

// Data-quality failures are scoped to a single symbol (or a single
// symbol/window pair) and never abort a run; the symbol is skipped. Callers
// classify with errors.Is.
var (
	// ErrDataUnavailable: the symbol has no retrievable series at all.
	ErrDataUnavailable = errors.New("series data unavailable")

	// ErrDataRangeInsufficient: the series does not span the required window.
	// Skip for that window only; other windows may still qualify.
	ErrDataRangeInsufficient = errors.New("series does not cover required range")

	// ErrDataDegenerate: the series is empty, NaN-only, gapped beyond
	// tolerance, or contains stale repeating/linear runs. The symbol is
	// flagged as a candidate for permanent exclusion from the universe.
	ErrDataDegenerate = errors.New("series data degenerate")
)

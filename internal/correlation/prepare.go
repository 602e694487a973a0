package correlation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/quantpulse/corrseek-go/internal/cache"
	"github.com/quantpulse/corrseek-go/internal/models"
	"github.com/quantpulse/corrseek-go/internal/store"
)

// ValidationConfig holds the data-quality thresholds the preparer applies.
type ValidationConfig struct {
	// ObservationEnd is the date every series must reach.
	ObservationEnd time.Time
	// GapTolerance (W) is the shortest run of consecutive missing values
	// that disqualifies a series.
	GapTolerance int
	// RunDivisor feeds the stale-run length formula
	// L = max(3, n/(RunDivisor + ln(1+n))).
	RunDivisor float64
}

// ExclusionFlagger records symbols whose data is degenerate so future runs
// can drop them from the universe.
type ExclusionFlagger interface {
	Flag(symbol string)
}

// Preparer turns a symbol into a detrended per-window series: load from the
// series store (through the shared cache), validate, truncate to the window,
// first-difference.
//
// The cache holds the validated raw series keyed by symbol only; the
// window-dependent range check, truncation, and detrending rerun per window
// against the cached series.
type Preparer struct {
	store      store.SeriesStore
	cache      cache.SharedSeriesCache
	cfg        ValidationConfig
	exclusions ExclusionFlagger
}

func NewPreparer(seriesStore store.SeriesStore, seriesCache cache.SharedSeriesCache, cfg ValidationConfig, exclusions ExclusionFlagger) *Preparer {
	return &Preparer{store: seriesStore, cache: seriesCache, cfg: cfg, exclusions: exclusions}
}

// Prepare returns the detrended series for (symbol, window). Failures are
// classified with the package sentinel errors and scope to this symbol (and
// for range failures, this window); they are never fatal to a run.
func (p *Preparer) Prepare(ctx context.Context, symbol string, window int) (*models.TimeSeries, error) {
	raw, err := p.cache.GetOrCompute(ctx, symbol, func(ctx context.Context) (*models.TimeSeries, error) {
		return p.loadValidated(ctx, symbol)
	})
	if err != nil {
		if errors.Is(err, ErrDataDegenerate) {
			p.exclusions.Flag(symbol)
		}
		return nil, err
	}

	if err := p.checkWindowCoverage(raw, window); err != nil {
		return nil, err
	}

	return raw.TruncateFrom(window).Detrend(), nil
}

// loadValidated is the cache compute function: it loads the raw series and
// applies every window-independent check. Failed loads are not cached, so a
// transient store failure retries on the next lookup.
func (p *Preparer) loadValidated(ctx context.Context, symbol string) (*models.TimeSeries, error) {
	raw, err := p.store.LoadRawSeries(ctx, symbol)
	if err != nil {
		if errors.Is(err, store.ErrSeriesNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, symbol)
		}
		return nil, fmt.Errorf("failed to load series for %s: %w", symbol, err)
	}

	if err := validateSeries(raw, p.cfg); err != nil {
		return nil, err
	}

	return raw, nil
}

// checkWindowCoverage verifies the series spans the window: its earliest
// observation must fall no later than January of the window's start year and
// its latest must reach the configured end date. Both checks work at month
// granularity, matching the tolerance the data source's calendars need.
func (p *Preparer) checkWindowCoverage(series *models.TimeSeries, window int) error {
	first := series.FirstDate()
	last := series.LastDate()

	startsLate := first.Year() > window ||
		(first.Year() == window && first.Month() > time.January)
	endsEarly := last.Year() < p.cfg.ObservationEnd.Year() ||
		(last.Year() == p.cfg.ObservationEnd.Year() && last.Month() < p.cfg.ObservationEnd.Month())

	if startsLate || endsEarly {
		return fmt.Errorf("%w: %s for window %d", ErrDataRangeInsufficient, series.Symbol, window)
	}
	return nil
}

// validateSeries applies the window-independent data-quality checks.
func validateSeries(series *models.TimeSeries, cfg ValidationConfig) error {
	values := series.Values()

	if isEmptyOrConstant(values) {
		return fmt.Errorf("%w: %s is empty or constant", ErrDataDegenerate, series.Symbol)
	}
	if run := longestNaNRun(values); run >= cfg.GapTolerance {
		return fmt.Errorf("%w: %s has %d consecutive missing values", ErrDataDegenerate, series.Symbol, run)
	}
	if length, found := staleRunLength(values, cfg.RunDivisor); found {
		return fmt.Errorf("%w: %s has a repeating or linear run of length %d", ErrDataDegenerate, series.Symbol, length)
	}
	return nil
}

// isEmptyOrConstant reports whether the series carries no information at all:
// no observations, NaN-only, or a single distinct value.
func isEmptyOrConstant(values []float64) bool {
	var first float64
	distinct := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if distinct == 0 {
			first = v
			distinct = 1
		} else if v != first {
			return false
		}
	}
	return distinct <= 1
}

func longestNaNRun(values []float64) int {
	longest, current := 0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

// staleRunWindow computes L, the run length that marks a series as stale
// placeholder data: L = max(3, n/(divisor + ln(1+n))).
func staleRunWindow(n int, divisor float64) int {
	length := int(float64(n) / (divisor + math.Log1p(float64(n))))
	if length < 3 {
		length = 3
	}
	return length
}

// staleRunLength scans for a window of L consecutive identical or exactly
// linear values. NaNs never equal each other, so gaps break runs naturally.
func staleRunLength(values []float64, divisor float64) (int, bool) {
	n := len(values)
	window := staleRunWindow(n, divisor)
	if n < window {
		return window, false
	}

	for i := 0; i+window <= n; i++ {
		if isConstantRun(values[i:i+window]) || isLinearRun(values[i:i+window]) {
			return window, true
		}
	}
	return window, false
}

func isConstantRun(window []float64) bool {
	for _, v := range window[1:] {
		if v != window[0] {
			return false
		}
	}
	return !math.IsNaN(window[0])
}

func isLinearRun(window []float64) bool {
	if len(window) < 3 {
		return false
	}
	step := window[1] - window[0]
	if math.IsNaN(step) {
		return false
	}
	for i := 2; i < len(window); i++ {
		if window[i]-window[i-1] != step {
			return false
		}
	}
	return true
}

package correlation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpulse/corrseek-go/internal/cache"
	"github.com/quantpulse/corrseek-go/internal/models"
	"github.com/quantpulse/corrseek-go/internal/store"
)

// fakeSeriesStore serves canned series from memory.
type fakeSeriesStore struct {
	mu      sync.Mutex
	series  map[string]*models.TimeSeries
	pingErr error
	loads   map[string]int
}

func newFakeSeriesStore() *fakeSeriesStore {
	return &fakeSeriesStore{
		series: make(map[string]*models.TimeSeries),
		loads:  make(map[string]int),
	}
}

func (f *fakeSeriesStore) add(s *models.TimeSeries) {
	f.series[s.Symbol] = s
}

func (f *fakeSeriesStore) LoadRawSeries(ctx context.Context, symbol string) (*models.TimeSeries, error) {
	f.mu.Lock()
	f.loads[symbol]++
	f.mu.Unlock()
	s, ok := f.series[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSeriesNotFound, symbol)
	}
	return s, nil
}

func (f *fakeSeriesStore) Ping(ctx context.Context) error {
	return f.pingErr
}

// recordingFlagger collects flagged symbols.
type recordingFlagger struct {
	mu      sync.Mutex
	flagged []string
}

func (r *recordingFlagger) Flag(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flagged = append(r.flagged, symbol)
}

// noisySeries builds a smooth non-degenerate daily series: a slow sine plus a
// gentle trend never produces constant or exactly linear runs.
func noisySeries(symbol string, start time.Time, n int) *models.TimeSeries {
	s := &models.TimeSeries{Symbol: symbol}
	for i := 0; i < n; i++ {
		value := 100 + 10*math.Sin(float64(i)*0.8) + float64(i)*0.1
		s.Observations = append(s.Observations, models.Observation{
			Date:  start.AddDate(0, 0, i),
			Value: value,
		})
	}
	return s
}

func testValidationConfig() ValidationConfig {
	return ValidationConfig{
		ObservationEnd: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
		GapTolerance:   10,
		RunDivisor:     35,
	}
}

func newTestPreparer(seriesStore store.SeriesStore) (*Preparer, *recordingFlagger, *cache.MemorySeriesCache) {
	flagger := &recordingFlagger{}
	memCache := cache.NewMemorySeriesCache()
	return NewPreparer(seriesStore, memCache, testValidationConfig(), flagger), flagger, memCache
}

func TestPreparer_Prepare_Success(t *testing.T) {
	fs := newFakeSeriesStore()
	raw := noisySeries("AAA", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 200)
	fs.add(raw)
	preparer, flagger, _ := newTestPreparer(fs)

	detrended, err := preparer.Prepare(context.Background(), "AAA", 2019)

	require.NoError(t, err)
	// Full-range window: n observations detrend to n-1
	assert.Equal(t, raw.Len()-1, detrended.Len())
	for _, v := range detrended.Values() {
		assert.False(t, math.IsNaN(v))
	}
	assert.Empty(t, flagger.flagged)
}

func TestPreparer_Prepare_SymbolNotFound(t *testing.T) {
	preparer, flagger, _ := newTestPreparer(newFakeSeriesStore())

	_, err := preparer.Prepare(context.Background(), "NOPE", 2019)

	require.ErrorIs(t, err, ErrDataUnavailable)
	assert.Empty(t, flagger.flagged)
}

func TestPreparer_Prepare_GapTooLong(t *testing.T) {
	fs := newFakeSeriesStore()
	raw := noisySeries("GAP", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 200)
	for i := 50; i < 60; i++ { // 10 consecutive missing values
		raw.Observations[i].Value = math.NaN()
	}
	fs.add(raw)
	preparer, flagger, _ := newTestPreparer(fs)

	_, err := preparer.Prepare(context.Background(), "GAP", 2019)

	require.ErrorIs(t, err, ErrDataDegenerate)
	assert.Contains(t, flagger.flagged, "GAP")
}

func TestPreparer_Prepare_GapWithinTolerance(t *testing.T) {
	fs := newFakeSeriesStore()
	raw := noisySeries("OK", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 200)
	for i := 50; i < 58; i++ { // 8 consecutive missing values, under the limit
		raw.Observations[i].Value = math.NaN()
	}
	fs.add(raw)
	preparer, flagger, _ := newTestPreparer(fs)

	detrended, err := preparer.Prepare(context.Background(), "OK", 2019)

	require.NoError(t, err)
	for _, v := range detrended.Values() {
		assert.False(t, math.IsNaN(v))
	}
	assert.Empty(t, flagger.flagged)
}

func TestPreparer_Prepare_RepeatingRun(t *testing.T) {
	fs := newFakeSeriesStore()
	raw := noisySeries("STALE", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 200)
	for i := 100; i < 115; i++ { // 15 consecutive identical values
		raw.Observations[i].Value = 42
	}
	fs.add(raw)
	preparer, flagger, _ := newTestPreparer(fs)

	_, err := preparer.Prepare(context.Background(), "STALE", 2019)

	require.ErrorIs(t, err, ErrDataDegenerate)
	assert.Contains(t, flagger.flagged, "STALE")
}

func TestPreparer_Prepare_LinearRun(t *testing.T) {
	fs := newFakeSeriesStore()
	raw := noisySeries("LINE", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 200)
	for i := 0; i < 15; i++ { // exactly linear segment
		raw.Observations[100+i].Value = 50 + float64(i)*0.25
	}
	fs.add(raw)
	preparer, flagger, _ := newTestPreparer(fs)

	_, err := preparer.Prepare(context.Background(), "LINE", 2019)

	require.ErrorIs(t, err, ErrDataDegenerate)
	assert.Contains(t, flagger.flagged, "LINE")
}

func TestPreparer_Prepare_ConstantSeries(t *testing.T) {
	fs := newFakeSeriesStore()
	s := &models.TimeSeries{Symbol: "FLAT"}
	start := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		s.Observations = append(s.Observations, models.Observation{Date: start.AddDate(0, 0, i), Value: 7})
	}
	fs.add(s)
	preparer, flagger, _ := newTestPreparer(fs)

	_, err := preparer.Prepare(context.Background(), "FLAT", 2019)

	require.ErrorIs(t, err, ErrDataDegenerate)
	assert.Contains(t, flagger.flagged, "FLAT")
}

func TestPreparer_Prepare_StartsTooLate(t *testing.T) {
	fs := newFakeSeriesStore()
	// First observation in February of the window year: outside the
	// month-level tolerance.
	fs.add(noisySeries("LATE", time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC), 200))
	preparer, flagger, _ := newTestPreparer(fs)

	_, err := preparer.Prepare(context.Background(), "LATE", 2019)

	require.ErrorIs(t, err, ErrDataRangeInsufficient)
	// Range failures are per-window, not degenerate data: never flagged
	assert.Empty(t, flagger.flagged)
}

func TestPreparer_Prepare_EndsTooEarly(t *testing.T) {
	fs := newFakeSeriesStore()
	// 60 daily observations from Jan 2019 end in early March, well before
	// the configured June end date.
	fs.add(noisySeries("SHORT", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 60))
	preparer, _, _ := newTestPreparer(fs)

	_, err := preparer.Prepare(context.Background(), "SHORT", 2019)

	require.ErrorIs(t, err, ErrDataRangeInsufficient)
}

func TestPreparer_Prepare_EarlierSeriesCoversLaterWindow(t *testing.T) {
	fs := newFakeSeriesStore()
	// Starts in 2018, runs ~400 days into mid-2019
	fs.add(noisySeries("AAA", time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), 460))
	preparer, _, _ := newTestPreparer(fs)

	detrended, err := preparer.Prepare(context.Background(), "AAA", 2019)

	require.NoError(t, err)
	// Truncation keeps only observations from the window start year on
	assert.Equal(t, 2019, detrended.FirstDate().Year())
}

func TestPreparer_Prepare_CachesAcrossWindows(t *testing.T) {
	fs := newFakeSeriesStore()
	fs.add(noisySeries("AAA", time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), 600))
	preparer, _, memCache := newTestPreparer(fs)

	first, err := preparer.Prepare(context.Background(), "AAA", 2018)
	require.NoError(t, err)
	second, err := preparer.Prepare(context.Background(), "AAA", 2019)
	require.NoError(t, err)

	// One store load serves both windows; the second lookup is a hit
	assert.Equal(t, 1, fs.loads["AAA"])
	hits, _ := memCache.Hits(context.Background())
	misses, _ := memCache.Misses(context.Background())
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	// Different windows, different truncation points
	assert.Equal(t, 2018, first.FirstDate().Year())
	assert.Equal(t, 2019, second.FirstDate().Year())
}

func TestPreparer_Prepare_FailuresAreNotCached(t *testing.T) {
	fs := newFakeSeriesStore()
	preparer, _, memCache := newTestPreparer(fs)

	_, err := preparer.Prepare(context.Background(), "NOPE", 2019)
	require.Error(t, err)
	_, err = preparer.Prepare(context.Background(), "NOPE", 2019)
	require.Error(t, err)

	// Both lookups recompute: misses only, no cached failure
	misses, _ := memCache.Misses(context.Background())
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, 2, fs.loads["NOPE"])
}

func TestStaleRunWindow(t *testing.T) {
	// Small series floor at 3
	assert.Equal(t, 3, staleRunWindow(50, 35))
	// n=200: 200/(35+ln(201)) = 4.96 -> 4
	assert.Equal(t, 4, staleRunWindow(200, 35))
}

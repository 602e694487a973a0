package correlation

import (
	"context"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/quantpulse/corrseek-go/internal/models"
)

// Engine computes, for one window at a time, the Pearson correlation between
// every anchor and every candidate symbol across a bounded worker pool.
type Engine struct {
	preparer *Preparer
	workers  int
	logger   *logrus.Logger
}

func NewEngine(preparer *Preparer, workers int, logger *logrus.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{preparer: preparer, workers: workers, logger: logger}
}

// pairResult is one computed (anchor, candidate) correlation, staged in a
// worker-private slice until the merge.
type pairResult struct {
	anchorIdx int
	symbol    string
	value     float64
}

// Compute fills each anchor's correlation map for the window. Candidates are
// statically partitioned across the pool: each worker owns a disjoint slice
// and evaluates every anchor for each of its candidates. Workers never touch
// the anchors; results merge into the maps only after the pool has drained,
// so the maps need no locking.
//
// A candidate whose preparation fails is skipped for this window and the
// batch carries on. Undefined correlations (fewer than two overlapping
// observations, or zero variance) are simply not recorded.
func (e *Engine) Compute(ctx context.Context, anchors []*models.AnchorSeries, candidates []string, window int) {
	candidates = dedupe(candidates)

	workers := e.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	if workers < 1 {
		return
	}

	results := make([][]pairResult, workers)
	chunk := (len(candidates) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > len(candidates) {
			end = len(candidates)
		}

		wg.Add(1)
		go func(w int, owned []string) {
			defer wg.Done()
			results[w] = e.computePartition(ctx, anchors, owned, window)
		}(w, candidates[start:end])
	}
	wg.Wait()

	for _, partition := range results {
		for _, r := range partition {
			anchors[r.anchorIdx].Record(window, r.symbol, r.value)
		}
	}
}

func (e *Engine) computePartition(ctx context.Context, anchors []*models.AnchorSeries, owned []string, window int) []pairResult {
	var out []pairResult
	for _, symbol := range owned {
		if ctx.Err() != nil {
			return out
		}

		candidate, err := e.preparer.Prepare(ctx, symbol, window)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"symbol": symbol,
				"window": window,
			}).WithError(err).Debug("Skipping candidate")
			continue
		}

		for i, anchor := range anchors {
			if anchor.Symbol == symbol {
				continue
			}
			detrended := anchor.Detrended[window]
			if detrended == nil {
				continue
			}

			x, y := AlignInnerJoin(detrended, candidate)
			value := Pearson(x, y)
			if math.IsNaN(value) {
				continue
			}
			out = append(out, pairResult{anchorIdx: i, symbol: symbol, value: value})
		}
	}
	return out
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := symbols[:0:0]
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

package correlation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quantpulse/corrseek-go/internal/cache"
	"github.com/quantpulse/corrseek-go/internal/config"
	"github.com/quantpulse/corrseek-go/internal/models"
	"github.com/quantpulse/corrseek-go/internal/resources"
	"github.com/quantpulse/corrseek-go/internal/store"
	"github.com/quantpulse/corrseek-go/internal/universe"
)

// CacheFactory builds the run's shared series cache. The coordinator owns the
// cache lifetime: one cache per run, visible to every worker.
type CacheFactory func(runID string) cache.SharedSeriesCache

// UniverseBuilder supplies the candidate universe for a run.
type UniverseBuilder interface {
	Build(ctx context.Context) (*universe.Universe, error)
}

// Coordinator drives a correlation run end to end: anchor preparation, the
// per-window compute/reduce loop, result hand-off, and the degenerate-symbol
// exclusion report.
type Coordinator struct {
	cfg         *config.Config
	seriesStore store.SeriesStore
	newCache    CacheFactory
	universes   UniverseBuilder
	consumer    store.ResultConsumer
	logger      *logrus.Logger
}

func NewCoordinator(cfg *config.Config, seriesStore store.SeriesStore, newCache CacheFactory,
	universes UniverseBuilder, consumer store.ResultConsumer, logger *logrus.Logger) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		seriesStore: seriesStore,
		newCache:    newCache,
		universes:   universes,
		consumer:    consumer,
		logger:      logger,
	}
}

// Run computes correlations for the given anchor symbols across every
// configured window. Windows run sequentially; each is computed fully before
// the next starts, which bounds peak memory to one window's working state.
//
// Fatal conditions are configuration-level only: an unreachable series store
// or no usable anchors. Per-symbol data failures skip the symbol and the run
// carries on.
func (c *Coordinator) Run(ctx context.Context, anchorSymbols []string) ([]*models.AnchorSeries, error) {
	runID := uuid.NewString()
	logger := c.logger.WithField("run_id", runID)
	started := time.Now()

	if err := c.seriesStore.Ping(ctx); err != nil {
		return nil, fmt.Errorf("series store unreachable: %w", err)
	}

	seriesCache := c.newCache(runID)
	exclusions := universe.NewExclusionRecorder()
	preparer := NewPreparer(c.seriesStore, seriesCache, ValidationConfig{
		ObservationEnd: c.cfg.ObservationEndDate(),
		GapTolerance:   c.cfg.Analysis.GapTolerance,
		RunDivisor:     c.cfg.Analysis.RunDivisor,
	}, exclusions)

	anchors, err := c.prepareAnchors(ctx, preparer, anchorSymbols)
	if err != nil {
		return nil, err
	}

	candidates, err := c.universes.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build candidate universe: %w", err)
	}

	workers := resources.WorkerCount(c.cfg.Analysis.MaxWorkers)
	engine := NewEngine(preparer, workers, c.logger)
	logger.WithFields(logrus.Fields{
		"anchors":    len(anchors),
		"candidates": candidates.Size(),
		"windows":    len(c.cfg.Analysis.Windows),
		"workers":    workers,
	}).Info("Starting correlation run")

	symbols := candidates.Symbols()
	for _, window := range c.cfg.Analysis.Windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		windowStarted := time.Now()
		engine.Compute(ctx, anchors, symbols, window)

		for _, anchor := range anchors {
			Reduce(anchor, window, c.cfg.Analysis.TopK)
			if err := c.consumer.ConsumeWindow(ctx, runID, anchor, window); err != nil {
				logger.WithFields(logrus.Fields{
					"anchor": anchor.Symbol,
					"window": window,
				}).WithError(err).Error("Failed to hand off window results")
			}
		}

		logger.WithFields(logrus.Fields{
			"window":   window,
			"duration": time.Since(windowStarted).Round(time.Millisecond).String(),
		}).Info("Window complete")
	}

	if err := exclusions.WriteTo(c.cfg.Universe.ExclusionsFile); err != nil {
		logger.WithError(err).Warn("Failed to write exclusion report")
	} else if exclusions.Flagged() > 0 {
		logger.WithField("symbols", exclusions.Flagged()).Info("Flagged degenerate symbols for exclusion")
	}

	c.logCacheStats(ctx, seriesCache, logger)
	logger.WithField("duration", time.Since(started).Round(time.Millisecond).String()).Info("Correlation run complete")

	return anchors, nil
}

// prepareAnchors builds anchor objects with their per-window detrended
// series. An anchor that fails preparation for a window skips that window; an
// anchor with no usable window at all is dropped with a warning. Zero usable
// anchors is a configuration-level failure.
func (c *Coordinator) prepareAnchors(ctx context.Context, preparer *Preparer, anchorSymbols []string) ([]*models.AnchorSeries, error) {
	var anchors []*models.AnchorSeries
	for _, symbol := range dedupe(anchorSymbols) {
		anchor := models.NewAnchorSeries(symbol)
		for _, window := range c.cfg.Analysis.Windows {
			detrended, err := preparer.Prepare(ctx, symbol, window)
			if err != nil {
				c.logger.WithFields(logrus.Fields{
					"anchor": symbol,
					"window": window,
				}).WithError(err).Warn("Anchor unusable for window")
				continue
			}
			anchor.Detrended[window] = detrended
		}

		if len(anchor.Detrended) == 0 {
			c.logger.WithField("anchor", symbol).Warn("Dropping anchor with no usable data")
			continue
		}
		anchors = append(anchors, anchor)
	}

	if len(anchors) == 0 {
		return nil, errors.New("no usable anchors: every requested symbol failed preparation")
	}
	return anchors, nil
}

func (c *Coordinator) logCacheStats(ctx context.Context, seriesCache cache.SharedSeriesCache, logger *logrus.Entry) {
	hits, err := seriesCache.Hits(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to read cache stats")
		return
	}
	misses, err := seriesCache.Misses(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to read cache stats")
		return
	}
	logger.WithFields(logrus.Fields{"cache_hits": hits, "cache_misses": misses}).Info("Series cache totals")
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/quantpulse/corrseek-go/internal/models"
)

// ErrResultsNotComputed indicates no run has ever produced results for the
// requested anchor and window. Distinct from computed-but-empty lists.
var ErrResultsNotComputed = errors.New("results not computed")

// ResultConsumer receives finalized per-window anchor results. Implementations
// only ever see the bounded positive/negative lists, never a raw correlation map.
type ResultConsumer interface {
	ConsumeWindow(ctx context.Context, runID string, anchor *models.AnchorSeries, window int) error
}

// WindowResult is one persisted per-anchor, per-window outcome as read back
// for presentation.
type WindowResult struct {
	AnchorSymbol string                    `json:"anchor_symbol"`
	Window       int                       `json:"window"`
	Positive     []models.CorrelatedSymbol `json:"positive"`
	Negative     []models.CorrelatedSymbol `json:"negative"`
}

// PostgresResultStore persists reduced top-K lists in correlation_results and
// serves them back to the API layer.
type PostgresResultStore struct {
	pool PgxPool
}

func NewPostgresResultStore(pool PgxPool) *PostgresResultStore {
	return &PostgresResultStore{pool: pool}
}

// ConsumeWindow upserts the anchor's reduced lists for one window. Rows are
// keyed by (anchor, window, direction, rank) so a re-run replaces its
// predecessor instead of accumulating.
func (s *PostgresResultStore) ConsumeWindow(ctx context.Context, runID string, anchor *models.AnchorSeries, window int) error {
	if err := s.replaceDirection(ctx, runID, anchor.Symbol, window, "positive", anchor.Positive[window]); err != nil {
		return err
	}
	if err := s.replaceDirection(ctx, runID, anchor.Symbol, window, "negative", anchor.Negative[window]); err != nil {
		return err
	}

	// Marker row: an anchor window with empty lists is still "computed",
	// which readers must be able to tell apart from "never run".
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO anchor_windows (anchor_symbol, window_year, run_id, computed_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (anchor_symbol, window_year)
		 DO UPDATE SET run_id = EXCLUDED.run_id, computed_at = EXCLUDED.computed_at`,
		anchor.Symbol, window, runID); err != nil {
		return fmt.Errorf("failed to mark window computed for %s/%d: %w", anchor.Symbol, window, err)
	}
	return nil
}

func (s *PostgresResultStore) replaceDirection(ctx context.Context, runID, anchorSymbol string, window int, direction string, list []models.CorrelatedSymbol) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM correlation_results WHERE anchor_symbol = $1 AND window_year = $2 AND direction = $3`,
		anchorSymbol, window, direction); err != nil {
		return fmt.Errorf("failed to clear %s results for %s/%d: %w", direction, anchorSymbol, window, err)
	}

	for rank, cs := range list {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO correlation_results (run_id, anchor_symbol, window_year, direction, rank, symbol, correlation)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, anchorSymbol, window, direction, rank+1, cs.Symbol, cs.Correlation); err != nil {
			return fmt.Errorf("failed to insert result %s for %s/%d: %w", cs.Symbol, anchorSymbol, window, err)
		}
	}
	return nil
}

// LoadWindow reads back the persisted lists for an anchor and window. Both
// lists come back in stored rank order. An anchor that was computed but had
// no qualifying candidates yields empty, non-nil lists.
func (s *PostgresResultStore) LoadWindow(ctx context.Context, anchorSymbol string, window int) (*WindowResult, error) {
	var runID string
	err := s.pool.QueryRow(ctx,
		`SELECT run_id FROM anchor_windows WHERE anchor_symbol = $1 AND window_year = $2`,
		anchorSymbol, window).Scan(&runID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%d", ErrResultsNotComputed, anchorSymbol, window)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check computed marker for %s/%d: %w", anchorSymbol, window, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT direction, symbol, correlation FROM correlation_results
		 WHERE anchor_symbol = $1 AND window_year = $2 ORDER BY direction, rank`,
		anchorSymbol, window)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for %s/%d: %w", anchorSymbol, window, err)
	}
	defer rows.Close()

	result := &WindowResult{
		AnchorSymbol: anchorSymbol,
		Window:       window,
		Positive:     []models.CorrelatedSymbol{},
		Negative:     []models.CorrelatedSymbol{},
	}
	for rows.Next() {
		var direction string
		var cs models.CorrelatedSymbol
		if err := rows.Scan(&direction, &cs.Symbol, &cs.Correlation); err != nil {
			return nil, fmt.Errorf("failed to scan result for %s/%d: %w", anchorSymbol, window, err)
		}
		if direction == "positive" {
			result.Positive = append(result.Positive, cs)
		} else {
			result.Negative = append(result.Negative, cs)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results for %s/%d: %w", anchorSymbol, window, err)
	}

	return result, nil
}

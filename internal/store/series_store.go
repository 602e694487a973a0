package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/quantpulse/corrseek-go/internal/models"
)

// ErrSeriesNotFound indicates the store has no observations for a symbol.
var ErrSeriesNotFound = errors.New("series not found")

// PgxPool is the pgxpool surface the stores depend on. pgxmock satisfies it
// in tests.
type PgxPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// SeriesStore loads raw time-indexed series for symbols. Observations come
// back date-ascending with one scalar value per date; a missing value is NaN.
type SeriesStore interface {
	LoadRawSeries(ctx context.Context, symbol string) (*models.TimeSeries, error)
	Ping(ctx context.Context) error
}

// PostgresSeriesStore reads adjusted-close history from the price_history table.
type PostgresSeriesStore struct {
	pool PgxPool
}

func NewPostgresSeriesStore(pool PgxPool) *PostgresSeriesStore {
	return &PostgresSeriesStore{pool: pool}
}

func (s *PostgresSeriesStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// LoadRawSeries returns the full adjusted-close history for a symbol. SQL
// NULL values become NaN observations so downstream gap validation sees them.
func (s *PostgresSeriesStore) LoadRawSeries(ctx context.Context, symbol string) (*models.TimeSeries, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT observed_on, adj_close FROM price_history WHERE symbol = $1 ORDER BY observed_on ASC`,
		symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query series for %s: %w", symbol, err)
	}
	defer rows.Close()

	series := &models.TimeSeries{Symbol: symbol}
	for rows.Next() {
		var observedOn time.Time
		var adjClose decimal.NullDecimal
		if err := rows.Scan(&observedOn, &adjClose); err != nil {
			return nil, fmt.Errorf("failed to scan observation for %s: %w", symbol, err)
		}
		value := math.NaN()
		if adjClose.Valid {
			value = adjClose.Decimal.InexactFloat64()
		}
		series.Observations = append(series.Observations, models.Observation{
			Date:  observedOn,
			Value: value,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read series for %s: %w", symbol, err)
	}

	if len(series.Observations) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSeriesNotFound, symbol)
	}

	return series, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"unicode"

	"github.com/jackc/pgx/v5"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/quantpulse/corrseek-go/internal/models"
)

// ErrMetadataMissing indicates the catalog has no record for a symbol.
var ErrMetadataMissing = errors.New("metadata missing")

// missingValue is the placeholder for catalog fields the source never had,
// matching what presentation code expects to display.
const missingValue = "Missing"

// MetadataCatalog resolves descriptive metadata for a symbol. The correlation
// core never consults it; only presentation code does, lazily.
type MetadataCatalog interface {
	Lookup(ctx context.Context, symbol string) (*models.SymbolMetadata, error)
}

// PostgresMetadataCatalog reads the symbol_metadata table.
type PostgresMetadataCatalog struct {
	pool PgxPool
}

func NewPostgresMetadataCatalog(pool PgxPool) *PostgresMetadataCatalog {
	return &PostgresMetadataCatalog{pool: pool}
}

func (c *PostgresMetadataCatalog) Lookup(ctx context.Context, symbol string) (*models.SymbolMetadata, error) {
	var m models.SymbolMetadata
	var name, sector, industry, market, country, state, marketCap, source *string

	err := c.pool.QueryRow(ctx,
		`SELECT name, sector, industry, market, country, state, market_cap, source
		 FROM symbol_metadata WHERE symbol = $1`,
		symbol).Scan(&name, &sector, &industry, &market, &country, &state, &marketCap, &source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMetadataMissing, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up metadata for %s: %w", symbol, err)
	}

	m.Symbol = symbol
	m.Name = normalizeField(name)
	m.Sector = normalizeField(sector)
	m.Industry = normalizeField(industry)
	m.Market = normalizeField(market)
	m.Country = normalizeField(country)
	m.State = normalizeField(state)
	m.MarketCap = normalizeField(marketCap)
	m.Source = normalizeField(source)

	return &m, nil
}

// asciiFold decomposes accented characters and strips the combining marks so
// catalog text renders consistently regardless of the source encoding.
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeField folds a nullable catalog value to plain ASCII-safe text,
// substituting the missing placeholder for absent or empty values.
func normalizeField(raw *string) string {
	if raw == nil || *raw == "" {
		return missingValue
	}
	folded, _, err := transform.String(asciiFold, *raw)
	if err != nil || folded == "" {
		return missingValue
	}
	return folded
}

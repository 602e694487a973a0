package universe

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/quantpulse/corrseek-go/internal/config"
	"github.com/quantpulse/corrseek-go/internal/store"
)

// Universe is the deduplicated candidate symbol set an anchor is compared
// against. It is built once per run and read-only afterwards; iteration order
// carries no meaning.
type Universe struct {
	symbols map[string]struct{}
}

// FromSymbols builds a universe from an explicit symbol list, deduplicated.
func FromSymbols(symbols []string) *Universe {
	u := &Universe{symbols: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		u.symbols[s] = struct{}{}
	}
	return u
}

func (u *Universe) Size() int {
	return len(u.symbols)
}

func (u *Universe) Contains(symbol string) bool {
	_, ok := u.symbols[symbol]
	return ok
}

// Symbols returns the members in lexical order. The engine partitions this
// slice across workers; sorting keeps partitions stable between runs.
func (u *Universe) Symbols() []string {
	out := make([]string, 0, len(u.symbols))
	for s := range u.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Builder assembles the candidate universe from the metadata catalog's asset
// classes, an optional allow-list file, and an optional deny-list file.
type Builder struct {
	pool   store.PgxPool
	cfg    config.UniverseConfig
	logger *logrus.Logger
}

func NewBuilder(pool store.PgxPool, cfg config.UniverseConfig, logger *logrus.Logger) *Builder {
	return &Builder{pool: pool, cfg: cfg, logger: logger}
}

// Build assembles the universe. Set semantics: duplicates across sources
// collapse to one membership.
func (b *Builder) Build(ctx context.Context) (*Universe, error) {
	u := &Universe{symbols: make(map[string]struct{})}

	var sources []string
	if b.cfg.IncludeStocks {
		sources = append(sources, "stock")
	}
	if b.cfg.IncludeETFs {
		sources = append(sources, "etf")
	}
	if b.cfg.IncludeIndices {
		sources = append(sources, "index")
	}

	for _, source := range sources {
		rows, err := b.pool.Query(ctx,
			`SELECT symbol FROM symbol_metadata WHERE source = $1`, source)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s symbols: %w", source, err)
		}
		count := 0
		for rows.Next() {
			var symbol string
			if err := rows.Scan(&symbol); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s symbol: %w", source, err)
			}
			u.symbols[symbol] = struct{}{}
			count++
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s symbols: %w", source, err)
		}
		b.logger.WithFields(logrus.Fields{"source": source, "count": count}).Debug("Added universe source")
	}

	if b.cfg.SymbolsFile != "" {
		extra, err := readSymbolFile(b.cfg.SymbolsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read symbols file: %w", err)
		}
		for _, symbol := range extra {
			u.symbols[symbol] = struct{}{}
		}
	}

	if b.cfg.ExclusionsFile != "" {
		excluded, err := readSymbolFile(b.cfg.ExclusionsFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read exclusions file: %w", err)
		}
		for _, symbol := range excluded {
			delete(u.symbols, symbol)
		}
	}

	b.logger.WithField("size", len(u.symbols)).Info("Candidate universe built")
	return u, nil
}

func readSymbolFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var symbols []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		symbol := strings.TrimSpace(scanner.Text())
		if symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	return symbols, scanner.Err()
}

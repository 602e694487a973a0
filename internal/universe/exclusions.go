package universe

import (
	"fmt"
	"os"
	"sync"
)

// ExclusionRecorder collects symbols whose data turned out degenerate during a
// run so they can be dropped from future universes. Flag is safe to call from
// concurrent workers.
type ExclusionRecorder struct {
	mu      sync.Mutex
	flagged map[string]struct{}
}

func NewExclusionRecorder() *ExclusionRecorder {
	return &ExclusionRecorder{flagged: make(map[string]struct{})}
}

// Flag marks a symbol as a candidate for permanent exclusion.
func (r *ExclusionRecorder) Flag(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flagged[symbol] = struct{}{}
}

// Flagged returns how many distinct symbols were flagged.
func (r *ExclusionRecorder) Flagged() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flagged)
}

// WriteTo appends the flagged symbols to the exclusions file. A symbol may
// appear more than once across runs; Build tolerates duplicates since the
// universe is a set.
func (r *ExclusionRecorder) WriteTo(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if path == "" || len(r.flagged) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open exclusions file: %w", err)
	}
	defer f.Close()

	for symbol := range r.flagged {
		if _, err := fmt.Fprintln(f, symbol); err != nil {
			return fmt.Errorf("failed to append exclusion %s: %w", symbol, err)
		}
	}
	return nil
}

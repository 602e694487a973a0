package models

// CorrelatedSymbol pairs a candidate symbol with its correlation against an
// anchor for one window. Descriptive metadata is resolved lazily from the
// metadata catalog, never stored here.
type CorrelatedSymbol struct {
	Symbol      string  `json:"symbol"`
	Correlation float64 `json:"correlation"`
}

// AnchorSeries is one subject of analysis: a tradable security or a macro
// series whose most correlated counterparts are being searched for.
//
// Correlations holds the transient per-window correlation map filled in by the
// engine. Once Positive/Negative are populated for a window the raw map for
// that window is deleted so only the bounded lists survive.
type AnchorSeries struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`

	// Detrended holds the per-window detrended series, keyed by window start year.
	Detrended map[int]*TimeSeries `json:"-"`

	// Correlations is transient working state: window -> candidate symbol -> value.
	Correlations map[int]map[string]float64 `json:"-"`

	// Positive and Negative are the bounded top-K result lists per window,
	// ordered by correlation descending and ascending respectively.
	Positive map[int][]CorrelatedSymbol `json:"positive_correlations"`
	Negative map[int][]CorrelatedSymbol `json:"negative_correlations"`
}

// NewAnchorSeries constructs an empty anchor for a symbol.
func NewAnchorSeries(symbol string) *AnchorSeries {
	return &AnchorSeries{
		Symbol:       symbol,
		Detrended:    make(map[int]*TimeSeries),
		Correlations: make(map[int]map[string]float64),
		Positive:     make(map[int][]CorrelatedSymbol),
		Negative:     make(map[int][]CorrelatedSymbol),
	}
}

// Record stores one computed correlation in the window's working map.
func (a *AnchorSeries) Record(window int, symbol string, value float64) {
	if a.Correlations[window] == nil {
		a.Correlations[window] = make(map[string]float64)
	}
	a.Correlations[window][symbol] = value
}

// ResultsComputed reports whether reduction has run for the window. An anchor
// with zero qualifying candidates still has computed (empty) lists, which is
// distinguishable from a window that was never evaluated.
func (a *AnchorSeries) ResultsComputed(window int) bool {
	_, pos := a.Positive[window]
	_, neg := a.Negative[window]
	return pos && neg
}

// SymbolMetadata is the descriptive record the metadata catalog returns for a
// symbol. Fields default to "Missing" when the catalog has no value.
type SymbolMetadata struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Sector    string `json:"sector"`
	Industry  string `json:"industry"`
	Market    string `json:"market"`
	Country   string `json:"country"`
	State     string `json:"state"`
	MarketCap string `json:"market_cap"`
	Source    string `json:"source"`
}

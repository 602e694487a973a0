package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quantpulse/corrseek-go/internal/models"
	"github.com/quantpulse/corrseek-go/internal/store"
)

// ResultReader loads persisted per-window results. Implemented by
// store.PostgresResultStore; split out so handler tests can fake it.
type ResultReader interface {
	LoadWindow(ctx context.Context, anchorSymbol string, window int) (*store.WindowResult, error)
}

// ResultsHandler serves persisted top-K correlation lists. Symbol metadata is
// resolved lazily here, per request, rather than stored with the results.
type ResultsHandler struct {
	results  ResultReader
	metadata store.MetadataCatalog
	logger   *logrus.Logger
}

// RankedSymbol is one list entry enriched with catalog metadata.
type RankedSymbol struct {
	Symbol      string  `json:"symbol"`
	Correlation float64 `json:"correlation"`
	Name        string  `json:"name,omitempty"`
	Sector      string  `json:"sector,omitempty"`
}

type CorrelationsResponse struct {
	AnchorSymbol string         `json:"anchor_symbol"`
	Window       int            `json:"window"`
	Positive     []RankedSymbol `json:"positive"`
	Negative     []RankedSymbol `json:"negative"`
}

func NewResultsHandler(results ResultReader, metadata store.MetadataCatalog, logger *logrus.Logger) *ResultsHandler {
	return &ResultsHandler{results: results, metadata: metadata, logger: logger}
}

// GetCorrelations returns the positive and negative lists for an anchor and
// window. A window that was computed but found nothing yields empty lists
// with 200; a window never computed yields 404.
func (h *ResultsHandler) GetCorrelations(c *gin.Context) {
	symbol := c.Param("symbol")

	window, err := strconv.Atoi(c.Query("window"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window query parameter must be a start year"})
		return
	}

	result, err := h.results.LoadWindow(c.Request.Context(), symbol, window)
	if errors.Is(err, store.ErrResultsNotComputed) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no results computed for this anchor and window"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load correlation results")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load results"})
		return
	}

	c.JSON(http.StatusOK, CorrelationsResponse{
		AnchorSymbol: result.AnchorSymbol,
		Window:       result.Window,
		Positive:     h.enrich(c, result.Positive),
		Negative:     h.enrich(c, result.Negative),
	})
}

func (h *ResultsHandler) enrich(c *gin.Context, list []models.CorrelatedSymbol) []RankedSymbol {
	out := make([]RankedSymbol, 0, len(list))
	for _, cs := range list {
		ranked := RankedSymbol{Symbol: cs.Symbol, Correlation: cs.Correlation}
		if meta, err := h.metadata.Lookup(c.Request.Context(), cs.Symbol); err == nil {
			ranked.Name = meta.Name
			ranked.Sector = meta.Sector
		}
		out = append(out, ranked)
	}
	return out
}

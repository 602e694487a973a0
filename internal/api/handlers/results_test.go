package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpulse/corrseek-go/internal/models"
	"github.com/quantpulse/corrseek-go/internal/store"
)

type fakeResultReader struct {
	result *store.WindowResult
	err    error
}

func (f *fakeResultReader) LoadWindow(ctx context.Context, anchorSymbol string, window int) (*store.WindowResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeCatalog struct {
	entries map[string]*models.SymbolMetadata
}

func (f *fakeCatalog) Lookup(ctx context.Context, symbol string) (*models.SymbolMetadata, error) {
	if m, ok := f.entries[symbol]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", store.ErrMetadataMissing, symbol)
}

func resultsRouter(reader ResultReader, catalog store.MetadataCatalog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	router := gin.New()
	handler := NewResultsHandler(reader, catalog, logger)
	router.GET("/api/v1/anchors/:symbol/correlations", handler.GetCorrelations)
	return router
}

func TestResultsHandler_GetCorrelations(t *testing.T) {
	reader := &fakeResultReader{result: &store.WindowResult{
		AnchorSymbol: "AAPL",
		Window:       2019,
		Positive: []models.CorrelatedSymbol{
			{Symbol: "MSFT", Correlation: 0.91},
		},
		Negative: []models.CorrelatedSymbol{
			{Symbol: "VXX", Correlation: -0.84},
		},
	}}
	catalog := &fakeCatalog{entries: map[string]*models.SymbolMetadata{
		"MSFT": {Symbol: "MSFT", Name: "Microsoft Corporation", Sector: "Technology"},
	}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/anchors/AAPL/correlations?window=2019", nil)
	resultsRouter(reader, catalog).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp CorrelationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AAPL", resp.AnchorSymbol)
	assert.Equal(t, 2019, resp.Window)

	require.Len(t, resp.Positive, 1)
	assert.Equal(t, "MSFT", resp.Positive[0].Symbol)
	assert.Equal(t, "Microsoft Corporation", resp.Positive[0].Name)
	assert.Equal(t, "Technology", resp.Positive[0].Sector)

	// Missing catalog entries degrade to the bare symbol, not an error
	require.Len(t, resp.Negative, 1)
	assert.Equal(t, "VXX", resp.Negative[0].Symbol)
	assert.Empty(t, resp.Negative[0].Name)
}

func TestResultsHandler_GetCorrelations_BadWindow(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/anchors/AAPL/correlations?window=recent", nil)
	resultsRouter(&fakeResultReader{}, &fakeCatalog{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResultsHandler_GetCorrelations_MissingWindow(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/anchors/AAPL/correlations", nil)
	resultsRouter(&fakeResultReader{}, &fakeCatalog{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResultsHandler_GetCorrelations_NeverComputed(t *testing.T) {
	reader := &fakeResultReader{err: fmt.Errorf("%w: AAPL/2035", store.ErrResultsNotComputed)}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/anchors/AAPL/correlations?window=2035", nil)
	resultsRouter(reader, &fakeCatalog{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResultsHandler_GetCorrelations_StoreFailure(t *testing.T) {
	reader := &fakeResultReader{err: errors.New("connection reset")}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/anchors/AAPL/correlations?window=2019", nil)
	resultsRouter(reader, &fakeCatalog{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestResultsHandler_GetCorrelations_EmptyLists(t *testing.T) {
	reader := &fakeResultReader{result: &store.WindowResult{
		AnchorSymbol: "AAPL",
		Window:       2019,
		Positive:     []models.CorrelatedSymbol{},
		Negative:     []models.CorrelatedSymbol{},
	}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/anchors/AAPL/correlations?window=2019", nil)
	resultsRouter(reader, &fakeCatalog{}).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// Computed-but-empty serializes as [], never null
	assert.Contains(t, w.Body.String(), `"positive":[]`)
	assert.Contains(t, w.Body.String(), `"negative":[]`)
}

package correlation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpulse/corrseek-go/internal/models"
)

func TestReduce_SignFiltering(t *testing.T) {
	anchor := models.NewAnchorSeries("A")
	anchor.Record(2019, "UP", 0.8)
	anchor.Record(2019, "DOWN", -0.6)
	anchor.Record(2019, "ZERO", 0)
	anchor.Record(2019, "UNDEF", math.NaN())

	Reduce(anchor, 2019, 5)

	require.Len(t, anchor.Positive[2019], 1)
	assert.Equal(t, "UP", anchor.Positive[2019][0].Symbol)
	require.Len(t, anchor.Negative[2019], 1)
	assert.Equal(t, "DOWN", anchor.Negative[2019][0].Symbol)
}

func TestReduce_TruncatesToN(t *testing.T) {
	anchor := models.NewAnchorSeries("A")
	anchor.Record(2019, "P1", 0.9)
	anchor.Record(2019, "P2", 0.7)
	anchor.Record(2019, "P3", 0.5)
	anchor.Record(2019, "N1", -0.95)
	anchor.Record(2019, "N2", -0.4)
	anchor.Record(2019, "N3", -0.1)

	Reduce(anchor, 2019, 2)

	require.Len(t, anchor.Positive[2019], 2)
	assert.Equal(t, "P1", anchor.Positive[2019][0].Symbol)
	assert.Equal(t, "P2", anchor.Positive[2019][1].Symbol)
	require.Len(t, anchor.Negative[2019], 2)
	assert.Equal(t, "N1", anchor.Negative[2019][0].Symbol)
	assert.Equal(t, "N2", anchor.Negative[2019][1].Symbol)
}

func TestReduce_Ordering(t *testing.T) {
	anchor := models.NewAnchorSeries("A")
	anchor.Record(2019, "MID", 0.5)
	anchor.Record(2019, "TOP", 0.99)
	anchor.Record(2019, "LOW", 0.01)

	Reduce(anchor, 2019, 10)

	got := make([]string, 0, 3)
	for _, c := range anchor.Positive[2019] {
		got = append(got, c.Symbol)
	}
	assert.Equal(t, []string{"TOP", "MID", "LOW"}, got)
}

func TestReduce_TieBreakIsLexical(t *testing.T) {
	anchor := models.NewAnchorSeries("A")
	anchor.Record(2019, "ZZZ", 0.5)
	anchor.Record(2019, "AAA", 0.5)
	anchor.Record(2019, "MMM", 0.5)

	Reduce(anchor, 2019, 10)

	got := make([]string, 0, 3)
	for _, c := range anchor.Positive[2019] {
		got = append(got, c.Symbol)
	}
	assert.Equal(t, []string{"AAA", "MMM", "ZZZ"}, got)
}

func TestReduce_EmptyListsAreNonNil(t *testing.T) {
	anchor := models.NewAnchorSeries("A")
	anchor.Record(2019, "ZERO", 0)

	Reduce(anchor, 2019, 5)

	assert.NotNil(t, anchor.Positive[2019])
	assert.Empty(t, anchor.Positive[2019])
	assert.NotNil(t, anchor.Negative[2019])
	assert.Empty(t, anchor.Negative[2019])
	assert.True(t, anchor.ResultsComputed(2019))
}

func TestReduce_DropsRawMap(t *testing.T) {
	anchor := models.NewAnchorSeries("A")
	anchor.Record(2019, "B", 0.3)
	anchor.Record(2020, "B", 0.4)

	Reduce(anchor, 2019, 5)

	_, ok := anchor.Correlations[2019]
	assert.False(t, ok)
	// Other windows are untouched
	assert.Contains(t, anchor.Correlations, 2020)
	assert.False(t, anchor.ResultsComputed(2020))
}

package correlation

import (
	"math"

	"github.com/quantpulse/corrseek-go/internal/models"
)

// AlignInnerJoin pairs up the values of two date-ascending series on the
// dates present in both. Differing start dates and trading-calendar gaps
// simply fall out of the join.
func AlignInnerJoin(a, b *models.TimeSeries) ([]float64, []float64) {
	var x, y []float64
	i, j := 0, 0
	for i < len(a.Observations) && j < len(b.Observations) {
		da := a.Observations[i].Date
		db := b.Observations[j].Date
		switch {
		case da.Before(db):
			i++
		case db.Before(da):
			j++
		default:
			x = append(x, a.Observations[i].Value)
			y = append(y, b.Observations[j].Value)
			i++
			j++
		}
	}
	return x, y
}

// Pearson computes the sample Pearson correlation coefficient of two aligned
// value sequences. The result is NaN when the correlation is undefined:
// fewer than two observations, or zero variance in either input. Rounding
// can push the ratio a hair past unity, so the result is clamped to [-1, 1].
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n < 2 || len(y) != n {
		return math.NaN()
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var numerator, denomX, denomY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		denomX += dx * dx
		denomY += dy * dy
	}

	denom := math.Sqrt(denomX * denomY)
	if denom == 0 {
		return math.NaN()
	}

	corr := numerator / denom
	if corr > 1 {
		return 1
	}
	if corr < -1 {
		return -1
	}
	return corr
}

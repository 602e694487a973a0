package models

import (
	"math"
	"time"
)

// Observation is a single dated value in a time series. A NaN value marks a
// date for which the source had no usable observation.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TimeSeries holds date-ascending observations for one symbol.
type TimeSeries struct {
	Symbol       string        `json:"symbol"`
	Observations []Observation `json:"observations"`
}

// NewTimeSeries creates a TimeSeries from parallel date/value slices.
// Inputs must already be date-ascending.
func NewTimeSeries(symbol string, dates []time.Time, values []float64) *TimeSeries {
	obs := make([]Observation, len(dates))
	for i, d := range dates {
		obs[i] = Observation{Date: d, Value: values[i]}
	}
	return &TimeSeries{Symbol: symbol, Observations: obs}
}

// Len returns the number of observations, missing ones included.
func (s *TimeSeries) Len() int {
	return len(s.Observations)
}

// FirstDate returns the date of the earliest observation.
func (s *TimeSeries) FirstDate() time.Time {
	if len(s.Observations) == 0 {
		return time.Time{}
	}
	return s.Observations[0].Date
}

// LastDate returns the date of the latest observation.
func (s *TimeSeries) LastDate() time.Time {
	if len(s.Observations) == 0 {
		return time.Time{}
	}
	return s.Observations[len(s.Observations)-1].Date
}

// Values returns the raw value sequence, NaNs included.
func (s *TimeSeries) Values() []float64 {
	values := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		values[i] = o.Value
	}
	return values
}

// TruncateFrom returns a copy limited to observations dated in startYear or later.
func (s *TimeSeries) TruncateFrom(startYear int) *TimeSeries {
	truncated := &TimeSeries{Symbol: s.Symbol}
	for _, o := range s.Observations {
		if o.Date.Year() >= startYear {
			truncated.Observations = append(truncated.Observations, o)
		}
	}
	return truncated
}

// Detrend first-differences the series (value[t] - value[t-1]). The leading
// observation has no difference and is dropped, as is any point whose
// difference is undefined because it or its predecessor is missing. A clean
// series of length n therefore detrends to length n-1 with no NaNs.
func (s *TimeSeries) Detrend() *TimeSeries {
	detrended := &TimeSeries{Symbol: s.Symbol}
	for i := 1; i < len(s.Observations); i++ {
		prev := s.Observations[i-1].Value
		curr := s.Observations[i].Value
		if math.IsNaN(prev) || math.IsNaN(curr) {
			continue
		}
		detrended.Observations = append(detrended.Observations, Observation{
			Date:  s.Observations[i].Date,
			Value: curr - prev,
		})
	}
	return detrended
}

package analytics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/foliotrack/internal/modules/prices"
)

type stubSeries struct {
	closes map[string][]prices.DailyClose
	err    error
}

func (s *stubSeries) GetDailyCloses(symbol string) ([]prices.DailyClose, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.closes[symbol], nil
}

func syntheticSeries(n int, start float64) []prices.DailyClose {
	out := make([]prices.DailyClose, n)
	price := start
	for i := range out {
		// Alternating drift keeps variance non-zero
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.997
		}
		out[i] = prices.DailyClose{Date: fmt.Sprintf("2024-%02d-%02d", i/28+1, i%28+1), Close: price}
	}
	return out
}

func TestComputeMetrics(t *testing.T) {
	series := &stubSeries{closes: map[string][]prices.DailyClose{
		"AAPL": syntheticSeries(260, 100),
	}}
	svc := NewService(series, 0.02, zerolog.Nop())

	m, err := svc.Compute("AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", m.Symbol)
	assert.Equal(t, 260, m.Samples)
	require.NotNil(t, m.TotalReturnPct)
	assert.Greater(t, *m.TotalReturnPct, 0.0)
	require.NotNil(t, m.AnnualVolatilityPct)
	require.NotNil(t, m.SharpeRatio)
	require.NotNil(t, m.MaxDrawdownPct)
	require.NotNil(t, m.SMA50)
	require.NotNil(t, m.SMA200)
}

func TestComputeShortSeries(t *testing.T) {
	series := &stubSeries{closes: map[string][]prices.DailyClose{
		"NEW": syntheticSeries(10, 50),
	}}
	svc := NewService(series, 0.02, zerolog.Nop())

	m, err := svc.Compute("NEW")
	require.NoError(t, err)

	assert.Equal(t, 10, m.Samples)
	assert.NotNil(t, m.TotalReturnPct)
	// Not enough history for the moving averages
	assert.Nil(t, m.SMA50)
	assert.Nil(t, m.SMA200)
}

func TestComputeEmptySeries(t *testing.T) {
	svc := NewService(&stubSeries{}, 0.02, zerolog.Nop())

	m, err := svc.Compute("NONE")
	require.NoError(t, err)
	assert.Zero(t, m.Samples)
	assert.Nil(t, m.TotalReturnPct)
}

func TestComputeSeriesError(t *testing.T) {
	svc := NewService(&stubSeries{err: errors.New("boom")}, 0.02, zerolog.Nop())

	_, err := svc.Compute("AAPL")
	assert.Error(t, err)
}

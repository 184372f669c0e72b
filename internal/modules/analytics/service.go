package analytics

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/modules/prices"
	"github.com/foliotrack/foliotrack/pkg/formulas"
)

// PriceSeries supplies stored daily close series per symbol
type PriceSeries interface {
	GetDailyCloses(symbol string) ([]prices.DailyClose, error)
}

// Metrics is the per-symbol risk/return summary
type Metrics struct {
	Symbol              string   `json:"symbol"`
	Samples             int      `json:"samples"`
	TotalReturnPct      *float64 `json:"total_return_pct"`
	AnnualVolatilityPct *float64 `json:"annual_volatility_pct"`
	SharpeRatio         *float64 `json:"sharpe_ratio"`
	MaxDrawdownPct      *float64 `json:"max_drawdown_pct"`
	SMA50               *float64 `json:"sma_50"`
	SMA200              *float64 `json:"sma_200"`
}

// Service computes per-symbol risk and trend metrics from stored close series
type Service struct {
	series       PriceSeries
	riskFreeRate float64
	log          zerolog.Logger
}

// NewService creates a new analytics service
func NewService(series PriceSeries, riskFreeRate float64, log zerolog.Logger) *Service {
	return &Service{
		series:       series,
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("service", "analytics").Logger(),
	}
}

// Compute builds the metrics summary for one symbol. Metrics that need more
// history than is stored are left nil rather than failing the request.
func (s *Service) Compute(symbol string) (Metrics, error) {
	series, err := s.series.GetDailyCloses(symbol)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to load series for %s: %w", symbol, err)
	}

	closes := make([]float64, 0, len(series))
	for _, c := range series {
		closes = append(closes, c.Close)
	}

	m := Metrics{
		Symbol:  symbol,
		Samples: len(closes),
	}
	if len(closes) < 2 {
		return m, nil
	}

	m.TotalReturnPct = asPct(formulas.TotalReturn(closes))
	m.AnnualVolatilityPct = asPct(formulas.VolatilityFromPrices(closes))
	m.SharpeRatio = formulas.SharpeFromPrices(closes, s.riskFreeRate)
	m.MaxDrawdownPct = asPct(formulas.MaxDrawdown(closes))
	m.SMA50 = lastSMA(closes, 50)
	m.SMA200 = lastSMA(closes, 200)

	return m, nil
}

// lastSMA returns the latest simple moving average value, or nil when the
// series is shorter than the period
func lastSMA(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}
	sma := talib.Sma(closes, period)
	if len(sma) == 0 {
		return nil
	}
	last := sma[len(sma)-1]
	return &last
}

func asPct(v *float64) *float64 {
	if v == nil {
		return nil
	}
	pct := *v * 100
	return &pct
}

package equity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/modules/prices"
)

// HoldingsSource supplies net quantities per open symbol
type HoldingsSource interface {
	Holdings() map[string]float64
}

// PriceSeries supplies stored daily close series per symbol
type PriceSeries interface {
	GetDailyCloses(symbol string) ([]prices.DailyClose, error)
}

// Service reconstructs the historical equity curve for the current holdings
type Service struct {
	holdings HoldingsSource
	series   PriceSeries
	log      zerolog.Logger
}

// NewService creates a new equity service
func NewService(holdings HoldingsSource, series PriceSeries, log zerolog.Logger) *Service {
	return &Service{
		holdings: holdings,
		series:   series,
		log:      log.With().Str("service", "equity").Logger(),
	}
}

// Curve builds the equity series over the given lookback period
// (1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max). A symbol whose series cannot
// be fetched contributes nothing rather than failing the whole curve.
func (s *Service) Curve(period string) ([]Point, error) {
	cutoff, err := periodCutoff(period, time.Now())
	if err != nil {
		return nil, err
	}

	holdings := s.holdings.Holdings()
	series := make(map[string][]prices.DailyClose, len(holdings))
	for symbol := range holdings {
		closes, err := s.series.GetDailyCloses(symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("No price series for symbol, contributing zero")
			continue
		}
		series[symbol] = clip(closes, cutoff)
	}

	return BuildCurve(holdings, series), nil
}

// clip drops rows before the cutoff date. An empty cutoff keeps everything.
func clip(closes []prices.DailyClose, cutoff string) []prices.DailyClose {
	if cutoff == "" {
		return closes
	}
	out := make([]prices.DailyClose, 0, len(closes))
	for _, c := range closes {
		if c.Date >= cutoff {
			out = append(out, c)
		}
	}
	return out
}

// periodCutoff converts a lookback period to the first included date
func periodCutoff(period string, now time.Time) (string, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	switch period {
	case "", "max":
		return "", nil
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02"), nil
	}

	unit := period[len(idigits(period)):]
	n, err := strconv.Atoi(period[:len(idigits(period))])
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid period: %q", period)
	}

	switch unit {
	case "d":
		return now.AddDate(0, 0, -n).Format("2006-01-02"), nil
	case "mo":
		return now.AddDate(0, -n, 0).Format("2006-01-02"), nil
	case "y":
		return now.AddDate(-n, 0, 0).Format("2006-01-02"), nil
	default:
		return "", fmt.Errorf("invalid period: %q", period)
	}
}

// idigits returns the leading digit run of s
func idigits(s string) string {
	for i, r := range s {
		if r < '0' || r > '9' {
			return s[:i]
		}
	}
	return s
}

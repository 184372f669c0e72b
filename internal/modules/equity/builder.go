package equity

import (
	"math"
	"sort"
	"time"

	"github.com/foliotrack/foliotrack/internal/modules/prices"
)

// dropFilterThreshold is the day-over-day change below which a row is
// discarded. Sharp single-day collapses in the reconstructed series are
// almost always holiday gaps or partial data, not real crashes. The filter
// is crude: a genuine drawdown beyond the threshold is discarded too, a
// known precision/recall tradeoff kept for parity with the historical
// series this endpoint has always produced.
const dropFilterThreshold = -0.10

// Point is one sample of the portfolio equity series
type Point struct {
	Time   int64   `json:"time"` // unix seconds, midnight UTC
	Equity float64 `json:"equity"`
}

// BuildCurve reconstructs the portfolio's historical equity series from net
// holdings and per-symbol daily close series.
//
// Series are outer-joined on date with absent values contributing zero,
// weekend rows are dropped, duplicate dates within one symbol's series are
// pre-aggregated by summing, and each date's equity is the quantity-weighted
// sum of closes across symbols.
func BuildCurve(holdings map[string]float64, series map[string][]prices.DailyClose) []Point {
	// value per date per symbol, duplicates summed
	totals := make(map[string]float64)
	for symbol, qty := range holdings {
		for _, c := range series[symbol] {
			if isWeekend(c.Date) {
				continue
			}
			totals[c.Date] += c.Close * qty
		}
	}

	dates := make([]string, 0, len(totals))
	for date := range totals {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	points := make([]Point, 0, len(dates))
	for i, date := range dates {
		equity := totals[date]

		// Change is measured against the chronological predecessor in the
		// raw series, independent of whether that row itself survived
		if i > 0 {
			prev := totals[dates[i-1]]
			if prev != 0 && (equity-prev)/prev < dropFilterThreshold {
				continue
			}
		}

		ts, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		points = append(points, Point{
			Time:   ts.Unix(),
			Equity: round2(equity),
		})
	}
	return points
}

func isWeekend(date string) bool {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}

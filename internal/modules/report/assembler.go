package report

import (
	"errors"
	"math"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/modules/ledger"
)

const lastReportKey = "last_report"

// ErrNoCachedReport is returned when no report has been assembled yet
var ErrNoCachedReport = errors.New("no cached report available")

// QuoteRefresher rebuilds the ledger's live price snapshot before assembly
type QuoteRefresher interface {
	RefreshAll() int
}

// Highlight is the share of portfolio value held in one security type
type Highlight struct {
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// PortfolioReport is the outward-facing portfolio summary: the detailed
// per-symbol report plus a value breakdown by security type
type PortfolioReport struct {
	ledger.Report
	Highlights map[string]Highlight `json:"highlights"`
}

// Assembler builds the live portfolio report. Every successful assembly is
// kept so the last good report can still be served when quote refresh or
// assembly fails later.
type Assembler struct {
	ledger    *ledger.LotLedger
	refresher QuoteRefresher
	cache     *gocache.Cache
	log       zerolog.Logger
}

// NewAssembler creates a new report assembler
func NewAssembler(l *ledger.LotLedger, refresher QuoteRefresher, log zerolog.Logger) *Assembler {
	return &Assembler{
		ledger:    l,
		refresher: refresher,
		cache:     gocache.New(gocache.NoExpiration, 0),
		log:       log.With().Str("service", "report").Logger(),
	}
}

// Assemble refreshes live quotes and builds the portfolio report. The
// refresh tolerates per-symbol failures; symbols without a quote appear
// with their last known state.
func (a *Assembler) Assemble() PortfolioReport {
	a.refresher.RefreshAll()

	report := PortfolioReport{
		Report:     a.ledger.DetailedReport(),
		Highlights: a.highlights(),
	}

	a.cache.Set(lastReportKey, report, gocache.NoExpiration)
	return report
}

// Cached returns the last successfully assembled report
func (a *Assembler) Cached() (PortfolioReport, error) {
	if cached, found := a.cache.Get(lastReportKey); found {
		return cached.(PortfolioReport), nil
	}
	return PortfolioReport{}, ErrNoCachedReport
}

// highlights breaks portfolio value down by security type. Short positions
// contribute negative value to their category; percentages are of total
// absolute balance and default to 0 when the portfolio is empty.
func (a *Assembler) highlights() map[string]Highlight {
	byType := make(map[string]float64)
	total := 0.0

	for _, lot := range a.ledger.LotPnLTable() {
		if lot.CurrentPrice == nil {
			continue
		}

		value := lot.Quantity * *lot.CurrentPrice
		if lot.PositionType == ledger.PositionShort {
			value = -value
		}

		secType := string(lot.SecurityType)
		if secType == "" {
			secType = string(ledger.SecurityEquity)
		}
		byType[secType] += value
		total += value
	}

	highlights := make(map[string]Highlight, len(byType))
	for secType, value := range byType {
		percent := 0.0
		if total != 0 {
			percent = value / total * 100
		}
		highlights[secType] = Highlight{
			Value:   round2(value),
			Percent: round2(percent),
		}
	}
	return highlights
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}

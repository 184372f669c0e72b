package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// depletionTolerance absorbs floating-point drift from repeated
// fractional-share arithmetic; a lot at or below it is considered empty.
const depletionTolerance = 1e-9

var (
	// ErrInvalidInput is returned when quantity or price is not positive
	ErrInvalidInput = errors.New("quantity and price must be positive")

	// ErrNoPosition is returned when selling or covering a symbol with no
	// matching open lots
	ErrNoPosition = errors.New("no open position for symbol")
)

// LotLedger tracks per-symbol FIFO lot lists built from buy/sell/short/cover
// transactions, plus realized P/L and the latest price snapshot.
//
// All state is owned by the ledger and mutated only through its methods. A
// single mutex guards every operation so concurrent request handlers always
// observe lots that sum to consistent totals.
type LotLedger struct {
	mu             sync.Mutex
	positions      map[string][]*Lot
	realizedPnL    float64
	currentPrices  map[string]float64
	previousCloses map[string]float64
	history        []Transaction
	log            zerolog.Logger
}

// NewLotLedger creates an empty ledger
func NewLotLedger(log zerolog.Logger) *LotLedger {
	return &LotLedger{
		positions:      make(map[string][]*Lot),
		currentPrices:  make(map[string]float64),
		previousCloses: make(map[string]float64),
		log:            log.With().Str("component", "lot_ledger").Logger(),
	}
}

// Buy records a Buy transaction and appends a new long lot
func (l *LotLedger) Buy(symbol string, quantity, price float64, date, companyName string, securityType SecurityType) (Transaction, error) {
	return l.open(symbol, ActionBuy, PositionLong, quantity, price, date, companyName, securityType)
}

// ShortSell records a Sell Short transaction and appends a new short lot
func (l *LotLedger) ShortSell(symbol string, quantity, price float64, date, companyName string, securityType SecurityType) (Transaction, error) {
	return l.open(symbol, ActionShortSell, PositionShort, quantity, price, date, companyName, securityType)
}

func (l *LotLedger) open(symbol string, action Action, posType PositionType, quantity, price float64, date, companyName string, securityType SecurityType) (Transaction, error) {
	tx := Transaction{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		Action:       action,
		Quantity:     quantity,
		Price:        price,
		Date:         normalizeDate(date),
		CompanyName:  companyName,
		SecurityType: securityType,
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, fmt.Errorf("%s %s: %w", action, symbol, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, tx)
	l.positions[tx.Symbol] = append(l.positions[tx.Symbol], &Lot{
		ID:                tx.ID,
		PositionType:      posType,
		OriginalQuantity:  quantity,
		RemainingQuantity: quantity,
		UnitCost:          price,
		Date:              tx.Date,
		Action:            action,
		CompanyName:       companyName,
		SecurityType:      securityType,
	})

	l.log.Info().
		Str("symbol", tx.Symbol).
		Str("action", string(action)).
		Float64("quantity", quantity).
		Float64("price", price).
		Msg("Lot opened")

	return tx, nil
}

// Sell records a Sell transaction, consuming long lots FIFO by append order.
// A quantity above the total held is clamped to the available shares and the
// sale proceeds with the clamped amount. Returns the transaction as recorded
// (with the clamped quantity) and the realized P/L for this call.
func (l *LotLedger) Sell(symbol string, quantity, price float64, date string) (Transaction, float64, error) {
	return l.close(symbol, ActionSell, PositionLong, quantity, price, date)
}

// BuyToCover records a Buy to Cover transaction, consuming short lots FIFO.
func (l *LotLedger) BuyToCover(symbol string, quantity, price float64, date string) (Transaction, float64, error) {
	return l.close(symbol, ActionBuyToCover, PositionShort, quantity, price, date)
}

func (l *LotLedger) close(symbol string, action Action, posType PositionType, quantity, price float64, date string) (Transaction, float64, error) {
	tx := Transaction{
		ID:       uuid.NewString(),
		Symbol:   symbol,
		Action:   action,
		Quantity: quantity,
		Price:    price,
		Date:     normalizeDate(date),
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, 0, fmt.Errorf("%s %s: %w", action, symbol, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var matching []*Lot
	for _, lot := range l.positions[tx.Symbol] {
		if lot.PositionType == posType {
			matching = append(matching, lot)
		}
	}
	if len(matching) == 0 {
		return Transaction{}, 0, fmt.Errorf("%s %s: %w", action, tx.Symbol, ErrNoPosition)
	}

	held := 0.0
	for _, lot := range matching {
		held += lot.RemainingQuantity
	}
	if quantity > held {
		l.log.Warn().
			Str("symbol", tx.Symbol).
			Str("action", string(action)).
			Float64("requested", quantity).
			Float64("held", held).
			Msg("Closing more shares than held, clamping to available")
		quantity = held
		tx.Quantity = held
	}

	remaining := quantity
	realized := 0.0
	for _, lot := range matching {
		if remaining <= 0 {
			break
		}
		taken := math.Min(remaining, lot.RemainingQuantity)

		var pnl float64
		if posType == PositionLong {
			pnl = (price - lot.UnitCost) * taken
		} else {
			pnl = (lot.UnitCost - price) * taken
		}
		realized += pnl
		l.realizedPnL += pnl

		lot.RemainingQuantity -= taken
		remaining -= taken
	}

	// Drop depleted lots, purging the symbol entirely when none remain
	var active []*Lot
	for _, lot := range l.positions[tx.Symbol] {
		if lot.RemainingQuantity > depletionTolerance {
			active = append(active, lot)
		}
	}
	if len(active) == 0 {
		delete(l.positions, tx.Symbol)
		delete(l.currentPrices, tx.Symbol)
		delete(l.previousCloses, tx.Symbol)
	} else {
		l.positions[tx.Symbol] = active
	}

	// CompanyName is looked up from the surviving lots for the history record
	tx.CompanyName = l.companyNameLocked(tx.Symbol)
	l.history = append(l.history, tx)

	l.log.Info().
		Str("symbol", tx.Symbol).
		Str("action", string(action)).
		Float64("quantity", quantity).
		Float64("price", price).
		Float64("realized_pnl", realized).
		Msg("Lots closed")

	return tx, realized, nil
}

// SetRealtimePrices replaces the cached price snapshot wholesale
// (last-write-wins, no merge)
func (l *LotLedger) SetRealtimePrices(current, previousClose map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current == nil {
		current = make(map[string]float64)
	}
	if previousClose == nil {
		previousClose = make(map[string]float64)
	}
	l.currentPrices = current
	l.previousCloses = previousClose
}

// Apply replays a recorded transaction against the ledger. Recoverable
// conditions (oversell) are handled exactly like the live path; transactions
// that no longer match any position are skipped with a warning so a log with
// removed entries still replays deterministically.
func (l *LotLedger) Apply(tx Transaction) error {
	switch tx.Action {
	case ActionBuy:
		_, err := l.applyOpen(tx, PositionLong)
		return err
	case ActionShortSell:
		_, err := l.applyOpen(tx, PositionShort)
		return err
	case ActionSell:
		_, _, err := l.close(tx.Symbol, ActionSell, PositionLong, tx.Quantity, tx.Price, tx.Date)
		return err
	case ActionBuyToCover:
		_, _, err := l.close(tx.Symbol, ActionBuyToCover, PositionShort, tx.Quantity, tx.Price, tx.Date)
		return err
	default:
		return fmt.Errorf("invalid action: %q", tx.Action)
	}
}

// applyOpen replays an opening transaction preserving its original ID
func (l *LotLedger) applyOpen(tx Transaction, posType PositionType) (Transaction, error) {
	if err := tx.Validate(); err != nil {
		return Transaction{}, fmt.Errorf("%s %s: %w", tx.Action, tx.Symbol, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, tx)
	l.positions[tx.Symbol] = append(l.positions[tx.Symbol], &Lot{
		ID:                tx.ID,
		PositionType:      posType,
		OriginalQuantity:  tx.Quantity,
		RemainingQuantity: tx.Quantity,
		UnitCost:          tx.Price,
		Date:              tx.Date,
		Action:            tx.Action,
		CompanyName:       tx.CompanyName,
		SecurityType:      tx.SecurityType,
	})
	return tx, nil
}

// Replay rebuilds the ledger from an ordered transaction log. Positions and
// realized P/L after Replay are a pure function of the log.
func (l *LotLedger) Replay(txs []Transaction) {
	l.mu.Lock()
	l.positions = make(map[string][]*Lot)
	l.realizedPnL = 0
	l.history = nil
	l.mu.Unlock()

	for _, tx := range txs {
		if err := l.Apply(tx); err != nil {
			l.log.Warn().Err(err).
				Str("transaction_id", tx.ID).
				Str("symbol", tx.Symbol).
				Msg("Skipping transaction during replay")
		}
	}
}

// Symbols returns the symbols with open positions, sorted
func (l *LotLedger) Symbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	symbols := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// Holdings returns net quantity per open symbol (long positive, short negative)
func (l *LotLedger) Holdings() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	holdings := make(map[string]float64, len(l.positions))
	for sym, lots := range l.positions {
		net := 0.0
		for _, lot := range lots {
			if lot.PositionType == PositionLong {
				net += lot.RemainingQuantity
			} else {
				net -= lot.RemainingQuantity
			}
		}
		holdings[sym] = net
	}
	return holdings
}

// SecurityInfo returns the security type and company name recorded on the
// symbol's oldest open lot
func (l *LotLedger) SecurityInfo(symbol string) (SecurityType, string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lots := l.positions[symbol]
	if len(lots) == 0 {
		return "", "", false
	}
	return lots[0].SecurityType, lots[0].CompanyName, true
}

// PositionDetails aggregates the active lots of one symbol, or nil when the
// symbol has no open position
func (l *LotLedger) PositionDetails(symbol string) *PositionDetail {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positionDetailsLocked(symbol)
}

func (l *LotLedger) positionDetailsLocked(symbol string) *PositionDetail {
	lots := l.positions[symbol]
	if len(lots) == 0 {
		return nil
	}

	netQuantity := 0.0
	costBasis := 0.0     // long lots
	proceedsBasis := 0.0 // short lots
	for _, lot := range lots {
		if lot.PositionType == PositionLong {
			netQuantity += lot.RemainingQuantity
			costBasis += lot.Basis()
		} else {
			netQuantity -= lot.RemainingQuantity
			proceedsBasis += lot.Basis()
		}
	}

	avgPrice := 0.0
	if netQuantity > 0 && costBasis != 0 {
		avgPrice = costBasis / netQuantity
	} else if netQuantity < 0 && proceedsBasis != 0 {
		avgPrice = proceedsBasis / math.Abs(netQuantity)
	}

	detail := &PositionDetail{
		Symbol:           symbol,
		CompanyName:      l.companyNameLocked(symbol),
		Quantity:         netQuantity,
		AvgPricePerShare: avgPrice,
	}

	current, hasCurrent := l.currentPrices[symbol]
	prevClose, hasPrev := l.previousCloses[symbol]
	if !hasCurrent {
		return detail
	}
	detail.CurrentPrice = &current

	for _, lot := range lots {
		if lot.PositionType == PositionLong {
			detail.UnrealizedPnL += (current - lot.UnitCost) * lot.RemainingQuantity
		} else {
			detail.UnrealizedPnL += (lot.UnitCost - current) * lot.RemainingQuantity
		}
	}

	if netQuantity > 0 && costBasis != 0 {
		detail.UnrealizedGainPercent = detail.UnrealizedPnL / costBasis * 100
	} else if netQuantity < 0 && proceedsBasis != 0 {
		detail.UnrealizedGainPercent = detail.UnrealizedPnL / proceedsBasis * 100
	}

	if hasPrev && netQuantity != 0 {
		if netQuantity > 0 {
			detail.DayGain = (current - prevClose) * netQuantity
		} else {
			detail.DayGain = (prevClose - current) * math.Abs(netQuantity)
		}
		if prevClose != 0 {
			detail.DayGainPercent = detail.DayGain / (prevClose * math.Abs(netQuantity)) * 100
		}
	}

	return detail
}

// Positions returns details for every open symbol, sorted by symbol
func (l *LotLedger) Positions() []PositionDetail {
	l.mu.Lock()
	defer l.mu.Unlock()

	symbols := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	details := make([]PositionDetail, 0, len(symbols))
	for _, sym := range symbols {
		if d := l.positionDetailsLocked(sym); d != nil {
			details = append(details, *d)
		}
	}
	return details
}

// RealizedPnL returns the total realized profit/loss
func (l *LotLedger) RealizedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realizedPnL
}

// TotalUnrealizedPnL sums unrealized P/L across all open positions
func (l *LotLedger) TotalUnrealizedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0.0
	for sym := range l.positions {
		if d := l.positionDetailsLocked(sym); d != nil {
			total += d.UnrealizedPnL
		}
	}
	return total
}

// TotalPnL returns realized plus unrealized P/L
func (l *LotLedger) TotalPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := l.realizedPnL
	for sym := range l.positions {
		if d := l.positionDetailsLocked(sym); d != nil {
			total += d.UnrealizedPnL
		}
	}
	return total
}

// TransactionLog returns a copy of the recorded transaction history
func (l *LotLedger) TransactionLog() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Transaction, len(l.history))
	copy(out, l.history)
	return out
}

// LotPnLTable returns per-lot unrealized P/L and day gain for every active
// lot, sorted by symbol then lot date
func (l *LotLedger) LotPnLTable() []LotPnL {
	l.mu.Lock()
	defer l.mu.Unlock()

	var rows []LotPnL
	for symbol, lots := range l.positions {
		current, hasCurrent := l.currentPrices[symbol]
		prevClose, hasPrev := l.previousCloses[symbol]

		for _, lot := range lots {
			if lot.RemainingQuantity <= 0 {
				continue
			}

			row := LotPnL{
				Symbol:           symbol,
				CompanyName:      lot.CompanyName,
				LotID:            lot.ID,
				PositionType:     lot.PositionType,
				Action:           lot.Action,
				SecurityType:     lot.SecurityType,
				Quantity:         lot.RemainingQuantity,
				OriginalQuantity: lot.OriginalQuantity,
				UnitCost:         lot.UnitCost,
				Basis:            lot.Basis(),
				Date:             lot.Date,
			}

			if hasCurrent {
				price := current
				row.CurrentPrice = &price
				if lot.PositionType == PositionLong {
					row.UnrealizedPnL = (current - lot.UnitCost) * lot.RemainingQuantity
				} else {
					row.UnrealizedPnL = (lot.UnitCost - current) * lot.RemainingQuantity
				}
				if row.Basis != 0 {
					row.UnrealizedGainPercent = row.UnrealizedPnL / row.Basis * 100
				}

				if hasPrev {
					if lot.PositionType == PositionLong {
						row.DayGain = (current - prevClose) * lot.RemainingQuantity
					} else {
						row.DayGain = (prevClose - current) * lot.RemainingQuantity
					}
					if prevClose != 0 {
						row.DayGainPercent = row.DayGain / (lot.RemainingQuantity * prevClose) * 100
					}
				}
			}

			rows = append(rows, row)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		return rows[i].Date < rows[j].Date
	})
	return rows
}

// DetailedReport builds the nested per-symbol/per-lot report with
// portfolio-level aggregates. Calling it twice with unchanged state and an
// unchanged price snapshot yields identical output apart from the timestamp.
func (l *LotLedger) DetailedReport() Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	totalValue := 0.0
	totalDayGain := 0.0
	totalPreviousDayValue := 0.0
	totalUnrealizedGain := 0.0
	totalBasis := 0.0

	symbols := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	details := make([]SymbolDetail, 0, len(symbols))
	for _, symbol := range symbols {
		lots := l.positions[symbol]
		current, hasCurrent := l.currentPrices[symbol]
		prevClose, hasPrev := l.previousCloses[symbol]

		symQuantity := 0.0
		symValue := 0.0
		symDayGain := 0.0
		symUnrealized := 0.0
		symBasis := 0.0

		lotDetails := make([]LotDetail, 0, len(lots))
		for _, lot := range lots {
			if lot.RemainingQuantity <= 0 {
				continue
			}

			qty := lot.RemainingQuantity
			unitCost := lot.UnitCost

			lotValue := 0.0
			lotGain := 0.0
			lotGainPercent := 0.0
			if hasCurrent {
				if lot.PositionType == PositionLong {
					lotValue = qty * current
					lotGain = (current - unitCost) * qty
				} else {
					lotValue = -qty * current
					lotGain = (unitCost - current) * qty
				}
				if unitCost != 0 {
					lotGainPercent = lotGain / (qty * unitCost) * 100
				}
			}

			lotDetails = append(lotDetails, LotDetail{
				TransactionID:    lot.ID,
				Date:             lot.Date,
				PurchasePrice:    round(unitCost, 4),
				Quantity:         round(qty, 4),
				Value:            round(lotValue, 2),
				TotalGain:        round(lotGain, 2),
				TotalGainPercent: round(lotGainPercent, 2),
				Action:           lot.Action,
				SecurityType:     lot.SecurityType,
			})

			if lot.PositionType == PositionLong {
				symQuantity += qty
				symBasis += qty * unitCost
			} else {
				symQuantity -= qty
				symBasis += qty * unitCost // proceeds basis for shorts
			}

			if hasCurrent {
				if lot.PositionType == PositionLong {
					symValue += qty * current
					symUnrealized += (current - unitCost) * qty
				} else {
					symValue -= qty * current
					symUnrealized += (unitCost - current) * qty
				}
				if hasPrev {
					if lot.PositionType == PositionLong {
						symDayGain += (current - prevClose) * qty
					} else {
						symDayGain += (prevClose - current) * qty
					}
				}
			}
		}

		symDayGainPercent := 0.0
		if hasPrev && symQuantity != 0 && prevClose != 0 {
			symDayGainPercent = symDayGain / (prevClose * math.Abs(symQuantity)) * 100
		}

		symTotalGainPercent := 0.0
		if symBasis != 0 {
			symTotalGainPercent = symUnrealized / symBasis * 100
		}

		detail := SymbolDetail{
			ID:               strings.ToLower(symbol),
			Symbol:           symbol,
			Name:             l.companyNameLocked(symbol),
			Quantity:         round(symQuantity, 4),
			DayGain:          round(symDayGain, 2),
			DayGainPercent:   round(symDayGainPercent, 2),
			Value:            round(symValue, 2),
			TotalGain:        round(symUnrealized, 2),
			TotalGainPercent: round(symTotalGainPercent, 2),
			Purchases:        lotDetails,
		}
		if hasCurrent {
			price := round(current, 2)
			detail.Price = &price
		}
		details = append(details, detail)

		totalValue += symValue
		totalDayGain += symDayGain
		totalUnrealizedGain += symUnrealized
		totalBasis += symBasis
		if hasPrev {
			totalPreviousDayValue += prevClose * math.Abs(symQuantity)
		}
	}

	dayPercent := 0.0
	if totalPreviousDayValue != 0 {
		dayPercent = totalDayGain / totalPreviousDayValue * 100
	}
	totalGainPercent := 0.0
	if totalBasis != 0 {
		totalGainPercent = totalUnrealizedGain / totalBasis * 100
	}

	return Report{
		Balance:          round(totalValue, 2),
		DayChange:        round(totalDayGain, 2),
		DayPercent:       round(dayPercent, 2),
		TotalGain:        round(totalUnrealizedGain, 2),
		TotalGainPercent: round(totalGainPercent, 2),
		Timestamp:        time.Now().Format(time.RFC3339),
		Positions:        details,
	}
}

// companyNameLocked resolves the company name from the symbol's first open
// lot, falling back to "N/A"
func (l *LotLedger) companyNameLocked(symbol string) string {
	if lots := l.positions[symbol]; len(lots) > 0 && lots[0].CompanyName != "" {
		return lots[0].CompanyName
	}
	return "N/A"
}

// normalizeDate defaults an empty transaction date to today
func normalizeDate(date string) string {
	if date == "" {
		return time.Now().Format("2006-01-02")
	}
	return date
}

// round rounds a float64 to n decimal places
func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}

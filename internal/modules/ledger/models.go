package ledger

import (
	"fmt"
	"strings"
)

// Action represents the transaction type recorded in the ledger
type Action string

const (
	ActionBuy        Action = "Buy"
	ActionSell       Action = "Sell"
	ActionShortSell  Action = "Sell Short"
	ActionBuyToCover Action = "Buy to Cover"
)

// ActionFromString creates an Action from the short route vocabulary
// ("buy", "sell", "short", "cover") or the canonical ledger names.
func ActionFromString(value string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "buy":
		return ActionBuy, nil
	case "sell":
		return ActionSell, nil
	case "short", "short_sell", "sell short":
		return ActionShortSell, nil
	case "cover", "buy_to_cover", "buy to cover":
		return ActionBuyToCover, nil
	default:
		return "", fmt.Errorf("invalid action: %q", value)
	}
}

// Opens reports whether the action creates a new lot
func (a Action) Opens() bool {
	return a == ActionBuy || a == ActionShortSell
}

// PositionType is the direction of a lot
type PositionType string

const (
	PositionLong  PositionType = "long"
	PositionShort PositionType = "short"
)

// SecurityType classifies the instrument held
type SecurityType string

const (
	SecurityEquity SecurityType = "Equity"
	SecurityETF    SecurityType = "ETF"
	SecurityCrypto SecurityType = "Crypto"
	SecurityCash   SecurityType = "Cash"
)

// SecurityTypeFromString normalizes a free-form security type string.
// Unknown values default to Equity.
func SecurityTypeFromString(value string) SecurityType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "etf":
		return SecurityETF
	case "crypto", "cryptocurrency":
		return SecurityCrypto
	case "cash", "stablecoin":
		return SecurityCash
	default:
		return SecurityEquity
	}
}

// Transaction is an immutable record in the append-only transaction log
type Transaction struct {
	ID           string       `json:"transaction_id"`
	Symbol       string       `json:"symbol"`
	Action       Action       `json:"action"`
	Quantity     float64      `json:"quantity"`
	Price        float64      `json:"price"`
	Date         string       `json:"date"` // YYYY-MM-DD
	CompanyName  string       `json:"company_name"`
	SecurityType SecurityType `json:"security_type"`
}

// Validate validates transaction data and normalizes the symbol
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("%w: symbol cannot be empty", ErrInvalidInput)
	}
	if t.Quantity <= 0 || t.Price <= 0 {
		return ErrInvalidInput
	}
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	return nil
}

// Lot is a remaining slice of a position, created by a Buy or Sell Short
// and consumed FIFO by the opposite-direction action.
type Lot struct {
	ID                string       `json:"transactionId"`
	PositionType      PositionType `json:"position_type"`
	OriginalQuantity  float64      `json:"original_quantity"`
	RemainingQuantity float64      `json:"quantity"`
	UnitCost          float64      `json:"cost_basis"` // cost for long, proceeds for short
	Date              string       `json:"date"`
	Action            Action       `json:"action"`
	CompanyName       string       `json:"company_name"`
	SecurityType      SecurityType `json:"security_type"`
}

// Basis returns the remaining cost (long) or proceeds (short) of the lot
func (l *Lot) Basis() float64 {
	return l.RemainingQuantity * l.UnitCost
}

// PositionDetail aggregates all active lots of one symbol
type PositionDetail struct {
	Symbol                string   `json:"symbol"`
	CompanyName           string   `json:"company_name"`
	Quantity              float64  `json:"quantity"` // net: long positive, short negative
	AvgPricePerShare      float64  `json:"average_price_per_share"`
	CurrentPrice          *float64 `json:"current_price"`
	UnrealizedPnL         float64  `json:"unrealized_pnl"`
	UnrealizedGainPercent float64  `json:"unrealized_gain_percent"`
	DayGain               float64  `json:"day_gain"`
	DayGainPercent        float64  `json:"day_gain_percent"`
}

// LotPnL is one row of the per-lot P/L table
type LotPnL struct {
	Symbol                string       `json:"symbol"`
	CompanyName           string       `json:"company_name"`
	LotID                 string       `json:"lot_id"`
	PositionType          PositionType `json:"position_type"`
	Action                Action       `json:"action"`
	SecurityType          SecurityType `json:"security_type"`
	Quantity              float64      `json:"quantity"`
	OriginalQuantity      float64      `json:"original_quantity"`
	UnitCost              float64      `json:"unit_cost"`
	Basis                 float64      `json:"basis"`
	Date                  string       `json:"date"`
	CurrentPrice          *float64     `json:"current_price"`
	UnrealizedPnL         float64      `json:"unrealized_pnl"`
	UnrealizedGainPercent float64      `json:"unrealized_gain_percent"`
	DayGain               float64      `json:"day_gain"`
	DayGainPercent        float64      `json:"day_gain_percent"`
}

// LotDetail is the per-lot entry of the detailed portfolio report
type LotDetail struct {
	TransactionID    string       `json:"transactionId"`
	Date             string       `json:"date"`
	PurchasePrice    float64      `json:"purchasePrice"`
	Quantity         float64      `json:"quantity"`
	Value            float64      `json:"value"`
	TotalGain        float64      `json:"totalGain"`
	TotalGainPercent float64      `json:"totalGainPercent"`
	Action           Action       `json:"action"`
	SecurityType     SecurityType `json:"securityType"`
}

// SymbolDetail is the per-symbol entry of the detailed portfolio report
type SymbolDetail struct {
	ID               string      `json:"id"`
	Symbol           string      `json:"symbol"`
	Name             string      `json:"name"`
	Price            *float64    `json:"price"`
	Quantity         float64     `json:"quantity"`
	DayGain          float64     `json:"dayGain"`
	DayGainPercent   float64     `json:"dayGainPercent"`
	Value            float64     `json:"value"`
	TotalGain        float64     `json:"totalGain"`
	TotalGainPercent float64     `json:"totalGainPercent"`
	Purchases        []LotDetail `json:"purchases"`
}

// Report is the detailed portfolio report payload
type Report struct {
	Balance          float64        `json:"balance"`
	DayChange        float64        `json:"dayChange"`
	DayPercent       float64        `json:"dayPercent"`
	TotalGain        float64        `json:"totalGain"`
	TotalGainPercent float64        `json:"totalGainPercent"`
	Timestamp        string         `json:"timestamp"`
	Positions        []SymbolDetail `json:"positions"`
}

// TransactionRequest is the POST /api/transactions payload
type TransactionRequest struct {
	Symbol       string  `json:"symbol"`
	Action       string  `json:"action"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	Date         string  `json:"date"`
	CompanyName  string  `json:"company_name"`
	SecurityType string  `json:"security_type"`
}

// PnLSummary bundles the three P/L totals
type PnLSummary struct {
	Realized   float64 `json:"realized_pnl"`
	Unrealized float64 `json:"unrealized_pnl"`
	Total      float64 `json:"total_pnl"`
}

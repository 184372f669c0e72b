package ledger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger() *LotLedger {
	return NewLotLedger(zerolog.Nop())
}

func TestBuyCreatesLot(t *testing.T) {
	l := newTestLedger()

	tx, err := l.Buy("aapl", 10, 150, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "AAPL", tx.Symbol)
	assert.Equal(t, ActionBuy, tx.Action)

	holdings := l.Holdings()
	assert.Equal(t, 10.0, holdings["AAPL"])
}

func TestBuyRejectsInvalidInput(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 0, 150, "2024-01-02", "", SecurityEquity)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.Buy("AAPL", 10, -1, "2024-01-02", "", SecurityEquity)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.Buy("  ", 10, 150, "2024-01-02", "", SecurityEquity)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, l.Holdings())
}

func TestSellConsumesLotsFIFO(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)
	_, err = l.Buy("AAPL", 10, 120, "2024-01-03", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	// 15 shares: all of the first lot plus 5 of the second
	_, realized, err := l.Sell("AAPL", 15, 130, "2024-01-10")
	require.NoError(t, err)

	// (130-100)*10 + (130-120)*5
	assert.InDelta(t, 350.0, realized, 1e-9)
	assert.InDelta(t, 5.0, l.Holdings()["AAPL"], 1e-9)

	// The surviving lot is the second one
	rows := l.LotPnLTable()
	require.Len(t, rows, 1)
	assert.Equal(t, 120.0, rows[0].UnitCost)
	assert.InDelta(t, 5.0, rows[0].Quantity, 1e-9)
}

func TestSellWithoutPosition(t *testing.T) {
	l := newTestLedger()

	_, _, err := l.Sell("AAPL", 5, 100, "2024-01-02")
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestOversellClampsToHeld(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	tx, realized, err := l.Sell("AAPL", 25, 110, "2024-01-10")
	require.NoError(t, err)

	assert.Equal(t, 10.0, tx.Quantity)
	assert.InDelta(t, 100.0, realized, 1e-9)

	// Position fully closed and purged
	_, ok := l.Holdings()["AAPL"]
	assert.False(t, ok)
}

func TestFullSellPurgesSymbolAndPrices(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	l.SetRealtimePrices(
		map[string]float64{"AAPL": 110},
		map[string]float64{"AAPL": 108},
	)

	_, _, err = l.Sell("AAPL", 10, 110, "2024-01-10")
	require.NoError(t, err)

	assert.Empty(t, l.Holdings())
	assert.Nil(t, l.PositionDetails("AAPL"))
	assert.Zero(t, l.TotalUnrealizedPnL())
}

func TestDepletionToleranceDropsLot(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 0.3, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	// Three sells of 0.1 leave a residual far below the tolerance
	for i := 0; i < 3; i++ {
		_, _, err = l.Sell("AAPL", 0.1, 110, "2024-01-10")
		require.NoError(t, err)
	}

	assert.Empty(t, l.Holdings())
}

func TestShortSellAndCover(t *testing.T) {
	l := newTestLedger()

	_, err := l.ShortSell("TSLA", 5, 200, "2024-01-02", "Tesla Inc.", SecurityEquity)
	require.NoError(t, err)

	holdings := l.Holdings()
	assert.Equal(t, -5.0, holdings["TSLA"])

	// Cover at a lower price for a profit
	_, realized, err := l.BuyToCover("TSLA", 5, 180, "2024-01-10")
	require.NoError(t, err)

	assert.InDelta(t, 100.0, realized, 1e-9)
	assert.Empty(t, l.Holdings())
	assert.InDelta(t, 100.0, l.RealizedPnL(), 1e-9)
}

func TestCoverDoesNotTouchLongLots(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	_, _, err = l.BuyToCover("AAPL", 5, 90, "2024-01-10")
	assert.ErrorIs(t, err, ErrNoPosition)
	assert.Equal(t, 10.0, l.Holdings()["AAPL"])
}

func TestLongAndShortCoexist(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)
	_, err = l.ShortSell("AAPL", 4, 110, "2024-01-03", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	assert.InDelta(t, 6.0, l.Holdings()["AAPL"], 1e-9)

	// Selling consumes only the long lot
	_, realized, err := l.Sell("AAPL", 10, 120, "2024-01-10")
	require.NoError(t, err)
	assert.InDelta(t, 200.0, realized, 1e-9)
	assert.InDelta(t, -4.0, l.Holdings()["AAPL"], 1e-9)
}

func TestUnrealizedPnL(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)
	_, err = l.ShortSell("TSLA", 5, 200, "2024-01-02", "Tesla Inc.", SecurityEquity)
	require.NoError(t, err)

	l.SetRealtimePrices(
		map[string]float64{"AAPL": 110, "TSLA": 190},
		map[string]float64{"AAPL": 105, "TSLA": 195},
	)

	// (110-100)*10 + (200-190)*5
	assert.InDelta(t, 150.0, l.TotalUnrealizedPnL(), 1e-9)
	assert.InDelta(t, 150.0, l.TotalPnL(), 1e-9)

	aapl := l.PositionDetails("AAPL")
	require.NotNil(t, aapl)
	require.NotNil(t, aapl.CurrentPrice)
	assert.InDelta(t, 100.0, aapl.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 50.0, aapl.DayGain, 1e-9) // (110-105)*10

	tsla := l.PositionDetails("TSLA")
	require.NotNil(t, tsla)
	assert.InDelta(t, 50.0, tsla.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 25.0, tsla.DayGain, 1e-9) // (195-190)*5
}

func TestUnrealizedPnLMixedLots(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)
	_, err = l.Buy("AAPL", 5, 120, "2024-01-03", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	l.SetRealtimePrices(map[string]float64{"AAPL": 110}, nil)

	// (110-100)*10 + (110-120)*5
	assert.InDelta(t, 50.0, l.TotalUnrealizedPnL(), 1e-9)
}

func TestPositionDetailsWithoutPrices(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	detail := l.PositionDetails("AAPL")
	require.NotNil(t, detail)
	assert.Nil(t, detail.CurrentPrice)
	assert.Zero(t, detail.UnrealizedPnL)
	assert.Equal(t, 100.0, detail.AvgPricePerShare)
}

func TestSetRealtimePricesReplacesSnapshot(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)
	_, err = l.Buy("MSFT", 5, 300, "2024-01-02", "Microsoft", SecurityEquity)
	require.NoError(t, err)

	l.SetRealtimePrices(
		map[string]float64{"AAPL": 110, "MSFT": 310},
		map[string]float64{"AAPL": 105, "MSFT": 305},
	)
	// Second snapshot omits MSFT; no merge with the first
	l.SetRealtimePrices(
		map[string]float64{"AAPL": 120},
		map[string]float64{"AAPL": 110},
	)

	msft := l.PositionDetails("MSFT")
	require.NotNil(t, msft)
	assert.Nil(t, msft.CurrentPrice)

	aapl := l.PositionDetails("AAPL")
	require.NotNil(t, aapl)
	assert.Equal(t, 120.0, *aapl.CurrentPrice)
}

func TestReplayIsDeterministic(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)
	_, err = l.Buy("AAPL", 5, 110, "2024-01-03", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)
	_, _, err = l.Sell("AAPL", 12, 120, "2024-01-10")
	require.NoError(t, err)
	_, err = l.ShortSell("TSLA", 3, 200, "2024-01-11", "Tesla Inc.", SecurityEquity)
	require.NoError(t, err)

	log := l.TransactionLog()
	wantHoldings := l.Holdings()
	wantRealized := l.RealizedPnL()

	replayed := newTestLedger()
	replayed.Replay(log)

	assert.Equal(t, wantHoldings, replayed.Holdings())
	assert.InDelta(t, wantRealized, replayed.RealizedPnL(), 1e-9)
	assert.Equal(t, len(log), len(replayed.TransactionLog()))
}

func TestReplaySkipsOrphanedSell(t *testing.T) {
	l := newTestLedger()

	// A sell whose opening buy was removed from the log
	txs := []Transaction{
		{ID: "t1", Symbol: "AAPL", Action: ActionSell, Quantity: 5, Price: 120, Date: "2024-01-10"},
		{ID: "t2", Symbol: "MSFT", Action: ActionBuy, Quantity: 3, Price: 300, Date: "2024-01-11"},
	}
	l.Replay(txs)

	holdings := l.Holdings()
	assert.Equal(t, 3.0, holdings["MSFT"])
	_, ok := holdings["AAPL"]
	assert.False(t, ok)
	assert.Zero(t, l.RealizedPnL())
}

func TestDetailedReport(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)
	_, err = l.Buy("AAPL", 5, 110, "2024-01-03", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	l.SetRealtimePrices(
		map[string]float64{"AAPL": 120},
		map[string]float64{"AAPL": 115},
	)

	report := l.DetailedReport()

	assert.Equal(t, 1800.0, report.Balance) // 15 * 120
	assert.Equal(t, 75.0, report.DayChange) // (120-115)*15
	assert.InDelta(t, 4.35, report.DayPercent, 0.01)
	assert.Equal(t, 250.0, report.TotalGain) // 200 + 50
	assert.NotEmpty(t, report.Timestamp)

	require.Len(t, report.Positions, 1)
	pos := report.Positions[0]
	assert.Equal(t, "aapl", pos.ID)
	assert.Equal(t, "AAPL", pos.Symbol)
	assert.Equal(t, "Apple Inc.", pos.Name)
	require.NotNil(t, pos.Price)
	assert.Equal(t, 120.0, *pos.Price)
	require.Len(t, pos.Purchases, 2)
	assert.Equal(t, 200.0, pos.Purchases[0].TotalGain)
	assert.Equal(t, 20.0, pos.Purchases[0].TotalGainPercent)
}

func TestDetailedReportWithoutPrices(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)

	report := l.DetailedReport()
	assert.Zero(t, report.Balance)
	assert.Zero(t, report.DayChange)
	require.Len(t, report.Positions, 1)
	assert.Nil(t, report.Positions[0].Price)
}

func TestDetailedReportIdempotent(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("AAPL", 10, 100, "2024-01-02", "Apple Inc.", SecurityEquity)
	require.NoError(t, err)
	l.SetRealtimePrices(
		map[string]float64{"AAPL": 120},
		map[string]float64{"AAPL": 115},
	)

	first := l.DetailedReport()
	second := l.DetailedReport()

	// Identical apart from the timestamp
	first.Timestamp = ""
	second.Timestamp = ""
	assert.Equal(t, first, second)
}

func TestSecurityInfo(t *testing.T) {
	l := newTestLedger()

	_, err := l.Buy("BTC", 0.5, 40000, "2024-01-02", "bitcoin", SecurityCrypto)
	require.NoError(t, err)

	secType, name, ok := l.SecurityInfo("BTC")
	require.True(t, ok)
	assert.Equal(t, SecurityCrypto, secType)
	assert.Equal(t, "bitcoin", name)

	_, _, ok = l.SecurityInfo("ETH")
	assert.False(t, ok)
}

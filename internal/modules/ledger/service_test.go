package ledger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestService(t *testing.T) *Service {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	return NewService(NewLotLedger(zerolog.Nop()), repo, zerolog.Nop())
}

func TestServiceAddTransaction(t *testing.T) {
	svc := setupTestService(t)

	tx, _, err := svc.AddTransaction(TransactionRequest{
		Symbol: "aapl", Action: "buy", Quantity: 10, Price: 100, Date: "2024-01-02",
		CompanyName: "Apple Inc.", SecurityType: "stock",
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", tx.Symbol)
	assert.Equal(t, SecurityEquity, tx.SecurityType)

	// Persisted to the log
	txs, err := svc.Transactions("")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, tx.ID, txs[0].ID)
}

func TestServiceAddTransactionInvalidAction(t *testing.T) {
	svc := setupTestService(t)

	_, _, err := svc.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "hold", Quantity: 10, Price: 100,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	txs, err := svc.Transactions("")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestServiceSellReturnsRealized(t *testing.T) {
	svc := setupTestService(t)

	_, _, err := svc.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "buy", Quantity: 10, Price: 100, Date: "2024-01-02",
	})
	require.NoError(t, err)

	tx, realized, err := svc.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "sell", Quantity: 4, Price: 120, Date: "2024-01-10",
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, tx.Quantity)
	assert.InDelta(t, 80.0, realized, 1e-9)
}

func TestServiceRejectedTransactionNotPersisted(t *testing.T) {
	svc := setupTestService(t)

	_, _, err := svc.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "sell", Quantity: 4, Price: 120, Date: "2024-01-10",
	})
	assert.ErrorIs(t, err, ErrNoPosition)

	txs, err := svc.Transactions("")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestServiceLoadRebuildsState(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	first := NewService(NewLotLedger(zerolog.Nop()), repo, zerolog.Nop())
	_, _, err := first.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "buy", Quantity: 10, Price: 100, Date: "2024-01-02",
	})
	require.NoError(t, err)
	_, _, err = first.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "sell", Quantity: 4, Price: 120, Date: "2024-01-10",
	})
	require.NoError(t, err)

	// A fresh service over the same database reproduces the state
	second := NewService(NewLotLedger(zerolog.Nop()), repo, zerolog.Nop())
	require.NoError(t, second.Load())

	assert.InDelta(t, 6.0, second.Ledger().Holdings()["AAPL"], 1e-9)
	assert.InDelta(t, 80.0, second.Ledger().RealizedPnL(), 1e-9)
}

func TestServiceRemoveTransactionReplays(t *testing.T) {
	svc := setupTestService(t)

	buy1, _, err := svc.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "buy", Quantity: 10, Price: 100, Date: "2024-01-02",
	})
	require.NoError(t, err)
	_, _, err = svc.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "buy", Quantity: 5, Price: 110, Date: "2024-01-03",
	})
	require.NoError(t, err)
	_, _, err = svc.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "sell", Quantity: 8, Price: 120, Date: "2024-01-10",
	})
	require.NoError(t, err)

	// Removing the first buy makes the sell consume the remaining lot,
	// clamped to the 5 shares it holds
	require.NoError(t, svc.RemoveTransaction(buy1.ID))

	holdings := svc.Ledger().Holdings()
	_, ok := holdings["AAPL"]
	assert.False(t, ok)
	assert.InDelta(t, 50.0, svc.Ledger().RealizedPnL(), 1e-9) // (120-110)*5
}

func TestServiceRemoveUnknownTransaction(t *testing.T) {
	svc := setupTestService(t)

	err := svc.RemoveTransaction("missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestServicePnLSummary(t *testing.T) {
	svc := setupTestService(t)

	_, _, err := svc.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "buy", Quantity: 10, Price: 100, Date: "2024-01-02",
	})
	require.NoError(t, err)
	_, _, err = svc.AddTransaction(TransactionRequest{
		Symbol: "AAPL", Action: "sell", Quantity: 5, Price: 120, Date: "2024-01-10",
	})
	require.NoError(t, err)

	svc.Ledger().SetRealtimePrices(
		map[string]float64{"AAPL": 130},
		map[string]float64{"AAPL": 125},
	)

	pnl := svc.PnL()
	assert.InDelta(t, 100.0, pnl.Realized, 1e-9)
	assert.InDelta(t, 150.0, pnl.Unrealized, 1e-9)
	assert.InDelta(t, 250.0, pnl.Total, 1e-9)
}

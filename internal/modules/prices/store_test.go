package prices

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	return NewStore(t.TempDir(), zerolog.Nop())
}

func TestStoreUpsertAndRead(t *testing.T) {
	store := setupTestStore(t)

	bars := []Bar{
		{Date: "2024-01-02", Open: 100, High: 105, Low: 99, Close: 104, AdjClose: 104, Volume: 1000},
		{Date: "2024-01-03", Open: 104, High: 108, Low: 103, Close: 107, AdjClose: 107, Volume: 1200},
	}
	require.NoError(t, store.Upsert("AAPL", bars))

	closes, err := store.GetDailyCloses("AAPL")
	require.NoError(t, err)
	require.Len(t, closes, 2)
	assert.Equal(t, DailyClose{Date: "2024-01-02", Close: 104}, closes[0])
	assert.Equal(t, DailyClose{Date: "2024-01-03", Close: 107}, closes[1])
}

func TestStoreUpsertReplacesSameDate(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Upsert("AAPL", []Bar{{Date: "2024-01-02", Close: 104}}))
	require.NoError(t, store.Upsert("AAPL", []Bar{{Date: "2024-01-02", Close: 105}}))

	closes, err := store.GetDailyCloses("AAPL")
	require.NoError(t, err)
	require.Len(t, closes, 1)
	assert.Equal(t, 105.0, closes[0].Close)
}

func TestStoreMissingSymbolIsEmpty(t *testing.T) {
	store := setupTestStore(t)

	closes, err := store.GetDailyCloses("MSFT")
	require.NoError(t, err)
	assert.Empty(t, closes)
	assert.False(t, store.HasHistory("MSFT"))
}

func TestStoreLastCloses(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Upsert("BTC", []Bar{
		{Date: "2024-01-01", Close: 40000},
		{Date: "2024-01-02", Close: 41000},
		{Date: "2024-01-03", Close: 42000},
	}))

	closes, err := store.LastCloses("BTC", 2)
	require.NoError(t, err)
	require.Len(t, closes, 2)

	// Most recent two, oldest first
	assert.Equal(t, "2024-01-02", closes[0].Date)
	assert.Equal(t, "2024-01-03", closes[1].Date)
}

func TestStoreSymbolWithExchangeSuffix(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Upsert("BASF.DE", []Bar{{Date: "2024-01-02", Close: 48.5}}))
	assert.True(t, store.HasHistory("BASF.DE"))

	closes, err := store.GetDailyCloses("BASF.DE")
	require.NoError(t, err)
	require.Len(t, closes, 1)
}

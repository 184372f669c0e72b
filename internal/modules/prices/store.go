package prices

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
)

// historySchema is applied to each per-symbol database on first write
const historySchema = `
CREATE TABLE IF NOT EXISTS daily_prices (
    date TEXT PRIMARY KEY,
    open_price REAL,
    high_price REAL,
    low_price REAL,
    close_price REAL NOT NULL,
    adj_close REAL,
    volume INTEGER
);
`

// Store persists historical price series, one SQLite database per symbol
// under historyDir. All reads return rows in ascending date order.
type Store struct {
	historyDir string
	log        zerolog.Logger
}

// NewStore creates a new price series store
func NewStore(historyDir string, log zerolog.Logger) *Store {
	return &Store{
		historyDir: historyDir,
		log:        log.With().Str("component", "price_store").Logger(),
	}
}

// Bar is one daily OHLCV row to store
type Bar struct {
	Date     string // YYYY-MM-DD
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// Upsert writes daily bars for a symbol, replacing rows with the same date
func (s *Store) Upsert(symbol string, bars []Bar) error {
	if len(bars) == 0 {
		return nil
	}

	db, err := s.openHistoryDB(symbol, true)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices
			(date, open_price, high_price, low_price, close_price, adj_close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		if _, err := stmt.Exec(bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.AdjClose, bar.Volume); err != nil {
			return fmt.Errorf("failed to upsert bar for %s on %s: %w", symbol, bar.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bars: %w", err)
	}

	s.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Stored price history")
	return nil
}

// GetDailyCloses returns the full stored close series in ascending date
// order. A symbol with no history file yields an empty series, not an error.
func (s *Store) GetDailyCloses(symbol string) ([]DailyClose, error) {
	if !s.HasHistory(symbol) {
		return []DailyClose{}, nil
	}

	db, err := s.openHistoryDB(symbol, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT date, close_price
		FROM daily_prices
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily closes: %w", err)
	}
	defer rows.Close()

	var closes []DailyClose
	for rows.Next() {
		var c DailyClose
		if err := rows.Scan(&c.Date, &c.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily closes: %w", err)
	}

	if closes == nil {
		closes = []DailyClose{}
	}
	return closes, nil
}

// LastCloses returns up to limit most recent closes in ascending date order
func (s *Store) LastCloses(symbol string, limit int) ([]DailyClose, error) {
	if !s.HasHistory(symbol) {
		return []DailyClose{}, nil
	}

	db, err := s.openHistoryDB(symbol, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT date, close_price FROM (
			SELECT date, close_price
			FROM daily_prices
			ORDER BY date DESC
			LIMIT ?
		) ORDER BY date ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query last closes: %w", err)
	}
	defer rows.Close()

	var closes []DailyClose
	for rows.Next() {
		var c DailyClose
		if err := rows.Scan(&c.Date, &c.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating last closes: %w", err)
	}

	if closes == nil {
		closes = []DailyClose{}
	}
	return closes, nil
}

// HasHistory reports whether a history database exists for the symbol
func (s *Store) HasHistory(symbol string) bool {
	_, err := os.Stat(s.dbPath(symbol))
	return err == nil
}

func (s *Store) dbPath(symbol string) string {
	// AAPL.US -> AAPL_US
	dbSymbol := strings.ReplaceAll(symbol, ".", "_")
	return filepath.Join(s.historyDir, dbSymbol+".db")
}

// openHistoryDB opens the history database for a symbol, creating the schema
// when opened for writing
func (s *Store) openHistoryDB(symbol string, create bool) (*sql.DB, error) {
	if create {
		if err := os.MkdirAll(s.historyDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", s.dbPath(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", symbol, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database for %s: %w", symbol, err)
	}

	if create {
		if _, err := db.Exec(historySchema); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to init history schema for %s: %w", symbol, err)
		}
	}

	return db, nil
}

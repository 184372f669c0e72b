package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists the transaction log
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new transaction repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

// Append inserts a transaction at the end of the log
func (r *Repository) Append(tx Transaction) error {
	query := `
		INSERT INTO transactions (
			transaction_id, symbol, action, quantity, price, date,
			company_name, security_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(
		query,
		tx.ID,
		tx.Symbol,
		string(tx.Action),
		tx.Quantity,
		tx.Price,
		tx.Date,
		nullString(tx.CompanyName),
		nullString(string(tx.SecurityType)),
		time.Now().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// GetAll returns every transaction in insertion order
func (r *Repository) GetAll() ([]Transaction, error) {
	query := `
		SELECT transaction_id, symbol, action, quantity, price, date,
		       company_name, security_type
		FROM transactions
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetBySymbol returns a symbol's transactions in insertion order
func (r *Repository) GetBySymbol(symbol string) ([]Transaction, error) {
	query := `
		SELECT transaction_id, symbol, action, quantity, price, date,
		       company_name, security_type
		FROM transactions
		WHERE symbol = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for %s: %w", symbol, err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// Delete removes a transaction by its ID. Returns false when no row matched.
func (r *Repository) Delete(transactionID string) (bool, error) {
	result, err := r.db.Exec("DELETE FROM transactions WHERE transaction_id = ?", transactionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Count returns the number of stored transactions
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	var txs []Transaction
	for rows.Next() {
		var tx Transaction
		var companyName, securityType sql.NullString

		err := rows.Scan(
			&tx.ID,
			&tx.Symbol,
			&tx.Action,
			&tx.Quantity,
			&tx.Price,
			&tx.Date,
			&companyName,
			&securityType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.CompanyName = companyName.String
		tx.SecurityType = SecurityType(securityType.String)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// nullString converts an empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

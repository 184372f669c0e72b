package ledger

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrTransactionNotFound is returned when removing an unknown transaction ID
var ErrTransactionNotFound = errors.New("transaction not found")

// Service coordinates the in-memory ledger with the persisted transaction
// log. The log is the source of truth: mutations are applied to the ledger
// first, persisted only on success, and removal triggers a full replay.
type Service struct {
	ledger *LotLedger
	repo   *Repository
	log    zerolog.Logger
}

// NewService creates a new ledger service
func NewService(ledger *LotLedger, repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		ledger: ledger,
		repo:   repo,
		log:    log.With().Str("service", "ledger").Logger(),
	}
}

// Load rebuilds the ledger from the persisted transaction log
func (s *Service) Load() error {
	txs, err := s.repo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load transaction log: %w", err)
	}

	s.ledger.Replay(txs)
	s.log.Info().Int("transactions", len(txs)).Msg("Ledger rebuilt from transaction log")
	return nil
}

// AddTransaction applies a new transaction to the ledger and persists it.
// Returns the recorded transaction (with generated ID and clamped quantity
// for oversized closes) and the realized P/L for closing actions.
func (s *Service) AddTransaction(req TransactionRequest) (Transaction, float64, error) {
	action, err := ActionFromString(req.Action)
	if err != nil {
		return Transaction{}, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	secType := SecurityTypeFromString(req.SecurityType)

	var tx Transaction
	var realized float64

	switch action {
	case ActionBuy:
		tx, err = s.ledger.Buy(req.Symbol, req.Quantity, req.Price, req.Date, req.CompanyName, secType)
	case ActionShortSell:
		tx, err = s.ledger.ShortSell(req.Symbol, req.Quantity, req.Price, req.Date, req.CompanyName, secType)
	case ActionSell:
		tx, realized, err = s.ledger.Sell(req.Symbol, req.Quantity, req.Price, req.Date)
	case ActionBuyToCover:
		tx, realized, err = s.ledger.BuyToCover(req.Symbol, req.Quantity, req.Price, req.Date)
	}
	if err != nil {
		return Transaction{}, 0, err
	}

	if err := s.repo.Append(tx); err != nil {
		// Ledger and log have diverged; replay restores consistency
		s.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Failed to persist transaction, replaying log")
		if loadErr := s.Load(); loadErr != nil {
			s.log.Error().Err(loadErr).Msg("Failed to replay after persist error")
		}
		return Transaction{}, 0, fmt.Errorf("failed to persist transaction: %w", err)
	}

	return tx, realized, nil
}

// RemoveTransaction deletes a transaction from the log and rebuilds the
// ledger by replaying the remaining entries in original order
func (s *Service) RemoveTransaction(transactionID string) error {
	deleted, err := s.repo.Delete(transactionID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
	}

	if err := s.Load(); err != nil {
		return fmt.Errorf("failed to replay after removal: %w", err)
	}

	s.log.Info().Str("transaction_id", transactionID).Msg("Transaction removed, ledger replayed")
	return nil
}

// Transactions returns the persisted log, optionally filtered by symbol
func (s *Service) Transactions(symbol string) ([]Transaction, error) {
	if symbol != "" {
		return s.repo.GetBySymbol(symbol)
	}
	return s.repo.GetAll()
}

// PnL returns the realized/unrealized/total P/L summary
func (s *Service) PnL() PnLSummary {
	return PnLSummary{
		Realized:   s.ledger.RealizedPnL(),
		Unrealized: s.ledger.TotalUnrealizedPnL(),
		Total:      s.ledger.TotalPnL(),
	}
}

// Ledger exposes the underlying lot ledger for read access by other modules
func (s *Service) Ledger() *LotLedger {
	return s.ledger
}

package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles transaction and position HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleAddTransaction handles POST /api/transactions
func (h *Handler) HandleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	tx, realized, err := h.service.AddTransaction(req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrNoPosition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Failed to add transaction")
			http.Error(w, "Failed to add transaction", http.StatusInternalServerError)
		}
		return
	}

	response := map[string]interface{}{
		"transaction": tx,
	}
	if !tx.Action.Opens() {
		response["realized_pnl"] = realized
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// HandleRemoveTransaction handles DELETE /api/transactions/{id}
func (h *Handler) HandleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "id")
	if transactionID == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return
	}

	if err := h.service.RemoveTransaction(transactionID); err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to remove transaction")
		http.Error(w, "Failed to remove transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Transaction removed",
		"id":      transactionID,
	})
}

// HandleGetTransactions handles GET /api/transactions - list with optional symbol filter
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	txs, err := h.service.Transactions(symbol)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get transactions")
		http.Error(w, "Failed to retrieve transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txs)
}

// HandleGetTransactionsBySymbol handles GET /api/transactions/{symbol}
func (h *Handler) HandleGetTransactionsBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	txs, err := h.service.Transactions(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get transactions")
		http.Error(w, "Failed to retrieve transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txs)
}

// HandleGetPosition handles GET /api/portfolio/positions/{symbol}
func (h *Handler) HandleGetPosition(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	detail := h.service.Ledger().PositionDetails(symbol)
	if detail == nil {
		http.Error(w, "No open position for "+symbol, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

// HandleGetPositions handles GET /api/portfolio/positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.service.Ledger().Positions()
	if positions == nil {
		positions = []PositionDetail{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}

// HandleGetLots handles GET /api/portfolio/lots - per-lot P/L table
func (h *Handler) HandleGetLots(w http.ResponseWriter, r *http.Request) {
	lots := h.service.Ledger().LotPnLTable()
	if lots == nil {
		lots = []LotPnL{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lots)
}

// HandleGetPnL handles GET /api/portfolio/pnl
func (h *Handler) HandleGetPnL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.service.PnL())
}

package prices

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles price HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new prices handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "prices").Logger(),
	}
}

// HandleUpdatePrices handles POST /api/prices/update - on-demand refresh of
// stored series and the live quote snapshot
func (h *Handler) HandleUpdatePrices(w http.ResponseWriter, r *http.Request) {
	synced := h.service.SyncAllHistory()
	h.service.RefreshAll()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": fmt.Sprintf("Updated %d symbols.", synced),
		"updated": synced,
	})
}

// HandleGetHistory handles GET /api/prices/{symbol}/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	closes, err := h.service.GetDailyCloses(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get price history")
		http.Error(w, "Failed to retrieve price history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(closes)
}

// HandleGetQuote handles GET /api/prices/{symbol}
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	quote, err := h.service.GetQuote(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get quote")
		http.Error(w, "Failed to retrieve quote", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(quote)
}

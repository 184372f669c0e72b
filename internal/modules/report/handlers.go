package report

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler handles portfolio report HTTP requests
type Handler struct {
	assembler *Assembler
	log       zerolog.Logger
}

// NewHandler creates a new report handler
func NewHandler(assembler *Assembler, log zerolog.Logger) *Handler {
	return &Handler{
		assembler: assembler,
		log:       log.With().Str("handler", "report").Logger(),
	}
}

// HandleGetPortfolio handles GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	report := h.assembler.Assemble()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// HandleGetCachedPortfolio handles GET /api/portfolio/cached - last good
// report without touching any price source
func (h *Handler) HandleGetCachedPortfolio(w http.ResponseWriter, r *http.Request) {
	report, err := h.assembler.Cached()
	if err != nil {
		if errors.Is(err, ErrNoCachedReport) {
			http.Error(w, "No cached report available", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to get cached report")
		http.Error(w, "Failed to retrieve cached report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

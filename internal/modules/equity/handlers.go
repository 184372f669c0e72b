package equity

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler handles equity curve HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new equity handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "equity").Logger(),
	}
}

// HandleGetEquity handles GET /api/equity?period=5y
func (h *Handler) HandleGetEquity(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "5y"
	}

	points, err := h.service.Curve(period)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if points == nil {
		points = []Point{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(points)
}

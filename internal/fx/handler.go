package fx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/middleware"
	"github.com/bastionpay/bastion/internal/model"
	"github.com/bastionpay/bastion/pkg/types"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

var validate = validator.New()

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	var req types.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	var asOf time.Time
	if req.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, req.AsOf)
		if err != nil {
			http.Error(w, "as_of must be RFC3339", http.StatusBadRequest)
			return
		}
		asOf = parsed
	}

	amount, rate, err := h.service.Convert(ctx, req.Amount, req.From, req.To, asOf)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			logger.Warn().Str("from", req.From).Str("to", req.To).Msg("No active rate for pair")
			http.Error(w, "No active rate for currency pair", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to convert amount")
		http.Error(w, "Failed to convert amount", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.ConvertResponse{Amount: amount, Rate: rate})
}

func (h *Handler) PutRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	var req types.PutRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	rate := &model.ExchangeRate{
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		Rate:         req.Rate,
		Provider:     req.Provider,
	}
	if req.ValidFrom != "" {
		t, err := time.Parse(time.RFC3339, req.ValidFrom)
		if err != nil {
			http.Error(w, "valid_from must be RFC3339", http.StatusBadRequest)
			return
		}
		rate.ValidFrom = t
	}
	if req.ValidUntil != "" {
		t, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil {
			http.Error(w, "valid_until must be RFC3339", http.StatusBadRequest)
			return
		}
		rate.ValidUntil = &t
	}

	if err := h.service.PutRate(ctx, rate); err != nil {
		if errors.Is(err, errs.ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Error().Err(err).Msg("Failed to record exchange rate")
		http.Error(w, "Failed to record exchange rate", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"rate_id": rate.ID})
}

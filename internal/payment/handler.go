package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/middleware"
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

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	var req types.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	resp, err := h.service.CreatePayment(ctx, &req, idempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, errs.ErrProviderUnavailable):
			http.Error(w, err.Error(), http.StatusBadGateway)
		case errors.Is(err, errs.ErrConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, errs.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			logger.Error().Err(err).Msg("Failed to create payment")
			http.Error(w, "Failed to create payment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		http.Error(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	txn, err := h.service.GetStatus(ctx, transactionID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to fetch transaction")
		http.Error(w, "Failed to fetch transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txn)
}

func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		http.Error(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	var req types.RefundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	refund, err := h.service.RefundPayment(ctx, transactionID, req.Amount, req.Reason, uuid.MustParse(req.RefundedBy))
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			http.Error(w, "Transaction not found", http.StatusNotFound)
		case errors.Is(err, errs.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, errs.ErrInvalidState), errors.Is(err, errs.ErrConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error().Err(err).Msg("Failed to refund payment")
			http.Error(w, "Failed to refund payment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"refund_id": refund.ID,
		"amount":    refund.Amount,
		"currency":  refund.Currency,
	})
}

func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		http.Error(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	if err := h.service.CancelPayment(ctx, transactionID); err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			http.Error(w, "Transaction not found", http.StatusNotFound)
		case errors.Is(err, errs.ErrInvalidState), errors.Is(err, errs.ErrConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error().Err(err).Msg("Failed to cancel payment")
			http.Error(w, "Failed to cancel payment", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ConfirmManualPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		http.Error(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	var req types.ConfirmManualPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.ConfirmManualPayment(ctx, transactionID, uuid.MustParse(req.ConfirmedBy)); err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			http.Error(w, "Transaction not found", http.StatusNotFound)
		case errors.Is(err, errs.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, errs.ErrInvalidState), errors.Is(err, errs.ErrConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error().Err(err).Msg("Failed to confirm manual payment")
			http.Error(w, "Failed to confirm manual payment", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

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

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	var req types.CreateEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	account := &model.EscrowAccount{
		OrderID:           uuid.MustParse(req.OrderID),
		BuyerID:           uuid.MustParse(req.BuyerID),
		SellerID:          uuid.MustParse(req.SellerID),
		Amount:            req.Amount,
		Currency:          req.Currency,
		ReleaseConditions: req.ReleaseConditions,
	}

	escrowID, err := h.service.CreateEscrowAccount(ctx, account)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, errs.ErrConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error().Err(err).Msg("Failed to create escrow account")
			http.Error(w, "Failed to create escrow account", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"escrow_id": escrowID})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	escrowID, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		http.Error(w, "Invalid escrow id", http.StatusBadRequest)
		return
	}

	account, err := h.service.GetAccount(ctx, escrowID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "Escrow account not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to fetch escrow account")
		http.Error(w, "Failed to fetch escrow account", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

func (h *Handler) GetAccountByOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		return
	}

	account, err := h.service.GetAccountByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "Escrow account not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to fetch escrow account")
		http.Error(w, "Failed to fetch escrow account", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

// MarkFunded is the reconciliation hook for payments confirmed outside the
// webhook flow. The webhook apply transaction funds escrow directly.
func (h *Handler) MarkFunded(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(ctx context.Context, id, _ uuid.UUID) error {
		return h.service.MarkFunded(ctx, id)
	}, "fund escrow")
}

func (h *Handler) ReleaseFunds(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.ReleaseFunds, "release escrow funds")
}

func (h *Handler) RefundEscrow(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.RefundEscrow, "refund escrow")
}

func (h *Handler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.OpenDispute, "dispute escrow")
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, actorID uuid.UUID) error, what string) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	escrowID, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		http.Error(w, "Invalid escrow id", http.StatusBadRequest)
		return
	}

	var req types.EscrowActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := fn(ctx, escrowID, uuid.MustParse(req.ActorID)); err != nil {
		switch {
		case errors.Is(err, errs.ErrNotFound):
			http.Error(w, "Escrow account not found", http.StatusNotFound)
		case errors.Is(err, errs.ErrInvalidState), errors.Is(err, errs.ErrConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error().Err(err).Msg("Failed to " + what)
			http.Error(w, "Failed to "+what, http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package method

import (
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

func (h *Handler) AddMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	var req types.AddMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	m := &model.PaymentMethod{
		UserID:           uuid.MustParse(req.UserID),
		ProviderID:       uuid.MustParse(req.ProviderID),
		MethodType:       model.MethodType(req.MethodType),
		ProviderMethodID: req.ProviderMethodID,
		Metadata:         req.Metadata,
	}

	methodID, err := h.service.AddMethod(ctx, m)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to add payment method")
		http.Error(w, "Failed to add payment method", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"method_id": methodID})
}

func (h *Handler) SetDefault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	var req types.SetDefaultMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.service.SetDefault(ctx, uuid.MustParse(req.UserID), uuid.MustParse(req.MethodID))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "Payment method not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to set default payment method")
		http.Error(w, "Failed to set default payment method", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	methods, err := h.service.ListMethods(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list payment methods")
		http.Error(w, "Failed to list payment methods", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(methods)
}

func (h *Handler) MarkVerified(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	methodID, err := uuid.Parse(chi.URLParam(r, "methodID"))
	if err != nil {
		http.Error(w, "Invalid method id", http.StatusBadRequest)
		return
	}

	if err := h.service.MarkVerified(ctx, userID, methodID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "Payment method not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to verify payment method")
		http.Error(w, "Failed to verify payment method", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}
	methodID, err := uuid.Parse(chi.URLParam(r, "methodID"))
	if err != nil {
		http.Error(w, "Invalid method id", http.StatusBadRequest)
		return
	}

	if err := h.service.RemoveMethod(ctx, userID, methodID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "Payment method not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to remove payment method")
		http.Error(w, "Failed to remove payment method", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bastionpay/bastion/internal/config"
	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/kafka"
	"github.com/bastionpay/bastion/internal/middleware"
	"github.com/bastionpay/bastion/internal/model"
	"github.com/bastionpay/bastion/internal/payment"
	"github.com/bastionpay/bastion/pkg/constants"
	"github.com/bastionpay/bastion/pkg/types"
)

// SignatureHeader carries the provider's HMAC-SHA512 hex digest of the raw
// request body.
const SignatureHeader = "X-Bastion-Signature"

// GatewayHandler terminates provider callbacks. It verifies the signature
// against the raw body, stores the delivery in the outbox and acknowledges.
// All state mutation happens in the webhook worker, not here.
type GatewayHandler struct {
	db        *pgxpool.Pool
	providers config.ProvidersConfig
	notifier  payment.Notifier
}

func NewGatewayHandler(db *pgxpool.Pool, providers config.ProvidersConfig, notifier payment.Notifier) *GatewayHandler {
	return &GatewayHandler{
		db:        db,
		providers: providers,
		notifier:  notifier,
	}
}

func (h *GatewayHandler) secretFor(pt model.ProviderType) (string, error) {
	var secret string
	switch pt {
	case model.ProviderYooMoney:
		secret = h.providers.YooMoney.WebhookSecret
	case model.ProviderCardGateway:
		secret = h.providers.CardGateway.WebhookSecret
	case model.ProviderCash:
		secret = h.providers.Cash.WebhookSecret
	case model.ProviderBankTransfer:
		secret = h.providers.BankTransfer.WebhookSecret
	default:
		return "", fmt.Errorf("unknown provider type %q: %w", pt, errs.ErrValidation)
	}
	if secret == "" {
		return "", fmt.Errorf("no webhook secret configured for %s: %w", pt, errs.ErrValidation)
	}
	return secret, nil
}

func (h *GatewayHandler) providerID(r *http.Request, pt model.ProviderType) (uuid.UUID, error) {
	var id uuid.UUID
	err := h.db.QueryRow(r.Context(),
		`SELECT id FROM payment_providers WHERE provider_type = $1 AND is_active = TRUE`,
		pt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("no active provider of type %s: %w", pt, errs.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return id, nil
}

// HandleWebhook accepts POST /webhooks/{providerType}. Verification is
// fail-closed: a missing or bad signature is 401 and the body is dropped.
func (h *GatewayHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	pt := model.ProviderType(chi.URLParam(r, "providerType"))
	secret, err := h.secretFor(pt)
	if err != nil {
		http.Error(w, "Unknown provider", http.StatusNotFound)
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		logger.Warn().Str("provider_type", string(pt)).Msg("Webhook missing signature header")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read webhook body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !payment.VerifySignature(body, signature, secret) {
		logger.Error().Str("provider_type", string(pt)).Msg("Invalid webhook signature")
		if h.notifier != nil {
			detail, _ := json.Marshal(map[string]string{"provider_type": string(pt), "remote_addr": r.RemoteAddr})
			h.notifier.Notify(ctx, uuid.MustParse(constants.ActorSystemID), "security.webhook_signature_invalid", detail)
		}
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var event types.ProviderWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.WebhookID == "" || event.EventType == "" {
		logger.Warn().Str("provider_type", string(pt)).Msg("Malformed webhook envelope")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	providerID, err := h.providerID(r, pt)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			http.Error(w, "Unknown provider", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to resolve webhook provider")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	job, _ := json.Marshal(types.WebhookJob{
		ProviderID: providerID.String(),
		WebhookID:  event.WebhookID,
		EventType:  event.EventType,
		Payload:    body,
		Signature:  signature,
	})

	// Outbox first, Kafka later: an acknowledged delivery survives a crash
	// between the 200 and the relay.
	_, err = h.db.Exec(ctx, `
		INSERT INTO transaction_outbox (event_type, payload, partition_key, status)
		VALUES ($1, $2, $3, $4)`,
		kafka.EventWebhookReceived, job, event.WebhookID, "pending",
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to store webhook in outbox")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	logger.Info().
		Str("provider_type", string(pt)).
		Str("webhook_id", event.WebhookID).
		Str("event_type", event.EventType).
		Msg("Webhook accepted")
	w.WriteHeader(http.StatusOK)
}

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bastionpay/bastion/internal/config"
	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/fx"
	"github.com/bastionpay/bastion/internal/kafka"
	"github.com/bastionpay/bastion/internal/middleware"
	"github.com/bastionpay/bastion/internal/model"
	"github.com/bastionpay/bastion/internal/provider"
	"github.com/bastionpay/bastion/internal/redis"
	"github.com/bastionpay/bastion/pkg/constants"
	"github.com/bastionpay/bastion/pkg/types"
)

// Notifier is the fire-and-forget notification collaborator. Failures are
// the dispatcher's problem; they never roll back a payment state change.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, eventType string, payload json.RawMessage)
}

// IdempotencyStore is the slice of the redis client CreatePayment needs to
// honor Idempotency-Key retries.
type IdempotencyStore interface {
	CheckAndSetIdempotency(ctx context.Context, key string, ttl time.Duration) ([]byte, error)
	MarkIdempotencyComplete(ctx context.Context, key string, response []byte, ttl time.Duration) error
	MarkIdempotencyFailed(ctx context.Context, key string) error
}

// Service owns the payment transaction lifecycle: creation, provider
// dispatch, webhook-driven transitions, refunds and manual confirmation.
type Service struct {
	repo      TransactionRepository
	registry  *provider.Registry
	fx        *fx.Service
	idem      IdempotencyStore
	notifier  Notifier
	providers config.ProvidersConfig
}

func NewService(repo TransactionRepository, registry *provider.Registry, fxService *fx.Service, idem IdempotencyStore, notifier Notifier, providers config.ProvidersConfig) *Service {
	return &Service{
		repo:      repo,
		registry:  registry,
		fx:        fxService,
		idem:      idem,
		notifier:  notifier,
		providers: providers,
	}
}

// CreatePayment persists a PENDING transaction, dispatches it to the
// provider's adapter and returns the transaction id plus a checkout URL for
// redirect rails. A rejected adapter call is recorded as FAILED on the
// transaction, not returned as an error - the attempt stays trackable.
func (s *Service) CreatePayment(ctx context.Context, req *types.CreatePaymentRequest, idempotencyKey string) (*types.CreatePaymentResponse, error) {
	logger := middleware.GetLogger(ctx)

	if idempotencyKey != "" && s.idem != nil {
		cached, err := s.idem.CheckAndSetIdempotency(ctx, idempotencyKey, 24*time.Hour)
		if cached != nil {
			logger.Info().Msg("Returning cached payment response for idempotency key")
			var res types.CreatePaymentResponse
			if err := json.Unmarshal(cached, &res); err == nil {
				return &res, nil
			}
		}
		if errors.Is(err, redis.ErrKeyExists) {
			return nil, fmt.Errorf("%w: request with this idempotency key is still in progress", errs.ErrConflict)
		}
		if err != nil {
			return nil, err
		}
	}

	release := func() {
		if idempotencyKey != "" && s.idem != nil {
			s.idem.MarkIdempotencyFailed(ctx, idempotencyKey)
		}
	}

	prov, err := s.repo.GetProvider(ctx, uuid.MustParse(req.ProviderID))
	if err != nil {
		release()
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("provider %s: %w", req.ProviderID, errs.ErrProviderUnavailable)
		}
		return nil, err
	}
	if !prov.IsActive {
		release()
		return nil, fmt.Errorf("provider %s is inactive: %w", prov.Name, errs.ErrProviderUnavailable)
	}

	currency := strings.ToUpper(req.Currency)
	chargeCurrency := currency
	if req.ChargeCurrency != "" {
		chargeCurrency = strings.ToUpper(req.ChargeCurrency)
	}
	if !supportsCurrency(prov, chargeCurrency) {
		release()
		return nil, fmt.Errorf("%w: provider %s does not support %s", errs.ErrValidation, prov.Name, chargeCurrency)
	}

	txn := &model.PaymentTransaction{
		UserID:     uuid.MustParse(req.UserID),
		ProviderID: prov.ID,
		Type:       model.TypePayment,
		Amount:     req.Amount,
		Currency:   chargeCurrency,
		Status:     model.StatusPending,
		Metadata:   req.Metadata,
	}
	if req.OrderID != "" {
		orderID := uuid.MustParse(req.OrderID)
		txn.OrderID = &orderID
	}
	if req.PaymentMethodID != "" {
		methodID := uuid.MustParse(req.PaymentMethodID)
		txn.PaymentMethodID = &methodID
	}

	if chargeCurrency != currency {
		// A missing rate is a hard failure of the attempt, never a
		// silent 1:1 charge.
		converted, rate, err := s.fx.Convert(ctx, req.Amount, currency, chargeCurrency, time.Time{})
		if err != nil {
			release()
			return nil, err
		}
		txn.Amount = converted
		txn.ExchangeRate = &rate
		original := req.Amount
		txn.AmountOriginal = &original
		txn.CurrencyOriginal = &currency
	}

	// Persist first: if this fails no provider call is made, so there are
	// no half-created side effects.
	if err := s.repo.Insert(ctx, txn); err != nil {
		release()
		return nil, err
	}

	resp := &types.CreatePaymentResponse{
		TransactionID: txn.ID.String(),
		Status:        string(model.StatusPending),
	}

	adapter, err := s.registry.Resolve(prov.ProviderType)
	if err != nil {
		s.failTransaction(ctx, txn, "no adapter for provider type "+string(prov.ProviderType))
		resp.Status = string(model.StatusFailed)
		s.cacheResponse(ctx, idempotencyKey, resp)
		return resp, nil
	}

	result, err := adapter.Process(ctx, provider.ProcessRequest{
		TransactionID:   txn.ID,
		Amount:          txn.Amount,
		Currency:        txn.Currency,
		PaymentMethodID: txn.PaymentMethodID,
		Metadata:        txn.Metadata,
	})
	switch {
	case errors.Is(err, provider.ErrTimeout):
		// Ambiguous: the rail may have processed the charge. Leave the
		// transaction PENDING for webhook or reconciliation.
		logger.Warn().Str("transaction_id", txn.ID.String()).Msg("Provider call timed out, leaving transaction pending")
		s.cacheResponse(ctx, idempotencyKey, resp)
		return resp, nil
	case err != nil:
		logger.Warn().Err(err).Str("transaction_id", txn.ID.String()).Msg("Provider rejected payment")
		s.failTransaction(ctx, txn, err.Error())
		resp.Status = string(model.StatusFailed)
		s.cacheResponse(ctx, idempotencyKey, resp)
		return resp, nil
	}

	update := StatusUpdate{
		ID:                    txn.ID,
		From:                  model.StatusPending,
		To:                    result.Status,
		ProviderTransactionID: result.ProviderRef,
		ProviderResponse:      result.Raw,
	}
	if err := s.repo.UpdateStatus(ctx, update); err != nil {
		logger.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("Failed to record provider dispatch")
		// The charge is live at the provider. Cache the transaction so a
		// retry on the same key resolves here instead of charging twice;
		// the webhook will reconcile the stale status.
		resp.CheckoutURL = result.CheckoutURL
		s.cacheResponse(ctx, idempotencyKey, resp)
		return nil, err
	}

	resp.Status = string(result.Status)
	resp.CheckoutURL = result.CheckoutURL

	if payload, err := json.Marshal(map[string]string{
		"transaction_id": txn.ID.String(),
		"user_id":        txn.UserID.String(),
		"status":         string(result.Status),
	}); err == nil {
		if err := s.repo.InsertOutbox(ctx, kafka.EventPaymentCreated, payload, txn.UserID.String()); err != nil {
			logger.Warn().Err(err).Msg("Failed to enqueue payment created event")
		}
	}

	s.cacheResponse(ctx, idempotencyKey, resp)

	logger.Info().
		Str("transaction_id", txn.ID.String()).
		Str("provider", prov.Name).
		Str("status", resp.Status).
		Msg("Payment created")
	return resp, nil
}

func (s *Service) cacheResponse(ctx context.Context, idempotencyKey string, resp *types.CreatePaymentResponse) {
	if idempotencyKey == "" || s.idem == nil {
		return
	}
	if raw, err := json.Marshal(resp); err == nil {
		s.idem.MarkIdempotencyComplete(ctx, idempotencyKey, raw, 24*time.Hour)
	}
}

func (s *Service) failTransaction(ctx context.Context, txn *model.PaymentTransaction, reason string) {
	logger := middleware.GetLogger(ctx)
	err := s.repo.UpdateStatus(ctx, StatusUpdate{
		ID:            txn.ID,
		From:          model.StatusPending,
		To:            model.StatusFailed,
		FailureReason: reason,
	})
	if err != nil {
		logger.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("Failed to mark transaction failed")
		return
	}
	if s.notifier != nil {
		payload, _ := json.Marshal(map[string]string{"transaction_id": txn.ID.String()})
		s.notifier.Notify(ctx, txn.UserID, "payment.failed", payload)
	}
}

// GetStatus returns the transaction with all lifecycle fields.
func (s *Service) GetStatus(ctx context.Context, transactionID uuid.UUID) (*model.PaymentTransaction, error) {
	return s.repo.GetByID(ctx, transactionID)
}

// ApplyWebhookEvent applies one provider delivery exactly once. The
// idempotency ledger row and the transaction mutation commit atomically;
// duplicates observe already-applied state and return success.
func (s *Service) ApplyWebhookEvent(ctx context.Context, providerID uuid.UUID, webhookID, eventType string, payload json.RawMessage, signature string) error {
	logger := middleware.GetLogger(ctx)

	prov, err := s.repo.GetProvider(ctx, providerID)
	if err != nil {
		return err
	}

	secret := s.webhookSecret(prov.ProviderType)
	if secret != "" {
		if signature == "" || !VerifySignature(payload, signature, secret) {
			logger.Error().
				Str("provider_id", providerID.String()).
				Str("webhook_id", webhookID).
				Msg("Webhook signature verification failed")
			if s.notifier != nil {
				detail, _ := json.Marshal(map[string]string{"provider_id": providerID.String(), "webhook_id": webhookID})
				s.notifier.Notify(ctx, uuid.MustParse(constants.ActorSystemID), "security.webhook_signature_invalid", detail)
			}
			return errs.ErrInvalidSignature
		}
	}

	seen, err := s.repo.WebhookSeen(ctx, providerID, webhookID)
	if err != nil {
		return err
	}
	if seen {
		logger.Info().Str("webhook_id", webhookID).Msg("Webhook already applied, skipping")
		return nil
	}

	var event types.ProviderWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: malformed webhook payload", errs.ErrValidation)
	}
	transactionID, err := uuid.Parse(event.Data.TransactionID)
	if err != nil {
		return fmt.Errorf("%w: webhook payload has no transaction id", errs.ErrValidation)
	}

	txn, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		// Unknown transaction: surface for manual reconciliation, do not
		// fabricate one from webhook data.
		return err
	}

	target, ok := StatusForEvent(eventType)
	if !ok {
		return fmt.Errorf("%w: unknown webhook event type %q", errs.ErrValidation, eventType)
	}
	if !CanTransition(txn.Status, target) {
		logger.Error().
			Str("transaction_id", txn.ID.String()).
			Str("from", string(txn.Status)).
			Str("to", string(target)).
			Str("webhook_id", webhookID).
			Msg("Illegal status transition requested by webhook")
		return fmt.Errorf("cannot move %s from %s to %s: %w", txn.ID, txn.Status, target, errs.ErrInvalidState)
	}

	apply := WebhookApply{
		ProviderID:            providerID,
		WebhookID:             webhookID,
		EventType:             eventType,
		Payload:               payload,
		TransactionID:         txn.ID,
		From:                  txn.Status,
		To:                    target,
		ProviderTransactionID: event.Data.ProviderTransactionID,
		FailureReason:         event.Data.Reason,
		SetProcessedAt:        target == model.StatusCompleted,
		PartitionKey:          txn.UserID.String(),
	}

	if target == model.StatusCompleted && txn.OrderID != nil {
		apply.FundEscrowOrderID = txn.OrderID
	}

	if counterpartType, ok := CounterpartForEvent(eventType); ok {
		amount := event.Data.Amount
		if amount <= 0 || amount > txn.Amount {
			amount = txn.Amount
		}
		meta, _ := json.Marshal(map[string]string{
			"original_transaction_id": txn.ID.String(),
			"reason":                  event.Data.Reason,
		})
		apply.Counterpart = &model.PaymentTransaction{
			UserID:                txn.UserID,
			OrderID:               txn.OrderID,
			ProviderID:            txn.ProviderID,
			PaymentMethodID:       txn.PaymentMethodID,
			Type:                  counterpartType,
			Amount:                amount,
			Currency:              txn.Currency,
			Status:                model.StatusCompleted,
			ProviderTransactionID: event.Data.ProviderTransactionID,
			Metadata:              meta,
		}
	}

	notification, _ := json.Marshal(map[string]string{
		"transaction_id": txn.ID.String(),
		"user_id":        txn.UserID.String(),
		"status":         string(target),
	})
	apply.OutboxPayload = notification
	switch target {
	case model.StatusCompleted:
		apply.OutboxEventType = kafka.EventPaymentCompleted
	case model.StatusFailed:
		apply.OutboxEventType = kafka.EventPaymentFailed
	default:
		apply.OutboxEventType = kafka.EventNotificationQueued
	}

	applied, err := s.repo.ApplyWebhook(ctx, apply)
	if err != nil {
		return err
	}
	if !applied {
		logger.Info().Str("webhook_id", webhookID).Msg("Webhook raced an earlier delivery, already applied")
		return nil
	}

	logger.Info().
		Str("transaction_id", txn.ID.String()).
		Str("from", string(txn.Status)).
		Str("to", string(target)).
		Msg("Webhook applied")
	return nil
}

// RefundPayment moves the original transaction to REFUNDED or
// PARTIALLY_REFUNDED and appends a REFUND record capturing the reversal.
func (s *Service) RefundPayment(ctx context.Context, transactionID uuid.UUID, amount int64, reason string, refundedBy uuid.UUID) (*model.PaymentTransaction, error) {
	logger := middleware.GetLogger(ctx)

	txn, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	refunded, err := s.repo.RefundedTotal(ctx, txn.ID)
	if err != nil {
		return nil, err
	}
	remaining := txn.Amount - refunded
	if amount <= 0 || amount > remaining {
		return nil, fmt.Errorf("%w: refund amount must be within the unrefunded remainder", errs.ErrValidation)
	}

	target := model.StatusRefunded
	if amount < remaining {
		target = model.StatusPartiallyRefunded
	}
	if !CanTransition(txn.Status, target) {
		return nil, fmt.Errorf("cannot refund transaction in status %s: %w", txn.Status, errs.ErrInvalidState)
	}

	meta, _ := json.Marshal(map[string]string{
		"original_transaction_id": txn.ID.String(),
		"reason":                  reason,
		"refunded_by":             refundedBy.String(),
	})
	reversal := &model.PaymentTransaction{
		UserID:          txn.UserID,
		OrderID:         txn.OrderID,
		ProviderID:      txn.ProviderID,
		PaymentMethodID: txn.PaymentMethodID,
		Type:            model.TypeRefund,
		Amount:          amount,
		Currency:        txn.Currency,
		Status:          model.StatusCompleted,
		Metadata:        meta,
	}

	notification, _ := json.Marshal(map[string]string{
		"transaction_id": txn.ID.String(),
		"user_id":        txn.UserID.String(),
		"status":         string(target),
	})

	err = s.repo.Refund(ctx, RefundApply{
		Original:        txn,
		To:              target,
		Reversal:        reversal,
		OutboxEventType: kafka.EventNotificationQueued,
		OutboxPayload:   notification,
		PartitionKey:    txn.UserID.String(),
	})
	if err != nil {
		logger.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("Failed to apply refund")
		return nil, err
	}

	logger.Info().
		Str("transaction_id", txn.ID.String()).
		Str("refund_id", reversal.ID.String()).
		Int64("amount", amount).
		Msg("Refund recorded")
	return reversal, nil
}

// CancelPayment cancels a transaction that has not yet been dispatched. Once
// PROCESSING, cancellation must go through the provider's own void path.
func (s *Service) CancelPayment(ctx context.Context, transactionID uuid.UUID) error {
	txn, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}

	switch txn.Status {
	case model.StatusPending:
		return s.repo.UpdateStatus(ctx, StatusUpdate{
			ID:   txn.ID,
			From: model.StatusPending,
			To:   model.StatusCancelled,
		})
	case model.StatusProcessing:
		return fmt.Errorf("%w: transaction is with the provider, cancel through the provider's void path", errs.ErrInvalidState)
	default:
		return fmt.Errorf("cannot cancel transaction in status %s: %w", txn.Status, errs.ErrInvalidState)
	}
}

// ConfirmManualPayment is the operator hook for the cash and bank-transfer
// rails: it walks the pending transaction through to COMPLETED and funds the
// linked escrow.
func (s *Service) ConfirmManualPayment(ctx context.Context, transactionID, confirmedBy uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	txn, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}

	prov, err := s.repo.GetProvider(ctx, txn.ProviderID)
	if err != nil {
		return err
	}
	if prov.ProviderType != model.ProviderCash && prov.ProviderType != model.ProviderBankTransfer {
		return fmt.Errorf("%w: provider %s is not a manual verification rail", errs.ErrValidation, prov.Name)
	}

	if err := s.repo.ConfirmManual(ctx, transactionID, confirmedBy); err != nil {
		return err
	}

	logger.Info().
		Str("transaction_id", transactionID.String()).
		Str("confirmed_by", confirmedBy.String()).
		Msg("Manual payment confirmed")
	return nil
}

func (s *Service) webhookSecret(pt model.ProviderType) string {
	switch pt {
	case model.ProviderYooMoney:
		return s.providers.YooMoney.WebhookSecret
	case model.ProviderCardGateway:
		return s.providers.CardGateway.WebhookSecret
	case model.ProviderCash:
		return s.providers.Cash.WebhookSecret
	case model.ProviderBankTransfer:
		return s.providers.BankTransfer.WebhookSecret
	default:
		return ""
	}
}

func supportsCurrency(p *model.PaymentProvider, currency string) bool {
	if len(p.SupportedCurrencies) == 0 {
		return true
	}
	for _, c := range p.SupportedCurrencies {
		if strings.EqualFold(c, currency) {
			return true
		}
	}
	return false
}

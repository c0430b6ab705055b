package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/kafka"
	"github.com/bastionpay/bastion/internal/middleware"
	"github.com/bastionpay/bastion/internal/payment"
	"github.com/bastionpay/bastion/internal/redis"
	"github.com/bastionpay/bastion/pkg/types"
)

// webhookHandler drains bastion.webhook.pending. The per-delivery lock keeps
// two workers from racing the same webhook; the database ledger inside
// ApplyWebhookEvent is what actually guarantees exactly-once.
func webhookHandler(svc *payment.Service, redisClient *redis.Client, log *zerolog.Logger) kafka.Handler {
	return func(ctx context.Context, msg *kafka.Message) error {
		ctx = middleware.WithLogger(ctx, log)
		log.Info().Str("topic", msg.Topic).Int64("offset", msg.Offset).Msg("Processing webhook")

		var job types.WebhookJob
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			log.Error().Err(err).Msg("Failed to unmarshal webhook job, dropping")
			return nil
		}
		providerID, err := uuid.Parse(job.ProviderID)
		if err != nil {
			log.Error().Str("provider_id", job.ProviderID).Msg("Webhook job has invalid provider id, dropping")
			return nil
		}

		lock, err := redisClient.AcquireLock(ctx, "webhook:"+job.ProviderID+":"+job.WebhookID, 30*time.Second)
		if err != nil {
			if errors.Is(err, redis.ErrLockHeld) {
				log.Info().Str("webhook_id", job.WebhookID).Msg("Webhook locked by another worker, retrying later")
			}
			return err
		}
		defer lock.Release(ctx)

		err = svc.ApplyWebhookEvent(ctx, providerID, job.WebhookID, job.EventType, job.Payload, job.Signature)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, errs.ErrInvalidSignature),
			errors.Is(err, errs.ErrValidation),
			errors.Is(err, errs.ErrInvalidState):
			// Not retryable: redelivery cannot make these succeed.
			log.Error().Err(err).
				Str("webhook_id", job.WebhookID).
				Str("event_type", job.EventType).
				Msg("Webhook rejected")
			return nil
		case errors.Is(err, errs.ErrNotFound):
			// Unknown transaction: park for reconciliation instead of
			// blocking the partition.
			log.Error().Err(err).
				Str("webhook_id", job.WebhookID).
				Msg("Webhook references unknown transaction")
			return nil
		default:
			return err
		}
	}
}

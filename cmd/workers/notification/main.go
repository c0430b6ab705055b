package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bastionpay/bastion/internal/config"
	"github.com/bastionpay/bastion/internal/database"
	"github.com/bastionpay/bastion/internal/kafka"
	"github.com/bastionpay/bastion/internal/logger"
	"github.com/bastionpay/bastion/pkg/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	loggerService := logger.New(cfg.Observability)
	defer loggerService.Shutdown()
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	log.Info().Msg("Starting Notification Worker...")

	db, err := database.New(cfg, &log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	consumer, err := kafka.NewConsumer(kafka.DefaultConfig(cfg.Kafka.Brokers), &log, kafka.GroupNotificationWorker, kafka.TopicNotificationDispatch)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize kafka consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Run(ctx, notificationHandler(db, &log)); err != nil {
			log.Error().Err(err).Msg("Notification worker stopped with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down Notification Worker...")
	cancel()

	log.Info().Msg("Notification Worker shutdown complete")
}

// notificationHandler lands dispatched events in the notifications table for
// the in-app feed. The system actor id marks platform-level security alerts.
func notificationHandler(db *database.Database, log *zerolog.Logger) kafka.Handler {
	return func(ctx context.Context, msg *kafka.Message) error {
		var event types.NotificationEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error().Err(err).Msg("Failed to unmarshal notification event, dropping")
			return nil
		}

		userID, err := uuid.Parse(event.UserID)
		if err != nil {
			log.Error().Str("user_id", event.UserID).Msg("Notification event has invalid user id, dropping")
			return nil
		}

		_, err = db.Pool.Exec(ctx, `
			INSERT INTO notifications (user_id, event_type, payload)
			VALUES ($1, $2, $3)`,
			userID, event.EventType, event.Payload,
		)
		if err != nil {
			log.Error().Err(err).Str("event_type", event.EventType).Msg("Failed to store notification")
			return err
		}

		log.Info().
			Str("user_id", event.UserID).
			Str("event_type", event.EventType).
			Msg("Notification stored")
		return nil
	}
}

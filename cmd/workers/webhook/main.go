package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastionpay/bastion/internal/config"
	"github.com/bastionpay/bastion/internal/database"
	"github.com/bastionpay/bastion/internal/fx"
	"github.com/bastionpay/bastion/internal/kafka"
	"github.com/bastionpay/bastion/internal/logger"
	"github.com/bastionpay/bastion/internal/notify"
	"github.com/bastionpay/bastion/internal/payment"
	"github.com/bastionpay/bastion/internal/provider"
	"github.com/bastionpay/bastion/internal/redis"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	loggerService := logger.New(cfg.Observability)
	defer loggerService.Shutdown()
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	log.Info().Msg("Starting Webhook Worker...")

	db, err := database.New(cfg, &log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	redisClient, err := redis.New(&log, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis")
	}
	defer redisClient.Close()

	kProducer, err := kafka.NewProducer(kafka.DefaultConfig(cfg.Kafka.Brokers), &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize kafka producer")
	}
	defer kProducer.Close()

	transactionRepo := payment.NewTransactionRepository(db.Pool)
	fxService := fx.NewService(fx.NewRateRepository(db.Pool), redisClient)
	dispatcher := notify.NewDispatcher(kProducer)
	paymentService := payment.NewService(transactionRepo, provider.NewRegistry(), fxService, redisClient, dispatcher, cfg.Providers)

	consumer, err := kafka.NewConsumer(kafka.DefaultConfig(cfg.Kafka.Brokers), &log, kafka.GroupWebhookWorker, kafka.TopicWebhookPending)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize kafka consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Run(ctx, webhookHandler(paymentService, redisClient, &log)); err != nil {
			log.Error().Err(err).Msg("Webhook worker stopped with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down Webhook Worker...")
	cancel()

	log.Info().Msg("Webhook Worker shutdown complete")
}

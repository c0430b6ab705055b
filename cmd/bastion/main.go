package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastionpay/bastion/internal/config"
	"github.com/bastionpay/bastion/internal/database"
	"github.com/bastionpay/bastion/internal/escrow"
	"github.com/bastionpay/bastion/internal/fx"
	"github.com/bastionpay/bastion/internal/kafka"
	"github.com/bastionpay/bastion/internal/logger"
	"github.com/bastionpay/bastion/internal/method"
	"github.com/bastionpay/bastion/internal/notify"
	"github.com/bastionpay/bastion/internal/payment"
	"github.com/bastionpay/bastion/internal/provider"
	"github.com/bastionpay/bastion/internal/redis"
	"github.com/bastionpay/bastion/internal/router"
	"github.com/bastionpay/bastion/internal/server"
	"github.com/bastionpay/bastion/internal/webhook"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	loggerService := logger.New(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	db, err := database.New(cfg, &log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	redisClient, err := redis.New(&log, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis client")
	}

	kProducer, err := kafka.NewProducer(kafka.DefaultConfig(cfg.Kafka.Brokers), &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize kafka producer")
	}
	defer kProducer.Close()

	srv, err := server.NewServer(cfg, &log, loggerService, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	registry := provider.NewRegistry(
		provider.NewYooMoneyAdapter(cfg.Providers.YooMoney, cfg.Providers.CallTimeout),
		provider.NewCardGatewayAdapter(cfg.Providers.CardGateway, cfg.Providers.CallTimeout),
		provider.NewCashAdapter(),
		provider.NewBankTransferAdapter(),
	)

	dispatcher := notify.NewDispatcher(kProducer)

	rateRepo := fx.NewRateRepository(db.Pool)
	methodRepo := method.NewMethodRepository(db.Pool)
	transactionRepo := payment.NewTransactionRepository(db.Pool)
	escrowRepo := escrow.NewAccountRepository(db.Pool)

	fxService := fx.NewService(rateRepo, redisClient)
	methodService := method.NewService(methodRepo)
	paymentService := payment.NewService(transactionRepo, registry, fxService, redisClient, dispatcher, cfg.Providers)
	escrowService := escrow.NewService(escrowRepo)

	handlers := &router.Handlers{
		Payment: payment.NewHandler(paymentService),
		Escrow:  escrow.NewHandler(escrowService),
		Method:  method.NewHandler(methodService),
		Fx:      fx.NewHandler(fxService),
		Webhook: webhook.NewGatewayHandler(db.Pool, cfg.Providers, dispatcher),
	}

	r := router.NewRouter(srv, redisClient, handlers)

	srv.SetupHTTPServer(r)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}

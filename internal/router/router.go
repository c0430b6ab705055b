package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bastionpay/bastion/internal/escrow"
	"github.com/bastionpay/bastion/internal/fx"
	"github.com/bastionpay/bastion/internal/method"
	"github.com/bastionpay/bastion/internal/middleware"
	"github.com/bastionpay/bastion/internal/payment"
	"github.com/bastionpay/bastion/internal/redis"
	"github.com/bastionpay/bastion/internal/server"
	"github.com/bastionpay/bastion/internal/webhook"
)

type Handlers struct {
	Payment *payment.Handler
	Escrow  *escrow.Handler
	Method  *method.Handler
	Fx      *fx.Handler
	Webhook *webhook.GatewayHandler
}

func NewRouter(s *server.Server, redisClient *redis.Client, h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	mw := middleware.NewMiddlewares(s)

	// Apply middleware in order
	r.Use(middleware.RequestID)
	r.Use(mw.Tracing.NewRelicMiddleware())
	r.Use(mw.Tracing.EnhanceTracing)
	r.Use(mw.ContextEnhancer.EnhanceContext)
	r.Use(mw.Global.RequestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.Payment.CreatePayment)
			r.Get("/{transactionID}", h.Payment.GetStatus)
			r.Post("/{transactionID}/refund", h.Payment.RefundPayment)
			r.Post("/{transactionID}/cancel", h.Payment.CancelPayment)
			r.Post("/{transactionID}/confirm", h.Payment.ConfirmManualPayment)
		})

		r.Route("/escrow", func(r chi.Router) {
			r.Post("/", h.Escrow.CreateAccount)
			r.Get("/{escrowID}", h.Escrow.GetAccount)
			r.Get("/order/{orderID}", h.Escrow.GetAccountByOrder)
			r.Post("/{escrowID}/fund", h.Escrow.MarkFunded)
			r.Post("/{escrowID}/release", h.Escrow.ReleaseFunds)
			r.Post("/{escrowID}/refund", h.Escrow.RefundEscrow)
			r.Post("/{escrowID}/dispute", h.Escrow.OpenDispute)
		})

		r.Route("/methods", func(r chi.Router) {
			r.Post("/", h.Method.AddMethod)
			r.Post("/default", h.Method.SetDefault)
			r.Get("/{userID}", h.Method.ListMethods)
			r.Post("/{userID}/{methodID}/verify", h.Method.MarkVerified)
			r.Delete("/{userID}/{methodID}", h.Method.RemoveMethod)
		})

		r.Route("/fx", func(r chi.Router) {
			r.Post("/convert", h.Fx.Convert)
			r.Post("/rates", h.Fx.PutRate)
		})
	})

	// Provider callbacks, throttled per source IP
	r.Route("/webhooks", func(r chi.Router) {
		if redisClient != nil {
			r.Use(middleware.RateLimit(redisClient, 120, time.Minute))
		}
		r.Post("/{providerType}", h.Webhook.HandleWebhook)
	})

	return r
}

package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastionpay/bastion/internal/config"
	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/fx"
	"github.com/bastionpay/bastion/internal/model"
	"github.com/bastionpay/bastion/internal/provider"
	"github.com/bastionpay/bastion/pkg/types"
)

type fakeRepo struct {
	providers map[uuid.UUID]*model.PaymentProvider
	txns      map[uuid.UUID]*model.PaymentTransaction
	seen      map[string]bool

	inserted []*model.PaymentTransaction
	updates  []StatusUpdate
	applies  []WebhookApply
	refunds  []RefundApply
	outbox   []string

	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		providers: make(map[uuid.UUID]*model.PaymentProvider),
		txns:      make(map[uuid.UUID]*model.PaymentTransaction),
		seen:      make(map[string]bool),
	}
}

func (f *fakeRepo) Insert(_ context.Context, t *model.PaymentTransaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	f.inserted = append(f.inserted, t)
	f.txns[t.ID] = t
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*model.PaymentTransaction, error) {
	t, ok := f.txns[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, errs.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRepo) GetProvider(_ context.Context, id uuid.UUID) (*model.PaymentProvider, error) {
	p, ok := f.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", id, errs.ErrNotFound)
	}
	return p, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, u StatusUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	t, ok := f.txns[u.ID]
	if !ok || t.Status != u.From {
		return errs.ErrConflict
	}
	t.Status = u.To
	if u.FailureReason != "" {
		t.FailureReason = u.FailureReason
	}
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeRepo) ApplyWebhook(_ context.Context, a WebhookApply) (bool, error) {
	key := a.ProviderID.String() + ":" + a.WebhookID
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	f.txns[a.TransactionID].Status = a.To
	f.applies = append(f.applies, a)
	return true, nil
}

func (f *fakeRepo) WebhookSeen(_ context.Context, providerID uuid.UUID, webhookID string) (bool, error) {
	return f.seen[providerID.String()+":"+webhookID], nil
}

func (f *fakeRepo) RefundedTotal(_ context.Context, originalID uuid.UUID) (int64, error) {
	var total int64
	for _, t := range f.txns {
		if t.Type != model.TypeRefund {
			continue
		}
		var meta map[string]string
		if json.Unmarshal(t.Metadata, &meta) == nil && meta["original_transaction_id"] == originalID.String() {
			total += t.Amount
		}
	}
	return total, nil
}

func (f *fakeRepo) Refund(_ context.Context, r RefundApply) error {
	t, ok := f.txns[r.Original.ID]
	if !ok || t.Status != r.Original.Status {
		return errs.ErrConflict
	}
	t.Status = r.To
	r.Reversal.ID = uuid.New()
	f.txns[r.Reversal.ID] = r.Reversal
	f.refunds = append(f.refunds, r)
	return nil
}

func (f *fakeRepo) ConfirmManual(_ context.Context, id uuid.UUID, _ uuid.UUID) error {
	t, ok := f.txns[id]
	if !ok {
		return errs.ErrNotFound
	}
	if t.Status != model.StatusPending {
		return errs.ErrInvalidState
	}
	t.Status = model.StatusCompleted
	return nil
}

func (f *fakeRepo) InsertOutbox(_ context.Context, eventType string, _ json.RawMessage, _ string) error {
	f.outbox = append(f.outbox, eventType)
	return nil
}

type fakeAdapter struct {
	pt     model.ProviderType
	result *provider.ProcessResult
	err    error
}

func (a *fakeAdapter) Type() model.ProviderType { return a.pt }

func (a *fakeAdapter) Process(context.Context, provider.ProcessRequest) (*provider.ProcessResult, error) {
	return a.result, a.err
}

type fakeRateRepo struct {
	rate decimal.Decimal
	err  error
}

func (f *fakeRateRepo) FindRate(context.Context, string, string, time.Time) (*model.ExchangeRate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.ExchangeRate{Rate: f.rate}, nil
}

func (f *fakeRateRepo) InsertRate(context.Context, *model.ExchangeRate) error { return nil }

func newTestService(repo *fakeRepo, adapters ...provider.Adapter) *Service {
	fxService := fx.NewService(&fakeRateRepo{rate: decimal.RequireFromString("0.011")}, nil)
	return NewService(repo, provider.NewRegistry(adapters...), fxService, nil, nil, config.ProvidersConfig{})
}

func seedProvider(repo *fakeRepo, pt model.ProviderType, currencies ...string) *model.PaymentProvider {
	p := &model.PaymentProvider{
		ID:                  uuid.New(),
		Name:                string(pt),
		ProviderType:        pt,
		IsActive:            true,
		SupportedCurrencies: currencies,
	}
	repo.providers[p.ID] = p
	return p
}

func createReq(p *model.PaymentProvider) *types.CreatePaymentRequest {
	return &types.CreatePaymentRequest{
		UserID:     uuid.NewString(),
		ProviderID: p.ID.String(),
		Amount:     150000,
		Currency:   "RUB",
	}
}

func TestCreatePayment(t *testing.T) {
	t.Run("redirect rail returns checkout url", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		svc := newTestService(repo, &fakeAdapter{
			pt: model.ProviderYooMoney,
			result: &provider.ProcessResult{
				ProviderRef: "ym-123",
				CheckoutURL: "https://yoomoney.example/confirm/ym-123",
				Status:      model.StatusProcessing,
			},
		})

		resp, err := svc.CreatePayment(context.Background(), createReq(p), "")
		require.NoError(t, err)
		assert.Equal(t, string(model.StatusProcessing), resp.Status)
		assert.Equal(t, "https://yoomoney.example/confirm/ym-123", resp.CheckoutURL)

		require.Len(t, repo.inserted, 1)
		assert.Equal(t, model.StatusProcessing, repo.txns[repo.inserted[0].ID].Status)
		assert.Contains(t, repo.outbox, "bastion.payment.created")
	})

	t.Run("manual rail stays pending", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderCash, "RUB")
		svc := newTestService(repo, provider.NewCashAdapter())

		resp, err := svc.CreatePayment(context.Background(), createReq(p), "")
		require.NoError(t, err)
		assert.Equal(t, string(model.StatusPending), resp.Status)
		assert.Empty(t, resp.CheckoutURL)
	})

	t.Run("rejection records failed transaction but returns id", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderCardGateway, "RUB")
		svc := newTestService(repo, &fakeAdapter{
			pt:  model.ProviderCardGateway,
			err: fmt.Errorf("%w: card declined", errs.ErrProviderRejected),
		})

		resp, err := svc.CreatePayment(context.Background(), createReq(p), "")
		require.NoError(t, err)
		assert.NotEmpty(t, resp.TransactionID)
		assert.Equal(t, string(model.StatusFailed), resp.Status)

		txn := repo.txns[uuid.MustParse(resp.TransactionID)]
		assert.Equal(t, model.StatusFailed, txn.Status)
		assert.Contains(t, txn.FailureReason, "card declined")
	})

	t.Run("timeout leaves transaction pending", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		svc := newTestService(repo, &fakeAdapter{
			pt:  model.ProviderYooMoney,
			err: provider.ErrTimeout,
		})

		resp, err := svc.CreatePayment(context.Background(), createReq(p), "")
		require.NoError(t, err)
		assert.Equal(t, string(model.StatusPending), resp.Status)
		assert.Equal(t, model.StatusPending, repo.txns[uuid.MustParse(resp.TransactionID)].Status)
	})

	t.Run("inactive provider rejected before any insert", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		p.IsActive = false
		svc := newTestService(repo)

		_, err := svc.CreatePayment(context.Background(), createReq(p), "")
		assert.ErrorIs(t, err, errs.ErrProviderUnavailable)
		assert.Empty(t, repo.inserted)
	})

	t.Run("unsupported currency rejected", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		svc := newTestService(repo)

		req := createReq(p)
		req.Currency = "USD"
		_, err := svc.CreatePayment(context.Background(), req, "")
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("cross currency charge stores conversion details", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "USD")
		svc := newTestService(repo, &fakeAdapter{
			pt:     model.ProviderYooMoney,
			result: &provider.ProcessResult{ProviderRef: "ym-9", Status: model.StatusProcessing},
		})

		req := createReq(p)
		req.Currency = "RUB"
		req.ChargeCurrency = "USD"
		req.Amount = 100000

		resp, err := svc.CreatePayment(context.Background(), req, "")
		require.NoError(t, err)

		txn := repo.txns[uuid.MustParse(resp.TransactionID)]
		assert.Equal(t, "USD", txn.Currency)
		assert.Equal(t, int64(1100), txn.Amount)
		require.NotNil(t, txn.AmountOriginal)
		assert.Equal(t, int64(100000), *txn.AmountOriginal)
		require.NotNil(t, txn.CurrencyOriginal)
		assert.Equal(t, "RUB", *txn.CurrencyOriginal)
		require.NotNil(t, txn.ExchangeRate)
		assert.True(t, txn.ExchangeRate.Equal(decimal.RequireFromString("0.011")))
	})
}

func webhookPayload(txnID uuid.UUID, extra map[string]any) json.RawMessage {
	data := map[string]any{"transaction_id": txnID.String()}
	for k, v := range extra {
		data[k] = v
	}
	raw, _ := json.Marshal(map[string]any{
		"webhook_id": "wh-1",
		"event_type": "payment.completed",
		"data":       data,
	})
	return raw
}

func seedTransaction(repo *fakeRepo, p *model.PaymentProvider, status model.TransactionStatus) *model.PaymentTransaction {
	orderID := uuid.New()
	txn := &model.PaymentTransaction{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		OrderID:    &orderID,
		ProviderID: p.ID,
		Type:       model.TypePayment,
		Amount:     50000,
		Currency:   "RUB",
		Status:     status,
	}
	repo.txns[txn.ID] = txn
	return txn
}

type fakeIdemStore struct {
	cached   map[string][]byte
	released []string
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{cached: make(map[string][]byte)}
}

func (f *fakeIdemStore) CheckAndSetIdempotency(_ context.Context, key string, _ time.Duration) ([]byte, error) {
	return f.cached[key], nil
}

func (f *fakeIdemStore) MarkIdempotencyComplete(_ context.Context, key string, response []byte, _ time.Duration) error {
	f.cached[key] = response
	return nil
}

func (f *fakeIdemStore) MarkIdempotencyFailed(_ context.Context, key string) error {
	f.released = append(f.released, key)
	return nil
}

func TestCreatePaymentDispatchRecordFails(t *testing.T) {
	repo := newFakeRepo()
	p := seedProvider(repo, model.ProviderYooMoney, "RUB")
	repo.updateErr = fmt.Errorf("connection reset: %w", errs.ErrPersistence)

	store := newFakeIdemStore()
	fxService := fx.NewService(&fakeRateRepo{rate: decimal.RequireFromString("0.011")}, nil)
	svc := NewService(repo, provider.NewRegistry(&fakeAdapter{
		pt: model.ProviderYooMoney,
		result: &provider.ProcessResult{
			ProviderRef: "ym-91", CheckoutURL: "https://pay.test/91", Status: model.StatusProcessing,
		},
	}), fxService, store, nil, config.ProvidersConfig{})

	_, err := svc.CreatePayment(context.Background(), &types.CreatePaymentRequest{
		UserID:     uuid.New().String(),
		ProviderID: p.ID.String(),
		Amount:     5000,
		Currency:   "RUB",
	}, "idem-91")
	require.Error(t, err)
	require.Len(t, repo.inserted, 1)

	// The charge is live at the provider, so the key must resolve to this
	// transaction on retry rather than being released for a second charge.
	assert.NotContains(t, store.released, "idem-91")
	raw, ok := store.cached["idem-91"]
	require.True(t, ok)

	var cached types.CreatePaymentResponse
	require.NoError(t, json.Unmarshal(raw, &cached))
	assert.Equal(t, repo.inserted[0].ID.String(), cached.TransactionID)
	assert.Equal(t, "https://pay.test/91", cached.CheckoutURL)
}

func TestApplyWebhookEvent(t *testing.T) {
	t.Run("completed webhook funds escrow and sets processed at", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		txn := seedTransaction(repo, p, model.StatusProcessing)
		svc := newTestService(repo)

		payload := webhookPayload(txn.ID, map[string]any{"provider_transaction_id": "ym-55"})
		err := svc.ApplyWebhookEvent(context.Background(), p.ID, "wh-1", EventPaymentCompleted, payload, "")
		require.NoError(t, err)

		require.Len(t, repo.applies, 1)
		apply := repo.applies[0]
		assert.Equal(t, model.StatusProcessing, apply.From)
		assert.Equal(t, model.StatusCompleted, apply.To)
		assert.True(t, apply.SetProcessedAt)
		require.NotNil(t, apply.FundEscrowOrderID)
		assert.Equal(t, *txn.OrderID, *apply.FundEscrowOrderID)
		assert.Equal(t, "ym-55", apply.ProviderTransactionID)
		assert.Equal(t, model.StatusCompleted, repo.txns[txn.ID].Status)
	})

	t.Run("duplicate delivery is an accepted no-op", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		txn := seedTransaction(repo, p, model.StatusProcessing)
		svc := newTestService(repo)

		payload := webhookPayload(txn.ID, nil)
		require.NoError(t, svc.ApplyWebhookEvent(context.Background(), p.ID, "wh-1", EventPaymentCompleted, payload, ""))
		require.NoError(t, svc.ApplyWebhookEvent(context.Background(), p.ID, "wh-1", EventPaymentCompleted, payload, ""))

		assert.Len(t, repo.applies, 1)
		assert.Equal(t, model.StatusCompleted, repo.txns[txn.ID].Status)
	})

	t.Run("illegal transition rejected", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		txn := seedTransaction(repo, p, model.StatusPending)
		svc := newTestService(repo)

		err := svc.ApplyWebhookEvent(context.Background(), p.ID, "wh-2", EventPaymentCompleted, webhookPayload(txn.ID, nil), "")
		assert.ErrorIs(t, err, errs.ErrInvalidState)
		assert.Equal(t, model.StatusPending, repo.txns[txn.ID].Status)
	})

	t.Run("unknown transaction surfaces not found", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		svc := newTestService(repo)

		err := svc.ApplyWebhookEvent(context.Background(), p.ID, "wh-3", EventPaymentCompleted, webhookPayload(uuid.New(), nil), "")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("unknown event type rejected", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		txn := seedTransaction(repo, p, model.StatusProcessing)
		svc := newTestService(repo)

		err := svc.ApplyWebhookEvent(context.Background(), p.ID, "wh-4", "payment.mystery", webhookPayload(txn.ID, nil), "")
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("chargeback appends counterpart record", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderCardGateway, "RUB")
		txn := seedTransaction(repo, p, model.StatusCompleted)
		svc := newTestService(repo)

		err := svc.ApplyWebhookEvent(context.Background(), p.ID, "wh-5", EventPaymentChargeback, webhookPayload(txn.ID, nil), "")
		require.NoError(t, err)

		require.Len(t, repo.applies, 1)
		cp := repo.applies[0].Counterpart
		require.NotNil(t, cp)
		assert.Equal(t, model.TypeChargeback, cp.Type)
		assert.Equal(t, txn.Amount, cp.Amount)
	})

	t.Run("partial refund counters with webhook amount", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderCardGateway, "RUB")
		txn := seedTransaction(repo, p, model.StatusCompleted)
		svc := newTestService(repo)

		payload := webhookPayload(txn.ID, map[string]any{"amount": 20000})
		err := svc.ApplyWebhookEvent(context.Background(), p.ID, "wh-6", EventRefundPartial, payload, "")
		require.NoError(t, err)

		cp := repo.applies[0].Counterpart
		require.NotNil(t, cp)
		assert.Equal(t, model.TypeRefund, cp.Type)
		assert.Equal(t, int64(20000), cp.Amount)
		assert.Equal(t, model.StatusPartiallyRefunded, repo.txns[txn.ID].Status)
	})

	t.Run("bad signature fails closed", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		txn := seedTransaction(repo, p, model.StatusProcessing)

		providers := config.ProvidersConfig{}
		providers.YooMoney.WebhookSecret = "secret"
		svc := NewService(repo, provider.NewRegistry(), fx.NewService(&fakeRateRepo{rate: decimal.New(1, 0)}, nil), nil, nil, providers)

		err := svc.ApplyWebhookEvent(context.Background(), p.ID, "wh-7", EventPaymentCompleted, webhookPayload(txn.ID, nil), "deadbeef")
		assert.ErrorIs(t, err, errs.ErrInvalidSignature)
		assert.Empty(t, repo.applies)
	})
}

func TestRefundPayment(t *testing.T) {
	t.Run("full refund", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderCardGateway, "RUB")
		txn := seedTransaction(repo, p, model.StatusCompleted)
		svc := newTestService(repo)

		reversal, err := svc.RefundPayment(context.Background(), txn.ID, txn.Amount, "buyer request", uuid.New())
		require.NoError(t, err)
		assert.Equal(t, model.TypeRefund, reversal.Type)
		assert.Equal(t, txn.Amount, reversal.Amount)
		assert.Equal(t, model.StatusRefunded, repo.txns[txn.ID].Status)
	})

	t.Run("partial refund", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderCardGateway, "RUB")
		txn := seedTransaction(repo, p, model.StatusCompleted)
		svc := newTestService(repo)

		_, err := svc.RefundPayment(context.Background(), txn.ID, txn.Amount/2, "", uuid.New())
		require.NoError(t, err)
		assert.Equal(t, model.StatusPartiallyRefunded, repo.txns[txn.ID].Status)
	})

	t.Run("cumulative refunds bounded by remainder", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderCardGateway, "RUB")
		txn := seedTransaction(repo, p, model.StatusCompleted)
		svc := newTestService(repo)

		_, err := svc.RefundPayment(context.Background(), txn.ID, txn.Amount/2, "", uuid.New())
		require.NoError(t, err)

		// The full original amount is no longer refundable.
		_, err = svc.RefundPayment(context.Background(), txn.ID, txn.Amount, "", uuid.New())
		assert.ErrorIs(t, err, errs.ErrValidation)
		assert.Equal(t, model.StatusPartiallyRefunded, repo.txns[txn.ID].Status)

		// Refunding exactly the remainder closes the transaction out.
		reversal, err := svc.RefundPayment(context.Background(), txn.ID, txn.Amount-txn.Amount/2, "", uuid.New())
		require.NoError(t, err)
		assert.Equal(t, model.StatusRefunded, repo.txns[txn.ID].Status)
		assert.Equal(t, txn.Amount-txn.Amount/2, reversal.Amount)

		_, err = svc.RefundPayment(context.Background(), txn.ID, 1, "", uuid.New())
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("amount above original rejected", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderCardGateway, "RUB")
		txn := seedTransaction(repo, p, model.StatusCompleted)
		svc := newTestService(repo)

		_, err := svc.RefundPayment(context.Background(), txn.ID, txn.Amount+1, "", uuid.New())
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("pending transaction cannot be refunded", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderCardGateway, "RUB")
		txn := seedTransaction(repo, p, model.StatusPending)
		svc := newTestService(repo)

		_, err := svc.RefundPayment(context.Background(), txn.ID, txn.Amount, "", uuid.New())
		assert.ErrorIs(t, err, errs.ErrInvalidState)
	})
}

func TestCancelPayment(t *testing.T) {
	repo := newFakeRepo()
	p := seedProvider(repo, model.ProviderYooMoney, "RUB")
	svc := newTestService(repo)

	t.Run("pending cancels", func(t *testing.T) {
		txn := seedTransaction(repo, p, model.StatusPending)
		require.NoError(t, svc.CancelPayment(context.Background(), txn.ID))
		assert.Equal(t, model.StatusCancelled, repo.txns[txn.ID].Status)
	})

	t.Run("processing must void at provider", func(t *testing.T) {
		txn := seedTransaction(repo, p, model.StatusProcessing)
		err := svc.CancelPayment(context.Background(), txn.ID)
		assert.ErrorIs(t, err, errs.ErrInvalidState)
	})

	t.Run("completed cannot cancel", func(t *testing.T) {
		txn := seedTransaction(repo, p, model.StatusCompleted)
		err := svc.CancelPayment(context.Background(), txn.ID)
		assert.ErrorIs(t, err, errs.ErrInvalidState)
	})
}

func TestConfirmManualPayment(t *testing.T) {
	t.Run("cash rail confirms", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderCash, "RUB")
		txn := seedTransaction(repo, p, model.StatusPending)
		svc := newTestService(repo)

		require.NoError(t, svc.ConfirmManualPayment(context.Background(), txn.ID, uuid.New()))
		assert.Equal(t, model.StatusCompleted, repo.txns[txn.ID].Status)
	})

	t.Run("redirect rail rejected", func(t *testing.T) {
		repo := newFakeRepo()
		p := seedProvider(repo, model.ProviderYooMoney, "RUB")
		txn := seedTransaction(repo, p, model.StatusPending)
		svc := newTestService(repo)

		err := svc.ConfirmManualPayment(context.Background(), txn.ID, uuid.New())
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestCreatePaymentRejectsUnknownAdapter(t *testing.T) {
	repo := newFakeRepo()
	p := seedProvider(repo, model.ProviderYooMoney, "RUB")
	svc := newTestService(repo) // no adapters registered

	resp, err := svc.CreatePayment(context.Background(), createReq(p), "")
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusFailed), resp.Status)

	txn := repo.txns[uuid.MustParse(resp.TransactionID)]
	assert.Contains(t, txn.FailureReason, "no adapter")
}

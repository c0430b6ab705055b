package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/kafka"
	"github.com/bastionpay/bastion/internal/model"
)

// StatusUpdate is a guarded status write. The WHERE clause re-checks From so
// two racing writers cannot both win.
type StatusUpdate struct {
	ID                    uuid.UUID
	From                  model.TransactionStatus
	To                    model.TransactionStatus
	ProviderTransactionID string
	ProviderResponse      json.RawMessage
	FailureReason         string
	SetProcessedAt        bool
}

// WebhookApply is the whole atomic unit for one webhook delivery: idempotency
// ledger insert, guarded transaction mutation, escrow funding and outbox
// notification commit or roll back together.
type WebhookApply struct {
	ProviderID            uuid.UUID
	WebhookID             string
	EventType             string
	Payload               json.RawMessage
	TransactionID         uuid.UUID
	From                  model.TransactionStatus
	To                    model.TransactionStatus
	ProviderTransactionID string
	FailureReason         string
	SetProcessedAt        bool
	FundEscrowOrderID     *uuid.UUID
	Counterpart           *model.PaymentTransaction
	OutboxEventType       string
	OutboxPayload         json.RawMessage
	PartitionKey          string
}

// RefundApply moves the original transaction and appends the reversal record
// in one transaction.
type RefundApply struct {
	Original        *model.PaymentTransaction
	To              model.TransactionStatus
	Reversal        *model.PaymentTransaction
	OutboxEventType string
	OutboxPayload   json.RawMessage
	PartitionKey    string
}

type TransactionRepository interface {
	Insert(ctx context.Context, t *model.PaymentTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentTransaction, error)
	GetProvider(ctx context.Context, id uuid.UUID) (*model.PaymentProvider, error)
	UpdateStatus(ctx context.Context, u StatusUpdate) error
	ApplyWebhook(ctx context.Context, a WebhookApply) (bool, error)
	WebhookSeen(ctx context.Context, providerID uuid.UUID, webhookID string) (bool, error)
	RefundedTotal(ctx context.Context, originalID uuid.UUID) (int64, error)
	Refund(ctx context.Context, r RefundApply) error
	ConfirmManual(ctx context.Context, id uuid.UUID, confirmedBy uuid.UUID) error
	InsertOutbox(ctx context.Context, eventType string, payload json.RawMessage, partitionKey string) error
}

type TransactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{db: db}
}

const transactionColumns = `id, user_id, order_id, provider_id, payment_method_id, type, amount, currency,
	exchange_rate, amount_original, currency_original, status, provider_transaction_id,
	provider_response, failure_reason, metadata, processed_at, created_at, updated_at`

func scanTransaction(row pgx.Row) (*model.PaymentTransaction, error) {
	var t model.PaymentTransaction
	err := row.Scan(
		&t.ID, &t.UserID, &t.OrderID, &t.ProviderID, &t.PaymentMethodID, &t.Type, &t.Amount, &t.Currency,
		&t.ExchangeRate, &t.AmountOriginal, &t.CurrencyOriginal, &t.Status, &t.ProviderTransactionID,
		&t.ProviderResponse, &t.FailureReason, &t.Metadata, &t.ProcessedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (tr *TransactionRepo) Insert(ctx context.Context, t *model.PaymentTransaction) error {
	sql := `INSERT INTO transactions (user_id, order_id, provider_id, payment_method_id, type, amount, currency,
			exchange_rate, amount_original, currency_original, status, provider_transaction_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := tr.db.QueryRow(ctx, sql,
		t.UserID, t.OrderID, t.ProviderID, t.PaymentMethodID, t.Type, t.Amount, t.Currency,
		t.ExchangeRate, t.AmountOriginal, t.CurrencyOriginal, t.Status, t.ProviderTransactionID, t.Metadata,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (tr *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentTransaction, error) {
	row := tr.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return t, nil
}

func (tr *TransactionRepo) GetProvider(ctx context.Context, id uuid.UUID) (*model.PaymentProvider, error) {
	sql := `SELECT id, name, provider_type, is_active, supported_currencies, supported_countries, config, created_at, updated_at
		FROM payment_providers WHERE id = $1`

	var p model.PaymentProvider
	err := tr.db.QueryRow(ctx, sql, id).Scan(
		&p.ID, &p.Name, &p.ProviderType, &p.IsActive,
		&p.SupportedCurrencies, &p.SupportedCountries, &p.Config,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("provider %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return &p, nil
}

func (tr *TransactionRepo) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	res, err := tr.db.Exec(ctx, `
		UPDATE transactions
		SET status = $1,
		    provider_transaction_id = COALESCE(NULLIF($2, ''), provider_transaction_id),
		    provider_response = COALESCE($3, provider_response),
		    failure_reason = COALESCE(NULLIF($4, ''), failure_reason),
		    processed_at = CASE WHEN $5 THEN NOW() ELSE processed_at END,
		    updated_at = NOW()
		WHERE id = $6 AND status = $7`,
		u.To, u.ProviderTransactionID, u.ProviderResponse, u.FailureReason, u.SetProcessedAt, u.ID, u.From,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s no longer %s: %w", u.ID, u.From, errs.ErrConflict)
	}
	return nil
}

func (tr *TransactionRepo) WebhookSeen(ctx context.Context, providerID uuid.UUID, webhookID string) (bool, error) {
	var seen bool
	err := tr.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM webhook_events WHERE provider_id = $1 AND webhook_id = $2)`,
		providerID, webhookID,
	).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return seen, nil
}

// ApplyWebhook returns (false, nil) when the (provider_id, webhook_id) pair is
// already in the ledger - the duplicate observes already-applied state and
// nothing is re-mutated.
func (tr *TransactionRepo) ApplyWebhook(ctx context.Context, a WebhookApply) (bool, error) {
	tx, err := tr.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `
		INSERT INTO webhook_events (provider_id, webhook_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_id, webhook_id) DO NOTHING`,
		a.ProviderID, a.WebhookID, a.EventType, a.Payload,
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		// Already applied by an earlier delivery
		return false, nil
	}

	res, err = tx.Exec(ctx, `
		UPDATE transactions
		SET status = $1,
		    provider_transaction_id = COALESCE(NULLIF($2, ''), provider_transaction_id),
		    failure_reason = COALESCE(NULLIF($3, ''), failure_reason),
		    processed_at = CASE WHEN $4 THEN NOW() ELSE processed_at END,
		    updated_at = NOW()
		WHERE id = $5 AND status = $6`,
		a.To, a.ProviderTransactionID, a.FailureReason, a.SetProcessedAt, a.TransactionID, a.From,
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return false, fmt.Errorf("transaction %s no longer %s: %w", a.TransactionID, a.From, errs.ErrConflict)
	}

	if a.FundEscrowOrderID != nil {
		// Idempotent by design: an already funded account matches no row
		_, err = tx.Exec(ctx, `
			UPDATE escrow_accounts
			SET status = 'funded', updated_at = NOW()
			WHERE order_id = $1 AND status = 'pending'`,
			*a.FundEscrowOrderID,
		)
		if err != nil {
			return false, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
		}
	}

	if a.Counterpart != nil {
		c := a.Counterpart
		err = tx.QueryRow(ctx, `
			INSERT INTO transactions (user_id, order_id, provider_id, payment_method_id, type, amount, currency, status, provider_transaction_id, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			c.UserID, c.OrderID, c.ProviderID, c.PaymentMethodID, c.Type, c.Amount, c.Currency, c.Status, c.ProviderTransactionID, c.Metadata,
		).Scan(&c.ID)
		if err != nil {
			return false, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
		}
	}

	if a.OutboxEventType != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO transaction_outbox (event_type, payload, partition_key, status)
			VALUES ($1, $2, $3, 'pending')`,
			a.OutboxEventType, a.OutboxPayload, a.PartitionKey,
		)
		if err != nil {
			return false, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return true, nil
}

// RefundedTotal sums the refund reversals already recorded against the
// original transaction.
func (tr *TransactionRepo) RefundedTotal(ctx context.Context, originalID uuid.UUID) (int64, error) {
	var total int64
	err := tr.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE type = 'refund' AND metadata->>'original_transaction_id' = $1`,
		originalID.String(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return total, nil
}

func (tr *TransactionRepo) Refund(ctx context.Context, r RefundApply) error {
	tx, err := tr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `
		UPDATE transactions SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		r.To, r.Original.ID, r.Original.Status,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s no longer %s: %w", r.Original.ID, r.Original.Status, errs.ErrConflict)
	}

	c := r.Reversal
	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (user_id, order_id, provider_id, payment_method_id, type, amount, currency, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		c.UserID, c.OrderID, c.ProviderID, c.PaymentMethodID, c.Type, c.Amount, c.Currency, c.Status, c.Metadata,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	if r.OutboxEventType != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO transaction_outbox (event_type, payload, partition_key, status)
			VALUES ($1, $2, $3, 'pending')`,
			r.OutboxEventType, r.OutboxPayload, r.PartitionKey,
		)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

// ConfirmManual walks a manually verified payment through processing to
// completed and funds the linked escrow, all in one transaction.
func (tr *TransactionRepo) ConfirmManual(ctx context.Context, id uuid.UUID, confirmedBy uuid.UUID) error {
	tx, err := tr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `
		UPDATE transactions SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s is not pending: %w", id, errs.ErrInvalidState)
	}

	var orderID *uuid.UUID
	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE transactions
		SET status = 'completed',
		    processed_at = NOW(),
		    metadata = COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('confirmed_by', $2::text),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
		RETURNING order_id, user_id`, id, confirmedBy.String()).Scan(&orderID, &userID)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	if orderID != nil {
		_, err = tx.Exec(ctx, `
			UPDATE escrow_accounts
			SET status = 'funded', updated_at = NOW()
			WHERE order_id = $1 AND status = 'pending'`, *orderID)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
		}
	}

	payload, _ := json.Marshal(map[string]string{
		"transaction_id": id.String(),
		"user_id":        userID.String(),
		"confirmed_by":   confirmedBy.String(),
	})
	_, err = tx.Exec(ctx, `
		INSERT INTO transaction_outbox (event_type, payload, partition_key, status)
		VALUES ($1, $2, $3, 'pending')`,
		kafka.EventPaymentCompleted, payload, userID.String(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (tr *TransactionRepo) InsertOutbox(ctx context.Context, eventType string, payload json.RawMessage, partitionKey string) error {
	_, err := tr.db.Exec(ctx, `
		INSERT INTO transaction_outbox (event_type, payload, partition_key, status)
		VALUES ($1, $2, $3, 'pending')`,
		eventType, payload, partitionKey,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

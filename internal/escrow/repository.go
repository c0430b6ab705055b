package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/model"
)

// StatusMove is a compare-and-swap transition on an escrow account. From is
// the status the row must still hold for the move to apply.
type StatusMove struct {
	ID              uuid.UUID
	From            model.EscrowStatus
	To              model.EscrowStatus
	ActorID         uuid.UUID
	SetFundedAt     bool
	SetReleasedAt   bool
	OutboxEventType string
	OutboxPayload   []byte
	PartitionKey    string
}

type AccountRepository interface {
	Insert(ctx context.Context, a *model.EscrowAccount) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.EscrowAccount, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.EscrowAccount, error)
	Move(ctx context.Context, m StatusMove) error
	MoveFromAny(ctx context.Context, m StatusMove, from ...model.EscrowStatus) error
}

type AccountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `id, order_id, buyer_id, seller_id, amount, currency, status,
	release_conditions, funded_at, released_at, released_by, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.EscrowAccount, error) {
	var a model.EscrowAccount
	err := row.Scan(
		&a.ID, &a.OrderID, &a.BuyerID, &a.SellerID, &a.Amount, &a.Currency, &a.Status,
		&a.ReleaseConditions, &a.FundedAt, &a.ReleasedAt, &a.ReleasedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (ar *AccountRepo) Insert(ctx context.Context, a *model.EscrowAccount) error {
	sql := `INSERT INTO escrow_accounts (order_id, buyer_id, seller_id, amount, currency, status, release_conditions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := ar.db.QueryRow(ctx, sql,
		a.OrderID, a.BuyerID, a.SellerID, a.Amount, a.Currency, a.Status, a.ReleaseConditions,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("escrow account for order %s already exists: %w", a.OrderID, errs.ErrConflict)
		}
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

func (ar *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.EscrowAccount, error) {
	row := ar.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM escrow_accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("escrow account %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return a, nil
}

func (ar *AccountRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.EscrowAccount, error) {
	row := ar.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM escrow_accounts WHERE order_id = $1`, orderID)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("escrow account for order %s: %w", orderID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return a, nil
}

// Move applies a single-source CAS transition. A zero-row update means the
// row is no longer in the expected status; the loser of a concurrent
// release/refund race observes ErrInvalidState, same as the sequential path.
func (ar *AccountRepo) Move(ctx context.Context, m StatusMove) error {
	return ar.MoveFromAny(ctx, m, m.From)
}

func (ar *AccountRepo) MoveFromAny(ctx context.Context, m StatusMove, from ...model.EscrowStatus) error {
	tx, err := ar.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `
		UPDATE escrow_accounts
		SET status = $1,
		    funded_at = CASE WHEN $2 THEN NOW() ELSE funded_at END,
		    released_at = CASE WHEN $3 THEN NOW() ELSE released_at END,
		    released_by = CASE WHEN $3 THEN $4 ELSE released_by END,
		    updated_at = NOW()
		WHERE id = $5 AND status = ANY($6)`,
		m.To, m.SetFundedAt, m.SetReleasedAt, m.ActorID, m.ID, from,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("escrow account %s is not %v: %w", m.ID, from, errs.ErrInvalidState)
	}

	if m.OutboxEventType != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO transaction_outbox (event_type, payload, partition_key)
			VALUES ($1, $2, $3)`,
			m.OutboxEventType, m.OutboxPayload, m.PartitionKey,
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

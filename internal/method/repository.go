package method

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/model"
)

type MethodRepository interface {
	Insert(ctx context.Context, m *model.PaymentMethod) error
	SetDefault(ctx context.Context, userID, methodID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PaymentMethod, error)
	SetVerified(ctx context.Context, userID, methodID uuid.UUID, verified bool) error
	Remove(ctx context.Context, userID, methodID uuid.UUID) error
}

type MethodRepo struct {
	db *pgxpool.Pool
}

func NewMethodRepository(db *pgxpool.Pool) *MethodRepo {
	return &MethodRepo{db: db}
}

func (mr *MethodRepo) Insert(ctx context.Context, m *model.PaymentMethod) error {
	sql := `INSERT INTO payment_methods (user_id, provider_id, method_type, provider_method_id, is_default, is_verified, expires_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := mr.db.QueryRow(ctx, sql,
		m.UserID,
		m.ProviderID,
		m.MethodType,
		m.ProviderMethodID,
		m.IsDefault,
		m.IsVerified,
		m.ExpiresAt,
		m.Metadata,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

// SetDefault clears every default for the user and sets the new one inside a
// single transaction. Either both writes land or neither does; a user never
// observes two defaults or a dropped default.
func (mr *MethodRepo) SetDefault(ctx context.Context, userID, methodID uuid.UUID) error {
	tx, err := mr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `UPDATE payment_methods SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_default = TRUE`, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	res, err := tx.Exec(ctx, `UPDATE payment_methods SET is_default = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, methodID, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("payment method %s: %w", methodID, errs.ErrNotFound)
	}

	return tx.Commit(ctx)
}

func (mr *MethodRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PaymentMethod, error) {
	sql := `SELECT id, user_id, provider_id, method_type, provider_method_id, is_default, is_verified, expires_at, metadata, created_at, updated_at
		FROM payment_methods
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY is_default DESC, created_at DESC`

	rows, err := mr.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	defer rows.Close()

	var methods []model.PaymentMethod
	for rows.Next() {
		var m model.PaymentMethod
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.ProviderID, &m.MethodType, &m.ProviderMethodID,
			&m.IsDefault, &m.IsVerified, &m.ExpiresAt, &m.Metadata,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func (mr *MethodRepo) SetVerified(ctx context.Context, userID, methodID uuid.UUID, verified bool) error {
	res, err := mr.db.Exec(ctx, `UPDATE payment_methods SET is_verified = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL`, verified, methodID, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("payment method %s: %w", methodID, errs.ErrNotFound)
	}
	return nil
}

func (mr *MethodRepo) Remove(ctx context.Context, userID, methodID uuid.UUID) error {
	res, err := mr.db.Exec(ctx, `UPDATE payment_methods SET deleted_at = NOW(), is_default = FALSE, updated_at = NOW() WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, methodID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("payment method %s: %w", methodID, errs.ErrNotFound)
		}
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("payment method %s: %w", methodID, errs.ErrNotFound)
	}
	return nil
}

package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/model"
)

type RateRepository interface {
	FindRate(ctx context.Context, from, to string, asOf time.Time) (*model.ExchangeRate, error)
	InsertRate(ctx context.Context, rate *model.ExchangeRate) error
}

type RateRepo struct {
	db *pgxpool.Pool
}

func NewRateRepository(db *pgxpool.Pool) *RateRepo {
	return &RateRepo{db: db}
}

// FindRate selects the rate whose validity window contains asOf. When several
// open-ended records qualify, the newest valid_from wins.
func (rr *RateRepo) FindRate(ctx context.Context, from, to string, asOf time.Time) (*model.ExchangeRate, error) {
	sql := `SELECT id, from_currency, to_currency, rate, provider, valid_from, valid_until, created_at, updated_at
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2
		  AND valid_from <= $3
		  AND (valid_until IS NULL OR valid_until > $3)
		ORDER BY valid_from DESC
		LIMIT 1`

	var r model.ExchangeRate
	err := rr.db.QueryRow(ctx, sql, from, to, asOf).Scan(
		&r.ID, &r.FromCurrency, &r.ToCurrency, &r.Rate, &r.Provider,
		&r.ValidFrom, &r.ValidUntil, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no rate for %s/%s: %w", from, to, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return &r, nil
}

func (rr *RateRepo) InsertRate(ctx context.Context, rate *model.ExchangeRate) error {
	sql := `INSERT INTO exchange_rates (from_currency, to_currency, rate, provider, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := rr.db.QueryRow(ctx, sql,
		rate.FromCurrency,
		rate.ToCurrency,
		rate.Rate,
		rate.Provider,
		rate.ValidFrom,
		rate.ValidUntil,
	).Scan(&rate.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

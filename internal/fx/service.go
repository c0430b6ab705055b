package fx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/middleware"
	"github.com/bastionpay/bastion/internal/model"
	"github.com/bastionpay/bastion/internal/redis"
)

const rateCacheTTL = time.Minute

// Service resolves exchange rates and converts amounts between currencies.
// Amounts are integer minor units; conversion rounds half away from zero to
// the nearest minor unit.
type Service struct {
	repo  RateRepository
	cache *redis.Client
}

func NewService(repo RateRepository, cache *redis.Client) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// GetRate returns the rate active for the pair at asOf. A zero asOf means
// now. Identity pairs return 1 without a lookup.
func (s *Service) GetRate(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	if from == to {
		return decimal.NewFromInt(1), nil
	}

	current := asOf.IsZero()
	if current {
		asOf = time.Now()
	}

	// Only "rate right now" lookups go through the cache; historical
	// lookups always hit the store.
	cacheKey := "fx:" + from + ":" + to
	if current && s.cache != nil {
		if raw, err := s.cache.GetCached(ctx, cacheKey); err == nil {
			if rate, derr := decimal.NewFromString(string(raw)); derr == nil {
				return rate, nil
			}
		}
	}

	rec, err := s.repo.FindRate(ctx, from, to, asOf)
	if err != nil {
		return decimal.Zero, err
	}

	if current && s.cache != nil {
		if err := s.cache.SetCached(ctx, cacheKey, []byte(rec.Rate.String()), rateCacheTTL); err != nil {
			middleware.GetLogger(ctx).Warn().Err(err).Str("pair", from+"/"+to).Msg("failed to cache rate")
		}
	}

	return rec.Rate, nil
}

// Convert converts amount (minor units) from one currency to another at asOf.
// A missing rate is a hard failure; callers must not fall back to 1.
func (s *Service) Convert(ctx context.Context, amount int64, from, to string, asOf time.Time) (int64, decimal.Decimal, error) {
	if amount < 0 {
		return 0, decimal.Zero, fmt.Errorf("%w: amount must not be negative", errs.ErrValidation)
	}

	rate, err := s.GetRate(ctx, from, to, asOf)
	if err != nil {
		return 0, decimal.Zero, err
	}

	converted := decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
	return converted, rate, nil
}

// PutRate records a new rate. An open-ended record supersedes older
// open-ended records for the same pair by valid_from ordering.
func (s *Service) PutRate(ctx context.Context, rate *model.ExchangeRate) error {
	logger := middleware.GetLogger(ctx)

	rate.FromCurrency = strings.ToUpper(rate.FromCurrency)
	rate.ToCurrency = strings.ToUpper(rate.ToCurrency)

	if rate.FromCurrency == rate.ToCurrency {
		return fmt.Errorf("%w: identity pair needs no rate", errs.ErrValidation)
	}
	if !rate.Rate.IsPositive() {
		return fmt.Errorf("%w: rate must be positive", errs.ErrValidation)
	}
	if rate.ValidFrom.IsZero() {
		rate.ValidFrom = time.Now()
	}
	if rate.ValidUntil != nil && !rate.ValidUntil.After(rate.ValidFrom) {
		return fmt.Errorf("%w: valid_until must be after valid_from", errs.ErrValidation)
	}

	if err := s.repo.InsertRate(ctx, rate); err != nil {
		logger.Error().Err(err).Msg("Failed to insert exchange rate")
		return err
	}

	if s.cache != nil {
		s.cache.InvalidateCached(ctx, "fx:"+rate.FromCurrency+":"+rate.ToCurrency)
	}

	logger.Info().
		Str("pair", rate.FromCurrency+"/"+rate.ToCurrency).
		Str("rate", rate.Rate.String()).
		Msg("Exchange rate recorded")
	return nil
}

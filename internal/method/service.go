package method

import (
	"context"

	"github.com/google/uuid"

	"github.com/bastionpay/bastion/internal/middleware"
	"github.com/bastionpay/bastion/internal/model"
)

// Service is the payment method registry. Adding a method never makes it the
// default implicitly; SetDefault is the only way to move the default flag.
type Service struct {
	repo MethodRepository
}

func NewService(repo MethodRepository) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) AddMethod(ctx context.Context, m *model.PaymentMethod) (uuid.UUID, error) {
	logger := middleware.GetLogger(ctx)

	m.IsDefault = false
	m.IsVerified = false

	if err := s.repo.Insert(ctx, m); err != nil {
		logger.Error().Err(err).Msg("Failed to add payment method")
		return uuid.Nil, err
	}

	logger.Info().
		Str("method_id", m.ID.String()).
		Str("method_type", string(m.MethodType)).
		Msg("Payment method added")
	return m.ID, nil
}

func (s *Service) SetDefault(ctx context.Context, userID, methodID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	if err := s.repo.SetDefault(ctx, userID, methodID); err != nil {
		logger.Error().Err(err).Str("method_id", methodID.String()).Msg("Failed to set default payment method")
		return err
	}

	logger.Info().Str("method_id", methodID.String()).Msg("Default payment method updated")
	return nil
}

func (s *Service) ListMethods(ctx context.Context, userID uuid.UUID) ([]model.PaymentMethod, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) MarkVerified(ctx context.Context, userID, methodID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	if err := s.repo.SetVerified(ctx, userID, methodID, true); err != nil {
		logger.Error().Err(err).Str("method_id", methodID.String()).Msg("Failed to mark payment method verified")
		return err
	}

	logger.Info().Str("method_id", methodID.String()).Msg("Payment method verified")
	return nil
}

func (s *Service) RemoveMethod(ctx context.Context, userID, methodID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	if err := s.repo.Remove(ctx, userID, methodID); err != nil {
		logger.Error().Err(err).Str("method_id", methodID.String()).Msg("Failed to remove payment method")
		return err
	}

	logger.Info().Str("method_id", methodID.String()).Msg("Payment method removed")
	return nil
}

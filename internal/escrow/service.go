package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/kafka"
	"github.com/bastionpay/bastion/internal/middleware"
	"github.com/bastionpay/bastion/internal/model"
)

// Service manages the escrow account lifecycle. Funds are held per order;
// release and refund are mutually exclusive and each pays out in full.
type Service struct {
	repo AccountRepository
}

func NewService(repo AccountRepository) *Service {
	return &Service{repo: repo}
}

// CreateEscrowAccount opens a PENDING hold for an order. One account per
// order: a second create for the same order returns ErrConflict.
func (s *Service) CreateEscrowAccount(ctx context.Context, a *model.EscrowAccount) (uuid.UUID, error) {
	logger := middleware.GetLogger(ctx)

	if a.BuyerID == a.SellerID {
		return uuid.Nil, fmt.Errorf("%w: buyer and seller must differ", errs.ErrValidation)
	}
	a.Currency = strings.ToUpper(a.Currency)
	a.Status = model.EscrowPending

	if err := s.repo.Insert(ctx, a); err != nil {
		return uuid.Nil, err
	}

	logger.Info().
		Str("escrow_id", a.ID.String()).
		Str("order_id", a.OrderID.String()).
		Int64("amount", a.Amount).
		Msg("Escrow account created")
	return a.ID, nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*model.EscrowAccount, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetAccountByOrder(ctx context.Context, orderID uuid.UUID) (*model.EscrowAccount, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// MarkFunded moves PENDING to FUNDED when the linked payment completes.
// Already-funded accounts are a no-op so webhook replays stay harmless.
func (s *Service) MarkFunded(ctx context.Context, id uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != model.EscrowPending {
		if a.Status == model.EscrowFunded {
			return nil
		}
		return fmt.Errorf("escrow account %s is %s, cannot fund: %w", id, a.Status, errs.ErrInvalidState)
	}

	err = s.repo.Move(ctx, s.move(a, model.EscrowPending, model.EscrowFunded, uuid.Nil, StatusMove{SetFundedAt: true}))
	if err != nil {
		return err
	}
	logger.Info().Str("escrow_id", id.String()).Msg("Escrow funded")
	return nil
}

// ReleaseFunds pays the full held amount to the seller. Legal from FUNDED
// and from DISPUTED as a dispute resolution.
func (s *Service) ReleaseFunds(ctx context.Context, id, actorID uuid.UUID) error {
	return s.settle(ctx, id, actorID, model.EscrowReleased)
}

// RefundEscrow returns the full held amount to the buyer. Legal from FUNDED
// and from DISPUTED as a dispute resolution.
func (s *Service) RefundEscrow(ctx context.Context, id, actorID uuid.UUID) error {
	return s.settle(ctx, id, actorID, model.EscrowRefunded)
}

func (s *Service) settle(ctx context.Context, id, actorID uuid.UUID, target model.EscrowStatus) error {
	logger := middleware.GetLogger(ctx)

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != model.EscrowFunded && a.Status != model.EscrowDisputed {
		return fmt.Errorf("escrow account %s is %s, cannot settle: %w", id, a.Status, errs.ErrInvalidState)
	}

	m := s.move(a, a.Status, target, actorID, StatusMove{SetReleasedAt: true})
	if err := s.repo.MoveFromAny(ctx, m, model.EscrowFunded, model.EscrowDisputed); err != nil {
		return err
	}

	logger.Info().
		Str("escrow_id", id.String()).
		Str("actor_id", actorID.String()).
		Str("status", string(target)).
		Msg("Escrow settled")
	return nil
}

// OpenDispute freezes a FUNDED account until an operator resolves it.
func (s *Service) OpenDispute(ctx context.Context, id, actorID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != model.EscrowFunded {
		return fmt.Errorf("escrow account %s is %s, cannot dispute: %w", id, a.Status, errs.ErrInvalidState)
	}

	if err := s.repo.Move(ctx, s.move(a, model.EscrowFunded, model.EscrowDisputed, actorID, StatusMove{})); err != nil {
		return err
	}
	logger.Info().Str("escrow_id", id.String()).Str("actor_id", actorID.String()).Msg("Escrow disputed")
	return nil
}

func (s *Service) move(a *model.EscrowAccount, from, to model.EscrowStatus, actorID uuid.UUID, base StatusMove) StatusMove {
	payload, _ := json.Marshal(map[string]string{
		"escrow_id": a.ID.String(),
		"order_id":  a.OrderID.String(),
		"buyer_id":  a.BuyerID.String(),
		"seller_id": a.SellerID.String(),
		"status":    string(to),
	})
	base.ID = a.ID
	base.From = from
	base.To = to
	base.ActorID = actorID
	base.OutboxEventType = kafka.EventEscrowStatusMoved
	base.OutboxPayload = payload
	base.PartitionKey = a.OrderID.String()
	return base
}

package method

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastionpay/bastion/internal/errs"
	"github.com/bastionpay/bastion/internal/model"
)

type fakeMethodRepo struct {
	methods map[uuid.UUID]*model.PaymentMethod
}

func newFakeMethodRepo() *fakeMethodRepo {
	return &fakeMethodRepo{methods: make(map[uuid.UUID]*model.PaymentMethod)}
}

func (f *fakeMethodRepo) Insert(_ context.Context, m *model.PaymentMethod) error {
	m.ID = uuid.New()
	f.methods[m.ID] = m
	return nil
}

func (f *fakeMethodRepo) SetDefault(_ context.Context, userID, methodID uuid.UUID) error {
	target, ok := f.methods[methodID]
	if !ok || target.UserID != userID {
		return fmt.Errorf("payment method %s: %w", methodID, errs.ErrNotFound)
	}
	for _, m := range f.methods {
		if m.UserID == userID {
			m.IsDefault = false
		}
	}
	target.IsDefault = true
	return nil
}

func (f *fakeMethodRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.PaymentMethod, error) {
	var out []model.PaymentMethod
	for _, m := range f.methods {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMethodRepo) SetVerified(_ context.Context, userID, methodID uuid.UUID, verified bool) error {
	m, ok := f.methods[methodID]
	if !ok || m.UserID != userID {
		return fmt.Errorf("payment method %s: %w", methodID, errs.ErrNotFound)
	}
	m.IsVerified = verified
	return nil
}

func (f *fakeMethodRepo) Remove(_ context.Context, userID, methodID uuid.UUID) error {
	m, ok := f.methods[methodID]
	if !ok || m.UserID != userID {
		return fmt.Errorf("payment method %s: %w", methodID, errs.ErrNotFound)
	}
	delete(f.methods, methodID)
	return nil
}

func TestAddMethod(t *testing.T) {
	repo := newFakeMethodRepo()
	svc := NewService(repo)

	expires := time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC)
	m := &model.PaymentMethod{
		UserID:     uuid.New(),
		ProviderID: uuid.New(),
		MethodType: model.MethodCard,
		IsDefault:  true, // must be ignored
		IsVerified: true, // must be ignored
		ExpiresAt:  &expires,
	}

	id, err := svc.AddMethod(context.Background(), m)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.False(t, repo.methods[id].IsDefault)
	assert.False(t, repo.methods[id].IsVerified)
	require.NotNil(t, repo.methods[id].ExpiresAt)
	assert.Equal(t, expires, *repo.methods[id].ExpiresAt)
}

func TestSetDefault(t *testing.T) {
	repo := newFakeMethodRepo()
	svc := NewService(repo)
	userID := uuid.New()

	first := &model.PaymentMethod{UserID: userID, ProviderID: uuid.New(), MethodType: model.MethodCard}
	second := &model.PaymentMethod{UserID: userID, ProviderID: uuid.New(), MethodType: model.MethodWallet}
	_, err := svc.AddMethod(context.Background(), first)
	require.NoError(t, err)
	_, err = svc.AddMethod(context.Background(), second)
	require.NoError(t, err)

	require.NoError(t, svc.SetDefault(context.Background(), userID, first.ID))
	require.NoError(t, svc.SetDefault(context.Background(), userID, second.ID))

	// Moving the default clears the previous holder
	assert.False(t, repo.methods[first.ID].IsDefault)
	assert.True(t, repo.methods[second.ID].IsDefault)

	t.Run("other user's method not found", func(t *testing.T) {
		err := svc.SetDefault(context.Background(), uuid.New(), first.ID)
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestMarkVerified(t *testing.T) {
	repo := newFakeMethodRepo()
	svc := NewService(repo)
	userID := uuid.New()

	m := &model.PaymentMethod{UserID: userID, ProviderID: uuid.New(), MethodType: model.MethodCard}
	_, err := svc.AddMethod(context.Background(), m)
	require.NoError(t, err)
	require.False(t, repo.methods[m.ID].IsVerified)

	require.NoError(t, svc.MarkVerified(context.Background(), userID, m.ID))
	assert.True(t, repo.methods[m.ID].IsVerified)

	err = svc.MarkVerified(context.Background(), uuid.New(), m.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRemoveMethod(t *testing.T) {
	repo := newFakeMethodRepo()
	svc := NewService(repo)
	userID := uuid.New()

	m := &model.PaymentMethod{UserID: userID, ProviderID: uuid.New(), MethodType: model.MethodBankAccount}
	_, err := svc.AddMethod(context.Background(), m)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMethod(context.Background(), userID, m.ID))

	methods, err := svc.ListMethods(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, methods)

	err = svc.RemoveMethod(context.Background(), userID, m.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

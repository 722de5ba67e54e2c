package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/mocks"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = models.User{UserName: "alice", UserStoreDomain: "PRIMARY", TenantDomain: "carbon.super"}

func testRecord(code string) *models.RecoveryRecord {
	return &models.RecoveryRecord{
		User:      testUser,
		Code:      code,
		Flow:      models.FlowAskPassword,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecoveryService_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(mocks.MockRecoveryDataRepository)
		rec := testRecord("c1")
		repo.On("Store", ctx, rec).Return(nil).Once()

		require.NoError(t, NewRecoveryService(repo).Issue(ctx, rec))
		repo.AssertExpectations(t)
	})

	t.Run("StorageFailure", func(t *testing.T) {
		repo := new(mocks.MockRecoveryDataRepository)
		rec := testRecord("c1")
		repo.On("Store", ctx, rec).Return(&repository.StorageError{Op: "store", Err: errors.New("disk full")}).Once()

		err := NewRecoveryService(repo).Issue(ctx, rec)
		assert.ErrorIs(t, err, repository.ErrStorage)
	})
}

func TestRecoveryService_Consume(t *testing.T) {
	ctx := context.Background()

	t.Run("VerifiesThenInvalidates", func(t *testing.T) {
		repo := new(mocks.MockRecoveryDataRepository)
		rec := testRecord("c1")
		repo.On("LoadByCodeAndScenario", ctx, testUser, models.FlowAskPassword, "c1").Return(rec, nil).Once()
		repo.On("InvalidateByCode", ctx, "c1").Return(nil).Once()

		got, err := NewRecoveryService(repo).Consume(ctx, testUser, models.FlowAskPassword, "c1")
		require.NoError(t, err)
		assert.Equal(t, rec, got)
		repo.AssertExpectations(t)
	})

	t.Run("ExpiredIsNotInvalidated", func(t *testing.T) {
		repo := new(mocks.MockRecoveryDataRepository)
		repo.On("LoadByCodeAndScenario", ctx, testUser, models.FlowAskPassword, "c1").
			Return(nil, repository.NewExpiredCodeError("c1")).Once()

		_, err := NewRecoveryService(repo).Consume(ctx, testUser, models.FlowAskPassword, "c1")
		assert.ErrorIs(t, err, repository.ErrExpiredCode)
		repo.AssertNotCalled(t, "InvalidateByCode", ctx, "c1")
	})

	t.Run("InvalidationFailure", func(t *testing.T) {
		repo := new(mocks.MockRecoveryDataRepository)
		repo.On("LoadByCodeAndScenario", ctx, testUser, models.FlowAskPassword, "c1").Return(testRecord("c1"), nil).Once()
		repo.On("InvalidateByCode", ctx, "c1").Return(&repository.StorageError{Op: "invalidate code", Err: errors.New("locked")}).Once()

		got, err := NewRecoveryService(repo).Consume(ctx, testUser, models.FlowAskPassword, "c1")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, repository.ErrStorage)
	})
}

func TestRecoveryService_Latest(t *testing.T) {
	ctx := context.Background()

	t.Run("Checked", func(t *testing.T) {
		repo := new(mocks.MockRecoveryDataRepository)
		repo.On("LoadLatestForUser", ctx, testUser).Return(nil, repository.NewExpiredCodeError("c1")).Once()

		_, err := NewRecoveryService(repo).Latest(ctx, testUser, true)
		assert.ErrorIs(t, err, repository.ErrExpiredCode)
		repo.AssertNotCalled(t, "LoadLatestForUserUnchecked", ctx, testUser)
	})

	t.Run("Unchecked", func(t *testing.T) {
		repo := new(mocks.MockRecoveryDataRepository)
		rec := testRecord("c1")
		repo.On("LoadLatestForUserUnchecked", ctx, testUser).Return(rec, nil).Once()

		got, err := NewRecoveryService(repo).Latest(ctx, testUser, false)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("NoRecord", func(t *testing.T) {
		repo := new(mocks.MockRecoveryDataRepository)
		repo.On("LoadLatestForUser", ctx, testUser).Return(nil, nil).Once()

		got, err := NewRecoveryService(repo).Latest(ctx, testUser, true)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRecoveryService_LookupAndInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockRecoveryDataRepository)
	svc := NewRecoveryService(repo)

	repo.On("LoadByCode", ctx, "missing").Return(nil, repository.NewInvalidCodeError("missing")).Once()
	repo.On("InvalidateByCode", ctx, "c1").Return(nil).Once()
	repo.On("InvalidateAllForUser", ctx, testUser).Return(nil).Once()

	_, err := svc.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrInvalidCode)
	require.NoError(t, svc.Invalidate(ctx, "c1"))
	require.NoError(t, svc.InvalidateUser(ctx, testUser))
	repo.AssertExpectations(t)
}

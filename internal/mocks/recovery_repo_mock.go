package mocks

import (
	"context"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockRecoveryDataRepository is a mock type for the RecoveryDataRepository type
type MockRecoveryDataRepository struct {
	mock.Mock
}

func recordAndError(ret mock.Arguments) (*models.RecoveryRecord, error) {
	var r0 *models.RecoveryRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.RecoveryRecord)
	}
	return r0, ret.Error(1)
}

// Store provides a mock function with given fields: ctx, rec
func (_m *MockRecoveryDataRepository) Store(ctx context.Context, rec *models.RecoveryRecord) error {
	ret := _m.Called(ctx, rec)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *models.RecoveryRecord) error); ok {
		r0 = rf(ctx, rec)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

// LoadByCodeAndScenario provides a mock function with given fields: ctx, user, flow, code
func (_m *MockRecoveryDataRepository) LoadByCodeAndScenario(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error) {
	return recordAndError(_m.Called(ctx, user, flow, code))
}

// LoadByCode provides a mock function with given fields: ctx, code
func (_m *MockRecoveryDataRepository) LoadByCode(ctx context.Context, code string) (*models.RecoveryRecord, error) {
	return recordAndError(_m.Called(ctx, code))
}

// LoadLatestForUser provides a mock function with given fields: ctx, user
func (_m *MockRecoveryDataRepository) LoadLatestForUser(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	return recordAndError(_m.Called(ctx, user))
}

// LoadLatestForUserUnchecked provides a mock function with given fields: ctx, user
func (_m *MockRecoveryDataRepository) LoadLatestForUserUnchecked(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	return recordAndError(_m.Called(ctx, user))
}

// InvalidateByCode provides a mock function with given fields: ctx, code
func (_m *MockRecoveryDataRepository) InvalidateByCode(ctx context.Context, code string) error {
	ret := _m.Called(ctx, code)
	return ret.Error(0)
}

// InvalidateAllForUser provides a mock function with given fields: ctx, user
func (_m *MockRecoveryDataRepository) InvalidateAllForUser(ctx context.Context, user models.User) error {
	ret := _m.Called(ctx, user)
	return ret.Error(0)
}

package mocks

import (
	"context"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockRecoveryService is a mock type for the RecoveryManager type
type MockRecoveryService struct {
	mock.Mock
}

// Issue provides a mock function with given fields: ctx, rec
func (_m *MockRecoveryService) Issue(ctx context.Context, rec *models.RecoveryRecord) error {
	ret := _m.Called(ctx, rec)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *models.RecoveryRecord) error); ok {
		r0 = rf(ctx, rec)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

// Verify provides a mock function with given fields: ctx, user, flow, code
func (_m *MockRecoveryService) Verify(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error) {
	return recordAndError(_m.Called(ctx, user, flow, code))
}

// Consume provides a mock function with given fields: ctx, user, flow, code
func (_m *MockRecoveryService) Consume(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error) {
	return recordAndError(_m.Called(ctx, user, flow, code))
}

// Lookup provides a mock function with given fields: ctx, code
func (_m *MockRecoveryService) Lookup(ctx context.Context, code string) (*models.RecoveryRecord, error) {
	return recordAndError(_m.Called(ctx, code))
}

// Latest provides a mock function with given fields: ctx, user, checkExpiry
func (_m *MockRecoveryService) Latest(ctx context.Context, user models.User, checkExpiry bool) (*models.RecoveryRecord, error) {
	return recordAndError(_m.Called(ctx, user, checkExpiry))
}

// Invalidate provides a mock function with given fields: ctx, code
func (_m *MockRecoveryService) Invalidate(ctx context.Context, code string) error {
	ret := _m.Called(ctx, code)
	return ret.Error(0)
}

// InvalidateUser provides a mock function with given fields: ctx, user
func (_m *MockRecoveryService) InvalidateUser(ctx context.Context, user models.User) error {
	ret := _m.Called(ctx, user)
	return ret.Error(0)
}

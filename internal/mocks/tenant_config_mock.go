package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTenantConfigRepository is a mock type for the TenantConfigAdmin type
type MockTenantConfigRepository struct {
	mock.Mock
}

// GetConfig provides a mock function with given fields: ctx, key, tenantDomain
func (_m *MockTenantConfigRepository) GetConfig(ctx context.Context, key, tenantDomain string) (string, error) {
	ret := _m.Called(ctx, key, tenantDomain)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string) string); ok {
		r0 = rf(ctx, key, tenantDomain)
	} else {
		r0 = ret.Get(0).(string)
	}
	return r0, ret.Error(1)
}

// SetConfig provides a mock function with given fields: ctx, key, tenantDomain, value
func (_m *MockTenantConfigRepository) SetConfig(ctx context.Context, key, tenantDomain, value string) error {
	ret := _m.Called(ctx, key, tenantDomain, value)
	return ret.Error(0)
}

// DeleteConfig provides a mock function with given fields: ctx, key, tenantDomain
func (_m *MockTenantConfigRepository) DeleteConfig(ctx context.Context, key, tenantDomain string) error {
	ret := _m.Called(ctx, key, tenantDomain)
	return ret.Error(0)
}

package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/handlers"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/mocks"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupTenantConfigHandlerTest(t *testing.T) (*mocks.MockTenantConfigRepository, *echo.Echo) {
	t.Helper()
	cfg := new(mocks.MockTenantConfigRepository)
	h := handlers.NewTenantConfigHandler(cfg)
	e := echo.New()
	e.PUT("/tenants/:tenant/config/:key", h.Set)
	e.DELETE("/tenants/:tenant/config/:key", h.Delete)
	return cfg, e
}

func TestTenantConfigHandler_Set(t *testing.T) {
	path := "/tenants/wso2.com/config/" + models.ConfigRecoveryCodeExpiryTime

	t.Run("Success", func(t *testing.T) {
		cfg, e := setupTenantConfigHandlerTest(t)
		cfg.On("SetConfig", mock.Anything, models.ConfigRecoveryCodeExpiryTime, "wso2.com", "15").Return(nil).Once()

		rec := performRequest(t, e, http.MethodPut, path, models.TenantConfigRequest{Value: "15"})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		cfg.AssertExpectations(t)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		cfg, e := setupTenantConfigHandlerTest(t)
		rec := performRequest(t, e, http.MethodPut, "/tenants/wso2.com/config/Some.Other.Key", models.TenantConfigRequest{Value: "15"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		cfg.AssertNotCalled(t, "SetConfig", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("EmptyValue", func(t *testing.T) {
		_, e := setupTenantConfigHandlerTest(t)
		rec := performRequest(t, e, http.MethodPut, path, models.TenantConfigRequest{Value: "  "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("NonNumericValue", func(t *testing.T) {
		for _, value := range []string{"soon", "1.5", "15m", "0x10"} {
			cfg, e := setupTenantConfigHandlerTest(t)
			rec := performRequest(t, e, http.MethodPut, path, models.TenantConfigRequest{Value: value})
			assert.Equal(t, http.StatusBadRequest, rec.Code, value)
			cfg.AssertNotCalled(t, "SetConfig", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("TrimmedAndNegativeAccepted", func(t *testing.T) {
		cfg, e := setupTenantConfigHandlerTest(t)
		cfg.On("SetConfig", mock.Anything, models.ConfigRecoveryCodeExpiryTime, "wso2.com", "-1").Return(nil).Once()

		rec := performRequest(t, e, http.MethodPut, path, models.TenantConfigRequest{Value: " -1 "})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		cfg.AssertExpectations(t)
	})

	t.Run("BackendFailure", func(t *testing.T) {
		cfg, e := setupTenantConfigHandlerTest(t)
		cfg.On("SetConfig", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

		rec := performRequest(t, e, http.MethodPut, path, models.TenantConfigRequest{Value: "15"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestTenantConfigHandler_Delete(t *testing.T) {
	cfg, e := setupTenantConfigHandlerTest(t)
	cfg.On("DeleteConfig", mock.Anything, models.ConfigExpiryTime, "wso2.com").Return(nil).Once()

	rec := performRequest(t, e, http.MethodDelete, "/tenants/wso2.com/config/"+models.ConfigExpiryTime, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cfg.AssertExpectations(t)
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/middleware"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// TenantConfigHandler administers tenant scoped timeout overrides
type TenantConfigHandler struct {
	Config repository.TenantConfigAdmin
}

func NewTenantConfigHandler(cfg repository.TenantConfigAdmin) *TenantConfigHandler {
	return &TenantConfigHandler{Config: cfg}
}

func (h *TenantConfigHandler) Set(c echo.Context) error {
	tenant, key, err := tenantConfigParams(c)
	if err != nil {
		return err
	}
	req := new(models.TenantConfigRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	value := strings.TrimSpace(req.Value)
	if value == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "value is required")
	}
	if _, err := models.ParseExpiryMinutes(value); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "value must be a whole number of minutes")
	}

	if err := h.Config.SetConfig(c.Request().Context(), key, tenant, value); err != nil {
		log.Error().Err(err).Str("tenant", tenant).Str("key", key).Msg("Failed to set tenant config")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to set tenant config")
	}
	log.Info().Str("tenant", tenant).Str("key", key).Str("operator", middleware.OperatorSubject(c)).Msg("Tenant config override set")
	return c.NoContent(http.StatusNoContent)
}

func (h *TenantConfigHandler) Delete(c echo.Context) error {
	tenant, key, err := tenantConfigParams(c)
	if err != nil {
		return err
	}
	if err := h.Config.DeleteConfig(c.Request().Context(), key, tenant); err != nil {
		log.Error().Err(err).Str("tenant", tenant).Str("key", key).Msg("Failed to delete tenant config")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete tenant config")
	}
	log.Info().Str("tenant", tenant).Str("key", key).Str("operator", middleware.OperatorSubject(c)).Msg("Tenant config override removed")
	return c.NoContent(http.StatusNoContent)
}

func tenantConfigParams(c echo.Context) (string, string, error) {
	tenant := strings.TrimSpace(c.Param("tenant"))
	key := strings.TrimSpace(c.Param("key"))
	if tenant == "" || key == "" {
		return "", "", echo.NewHTTPError(http.StatusBadRequest, "tenant and key are required")
	}
	if !models.IsRecoveryConfigKey(key) {
		return "", "", echo.NewHTTPError(http.StatusBadRequest, "Unknown recovery config key")
	}
	return tenant, key, nil
}

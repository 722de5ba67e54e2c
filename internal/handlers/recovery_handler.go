package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RecoveryHandler exposes the recovery code store over HTTP
type RecoveryHandler struct {
	RecoveryService service.RecoveryManager
}

// NewRecoveryHandler creates a new RecoveryHandler
func NewRecoveryHandler(recoveryService service.RecoveryManager) *RecoveryHandler {
	return &RecoveryHandler{RecoveryService: recoveryService}
}

// Store persists a freshly generated code
func (h *RecoveryHandler) Store(c echo.Context) error {
	req := new(models.StoreRecoveryRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if msg := req.User.Validate(); msg != "" {
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	flow, err := models.ParseRecoveryFlow(req.Scenario, req.Step)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec := &models.RecoveryRecord{
		User:          req.User,
		Code:          req.Code,
		Flow:          flow,
		RemainingData: req.RemainingData,
	}
	if err := h.RecoveryService.Issue(c.Request().Context(), rec); err != nil {
		return recoveryHTTPError(err, "Failed to store recovery code")
	}
	return c.NoContent(http.StatusCreated)
}

// Verify returns the record of a live code without consuming it
func (h *RecoveryHandler) Verify(c echo.Context) error {
	req, flow, err := bindVerifyRequest(c)
	if err != nil {
		return err
	}
	rec, err := h.RecoveryService.Verify(c.Request().Context(), req.User, flow, req.Code)
	if err != nil {
		return recoveryHTTPError(err, "Failed to verify recovery code")
	}
	return c.JSON(http.StatusOK, models.NewRecoveryRecordResponse(rec))
}

// Consume verifies a code and invalidates it
func (h *RecoveryHandler) Consume(c echo.Context) error {
	req, flow, err := bindVerifyRequest(c)
	if err != nil {
		return err
	}
	rec, err := h.RecoveryService.Consume(c.Request().Context(), req.User, flow, req.Code)
	if err != nil {
		return recoveryHTTPError(err, "Failed to consume recovery code")
	}
	return c.JSON(http.StatusOK, models.NewRecoveryRecordResponse(rec))
}

// Lookup resolves a code issued by any flow
func (h *RecoveryHandler) Lookup(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	rec, err := h.RecoveryService.Lookup(c.Request().Context(), code)
	if err != nil {
		return recoveryHTTPError(err, "Failed to load recovery code")
	}
	return c.JSON(http.StatusOK, models.NewRecoveryRecordResponse(rec))
}

// Invalidate deletes a single code. Unknown codes are not an error.
func (h *RecoveryHandler) Invalidate(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	if err := h.RecoveryService.Invalidate(c.Request().Context(), code); err != nil {
		return recoveryHTTPError(err, "Failed to invalidate recovery code")
	}
	return c.NoContent(http.StatusNoContent)
}

// Latest returns the newest record of a user. ?unchecked=true skips the expiry check.
func (h *RecoveryHandler) Latest(c echo.Context) error {
	req := new(models.UserRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if msg := req.User.Validate(); msg != "" {
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}

	unchecked := false
	if raw := c.QueryParam("unchecked"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unchecked must be a boolean")
		}
		unchecked = v
	}

	rec, err := h.RecoveryService.Latest(c.Request().Context(), req.User, !unchecked)
	if err != nil {
		return recoveryHTTPError(err, "Failed to load latest recovery code")
	}
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "No recovery code for user")
	}
	return c.JSON(http.StatusOK, models.NewRecoveryRecordResponse(rec))
}

// InvalidateUser deletes every code of a user
func (h *RecoveryHandler) InvalidateUser(c echo.Context) error {
	req := new(models.UserRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if msg := req.User.Validate(); msg != "" {
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}
	if err := h.RecoveryService.InvalidateUser(c.Request().Context(), req.User); err != nil {
		return recoveryHTTPError(err, "Failed to invalidate recovery codes")
	}
	return c.NoContent(http.StatusNoContent)
}

func bindVerifyRequest(c echo.Context) (*models.VerifyRecoveryRequest, models.RecoveryFlow, error) {
	req := new(models.VerifyRecoveryRequest)
	if err := c.Bind(req); err != nil {
		return nil, models.RecoveryFlow{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if msg := req.User.Validate(); msg != "" {
		return nil, models.RecoveryFlow{}, echo.NewHTTPError(http.StatusBadRequest, msg)
	}
	if req.Code == "" {
		return nil, models.RecoveryFlow{}, echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}
	flow, err := models.ParseRecoveryFlow(req.Scenario, req.Step)
	if err != nil {
		return nil, models.RecoveryFlow{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req, flow, nil
}

// recoveryHTTPError maps the store's error taxonomy onto status codes.
func recoveryHTTPError(err error, fallback string) error {
	switch {
	case errors.Is(err, repository.ErrInvalidCode):
		return echo.NewHTTPError(http.StatusNotFound, "Invalid recovery code")
	case errors.Is(err, repository.ErrExpiredCode):
		return echo.NewHTTPError(http.StatusGone, "Expired recovery code")
	case errors.Is(err, repository.ErrTenantNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown tenant domain")
	case errors.Is(err, models.ErrIllegalRecoveryFlow):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	log.Error().Err(err).Msg(fallback)
	return echo.NewHTTPError(http.StatusInternalServerError, fallback)
}

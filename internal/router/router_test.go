package router_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/handlers"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/mocks"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/router"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/server"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

func signToken(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()
	return signClaims(t, secret, jwt.RegisteredClaims{
		Issuer:    service.OperatorTokenIssuer,
		Subject:   "password-recovery-flow",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	})
}

func signClaims(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func issueToken(t *testing.T, secret string) string {
	t.Helper()
	token, _, err := service.NewOperatorTokenService(secret).GenerateToken("self-sign-up-flow", time.Minute)
	require.NoError(t, err)
	return token
}

func TestRecoveryRoutes_RequireJWT(t *testing.T) {
	svc := new(mocks.MockRecoveryService)
	svc.On("Lookup", mock.Anything, "c1").Return(nil, repository.NewInvalidCodeError("c1"))

	e := server.New()
	router.SetupRecoveryRoutes(e, handlers.NewRecoveryHandler(svc), testSecret)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"NoToken", "", http.StatusUnauthorized},
		{"WrongSecret", signToken(t, "other-secret", time.Hour), http.StatusUnauthorized},
		{"ExpiredToken", signToken(t, testSecret, -time.Hour), http.StatusUnauthorized},
		{"ValidToken", signToken(t, testSecret, time.Hour), http.StatusNotFound},
		{"IssuedToken", issueToken(t, testSecret), http.StatusNotFound},
		{"ForeignIssuer", signClaims(t, testSecret, jwt.RegisteredClaims{
			Issuer:    "some-other-service",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}), http.StatusUnauthorized},
		{"NoSubject", signClaims(t, testSecret, jwt.RegisteredClaims{
			Issuer:    service.OperatorTokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}), http.StatusUnauthorized},
		{"NoExpiry", signClaims(t, testSecret, jwt.RegisteredClaims{
			Issuer:  service.OperatorTokenIssuer,
			Subject: "password-recovery-flow",
		}), http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/recovery/codes/c1", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestTenantConfigRoutes_RequireJWT(t *testing.T) {
	cfg := new(mocks.MockTenantConfigRepository)
	cfg.On("DeleteConfig", mock.Anything, "Recovery.ExpiryTime", "wso2.com").Return(nil).Once()

	e := server.New()
	router.SetupTenantConfigRoutes(e, handlers.NewTenantConfigHandler(cfg), testSecret)

	req := httptest.NewRequest(http.MethodDelete, "/api/recovery/tenants/wso2.com/config/Recovery.ExpiryTime", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/recovery/tenants/wso2.com/config/Recovery.ExpiryTime", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, time.Hour))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cfg.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	e := server.New()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.EqualFold(rec.Body.String(), "OK"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

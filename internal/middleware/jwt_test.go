package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/service"
)

func TestRequireOperatorJWT_SetsSubject(t *testing.T) {
	const secret = "middleware-test-secret"
	token, _, err := service.NewOperatorTokenService(secret).GenerateToken("ask-password-flow", time.Minute)
	require.NoError(t, err)

	e := echo.New()
	var subject string
	e.GET("/whoami", func(c echo.Context) error {
		subject = OperatorSubject(c)
		return c.NoContent(http.StatusNoContent)
	}, RequireOperatorJWT(secret))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ask-password-flow", subject)
}

func TestOperatorSubject_NoToken(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Empty(t, OperatorSubject(c))
}

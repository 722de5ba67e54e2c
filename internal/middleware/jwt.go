package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/service"
)

// ContextKeyClaims is where the verified token claims are stored on the echo context.
const ContextKeyClaims = "operatorClaims"

// RequireOperatorJWT guards the recovery API. Callers are the identity flows
// that issue and verify codes, holding HS256 tokens minted by
// service.OperatorTokenService with the same secret.
func RequireOperatorJWT(secret string) echo.MiddlewareFunc {
	tokens := service.NewOperatorTokenService(secret)
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: ContextKeyClaims,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return tokens.ParseToken(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			log.Warn().Err(err).Str("path", c.Path()).Msg("Rejected recovery API request")
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or missing bearer token")
		},
	})
}

// OperatorSubject returns the subject of the verified token, if any.
func OperatorSubject(c echo.Context) string {
	token, ok := c.Get(ContextKeyClaims).(*jwt.Token)
	if !ok {
		return ""
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

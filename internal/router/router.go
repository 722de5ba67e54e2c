package router

import (
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/handlers"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/middleware"

	"github.com/labstack/echo/v4"
)

func SetupRecoveryRoutes(e *echo.Echo, recoveryHandler *handlers.RecoveryHandler, jwtSecret string) {
	api := e.Group("/api/recovery", middleware.RequireOperatorJWT(jwtSecret))

	codes := api.Group("/codes")
	codes.POST("", recoveryHandler.Store)              // Store a freshly generated code
	codes.POST("/verify", recoveryHandler.Verify)      // Load by code and scenario
	codes.POST("/consume", recoveryHandler.Consume)    // Verify, then invalidate
	codes.GET("/:code", recoveryHandler.Lookup)        // Load by code only
	codes.DELETE("/:code", recoveryHandler.Invalidate) // Invalidate a single code

	users := api.Group("/users")
	users.POST("/latest", recoveryHandler.Latest)             // Newest code of a user, ?unchecked=true skips expiry
	users.POST("/invalidate", recoveryHandler.InvalidateUser) // Drop every code of a user
}

func SetupTenantConfigRoutes(e *echo.Echo, configHandler *handlers.TenantConfigHandler, jwtSecret string) {
	tenants := e.Group("/api/recovery/tenants", middleware.RequireOperatorJWT(jwtSecret))
	tenants.PUT("/:tenant/config/:key", configHandler.Set)
	tenants.DELETE("/:tenant/config/:key", configHandler.Delete)
}

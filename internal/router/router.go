// Package router builds the Echo router: global middleware, system routes
// and the versioned API routes with their access rules.
package router

import (
	"github.com/deppfellow/sitterbook/internal/handler"
	"github.com/deppfellow/sitterbook/internal/middleware"
	"github.com/deppfellow/sitterbook/internal/server"
	"github.com/deppfellow/sitterbook/internal/service"
	"github.com/labstack/echo/v4"
)

func NewRouter(s *server.Server, h *handler.Handlers, services *service.Services) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middlewares.RateLimit.Limit(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	registerSystemRoutes(router, h)

	v1 := router.Group("/api/v1")
	registerListingRoutes(v1.Group("/jobs"), h.Jobs.Routes(), middlewares.Auth, middleware.RoleParent)
	registerListingRoutes(v1.Group("/sitters"), h.Sitters.Routes(), middlewares.Auth, middleware.RoleSitter)

	return router
}

package router

import (
	"github.com/deppfellow/sitterbook/internal/handler"
	"github.com/deppfellow/sitterbook/internal/middleware"
	"github.com/labstack/echo/v4"
)

// registerListingRoutes mounts one listing resource. Browsing is public,
// liking needs any signed-in user, and managing the listing needs ownerRole.
func registerListingRoutes(g *echo.Group, r handler.ListingRoutes, auth *middleware.AuthMiddleware, ownerRole string) {
	g.GET("", r.List)
	g.GET("/user/:user_id", r.ByUser)

	owner := []echo.MiddlewareFunc{auth.RequireAuth, auth.RequireRole(ownerRole)}
	g.GET("/me", r.Mine, owner...)
	g.POST("", r.Save, owner...)
	g.DELETE("/user", r.Delete, owner...)

	g.PUT("/:id/like", r.Like, auth.RequireAuth)
	g.PUT("/:id/unlike", r.Unlike, auth.RequireAuth)
}

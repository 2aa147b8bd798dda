package middleware

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/deppfellow/sitterbook/internal/errs"
	"github.com/deppfellow/sitterbook/internal/server"
	"github.com/labstack/echo/v4"
)

// Roles a marketplace user can hold. They are Clerk organization roles,
// optionally written with Clerk's "org:" prefix.
const (
	RoleParent = "parent"
	RoleSitter = "sitter"
	RoleAdmin  = "admin"
)

// AuthMiddleware authenticates requests with Clerk session tokens.
type AuthMiddleware struct {
	server *server.Server
}

// NewAuthMiddleware constructs an AuthMiddleware.
func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
	}
}

// RequireAuth rejects requests without a valid Clerk bearer token and stores
// the caller's id, role and permissions on the Echo context.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return echo.WrapMiddleware(
		clerkhttp.WithHeaderAuthorization(
			clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(auth.writeUnauthorized)),
		))(
		func(c echo.Context) error {
			start := time.Now()

			claims, ok := clerk.SessionClaimsFromContext(c.Request().Context())
			if !ok {
				auth.server.Logger.Error().
					Str("function", "RequireAuth").
					Str("request_id", GetRequestID(c)).
					Dur("duration", time.Since(start)).
					Msg("could not get session claims from context")

				return errs.NewUnauthorizedError("Unauthorized", false)
			}

			c.Set(UserIDKey, claims.Subject)
			c.Set(UserRoleKey, normalizeRole(claims.ActiveOrganizationRole))
			c.Set(PermissionsKey, claims.Claims.ActiveOrganizationPermissions)

			auth.server.Logger.Debug().
				Str("function", "RequireAuth").
				Str("user_id", claims.Subject).
				Str("request_id", GetRequestID(c)).
				Dur("duration", time.Since(start)).
				Msg("user authenticated successfully")

			return next(c)
		})
}

// writeUnauthorized answers a missing or invalid token. It runs inside the
// Clerk net/http middleware, outside Echo's error handler.
func (auth *AuthMiddleware) writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	if err := json.NewEncoder(w).Encode(errs.NewUnauthorizedError("Unauthorized", false)); err != nil {
		auth.server.Logger.Error().
			Err(err).
			Str("function", "RequireAuth").
			Msg("failed to write JSON response")
		return
	}

	auth.server.Logger.Warn().
		Str("function", "RequireAuth").
		Str("path", r.URL.Path).
		Msg("rejected request without a valid session token")
}

// RequireRole allows the request only when the authenticated caller holds
// one of roles. It must run after RequireAuth.
func (auth *AuthMiddleware) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := GetUserRole(c)
			if !slices.Contains(roles, role) {
				GetLogger(c).Warn().
					Str("role", role).
					Strs("allowed_roles", roles).
					Msg("role not authorized")

				return errs.NewForbiddenError(
					"User role "+quoteRole(role)+" is not authorized to access this route", true,
				)
			}
			return next(c)
		}
	}
}

func normalizeRole(role string) string {
	return strings.TrimPrefix(role, "org:")
}

func quoteRole(role string) string {
	if role == "" {
		return "(none)"
	}
	return role
}

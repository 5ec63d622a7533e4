// Package router registers the HTTP routes. Each Register function owns
// one area of the API and attaches its own middleware.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/services-marketplace/internal/handler"
	"github.com/iliyamo/services-marketplace/internal/middleware"
	"github.com/iliyamo/services-marketplace/internal/model"
)

// RegisterRoutes registers the unauthenticated operational routes.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers account routes. Token exchange lives under
// /v1/auth; /v1/me needs a valid access token of either role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// logout takes either a refresh token or the bearer header, so no
	// JWT middleware here
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleProvider, model.RoleStaff),
	)
}

// Edge holds the Redis-backed middleware placed in front of public
// routes. Both may be pass-through.
type Edge struct {
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// RegisterPublic registers the catalogue and the reservation form. Reads
// go through the response cache; submissions through the rate limiter,
// keyed by user when a token is presented.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, edge Edge, jwtSecret string) {
	e.GET("/", p.Home, edge.Cache)
	e.GET("/v1/listings", p.Home, edge.Cache)
	e.GET("/v1/listings/:id", p.Detail, edge.Cache)
	e.POST("/v1/listings/:id/reservations", p.Reserve,
		middleware.OptionalJWT(jwtSecret),
		edge.RateLimit,
	)
}

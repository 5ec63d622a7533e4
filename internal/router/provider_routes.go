package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/services-marketplace/internal/handler"
	"github.com/iliyamo/services-marketplace/internal/middleware"
	"github.com/iliyamo/services-marketplace/internal/model"
)

// RegisterProvider registers PROVIDER-scoped endpoints under
// /v1/provider. Everything except the profile itself requires a saved
// profile.
func RegisterProvider(e *echo.Echo, h *handler.ProviderHandler, jwtSecret string) {
	g := e.Group(
		"/v1/provider",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleProvider),
	)

	// ---- Profile ----
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.SaveProfile)
	g.POST("/profile", h.SaveProfile)

	p := g.Group("", h.RequireProfile)
	p.GET("/dashboard", h.Dashboard)
	p.GET("/categories", h.ListingOptions)

	// ---- Listings ----
	p.POST("/listings", h.CreateListing)
	p.GET("/listings/:id", h.GetListing)
	p.PUT("/listings/:id", h.UpdateListing)
	p.DELETE("/listings/:id", h.DeleteListing)

	// ---- Reservations ----
	p.POST("/reservations/:id/status", h.UpdateReservationStatus)
}

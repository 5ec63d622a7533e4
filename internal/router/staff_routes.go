package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/services-marketplace/internal/handler"
	"github.com/iliyamo/services-marketplace/internal/middleware"
	"github.com/iliyamo/services-marketplace/internal/model"
)

// RegisterStaff registers the back-office under /v1/staff. All routes
// require a valid JWT and the STAFF role.
func RegisterStaff(e *echo.Echo, h *handler.StaffHandler, jwtSecret string) {
	g := e.Group(
		"/v1/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff),
	)

	g.GET("/dashboard", h.Dashboard)

	// ---- Categories ----
	g.GET("/categories", h.ListCategories)
	g.POST("/categories", h.CreateCategory)
	g.PUT("/categories/:id", h.UpdateCategory)
	g.PATCH("/categories/:id", h.UpdateCategory)
	g.DELETE("/categories/:id", h.DeleteCategory)

	// ---- Providers ----
	g.GET("/providers", h.ListProviders)

	// ---- Listings ----
	g.GET("/listings", h.ListListings)
	g.POST("/listings", h.CreateListing)
	g.PUT("/listings/:id", h.UpdateListing)
	g.PUT("/listings/:id/published", h.PublishListing)

	// ---- Reservations ----
	g.GET("/reservations", h.ListReservations)
	g.PUT("/reservations/:id/status", h.SetReservationStatus)

	// ---- Reviews ----
	g.GET("/reviews", h.ListReviews)
	g.POST("/reviews", h.CreateReview)
	g.PUT("/reviews/:id/visible", h.SetReviewVisible)
}

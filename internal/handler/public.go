package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/services-marketplace/internal/catalog"
	"github.com/iliyamo/services-marketplace/internal/model"
	"github.com/iliyamo/services-marketplace/internal/queue"
	"github.com/iliyamo/services-marketplace/internal/repository"
)

// Detail page limits.
const (
	detailReviews = 6
	detailSimilar = 6
)

type reserveReq struct {
	CustomerName  param `json:"customer_name" form:"customer_name"`
	CustomerPhone param `json:"customer_phone" form:"customer_phone"`
	Description   param `json:"description" form:"description"`
}

// PublicHandler serves the unauthenticated catalogue and the reservation
// form.
type PublicHandler struct {
	Listings     *repository.ListingRepo
	Reviews      *repository.ReviewRepo
	Reservations *repository.ReservationRepo
	Events       queue.Publisher
}

func NewPublicHandler(l *repository.ListingRepo, rv *repository.ReviewRepo, rs *repository.ReservationRepo, ev queue.Publisher) *PublicHandler {
	if l == nil || rv == nil || rs == nil || ev == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{Listings: l, Reviews: rv, Reservations: rs, Events: ev}
}

// Home handles GET / and GET /v1/listings: one card per category over
// the published listings matching `q` and `lieu` (or the older
// `adresse`).
func (h *PublicHandler) Home(c echo.Context) error {
	search := repository.ListingSearch{Query: c.QueryParam("q"), Location: c.QueryParam("lieu")}
	if search.Location == "" {
		search.Location = c.QueryParam("adresse")
	}
	listings, err := h.Listings.ListPublished(c.Request().Context(), search)
	if err != nil {
		return serverError(c, "failed to load listings", err)
	}
	groups := catalog.Dedupe(listings)
	return c.JSON(http.StatusOK, echo.Map{
		"items": groupViews(groups),
		"count": len(groups),
		"q":     search.Query,
		"lieu":  search.Location,
	})
}

// Detail handles GET /v1/listings/:id for published listings.
func (h *PublicHandler) Detail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "listing")
	}
	ctx := c.Request().Context()
	l, err := h.Listings.GetPublished(ctx, id)
	if errors.Is(err, repository.ErrListingNotFound) {
		return notFound(c, "listing")
	}
	if err != nil {
		return serverError(c, "failed to load listing", err)
	}
	reviews, err := h.Reviews.ListVisible(ctx, id, detailReviews)
	if err != nil {
		return serverError(c, "failed to load reviews", err)
	}
	stats, err := h.Reviews.Stats(ctx, id)
	if err != nil {
		return serverError(c, "failed to load reviews", err)
	}
	similar, err := h.Listings.ListSimilar(ctx, l, detailSimilar)
	if err != nil {
		return serverError(c, "failed to load similar listings", err)
	}

	rv := make([]reviewView, 0, len(reviews))
	for _, r := range reviews {
		rv = append(rv, newReviewView(r))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"listing":        newListingView(l),
		"reviews":        rv,
		"average_rating": stats.Average,
		"review_count":   stats.Count,
		"other_profiles": listingViews(similar),
	})
}

// Reserve handles POST /v1/listings/:id/reservations. Name and phone are
// required; the description is optional.
func (h *PublicHandler) Reserve(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "listing")
	}
	ctx := c.Request().Context()
	l, err := h.Listings.GetPublished(ctx, id)
	if errors.Is(err, repository.ErrListingNotFound) {
		return notFound(c, "listing")
	}
	if err != nil {
		return serverError(c, "failed to load listing", err)
	}

	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res := model.Reservation{
		ListingID:     l.ID,
		CustomerName:  req.CustomerName.String(),
		CustomerPhone: req.CustomerPhone.String(),
		Description:   req.Description.String(),
	}
	fe := fieldErrors{}
	if res.CustomerName == "" {
		fe.add("customer_name", msgRequired)
	} else if len(res.CustomerName) > 120 {
		fe.add("customer_name", msgInvalidValue)
	}
	if res.CustomerPhone == "" {
		fe.add("customer_phone", msgRequired)
	} else if len(res.CustomerPhone) > 20 {
		fe.add("customer_phone", msgInvalidValue)
	}
	if len(fe) > 0 {
		return validationFailed(c, fe)
	}

	if err := h.Reservations.Create(ctx, &res); err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return notFound(c, "listing")
		}
		return serverError(c, "failed to create reservation", err)
	}

	ev := queue.NewReservationEvent(queue.ReservationRequested)
	ev.ReservationID = res.ID
	ev.ListingID = l.ID
	ev.ListingName = l.DisplayName()
	ev.ProviderID = l.ProviderID
	ev.CustomerName = res.CustomerName
	ev.Status = res.Status
	publish(h.Events, ev)

	return c.JSON(http.StatusCreated, echo.Map{
		"id":         res.ID,
		"listing_id": res.ListingID,
		"status":     res.Status,
		"message":    "Votre demande a été envoyée. Le prestataire vous recontactera bientôt.",
	})
}

// publish sends ev in the background; a broker outage never fails the
// request that triggered it.
func publish(p queue.Publisher, ev queue.ReservationEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, ev); err != nil {
			log.Printf("events: %s for reservation %d not published: %v", ev.Type, ev.ReservationID, err)
		}
	}()
}

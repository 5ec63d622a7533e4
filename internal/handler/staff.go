package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/services-marketplace/internal/dashboard"
	"github.com/iliyamo/services-marketplace/internal/model"
	"github.com/iliyamo/services-marketplace/internal/queue"
	"github.com/iliyamo/services-marketplace/internal/repository"
	"github.com/iliyamo/services-marketplace/internal/status"
	"github.com/iliyamo/services-marketplace/internal/utils"
)

// categoryReq leaves a field nil when the client omitted it.
type categoryReq struct {
	Name   *param `json:"name" form:"name"`
	Active *param `json:"active" form:"active"`
}

type publishedReq struct {
	Published param `json:"published" form:"published"`
}

type reviewReq struct {
	ListingID    param  `json:"listing_id" form:"listing_id"`
	CustomerName param  `json:"customer_name" form:"customer_name"`
	Rating       param  `json:"rating" form:"rating"`
	Comment      param  `json:"comment" form:"comment"`
	Visible      *param `json:"visible" form:"visible"`
}

type visibleReq struct {
	Visible param `json:"visible" form:"visible"`
}

// StaffHandler serves the back-office. Routes are mounted behind
// RequireRole(STAFF).
type StaffHandler struct {
	Categories   *repository.CategoryRepo
	Providers    *repository.ProviderRepo
	Listings     *repository.ListingRepo
	Reservations *repository.ReservationRepo
	Reviews      *repository.ReviewRepo
	Board        *dashboard.Service
	Media        utils.MediaStore
	Events       queue.Publisher
}

// Dashboard handles GET /v1/staff/dashboard?service=&status=.
func (h *StaffHandler) Dashboard(c echo.Context) error {
	res, err := h.Board.Staff(c.Request().Context(), dashboard.Query{
		Service: c.QueryParam("service"),
		Status:  c.QueryParam("status"),
	})
	if err != nil {
		return serverError(c, "failed to load dashboard", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"rows":             dashboardRows(res.Rows),
		"service_options":  listingViews(res.ServiceOptions),
		"status_options":   status.Labels,
		"selected_service": selectedService(res.SelectedService),
		"selected_status":  res.SelectedStatus,
		"stats":            newStatsView(res.Counts),
		"total":            res.Total,
	})
}

// ----- categories -----

// ListCategories handles GET /v1/staff/categories?q=&active=.
func (h *StaffHandler) ListCategories(c echo.Context) error {
	cats, err := h.Categories.List(c.Request().Context(), repository.CategoryFilter{
		Active: optionalFlag(c.QueryParam("active")),
		Query:  c.QueryParam("q"),
	})
	if err != nil {
		return serverError(c, "failed to load categories", err)
	}
	out := make([]categoryView, 0, len(cats))
	for _, cat := range cats {
		out = append(out, newCategoryView(cat))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "count": len(out)})
}

func applyCategory(c echo.Context, cat *model.ServiceCategory, creating bool) (bool, error) {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if creating || req.Name != nil {
		cat.Name = ""
		if req.Name != nil {
			cat.Name = req.Name.String()
		}
		fe := fieldErrors{}
		requireField(fe, "name", cat.Name, 100)
		if len(fe) > 0 {
			return false, validationFailed(c, fe)
		}
	}
	switch {
	case req.Active != nil:
		cat.Active = req.Active.flag()
	case creating:
		cat.Active = true
	}
	return true, nil
}

// CreateCategory handles POST /v1/staff/categories. New categories are
// active unless `active` says otherwise.
func (h *StaffHandler) CreateCategory(c echo.Context) error {
	var cat model.ServiceCategory
	if ok, err := applyCategory(c, &cat, true); !ok {
		return err
	}
	err := h.Categories.Create(c.Request().Context(), &cat)
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "category name already exists"})
	}
	if err != nil {
		return serverError(c, "failed to create category", err)
	}
	return c.JSON(http.StatusCreated, newCategoryView(cat))
}

// UpdateCategory handles PUT /v1/staff/categories/:id. Omitted fields
// keep their value.
func (h *StaffHandler) UpdateCategory(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "category")
	}
	ctx := c.Request().Context()
	cat, err := h.Categories.GetByID(ctx, id)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return notFound(c, "category")
	}
	if err != nil {
		return serverError(c, "failed to load category", err)
	}
	if ok, err := applyCategory(c, &cat, false); !ok {
		return err
	}
	err = h.Categories.Update(ctx, cat)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "category name already exists"})
	case errors.Is(err, repository.ErrCategoryNotFound):
		return notFound(c, "category")
	case err != nil:
		return serverError(c, "failed to update category", err)
	}
	return c.JSON(http.StatusOK, newCategoryView(cat))
}

// DeleteCategory handles DELETE /v1/staff/categories/:id. Categories in
// use by a listing cannot be deleted.
func (h *StaffHandler) DeleteCategory(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "category")
	}
	err := h.Categories.Delete(c.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "category is used by listings"})
	case errors.Is(err, repository.ErrCategoryNotFound):
		return notFound(c, "category")
	case err != nil:
		return serverError(c, "failed to delete category", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- providers -----

// ListProviders handles GET /v1/staff/providers?q=.
func (h *StaffHandler) ListProviders(c echo.Context) error {
	ps, err := h.Providers.List(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return serverError(c, "failed to load providers", err)
	}
	out := make([]providerView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProviderView(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "count": len(out)})
}

// ----- listings -----

// ListListings handles GET /v1/staff/listings?published=&category=&provider=&q=.
func (h *StaffHandler) ListListings(c echo.Context) error {
	ls, err := h.Listings.List(c.Request().Context(), repository.ListingFilter{
		Published:  optionalFlag(c.QueryParam("published")),
		CategoryID: queryID(c, "category"),
		ProviderID: queryID(c, "provider"),
		Query:      c.QueryParam("q"),
	})
	if err != nil {
		return serverError(c, "failed to load listings", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": listingViews(ls), "count": len(ls)})
}

// CreateListing handles POST /v1/staff/listings on behalf of any
// provider named by `provider_id`.
func (h *StaffHandler) CreateListing(c echo.Context) error {
	ctx := c.Request().Context()
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	pid, _ := strconv.ParseUint(req.ProviderID.String(), 10, 64)
	if _, err := h.Providers.GetByID(ctx, pid); err != nil {
		if errors.Is(err, repository.ErrProviderNotFound) {
			return validationFailed(c, fieldErrors{"provider_id": msgRequired})
		}
		return serverError(c, "failed to load provider", err)
	}
	l := model.Listing{ProviderID: pid}
	if ok, err := applyListing(c, req, h.Categories, h.Media, &l); !ok {
		return err
	}
	if err := h.Listings.Create(ctx, &l); err != nil {
		return serverError(c, "failed to create listing", err)
	}
	created, err := h.Listings.GetByID(ctx, l.ID)
	if err != nil {
		return serverError(c, "failed to load listing", err)
	}
	return c.JSON(http.StatusCreated, newListingView(created))
}

// UpdateListing handles PUT /v1/staff/listings/:id.
func (h *StaffHandler) UpdateListing(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "listing")
	}
	ctx := c.Request().Context()
	l, err := h.Listings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrListingNotFound) {
		return notFound(c, "listing")
	}
	if err != nil {
		return serverError(c, "failed to load listing", err)
	}
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	l.Image = nil
	if ok, err := applyListing(c, req, h.Categories, h.Media, &l); !ok {
		return err
	}
	if err := h.Listings.Update(ctx, &l); err != nil {
		return serverError(c, "failed to update listing", err)
	}
	updated, err := h.Listings.GetByID(ctx, id)
	if err != nil {
		return serverError(c, "failed to load listing", err)
	}
	return c.JSON(http.StatusOK, newListingView(updated))
}

// PublishListing handles PUT /v1/staff/listings/:id/published with a
// `published` flag.
func (h *StaffHandler) PublishListing(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "listing")
	}
	var req publishedReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	published := req.Published.flag()
	err := h.Listings.SetPublished(c.Request().Context(), id, published)
	if errors.Is(err, repository.ErrListingNotFound) {
		return notFound(c, "listing")
	}
	if err != nil {
		return serverError(c, "failed to update listing", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "published": published})
}

// ----- reservations -----

// ListReservations handles GET /v1/staff/reservations?status=&category=&q=.
// The status filter compares the stored text exactly.
func (h *StaffHandler) ListReservations(c echo.Context) error {
	rows, err := h.Reservations.List(c.Request().Context(), repository.ReservationFilter{
		RawStatus:  c.QueryParam("status"),
		CategoryID: queryID(c, "category"),
		Query:      c.QueryParam("q"),
	})
	if err != nil {
		return serverError(c, "failed to load reservations", err)
	}
	out := make([]reservationView, 0, len(rows))
	for _, r := range rows {
		out = append(out, newReservationView(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "count": len(out)})
}

// SetReservationStatus handles PUT /v1/staff/reservations/:id/status.
// Staff may store any text; readers canonicalize it.
func (h *StaffHandler) SetReservationStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "reservation")
	}
	ctx := c.Request().Context()
	r, err := h.Reservations.Get(ctx, id)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return notFound(c, "reservation")
	}
	if err != nil {
		return serverError(c, "failed to load reservation", err)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	value := req.Status.String()
	fe := fieldErrors{}
	requireField(fe, "status", value, 50)
	if len(fe) > 0 {
		return validationFailed(c, fe)
	}
	if err := h.Reservations.UpdateStatus(ctx, id, value); err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return notFound(c, "reservation")
		}
		return serverError(c, "failed to update status", err)
	}

	ev := queue.NewReservationEvent(queue.ReservationStatusChanged)
	ev.ReservationID = r.ID
	ev.ListingID = r.ListingID
	ev.ListingName = r.DisplayName()
	ev.ProviderID = r.ProviderID
	ev.CustomerName = r.CustomerName
	ev.Previous = r.Status
	ev.Status = value
	ev.ChangedBy = "staff"
	publish(h.Events, ev)

	label := status.Extended.CanonicalOr(value, status.Waiting)
	return c.JSON(http.StatusOK, echo.Map{
		"id":           id,
		"raw_status":   value,
		"status":       label,
		"status_class": status.Class(label),
	})
}

// ----- reviews -----

// ListReviews handles GET /v1/staff/reviews?visible=&rating=&category=&q=.
func (h *StaffHandler) ListReviews(c echo.Context) error {
	rating, _ := strconv.ParseUint(c.QueryParam("rating"), 10, 8)
	rows, err := h.Reviews.List(c.Request().Context(), repository.ReviewFilter{
		Visible:    optionalFlag(c.QueryParam("visible")),
		Rating:     uint8(rating),
		CategoryID: queryID(c, "category"),
		Query:      c.QueryParam("q"),
	})
	if err != nil {
		return serverError(c, "failed to load reviews", err)
	}
	out := make([]reviewView, 0, len(rows))
	for _, r := range rows {
		v := newReviewView(r.Review)
		v.ListingName = r.ListingName
		if r.CategoryName != nil {
			v.ListingName = *r.CategoryName
		}
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "count": len(out)})
}

// CreateReview handles POST /v1/staff/reviews for a listing.
func (h *StaffHandler) CreateReview(c echo.Context) error {
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	listingID, _ := strconv.ParseUint(req.ListingID.String(), 10, 64)
	rating, rerr := strconv.ParseUint(req.Rating.String(), 10, 8)
	rv := model.Review{
		ListingID:    listingID,
		CustomerName: req.CustomerName.String(),
		Rating:       uint8(rating),
		Comment:      req.Comment.String(),
		Visible:      req.Visible == nil || req.Visible.flag(),
	}
	fe := fieldErrors{}
	if listingID == 0 {
		fe.add("listing_id", msgRequired)
	}
	requireField(fe, "customer_name", rv.CustomerName, 120)
	if rerr != nil || rv.Validate() != nil {
		fe.add("rating", model.ErrInvalidRating.Error())
	}
	if len(fe) > 0 {
		return validationFailed(c, fe)
	}
	err := h.Reviews.Create(c.Request().Context(), &rv)
	if errors.Is(err, repository.ErrListingNotFound) {
		return validationFailed(c, fieldErrors{"listing_id": msgInvalidValue})
	}
	if err != nil {
		return serverError(c, "failed to create review", err)
	}
	return c.JSON(http.StatusCreated, newReviewView(rv))
}

// SetReviewVisible handles PUT /v1/staff/reviews/:id/visible.
func (h *StaffHandler) SetReviewVisible(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "review")
	}
	var req visibleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	visible := req.Visible.flag()
	err := h.Reviews.SetVisible(c.Request().Context(), id, visible)
	if errors.Is(err, repository.ErrReviewNotFound) {
		return notFound(c, "review")
	}
	if err != nil {
		return serverError(c, "failed to update review", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "visible": visible})
}

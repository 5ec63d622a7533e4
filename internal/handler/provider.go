package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/services-marketplace/internal/dashboard"
	"github.com/iliyamo/services-marketplace/internal/model"
	"github.com/iliyamo/services-marketplace/internal/queue"
	"github.com/iliyamo/services-marketplace/internal/repository"
	"github.com/iliyamo/services-marketplace/internal/status"
	"github.com/iliyamo/services-marketplace/internal/utils"
)

// ProfilePath is where providers without a profile are sent.
const ProfilePath = "/v1/provider/profile"

const ctxProvider = "provider"

type profileReq struct {
	CompanyName param `json:"company_name" form:"company_name"`
	Address     param `json:"address" form:"address"`
	Phone       param `json:"phone" form:"phone"`
}

// listingReq is the listing form shared by providers and staff.
// ProviderID is only read on the staff side.
type listingReq struct {
	ProviderID  param `json:"provider_id" form:"provider_id"`
	CategoryID  param `json:"category_id" form:"category_id"`
	Description param `json:"description" form:"description"`
	Price       param `json:"price" form:"price"`
	Address     param `json:"address" form:"address"`
	Published   param `json:"published" form:"published"`
}

type statusReq struct {
	Status param `json:"status" form:"status"`
}

// ProviderHandler serves the provider self-service area. Every route
// except the profile ones runs behind RequireProfile.
type ProviderHandler struct {
	Providers    *repository.ProviderRepo
	Categories   *repository.CategoryRepo
	Listings     *repository.ListingRepo
	Reservations *repository.ReservationRepo
	Board        *dashboard.Service
	Media        utils.MediaStore
	Events       queue.Publisher
}

// RequireProfile loads the caller's provider profile into the context,
// or redirects to the profile form when there is none.
func (h *ProviderHandler) RequireProfile(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := currentUser(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		p, err := h.Providers.GetByUserID(c.Request().Context(), uid)
		if errors.Is(err, repository.ErrProviderNotFound) {
			return c.Redirect(http.StatusSeeOther, ProfilePath)
		}
		if err != nil {
			return serverError(c, "failed to load profile", err)
		}
		c.Set(ctxProvider, p)
		return next(c)
	}
}

func providerFrom(c echo.Context) model.Provider {
	p, _ := c.Get(ctxProvider).(model.Provider)
	return p
}

// GetProfile handles GET /v1/provider/profile. has_profile is false until
// the form has been submitted once.
func (h *ProviderHandler) GetProfile(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, err := h.Providers.GetByUserID(c.Request().Context(), uid)
	if errors.Is(err, repository.ErrProviderNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"has_profile": false, "profile": nil})
	}
	if err != nil {
		return serverError(c, "failed to load profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"has_profile": true, "profile": newProviderView(p)})
}

// SaveProfile handles PUT /v1/provider/profile. It accepts a multipart
// form with an optional `photo` file.
func (h *ProviderHandler) SaveProfile(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := model.Provider{
		UserID:      uid,
		CompanyName: req.CompanyName.String(),
		Address:     req.Address.String(),
		Phone:       req.Phone.String(),
	}
	fe := fieldErrors{}
	requireField(fe, "company_name", p.CompanyName, 100)
	requireField(fe, "address", p.Address, 255)
	requireField(fe, "phone", p.Phone, 20)
	if len(fe) > 0 {
		return validationFailed(c, fe)
	}
	if ref, ok, err := h.upload(c, "photo", "providers"); err != nil {
		return uploadFailed(c, "photo", err)
	} else if ok {
		p.Photo = &ref
	}

	ctx := c.Request().Context()
	if err := h.Providers.Save(ctx, &p); err != nil {
		return serverError(c, "failed to save profile", err)
	}
	saved, err := h.Providers.GetByID(ctx, p.ID)
	if err != nil {
		return serverError(c, "failed to load profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"has_profile": true, "profile": newProviderView(saved)})
}

// Dashboard handles GET /v1/provider/dashboard?service=&status=.
func (h *ProviderHandler) Dashboard(c echo.Context) error {
	p := providerFrom(c)
	res, err := h.Board.Provider(c.Request().Context(), p.ID, dashboard.Query{
		Service: c.QueryParam("service"),
		Status:  c.QueryParam("status"),
	})
	if err != nil {
		return serverError(c, "failed to load dashboard", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"provider":         newProviderView(p),
		"listings":         listingViews(res.Listings),
		"rows":             dashboardRows(res.Rows),
		"status_options":   status.Labels,
		"selected_service": selectedService(res.SelectedService),
		"selected_status":  res.SelectedStatus,
		"stats": echo.Map{
			"listings_total":     res.ListingsTotal,
			"listings_published": res.ListingsPublished,
			"requests_total":     res.Total,
			"waiting":            res.Counts[status.Waiting],
			"in_progress":        res.Counts[status.InProgress],
		},
	})
}

// ListingOptions handles GET /v1/provider/categories: the active
// categories a listing can be filed under.
func (h *ProviderHandler) ListingOptions(c echo.Context) error {
	active := true
	cats, err := h.Categories.List(c.Request().Context(), repository.CategoryFilter{Active: &active})
	if err != nil {
		return serverError(c, "failed to load categories", err)
	}
	out := make([]categoryView, 0, len(cats))
	for _, cat := range cats {
		out = append(out, newCategoryView(cat))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetListing handles GET /v1/provider/listings/:id.
func (h *ProviderHandler) GetListing(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "listing")
	}
	l, err := h.Listings.GetForProvider(c.Request().Context(), id, providerFrom(c).ID)
	if errors.Is(err, repository.ErrListingNotFound) {
		return notFound(c, "listing")
	}
	if err != nil {
		return serverError(c, "failed to load listing", err)
	}
	return c.JSON(http.StatusOK, newListingView(l))
}

// CreateListing handles POST /v1/provider/listings.
func (h *ProviderHandler) CreateListing(c echo.Context) error {
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	l := model.Listing{ProviderID: providerFrom(c).ID}
	if ok, err := applyListing(c, req, h.Categories, h.Media, &l); !ok {
		return err
	}
	if err := h.Listings.Create(c.Request().Context(), &l); err != nil {
		return serverError(c, "failed to create listing", err)
	}
	return c.JSON(http.StatusCreated, newListingView(l))
}

// UpdateListing handles PUT /v1/provider/listings/:id for the caller's
// own listings.
func (h *ProviderHandler) UpdateListing(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "listing")
	}
	ctx := c.Request().Context()
	l, err := h.Listings.GetForProvider(ctx, id, providerFrom(c).ID)
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
	updated, err := h.Listings.GetByID(ctx, l.ID)
	if err != nil {
		return serverError(c, "failed to load listing", err)
	}
	return c.JSON(http.StatusOK, newListingView(updated))
}

// DeleteListing handles DELETE /v1/provider/listings/:id. Reservations
// and reviews of the listing go with it.
func (h *ProviderHandler) DeleteListing(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "listing")
	}
	err := h.Listings.DeleteForProvider(c.Request().Context(), id, providerFrom(c).ID)
	switch {
	case errors.Is(err, repository.ErrListingNotFound), errors.Is(err, repository.ErrForbidden):
		return notFound(c, "listing")
	case err != nil:
		return serverError(c, "failed to delete listing", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateReservationStatus handles POST /v1/provider/reservations/:id/status.
// The submitted text must name one of the canonical statuses; the label
// itself is stored.
func (h *ProviderHandler) UpdateReservationStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return notFound(c, "reservation")
	}
	p := providerFrom(c)
	ctx := c.Request().Context()
	r, err := h.Reservations.GetForProvider(ctx, id, p.ID)
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
	label := status.Default.Canonical(req.Status.String())
	if label == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	err = h.Reservations.UpdateStatusForProvider(ctx, id, p.ID, label)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return notFound(c, "reservation")
	}
	if err != nil {
		return serverError(c, "failed to update status", err)
	}

	ev := queue.NewReservationEvent(queue.ReservationStatusChanged)
	ev.ReservationID = r.ID
	ev.ListingID = r.ListingID
	ev.ListingName = r.DisplayName()
	ev.ProviderID = p.ID
	ev.CustomerName = r.CustomerName
	ev.Previous = r.Status
	ev.Status = label
	ev.ChangedBy = "provider:" + strconv.FormatUint(p.ID, 10)
	publish(h.Events, ev)

	return c.JSON(http.StatusOK, echo.Map{
		"id":           r.ID,
		"status":       label,
		"status_class": status.Class(label),
	})
}

func (h *ProviderHandler) upload(c echo.Context, field, folder string) (string, bool, error) {
	return saveUpload(c, h.Media, field, folder)
}

// applyListing validates req and copies it, with an optional uploaded
// image, into l. When ok is false the response has already been written
// and err is what the handler returns.
func applyListing(c echo.Context, req listingReq, cats *repository.CategoryRepo, media utils.MediaStore, l *model.Listing) (ok bool, err error) {
	fe := fieldErrors{}

	cat, err := resolveCategory(c, cats, req.CategoryID.String())
	if err != nil && !errors.Is(err, model.ErrCategoryRequired) {
		return false, serverError(c, "failed to load category", err)
	}
	if err != nil {
		fe.add("category_id", model.CategoryRequiredMessage)
	}

	l.Description = req.Description.String()
	requireField(fe, "description", l.Description, 0)
	price, perr := decimal.NewFromString(req.Price.String())
	switch {
	case req.Price.String() == "":
		fe.add("price", msgRequired)
	case perr != nil || price.IsNegative() || price.GreaterThanOrEqual(decimal.New(1, 8)):
		fe.add("price", msgInvalidPrice)
	default:
		l.Price = price
	}
	l.Address = req.Address.String()
	requireField(fe, "address", l.Address, 255)
	l.Published = req.Published.flag()
	if len(fe) > 0 {
		return false, validationFailed(c, fe)
	}

	l.AttachCategory(cat)
	ref, uploaded, err := saveUpload(c, media, "image", "listings")
	if err != nil {
		return false, uploadFailed(c, "image", err)
	}
	if uploaded {
		l.Image = &ref
	}
	return true, nil
}

// resolveCategory parses and loads the selected category. Anything that
// does not resolve to an active category is ErrCategoryRequired.
func resolveCategory(c echo.Context, cats *repository.CategoryRepo, raw string) (model.ServiceCategory, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return model.ServiceCategory{}, model.ErrCategoryRequired
	}
	cat, err := cats.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return model.ServiceCategory{}, model.ErrCategoryRequired
	}
	if err != nil {
		return model.ServiceCategory{}, err
	}
	if !cat.Active {
		return model.ServiceCategory{}, model.ErrCategoryRequired
	}
	return cat, nil
}

func requireField(fe fieldErrors, field, value string, maxLen int) {
	switch {
	case value == "":
		fe.add(field, msgRequired)
	case maxLen > 0 && len(value) > maxLen:
		fe.add(field, msgInvalidValue)
	}
}

// saveUpload stores the optional file `field`. ok is false when the
// request carries no such file.
func saveUpload(c echo.Context, media utils.MediaStore, field, folder string) (string, bool, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", false, nil
	}
	ref, err := media.Save(fh, folder)
	if err != nil {
		return "", false, err
	}
	return ref, true, nil
}

func uploadFailed(c echo.Context, field string, err error) error {
	if errors.Is(err, utils.ErrUploadType) || errors.Is(err, utils.ErrUploadTooLarge) {
		return validationFailed(c, fieldErrors{field: err.Error()})
	}
	return serverError(c, "failed to store upload", err)
}

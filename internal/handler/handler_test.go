package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/services-marketplace/internal/config"
	"github.com/iliyamo/services-marketplace/internal/dashboard"
	"github.com/iliyamo/services-marketplace/internal/middleware"
	"github.com/iliyamo/services-marketplace/internal/model"
	"github.com/iliyamo/services-marketplace/internal/queue"
	"github.com/iliyamo/services-marketplace/internal/repository"
	"github.com/iliyamo/services-marketplace/internal/testutil"
	"github.com/iliyamo/services-marketplace/internal/utils"
)

const testSecret = "handler-test-secret"

// recorder collects published events; publish runs in a goroutine.
type recorder struct{ ch chan queue.ReservationEvent }

func (r *recorder) Publish(_ context.Context, ev queue.ReservationEvent) error {
	r.ch <- ev
	return nil
}

func (r *recorder) next(t *testing.T) queue.ReservationEvent {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
	return queue.ReservationEvent{}
}

type harness struct {
	e          *echo.Echo
	users      *repository.UserRepo
	providers  *repository.ProviderRepo
	categories *repository.CategoryRepo
	listings   *repository.ListingRepo
	reviews    *repository.ReviewRepo
	res        *repository.ReservationRepo
	events     *recorder
}

func newHarness(t *testing.T) *harness {
	db := testutil.NewDB(t)
	h := &harness{
		users:      repository.NewUserRepo(db),
		providers:  repository.NewProviderRepo(db),
		categories: repository.NewCategoryRepo(db),
		listings:   repository.NewListingRepo(db),
		reviews:    repository.NewReviewRepo(db),
		res:        repository.NewReservationRepo(db),
		events:     &recorder{ch: make(chan queue.ReservationEvent, 16)},
	}
	board := dashboard.NewService(h.res, h.listings)
	media := utils.MediaStore{Dir: t.TempDir(), MaxBytes: 1 << 20}
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost}

	e := echo.New()
	auth := NewAuthHandler(cfg, h.users, repository.NewTokenRepo(db))
	e.POST("/v1/auth/register", auth.Register)
	e.POST("/v1/auth/login", auth.Login)
	e.POST("/v1/auth/refresh", auth.Refresh)
	e.GET("/v1/me", auth.Me, middleware.JWTAuth(testSecret))

	pub := NewPublicHandler(h.listings, h.reviews, h.res, h.events)
	e.GET("/v1/listings", pub.Home)
	e.GET("/v1/listings/:id", pub.Detail)
	e.POST("/v1/listings/:id/reservations", pub.Reserve)

	ph := &ProviderHandler{
		Providers: h.providers, Categories: h.categories, Listings: h.listings,
		Reservations: h.res, Board: board, Media: media, Events: h.events,
	}
	pg := e.Group("/v1/provider", middleware.JWTAuth(testSecret), middleware.RequireRole(model.RoleProvider))
	pg.GET("/profile", ph.GetProfile)
	pg.PUT("/profile", ph.SaveProfile)
	pp := pg.Group("", ph.RequireProfile)
	pp.GET("/dashboard", ph.Dashboard)
	pp.POST("/listings", ph.CreateListing)
	pp.PUT("/listings/:id", ph.UpdateListing)
	pp.DELETE("/listings/:id", ph.DeleteListing)
	pp.POST("/reservations/:id/status", ph.UpdateReservationStatus)

	sh := &StaffHandler{
		Categories: h.categories, Providers: h.providers, Listings: h.listings, Reservations: h.res,
		Reviews: h.reviews, Board: board, Media: media, Events: h.events,
	}
	sg := e.Group("/v1/staff", middleware.JWTAuth(testSecret), middleware.RequireRole(model.RoleStaff))
	sg.GET("/dashboard", sh.Dashboard)
	sg.GET("/categories", sh.ListCategories)
	sg.POST("/categories", sh.CreateCategory)
	sg.PUT("/categories/:id", sh.UpdateCategory)
	sg.DELETE("/categories/:id", sh.DeleteCategory)
	sg.GET("/providers", sh.ListProviders)
	sg.GET("/listings", sh.ListListings)
	sg.POST("/listings", sh.CreateListing)
	sg.PUT("/listings/:id", sh.UpdateListing)
	sg.PUT("/listings/:id/published", sh.PublishListing)
	sg.GET("/reservations", sh.ListReservations)
	sg.PUT("/reservations/:id/status", sh.SetReservationStatus)
	sg.POST("/reviews", sh.CreateReview)
	sg.GET("/reviews", sh.ListReviews)

	h.e = e
	return h
}

func (h *harness) do(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

// doForm sends values as an urlencoded body, the way an HTML form posts.
func (h *harness) doForm(t *testing.T, method, target string, values url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (h *harness) account(t *testing.T, username, role string) (uint64, string) {
	t.Helper()
	uid, err := h.users.Create(context.Background(), repository.NewUser{
		Username: username, Email: username + "@example.com", Password: "secret123", Role: role,
	}, bcrypt.MinCost)
	require.NoError(t, err)
	tok, err := utils.NewAccessToken(testSecret, uid, role, 15)
	require.NoError(t, err)
	return uid, tok.Token
}

func (h *harness) provider(t *testing.T, username string) (model.Provider, string) {
	t.Helper()
	uid, token := h.account(t, username, model.RoleProvider)
	p := model.Provider{UserID: uid, CompanyName: username + " SARL", Address: "3 place Bellecour", Phone: "0478000000"}
	require.NoError(t, h.providers.Save(context.Background(), &p))
	return p, token
}

func (h *harness) category(t *testing.T, name string, active bool) model.ServiceCategory {
	t.Helper()
	c := model.ServiceCategory{Name: name, Active: active}
	require.NoError(t, h.categories.Create(context.Background(), &c))
	return c
}

func (h *harness) listing(t *testing.T, p model.Provider, cat *model.ServiceCategory, name string, published bool) model.Listing {
	t.Helper()
	l := model.Listing{ProviderID: p.ID, Name: name, Description: "intervention rapide",
		Price: decimal.RequireFromString("35.00"), Published: published, Address: "Lyon 3e"}
	if cat != nil {
		l.AttachCategory(*cat)
	}
	require.NoError(t, h.listings.Create(context.Background(), &l))
	return l
}

func (h *harness) reservation(t *testing.T, l model.Listing) model.Reservation {
	t.Helper()
	r := model.Reservation{ListingID: l.ID, CustomerName: "Paul", CustomerPhone: "0611223344", Description: "devis"}
	require.NoError(t, h.res.Create(context.Background(), &r))
	return r
}

func itoa(v uint64) string { return strconv.FormatUint(v, 10) }

// ----- public -----

func TestHomeGroupsListingsByCategory(t *testing.T) {
	h := newHarness(t)
	a, _ := h.provider(t, "alice")
	b, _ := h.provider(t, "bob")
	plomberie := h.category(t, "Plomberie", true)
	h.listing(t, a, &plomberie, "", true)
	h.listing(t, b, &plomberie, "", true)
	h.listing(t, b, nil, "Jardinage", true)
	h.listing(t, a, nil, "Peinture", false)

	rec := h.do(t, http.MethodGet, "/v1/listings", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["count"])

	counts := map[string]float64{}
	for _, it := range body["items"].([]any) {
		item := it.(map[string]any)
		counts[item["display_name"].(string)] = item["profile_count"].(float64)
	}
	assert.Equal(t, map[string]float64{"Plomberie": 2, "Jardinage": 1}, counts)

	rec = h.do(t, http.MethodGet, "/v1/listings?q=jardin", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
}

func TestDetail(t *testing.T) {
	h := newHarness(t)
	a, _ := h.provider(t, "alice")
	b, _ := h.provider(t, "bob")
	cat := h.category(t, "Serrurerie", true)
	l := h.listing(t, a, &cat, "", true)
	h.listing(t, b, &cat, "", true)
	hidden := h.listing(t, b, nil, "Brouillon", false)

	ctx := context.Background()
	for _, rv := range []model.Review{
		{ListingID: l.ID, CustomerName: "A", Rating: 4, Visible: true},
		{ListingID: l.ID, CustomerName: "B", Rating: 5, Visible: true},
		{ListingID: l.ID, CustomerName: "C", Rating: 1, Visible: false},
	} {
		rv := rv
		require.NoError(t, h.reviews.Create(ctx, &rv))
	}

	rec := h.do(t, http.MethodGet, "/v1/listings/"+itoa(l.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["review_count"])
	assert.InDelta(t, 4.5, body["average_rating"], 0.001)
	assert.Len(t, body["reviews"], 2)
	assert.Len(t, body["other_profiles"], 1)
	assert.Equal(t, "Serrurerie", body["listing"].(map[string]any)["display_name"])

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/v1/listings/"+itoa(hidden.ID), nil, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/v1/listings/abc", nil, "").Code)
}

func TestReserve(t *testing.T) {
	h := newHarness(t)
	a, _ := h.provider(t, "alice")
	cat := h.category(t, "Plomberie", true)
	l := h.listing(t, a, &cat, "", true)
	draft := h.listing(t, a, nil, "Brouillon", false)
	target := "/v1/listings/" + itoa(l.ID) + "/reservations"

	rec := h.do(t, http.MethodPost, target, map[string]string{"description": "fuite"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decode(t, rec)["errors"].(map[string]any)
	assert.Equal(t, msgRequired, errs["customer_name"])
	assert.Equal(t, msgRequired, errs["customer_phone"])

	rec = h.do(t, http.MethodPost, target, map[string]string{
		"customer_name": "Claire", "customer_phone": "0600000000", "description": "fuite urgente",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, model.DefaultReservationStatus, body["status"])

	ev := h.events.next(t)
	assert.Equal(t, queue.ReservationRequested, ev.Type)
	assert.Equal(t, l.ID, ev.ListingID)
	assert.Equal(t, a.ID, ev.ProviderID)
	assert.Equal(t, "Plomberie", ev.ListingName)
	assert.Equal(t, "Claire", ev.CustomerName)

	rec = h.do(t, http.MethodPost, "/v1/listings/"+itoa(draft.ID)+"/reservations", map[string]string{
		"customer_name": "Claire", "customer_phone": "0600000000",
	}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ----- auth -----

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)
	reg := map[string]string{"username": "lea", "email": "lea@example.com", "password": "motdepasse"}

	rec := h.do(t, http.MethodPost, "/v1/auth/register", reg, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, ProfilePath, body["next"])
	assert.Equal(t, model.RoleProvider, body["user"].(map[string]any)["role"])

	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/v1/auth/register", reg, "").Code)

	rec = h.do(t, http.MethodPost, "/v1/auth/register",
		map[string]string{"username": "x", "email": "not-an-email", "password": "short"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decode(t, rec)["errors"].(map[string]any)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")

	rec = h.do(t, http.MethodPost, "/v1/auth/login",
		map[string]string{"login": "lea@example.com", "password": "motdepasse", "next": "//evil.example"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, providerHome, body["next"])
	access := body["access"].(map[string]any)["token"].(string)
	refresh := body["refresh"].(map[string]any)["token"].(string)

	rec = h.do(t, http.MethodGet, "/v1/me", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lea", decode(t, rec)["user"].(map[string]any)["username"])

	rec = h.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	// rotated: the old token is spent
	rec = h.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"login": "lea", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSafeNext(t *testing.T) {
	cases := []struct {
		next, role, want string
	}{
		{"/v1/provider/listings", model.RoleProvider, "/v1/provider/listings"},
		{"", model.RoleProvider, providerHome},
		{"", model.RoleStaff, staffHome},
		{"https://evil.example/", model.RoleStaff, staffHome},
		{"//evil.example", model.RoleProvider, providerHome},
		{"/\\evil.example", model.RoleProvider, providerHome},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, safeNext(tc.next, tc.role), tc.next)
	}
}

// ----- provider -----

func TestProviderWithoutProfileIsRedirected(t *testing.T) {
	h := newHarness(t)
	_, token := h.account(t, "nouveau", model.RoleProvider)

	rec := h.do(t, http.MethodGet, "/v1/provider/dashboard", nil, token)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, ProfilePath, rec.Header().Get(echo.HeaderLocation))

	rec = h.do(t, http.MethodGet, "/v1/provider/profile", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["has_profile"])
}

func TestSaveProfileWithPhoto(t *testing.T) {
	h := newHarness(t)
	_, token := h.account(t, "nouveau", model.RoleProvider)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("company_name", "Nouveau Services"))
	require.NoError(t, mw.WriteField("address", "10 rue Victor Hugo"))
	require.NoError(t, mw.WriteField("phone", "0401020304"))
	fw, err := mw.CreateFormFile("photo", "portrait.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/v1/provider/profile", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	profile := decode(t, rec)["profile"].(map[string]any)
	assert.Equal(t, "Nouveau Services", profile["company_name"])
	assert.Regexp(t, `^providers/[0-9a-f]{32}\.png$`, profile["photo"])

	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/v1/provider/dashboard", nil, token).Code)
}

func TestCreateListingRequiresActiveCategory(t *testing.T) {
	h := newHarness(t)
	_, token := h.provider(t, "alice")
	active := h.category(t, "Plomberie", true)
	retired := h.category(t, "Ramonage", false)

	form := func(category string) map[string]string {
		return map[string]string{
			"category_id": category, "description": "depannage", "price": "49.9",
			"address": "Villeurbanne", "published": "on",
		}
	}
	for _, category := range []string{"", "abc", itoa(retired.ID), "999"} {
		rec := h.do(t, http.MethodPost, "/v1/provider/listings", form(category), token)
		require.Equal(t, http.StatusBadRequest, rec.Code, category)
		errs := decode(t, rec)["errors"].(map[string]any)
		assert.Equal(t, model.CategoryRequiredMessage, errs["category_id"], category)
	}

	bad := form(itoa(active.ID))
	bad["price"] = "gratuit"
	rec := h.do(t, http.MethodPost, "/v1/provider/listings", bad, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidPrice, decode(t, rec)["errors"].(map[string]any)["price"])

	rec = h.do(t, http.MethodPost, "/v1/provider/listings", form(itoa(active.ID)), token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Plomberie", body["name"])
	assert.Equal(t, "49.90", body["price"])
	assert.Equal(t, true, body["published"])
}

func TestProviderListingsAreScoped(t *testing.T) {
	h := newHarness(t)
	a, tokenA := h.provider(t, "alice")
	_, tokenB := h.provider(t, "bob")
	cat := h.category(t, "Plomberie", true)
	l := h.listing(t, a, &cat, "", true)
	h.reservation(t, l)

	update := map[string]string{"category_id": itoa(cat.ID), "description": "x", "price": "10", "address": "Lyon"}
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPut, "/v1/provider/listings/"+itoa(l.ID), update, tokenB).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/v1/provider/listings/"+itoa(l.ID), nil, tokenB).Code)

	rec := h.do(t, http.MethodPut, "/v1/provider/listings/"+itoa(l.ID), update, tokenA)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode(t, rec)["published"])

	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/v1/provider/listings/"+itoa(l.ID), nil, tokenA).Code)
	_, err := h.listings.GetByID(context.Background(), l.ID)
	assert.ErrorIs(t, err, repository.ErrListingNotFound)
}

func TestUpdateReservationStatus(t *testing.T) {
	h := newHarness(t)
	a, tokenA := h.provider(t, "alice")
	_, tokenB := h.provider(t, "bob")
	cat := h.category(t, "Plomberie", true)
	r := h.reservation(t, h.listing(t, a, &cat, "", true))
	target := "/v1/provider/reservations/" + itoa(r.ID) + "/status"

	rec := h.do(t, http.MethodPost, target, map[string]string{"status": "En cours"}, tokenB)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Complete is only known to the staff table
	rec = h.do(t, http.MethodPost, target, map[string]string{"status": "Complete"}, tokenA)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid status", decode(t, rec)["error"])

	rec = h.do(t, http.MethodPost, target, map[string]string{"status": "  ANNULÉE "}, tokenA)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Annulee", body["status"])
	assert.Equal(t, "status-cancelled", body["status_class"])

	stored, err := h.res.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annulee", stored.Status)

	ev := h.events.next(t)
	assert.Equal(t, queue.ReservationStatusChanged, ev.Type)
	assert.Equal(t, model.DefaultReservationStatus, ev.Previous)
	assert.Equal(t, "Annulee", ev.Status)
	assert.Equal(t, "provider:"+itoa(a.ID), ev.ChangedBy)
}

func TestProviderDashboard(t *testing.T) {
	h := newHarness(t)
	a, token := h.provider(t, "alice")
	cat := h.category(t, "Plomberie", true)
	l := h.listing(t, a, &cat, "", true)
	h.listing(t, a, nil, "Brouillon", false)
	h.reservation(t, l)
	h.reservation(t, l)

	rec := h.do(t, http.MethodGet, "/v1/provider/dashboard?status=bogus&service="+itoa(l.ID), nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, itoa(l.ID), body["selected_service"])
	assert.Equal(t, "", body["selected_status"])
	assert.Len(t, body["rows"], 2)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 2, stats["listings_total"])
	assert.EqualValues(t, 1, stats["listings_published"])
	assert.EqualValues(t, 2, stats["waiting"])
}

// ----- staff -----

func TestStaffRoutesRequireStaffRole(t *testing.T) {
	h := newHarness(t)
	_, providerToken := h.provider(t, "alice")
	_, staffToken := h.account(t, "admin", model.RoleStaff)

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/v1/staff/dashboard", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/v1/staff/dashboard", nil, providerToken).Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/v1/staff/dashboard", nil, staffToken).Code)
}

func TestStaffCategoryLifecycle(t *testing.T) {
	h := newHarness(t)
	a, _ := h.provider(t, "alice")
	_, token := h.account(t, "admin", model.RoleStaff)

	rec := h.do(t, http.MethodPost, "/v1/staff/categories", map[string]string{"name": "Electricite"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode(t, rec)
	assert.Equal(t, true, created["active"])
	catID := uint64(created["id"].(float64))

	rec = h.do(t, http.MethodPost, "/v1/staff/categories", map[string]string{"name": "Electricite"}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = h.do(t, http.MethodPost, "/v1/staff/categories", map[string]string{}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/staff/categories?q=elec&active=1", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = h.do(t, http.MethodPut, "/v1/staff/categories/"+itoa(catID), map[string]any{"active": false}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode(t, rec)
	assert.Equal(t, "Electricite", updated["name"])
	assert.Equal(t, false, updated["active"])

	cat, err := h.categories.GetByID(context.Background(), catID)
	require.NoError(t, err)
	l := h.listing(t, a, &cat, "", true)
	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodDelete, "/v1/staff/categories/"+itoa(catID), nil, token).Code)

	require.NoError(t, h.listings.DeleteForProvider(context.Background(), l.ID, a.ID))
	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/v1/staff/categories/"+itoa(catID), nil, token).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/v1/staff/categories/"+itoa(catID), nil, token).Code)
}

func TestStaffCreatesListingForProvider(t *testing.T) {
	h := newHarness(t)
	a, _ := h.provider(t, "alice")
	_, token := h.account(t, "admin", model.RoleStaff)
	cat := h.category(t, "Plomberie", true)
	form := map[string]string{
		"provider_id": "999", "category_id": itoa(cat.ID), "description": "pose", "price": "80", "address": "Lyon",
	}

	rec := h.do(t, http.MethodPost, "/v1/staff/listings", form, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "provider_id")

	form["provider_id"] = itoa(a.ID)
	rec = h.do(t, http.MethodPost, "/v1/staff/listings", form, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, a.ID, body["provider_id"])
	assert.Equal(t, false, body["published"])

	listingID := itoa(uint64(body["id"].(float64)))
	rec = h.do(t, http.MethodPut, "/v1/staff/listings/"+listingID+"/published", map[string]any{"published": true}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/v1/listings/"+listingID, nil, "").Code)

	form["address"] = "Bron"
	form["published"] = "1"
	rec = h.do(t, http.MethodPut, "/v1/staff/listings/"+listingID, form, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bron", decode(t, rec)["address"])

	rec = h.do(t, http.MethodGet, "/v1/staff/listings?published=true&provider="+itoa(a.ID), nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
	rec = h.do(t, http.MethodGet, "/v1/staff/listings?published=false", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["count"])

	rec = h.do(t, http.MethodGet, "/v1/staff/providers?q=alice", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
}

func TestStaffSetsRawStatus(t *testing.T) {
	h := newHarness(t)
	a, _ := h.provider(t, "alice")
	_, token := h.account(t, "admin", model.RoleStaff)
	cat := h.category(t, "Plomberie", true)
	r := h.reservation(t, h.listing(t, a, &cat, "", true))

	rec := h.do(t, http.MethodPut, "/v1/staff/reservations/"+itoa(r.ID)+"/status", map[string]string{"status": "Complete"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Complete", body["raw_status"])
	assert.Equal(t, "Terminee", body["status"])

	ev := h.events.next(t)
	assert.Equal(t, "staff", ev.ChangedBy)
	assert.Equal(t, "Complete", ev.Status)

	rec = h.do(t, http.MethodGet, "/v1/staff/reservations?status=Complete", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = h.do(t, http.MethodGet, "/v1/staff/dashboard?status=termine", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Terminee", body["selected_status"])
	assert.Len(t, body["rows"], 1)
	assert.EqualValues(t, 1, body["stats"].(map[string]any)["done"])

	rec = h.do(t, http.MethodPut, "/v1/staff/reservations/999/status", map[string]string{"status": "x"}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaffReviews(t *testing.T) {
	h := newHarness(t)
	a, _ := h.provider(t, "alice")
	_, token := h.account(t, "admin", model.RoleStaff)
	cat := h.category(t, "Plomberie", true)
	l := h.listing(t, a, &cat, "", true)

	rec := h.do(t, http.MethodPost, "/v1/staff/reviews",
		map[string]any{"listing_id": l.ID, "customer_name": "Nina", "rating": 6}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "rating")

	rec = h.do(t, http.MethodPost, "/v1/staff/reviews",
		map[string]any{"listing_id": 999, "customer_name": "Nina", "rating": 5}, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "listing_id")

	rec = h.do(t, http.MethodPost, "/v1/staff/reviews",
		map[string]any{"listing_id": l.ID, "customer_name": "Nina", "rating": 5, "comment": "parfait"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["visible"])

	rec = h.do(t, http.MethodGet, "/v1/staff/reviews?rating=5&visible=oui", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, "Plomberie", body["items"].([]any)[0].(map[string]any)["listing_name"])
}

// ----- request binding -----

func TestParamDecodesJSONScalars(t *testing.T) {
	var req struct {
		Name   param  `json:"name"`
		ID     param  `json:"id"`
		Flag   param  `json:"flag"`
		Active *param `json:"active"`
		Gone   *param `json:"gone"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"name":"  Plomberie ","id":42,"flag":true,"active":"off"}`), &req))
	assert.Equal(t, "Plomberie", req.Name.String())
	assert.Equal(t, "42", req.ID.String())
	assert.True(t, req.Flag.flag())
	require.NotNil(t, req.Active)
	assert.False(t, req.Active.flag())
	assert.Nil(t, req.Gone)

	assert.Error(t, json.Unmarshal([]byte(`{"name":{"x":1}}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"name":["a"]}`), &req))
}

func TestParamFlag(t *testing.T) {
	for _, v := range []string{"1", "true", "on", "oui"} {
		assert.True(t, param(v).flag(), v)
	}
	for _, v := range []string{"", "0", "false", "off", "bogus"} {
		assert.False(t, param(v).flag(), v)
	}
}

func TestReserveFromURLEncodedForm(t *testing.T) {
	h := newHarness(t)
	a, _ := h.provider(t, "alice")
	l := h.listing(t, a, nil, "Depannage", true)
	target := "/v1/listings/" + itoa(l.ID) + "/reservations"

	rec := h.doForm(t, http.MethodPost, target, url.Values{"customer_name": {"Claire"}}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgRequired, decode(t, rec)["errors"].(map[string]any)["customer_phone"])

	rec = h.doForm(t, http.MethodPost, target, url.Values{
		"customer_name": {" Claire "}, "customer_phone": {"0600000000"}, "description": {"fuite"},
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Claire", h.events.next(t).CustomerName)
}

func TestStaffCategoryFormPartialUpdate(t *testing.T) {
	h := newHarness(t)
	_, token := h.account(t, "admin", model.RoleStaff)

	rec := h.doForm(t, http.MethodPost, "/v1/staff/categories", url.Values{"name": {"Jardinage"}, "active": {"off"}}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, false, body["active"])
	id := strconv.FormatFloat(body["id"].(float64), 'f', -1, 64)

	rec = h.doForm(t, http.MethodPut, "/v1/staff/categories/"+id, url.Values{"active": {"on"}}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, "Jardinage", body["name"])
	assert.Equal(t, true, body["active"])
}

func TestMalformedBodyIsRejected(t *testing.T) {
	h := newHarness(t)
	_, token := h.account(t, "admin", model.RoleStaff)

	rec := h.do(t, http.MethodPost, "/v1/staff/categories", map[string]any{"name": map[string]string{"fr": "x"}}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid body", decode(t, rec)["error"])
}

package handler

import (
	"strconv"
	"time"

	"github.com/iliyamo/services-marketplace/internal/catalog"
	"github.com/iliyamo/services-marketplace/internal/dashboard"
	"github.com/iliyamo/services-marketplace/internal/model"
	"github.com/iliyamo/services-marketplace/internal/repository"
	"github.com/iliyamo/services-marketplace/internal/status"
)

// JSON shapes returned by the handlers.

type categoryView struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type providerView struct {
	ID          uint64  `json:"id"`
	UserID      uint64  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	CompanyName string  `json:"company_name"`
	Address     string  `json:"address"`
	Phone       string  `json:"phone"`
	Photo       *string `json:"photo"`
}

type listingView struct {
	ID           uint64        `json:"id"`
	ProviderID   uint64        `json:"provider_id"`
	CategoryID   *uint64       `json:"category_id"`
	CategoryName *string       `json:"category_name"`
	Name         string        `json:"name"`
	DisplayName  string        `json:"display_name"`
	Description  string        `json:"description"`
	Price        string        `json:"price"`
	Published    bool          `json:"published"`
	Address      string        `json:"address"`
	Image        *string       `json:"image"`
	Provider     *providerView `json:"provider,omitempty"`
}

type groupView struct {
	listingView
	ProfileCount int `json:"profile_count"`
}

type reviewView struct {
	ID           uint64    `json:"id"`
	ListingID    uint64    `json:"listing_id"`
	CustomerName string    `json:"customer_name"`
	Rating       uint8     `json:"rating"`
	Comment      string    `json:"comment"`
	Visible      bool      `json:"visible"`
	CreatedAt    time.Time `json:"created_at"`
	ListingName  string    `json:"listing_name,omitempty"`
}

type reservationView struct {
	ID            uint64    `json:"id"`
	ListingID     uint64    `json:"listing_id"`
	ListingName   string    `json:"listing_name"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	Description   string    `json:"description"`
	RawStatus     string    `json:"raw_status"`
	CreatedAt     time.Time `json:"created_at"`
}

type dashboardRowView struct {
	reservationView
	Status        string          `json:"status"`
	StatusClass   string          `json:"status_class"`
	Priority      status.Priority `json:"priority,omitempty"`
	PriorityClass string          `json:"priority_class,omitempty"`
}

type statsView struct {
	Waiting    int `json:"waiting"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Cancelled  int `json:"cancelled"`
}

func newCategoryView(c model.ServiceCategory) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Active: c.Active}
}

func newProviderView(p model.Provider) providerView {
	return providerView{
		ID: p.ID, UserID: p.UserID, DisplayName: p.DisplayName(), CompanyName: p.CompanyName,
		Address: p.Address, Phone: p.Phone, Photo: p.Photo,
	}
}

func newListingView(l model.Listing) listingView {
	v := listingView{
		ID: l.ID, ProviderID: l.ProviderID, CategoryID: l.CategoryID, CategoryName: l.CategoryName,
		Name: l.Name, DisplayName: l.DisplayName(), Description: l.Description,
		Price: l.Price.StringFixed(2), Published: l.Published, Address: l.Address, Image: l.Image,
	}
	if l.Provider != nil {
		pv := newProviderView(*l.Provider)
		v.Provider = &pv
	}
	return v
}

func listingViews(ls []model.Listing) []listingView {
	out := make([]listingView, 0, len(ls))
	for _, l := range ls {
		out = append(out, newListingView(l))
	}
	return out
}

func groupViews(gs []catalog.Group) []groupView {
	out := make([]groupView, 0, len(gs))
	for _, g := range gs {
		out = append(out, groupView{listingView: newListingView(g.Listing), ProfileCount: g.ProfileCount})
	}
	return out
}

func newReviewView(r model.Review) reviewView {
	return reviewView{
		ID: r.ID, ListingID: r.ListingID, CustomerName: r.CustomerName, Rating: r.Rating,
		Comment: r.Comment, Visible: r.Visible, CreatedAt: r.CreatedAt,
	}
}

func newReservationView(r repository.ReservationRow) reservationView {
	return reservationView{
		ID: r.ID, ListingID: r.ListingID, ListingName: r.DisplayName(), CustomerName: r.CustomerName,
		CustomerPhone: r.CustomerPhone, Description: r.Description, RawStatus: r.Status, CreatedAt: r.CreatedAt,
	}
}

func dashboardRows(rows []dashboard.Row) []dashboardRowView {
	out := make([]dashboardRowView, 0, len(rows))
	for _, r := range rows {
		out = append(out, dashboardRowView{
			reservationView: newReservationView(r.Reservation),
			Status:          r.Status,
			StatusClass:     r.StatusClass,
			Priority:        r.Priority,
			PriorityClass:   r.PriorityClass,
		})
	}
	return out
}

func newStatsView(counts map[string]int) statsView {
	return statsView{
		Waiting:    counts[status.Waiting],
		InProgress: counts[status.InProgress],
		Done:       counts[status.Done],
		Cancelled:  counts[status.Cancelled],
	}
}

// selectedService renders the applied listing filter, "" when none.
func selectedService(id uint64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(id, 10)
}

package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrCategoryRequired is returned when a listing form omits its category.
var ErrCategoryRequired = errors.New("category required")

// CategoryRequiredMessage is the field-level message shown for
// ErrCategoryRequired.
const CategoryRequiredMessage = "Veuillez choisir un type de service."

// Listing is a service published by a provider. When a category is
// attached the listing's Name mirrors the category name; listings
// created before categories existed keep a free-text Name.
type Listing struct {
	ID          uint64          // service_listings.id
	ProviderID  uint64          // service_listings.provider_id
	CategoryID  *uint64         // service_listings.category_id (nullable)
	Name        string          // service_listings.name
	Description string          // service_listings.description
	Price       decimal.Decimal // service_listings.price DECIMAL(10,2)
	Published   bool            // service_listings.published
	Address     string          // service_listings.address
	Image       *string         // service_listings.image (nullable)

	// Joined columns, populated by read queries.
	CategoryName *string
	Provider     *Provider
}

// AttachCategory links the listing to cat and copies its name. It must
// be called on every create or update that sets a category.
func (l *Listing) AttachCategory(cat ServiceCategory) {
	id := cat.ID
	l.CategoryID = &id
	l.Name = cat.Name
	name := cat.Name
	l.CategoryName = &name
}

// DisplayName is the category name when one is attached, else Name.
func (l Listing) DisplayName() string {
	if l.CategoryID != nil && l.CategoryName != nil {
		return *l.CategoryName
	}
	return l.Name
}

// NormalizePrice rounds the price to the two decimal places stored.
func (l *Listing) NormalizePrice() {
	l.Price = l.Price.Round(2)
}

// LegacyKey is the lower-cased trimmed name used to group listings
// without a category.
func (l Listing) LegacyKey() string {
	return strings.ToLower(strings.TrimSpace(l.Name))
}

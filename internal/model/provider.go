package model

import "strings"

// Provider is the business profile attached one-to-one to a provider
// account. Address and phone are shown on listings; the photo is an
// opaque path into media storage.
type Provider struct {
	ID          uint64  // providers.id
	UserID      uint64  // providers.user_id (unique)
	CompanyName string  // providers.company_name
	Address     string  // providers.address
	Phone       string  // providers.phone
	Photo       *string // providers.photo (nullable)

	// Joined from users, used by DisplayName.
	Username  string
	FirstName string
	LastName  string
}

// DisplayName picks the account's full name, then the company name, then
// the username.
func (p Provider) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if full != "" {
		return full
	}
	if strings.TrimSpace(p.CompanyName) != "" {
		return p.CompanyName
	}
	return p.Username
}

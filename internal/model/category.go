package model

// ServiceCategory is a kind of service ("Plombier", "Electricien") that
// listings are filed under. Categories are shared by listings and cannot
// be deleted while referenced.
type ServiceCategory struct {
	ID     uint64 // service_categories.id
	Name   string // service_categories.name (unique)
	Active bool   // service_categories.active
}

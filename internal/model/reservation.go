package model

import "time"

// DefaultReservationStatus is stored on new requests.
const DefaultReservationStatus = "En attente"

// Reservation is a customer's request against a listing. Status is free
// text at the storage layer; readers canonicalize it.
type Reservation struct {
	ID            uint64    // reservations.id
	ListingID     uint64    // reservations.listing_id
	CustomerName  string    // reservations.customer_name
	CustomerPhone string    // reservations.customer_phone
	Description   string    // reservations.description
	Status        string    // reservations.status
	CreatedAt     time.Time // reservations.created_at
}

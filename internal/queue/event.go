// Package queue carries reservation events over RabbitMQ: the payloads,
// the publisher used by the HTTP handlers and the background consumer
// that records them in logs/reservations.log.
package queue

import (
	"fmt"
	"time"
)

// QueueName is the durable queue all reservation events go through.
const QueueName = "reservations.events"

// Event types.
const (
	ReservationRequested     = "reservation.requested"
	ReservationStatusChanged = "reservation.status_changed"
)

// ReservationEvent is published when a customer submits a request and
// when its status changes. Previous is only set on status changes.
type ReservationEvent struct {
	Type          string `json:"type"`
	ReservationID uint64 `json:"reservation_id"`
	ListingID     uint64 `json:"listing_id"`
	ListingName   string `json:"listing_name"`
	ProviderID    uint64 `json:"provider_id"`
	CustomerName  string `json:"customer_name"`
	Status        string `json:"status"`
	Previous      string `json:"previous_status,omitempty"`
	ChangedBy     string `json:"changed_by,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// NewReservationEvent stamps an event of type typ with the current UTC time.
func NewReservationEvent(typ string) ReservationEvent {
	return ReservationEvent{Type: typ, OccurredAt: time.Now().UTC().Format(time.RFC3339)}
}

// LogLine renders e as the single line appended to the reservations log.
func (e ReservationEvent) LogLine() string {
	switch e.Type {
	case ReservationStatusChanged:
		return fmt.Sprintf("[%s] Reservation status changed | reservation_id=%d | listing_id=%d | listing=%q | provider_id=%d | from=%q | to=%q | by=%s\n",
			e.OccurredAt, e.ReservationID, e.ListingID, e.ListingName, e.ProviderID, e.Previous, e.Status, e.ChangedBy)
	default:
		return fmt.Sprintf("[%s] Reservation requested | reservation_id=%d | listing_id=%d | listing=%q | provider_id=%d | customer=%q | status=%q\n",
			e.OccurredAt, e.ReservationID, e.ListingID, e.ListingName, e.ProviderID, e.CustomerName, e.Status)
	}
}

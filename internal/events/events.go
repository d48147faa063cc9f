// Package events publishes reconciliation outcomes to downstream consumers
// (confirmation email/SMS, reporting). Publishing happens after commit and
// never affects the outcome of the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	TypeBookingConfirmed = "booking.confirmed"
	TypeHoldReleased     = "hold.released"
)

// Event is the envelope written to every transport.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher is implemented by every transport.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type BookingConfirmed struct {
	BookingID     string       `json:"booking_id"`
	BookingNumber string       `json:"booking_number"`
	OrderID       string       `json:"order_id"`
	PropertyID    string       `json:"property_id"`
	GuestName     string       `json:"guest_name"`
	GuestEmail    string       `json:"guest_email,omitempty"`
	GuestPhone    string       `json:"guest_phone,omitempty"`
	CheckIn       string       `json:"check_in"`
	CheckOut      string       `json:"check_out"`
	TotalAmount   string       `json:"total_amount"`
	Currency      string       `json:"currency"`
	PaymentMethod string       `json:"payment_method"`
	Lines         []BookedLine `json:"lines"`
}

type BookedLine struct {
	RoomTypeID   string   `json:"room_type_id"`
	RoomTypeName string   `json:"room_type_name"`
	RoomIDs      []string `json:"room_ids"`
	TotalPrice   string   `json:"total_price"`
}

type HoldReleased struct {
	OrderID  string `json:"order_id"`
	Outcome  string `json:"outcome"`
	Released int64  `json:"released"`
}

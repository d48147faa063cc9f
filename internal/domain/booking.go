package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Active reports whether the booking still occupies inventory.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

const PaymentStatusPaid = "PAID"

// Booking is the irreversible output of a successful order.
type Booking struct {
	ID               string
	Number           string
	OrderID          string
	PropertyID       string
	Guest            Guest
	StartDate        time.Time
	EndDate          time.Time
	Nights           int
	Adults           int
	Children         int
	TotalGuests      int
	Rooms            int
	TotalAmount      decimal.Decimal
	Currency         string
	PaymentStatus    string
	PaymentMethod    PaymentMethod
	PaymentReference string
	Status           BookingStatus
	ConfirmationDate time.Time
	RateSnapshot     RateSnapshot
	Selections       []BookingRoomSelection
	CreatedAt        time.Time
}

// BookingRoomSelection is one room-type line item of a booking.
type BookingRoomSelection struct {
	ID            string
	RoomTypeID    string
	RoomTypeName  string
	RoomIDs       []string
	Rooms         int
	Guests        int
	Children      int
	MealPlanID    string
	BasePrice     decimal.Decimal
	Tax           decimal.Decimal
	TotalPrice    decimal.Decimal
	CheckIn       time.Time
	CheckOut      time.Time
	DatesReserved []time.Time
}

// RateSnapshot freezes the priced inputs the booking was created from.
type RateSnapshot struct {
	OrderAmount   int64              `json:"orderAmount"`
	Currency      string             `json:"currency"`
	OrderRef      string             `json:"orderRef"`
	OrderedAt     time.Time          `json:"orderedAt"`
	TotalRooms    int                `json:"totalRooms"`
	TotalAdults   int                `json:"totalAdults"`
	TotalChildren int                `json:"totalChildren"`
	Breakdown     []RateSnapshotLine `json:"breakdown"`
}

type RateSnapshotLine struct {
	RoomTypeID   string          `json:"roomTypeId"`
	RoomTypeName string          `json:"roomTypeName"`
	MealPlanID   string          `json:"mealPlanId,omitempty"`
	Rooms        int             `json:"rooms"`
	BasePrice    decimal.Decimal `json:"basePrice"`
	Tax          decimal.Decimal `json:"tax"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
}

// Covers reports whether the booking line occupies roomID on day.
func (s BookingRoomSelection) Covers(roomID string, day time.Time) bool {
	if day.Before(s.CheckIn) || !day.Before(s.CheckOut) {
		return false
	}
	for _, id := range s.RoomIDs {
		if id == roomID {
			return true
		}
	}
	return false
}

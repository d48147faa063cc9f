package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSuccess   OrderStatus = "success"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

// Terminal reports whether the order has left pending.
func (s OrderStatus) Terminal() bool {
	return s != OrderStatusPending
}

// Released reports whether the order ended without a booking.
func (s OrderStatus) Released() bool {
	switch s {
	case OrderStatusExpired, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// Outcome is the payment result that drives reconciliation.
type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomeExpired   Outcome = "expired"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// TerminalStatus maps an outcome to the order status it produces.
func (o Outcome) TerminalStatus() (OrderStatus, bool) {
	switch o {
	case OutcomePaid:
		return OrderStatusSuccess, true
	case OutcomeExpired:
		return OrderStatusExpired, true
	case OutcomeCancelled:
		return OrderStatusCancelled, true
	case OutcomeFailed:
		return OrderStatusFailed, true
	}
	return "", false
}

type PaymentMethod string

const (
	PaymentMethodPaymentLink PaymentMethod = "payment_link"
	PaymentMethodRazorpay    PaymentMethod = "razorpay"
	PaymentMethodCash        PaymentMethod = "cash"
)

type Guest struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Actor records who initiated an action, for audit only.
type Actor struct {
	Type string
	ID   string
}

// Order ties a hold to one external payment attempt.
// Amounts are in minor currency units.
type Order struct {
	ID               string
	ExternalRef      string
	PropertyID       string
	Status           OrderStatus
	Amount           int64
	Currency         string
	Guest            Guest
	Adults           int
	Children         int
	CheckIn          time.Time
	CheckOut         time.Time
	ExpiresAt        time.Time
	PaymentMethod    PaymentMethod
	GatewayPaymentID string
	CreatedBy        Actor
	Metadata         map[string]string
	Selections       []OrderSelection
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OrderSelection is one room-type line captured when the order was created.
type OrderSelection struct {
	ID           string
	RoomTypeID   string
	RoomTypeName string
	RoomIDs      []string
	Guests       int
	Children     int
	MealPlanID   string
	Price        int64
	Tax          int64
	TotalPrice   int64
	CheckIn      time.Time
	CheckOut     time.Time
}

// Slots lists every (room, night) the selection reserves.
func (s OrderSelection) Slots() []SlotKey {
	return Slots(s.RoomIDs, s.CheckIn, s.CheckOut)
}

// Slots lists every (room, night) across all selections, without duplicates.
func (o Order) Slots() []SlotKey {
	seen := make(map[SlotKey]struct{})
	var keys []SlotKey
	for _, sel := range o.Selections {
		for _, k := range sel.Slots() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

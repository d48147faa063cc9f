package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment records money received against a booking.
type Payment struct {
	ID            string
	TransactionID string
	PropertyID    string
	BookingID     string
	Amount        decimal.Decimal
	Currency      string
	Method        PaymentMethod
	Status        string
	PaidAt        time.Time
	Guest         Guest
	ReceivedBy    string
	ReceiptNumber string
	CreatedAt     time.Time
}

// PaymentDetails is what the payment collaborator hands to reconciliation.
// Amount is in minor units; zero means the gateway did not report one.
type PaymentDetails struct {
	TransactionID string
	Method        PaymentMethod
	Amount        int64
	PaidAt        time.Time
	ReceivedBy    string
	ReceiptNumber string
}

// MinorToMajor converts minor currency units to a two-place decimal.
func MinorToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// MajorToMinor converts a decimal amount to minor units, rounding half away from zero.
func MajorToMinor(major decimal.Decimal) int64 {
	return major.Shift(2).Round(0).IntPart()
}

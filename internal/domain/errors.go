package domain

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidDate          = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidDateRange     = errors.New("end date must be after start date")
	ErrRoomIDsRequired      = errors.New("at least one room id is required")
	ErrRecordIDsRequired    = errors.New("at least one hold record id is required")
	ErrInvalidStatus        = errors.New("invalid availability status")
	ErrInvalidHoldExpiry    = errors.New("hold expiry must be in the future")
	ErrReleaseAfterRequired = errors.New("release time must be positive for blocks")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrSelectionsRequired   = errors.New("at least one room selection is required")
	ErrExternalRefRequired  = errors.New("external payment reference is required")
	ErrRoomNotInRoomType    = errors.New("room does not belong to room type")
	ErrInvalidOutcome       = errors.New("invalid payment outcome")
	ErrPaymentMismatch      = errors.New("received amount does not match total")
	ErrPaymentInFuture      = errors.New("payment date cannot be in the future")
	ErrReceivedByRequired   = errors.New("payment receiver is required")
	ErrGuestNameRequired    = errors.New("guest name is required")
	ErrNameRequired         = errors.New("name is required")
)

// Not-found errors.
var (
	ErrRoomTypeNotFound = errors.New("room type not found")
	ErrRecordNotFound   = errors.New("availability record not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrBookingNotFound  = errors.New("booking not found")
)

// Conflict errors.
var (
	ErrRoomBooked          = errors.New("room already booked")
	ErrRoomBlocked         = errors.New("room blocked")
	ErrHoldExpired         = errors.New("hold expired")
	ErrHoldMismatch        = errors.New("hold does not cover request")
	ErrHoldAlreadyAttached = errors.New("hold already attached to an active order")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrDuplicateRecord     = errors.New("availability record already exists")
)

// Consistency errors: the operation found state it must not act on.
var (
	ErrHoldVanished    = errors.New("hold vanished before reconciliation")
	ErrOrderNotPending = errors.New("order is not pending")
)

// ConflictError carries the rows that made a request unavailable.
type ConflictError struct {
	Conflicts []Conflict
}

// NewConflictError reports ErrRoomBooked when any conflict is a booking,
// ErrRoomBlocked otherwise.
func NewConflictError(conflicts []Conflict) *ConflictError {
	return &ConflictError{Conflicts: conflicts}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %d conflicting slot(s)", e.Unwrap(), len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error {
	for _, c := range e.Conflicts {
		if c.Status == StatusBooked {
			return ErrRoomBooked
		}
	}
	return ErrRoomBlocked
}

// ConsistencyError marks an internal inconsistency for one order.
type ConsistencyError struct {
	OrderID string
	Err     error
	Missing []SlotKey
	Detail  string
}

func (e *ConsistencyError) Error() string {
	msg := fmt.Sprintf("order %s: %s", e.OrderID, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(" (%d slot(s) missing)", len(e.Missing))
	}
	return msg
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

// ValidationError names the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrRoomBooked) ||
		errors.Is(err, ErrRoomBlocked) ||
		errors.Is(err, ErrHoldExpired) ||
		errors.Is(err, ErrHoldMismatch) ||
		errors.Is(err, ErrHoldAlreadyAttached) ||
		errors.Is(err, ErrIdempotencyConflict) ||
		errors.Is(err, ErrDuplicateRecord)
}

func IsConsistency(err error) bool {
	return errors.Is(err, ErrHoldVanished) || errors.Is(err, ErrOrderNotPending)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoomTypeNotFound) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrBookingNotFound)
}

// IsClientError reports errors caused by the request itself.
func IsClientError(err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return true
	}
	for _, target := range []error{
		ErrInvalidID, ErrInvalidDate, ErrInvalidDateRange, ErrRoomIDsRequired,
		ErrRecordIDsRequired, ErrInvalidStatus, ErrInvalidHoldExpiry,
		ErrReleaseAfterRequired, ErrInvalidAmount, ErrSelectionsRequired,
		ErrExternalRefRequired, ErrRoomNotInRoomType, ErrInvalidOutcome,
		ErrPaymentMismatch, ErrPaymentInFuture, ErrReceivedByRequired,
		ErrGuestNameRequired, ErrNameRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

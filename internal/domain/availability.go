package domain

import "time"

type AvailabilityStatus string

const (
	// StatusAvailable is never stored; it is the absence of a record.
	StatusAvailable    AvailabilityStatus = "available"
	StatusBlocked      AvailabilityStatus = "blocked"
	StatusMaintenance  AvailabilityStatus = "maintenance"
	StatusOutOfService AvailabilityStatus = "out_of_service"
	StatusBooked       AvailabilityStatus = "booked"
)

// Stored reports whether the status can be materialized as a ledger row.
func (s AvailabilityStatus) Stored() bool {
	switch s {
	case StatusBlocked, StatusMaintenance, StatusOutOfService, StatusBooked:
		return true
	}
	return false
}

// StaffSettable reports whether front-desk staff may place the status directly.
func (s AvailabilityStatus) StaffSettable() bool {
	switch s {
	case StatusBlocked, StatusMaintenance, StatusOutOfService:
		return true
	}
	return false
}

var defaultReasons = map[AvailabilityStatus]string{
	StatusBlocked:      "Front desk block",
	StatusMaintenance:  "Front desk maintenance",
	StatusOutOfService: "Front desk out of service",
}

// DefaultReason is used when a caller places a status without a reason.
func DefaultReason(s AvailabilityStatus) string {
	return defaultReasons[s]
}

// AvailabilityRecord is one ledger row for a (room, date) pair.
type AvailabilityRecord struct {
	ID            string
	RoomID        string
	Date          time.Time
	Status        AvailabilityStatus
	Reason        string
	BlockedBy     string
	HoldExpiresAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsHold reports whether the row is a time-boxed block.
func (r AvailabilityRecord) IsHold() bool {
	return r.Status == StatusBlocked && r.HoldExpiresAt != nil
}

// Expired reports whether a time-boxed block has lapsed at now.
func (r AvailabilityRecord) Expired(now time.Time) bool {
	return r.IsHold() && !r.HoldExpiresAt.After(now)
}

// Blocks reports whether the row makes its slot unavailable at now.
// Lapsed holds do not block even while the row still exists.
func (r AvailabilityRecord) Blocks(now time.Time) bool {
	switch r.Status {
	case StatusBooked, StatusMaintenance, StatusOutOfService:
		return true
	case StatusBlocked:
		return !r.Expired(now)
	}
	return false
}

func (r AvailabilityRecord) Key() SlotKey {
	return NewSlotKey(r.RoomID, r.Date)
}

// SlotKey identifies one room on one calendar day.
type SlotKey struct {
	RoomID string
	Day    string
}

func NewSlotKey(roomID string, date time.Time) SlotKey {
	return SlotKey{RoomID: roomID, Day: FormatDate(date)}
}

// Slots expands rooms × [from, toExclusive) into keys, room-major.
func Slots(roomIDs []string, from, toExclusive time.Time) []SlotKey {
	days := DateRange(from, toExclusive)
	keys := make([]SlotKey, 0, len(roomIDs)*len(days))
	for _, roomID := range roomIDs {
		for _, d := range days {
			keys = append(keys, NewSlotKey(roomID, d))
		}
	}
	return keys
}

// Conflict describes a row that makes a requested slot unavailable.
type Conflict struct {
	RecordID      string
	RoomID        string
	Date          time.Time
	Status        AvailabilityStatus
	BlockedBy     string
	HoldExpiresAt *time.Time
}

func ConflictFrom(r AvailabilityRecord) Conflict {
	return Conflict{
		RecordID:      r.ID,
		RoomID:        r.RoomID,
		Date:          r.Date,
		Status:        r.Status,
		BlockedBy:     r.BlockedBy,
		HoldExpiresAt: r.HoldExpiresAt,
	}
}

// RangeCheck is the result of a conflict query.
type RangeCheck struct {
	Free      bool
	Conflicts []Conflict
}

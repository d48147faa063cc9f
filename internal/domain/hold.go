package domain

import "time"

// Hold is the set of ledger rows placed by one hold request.
type Hold struct {
	CorrelationID string
	PropertyID    string
	RoomTypeID    string
	RoomIDs       []string
	From          time.Time
	To            time.Time
	ExpiresAt     time.Time
	Records       []AvailabilityRecord
}

func (h Hold) RecordIDs() []string {
	ids := make([]string, 0, len(h.Records))
	for _, r := range h.Records {
		ids = append(ids, r.ID)
	}
	return ids
}

// Dates lists the nights covered by the hold.
func (h Hold) Dates() []time.Time {
	return DateRange(h.From, h.To)
}

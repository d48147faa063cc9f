package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/app"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

type BoardReader interface {
	Board(ctx context.Context, q app.BoardQuery) (app.Board, error)
}

// HandleBoard renders the front-desk grid for a property.
func HandleBoard(svc BoardReader, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, err := parseOptionalDate("from", q.Get("from"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		to, err := parseOptionalDate("to", q.Get("to"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		board, err := svc.Board(r.Context(), app.BoardQuery{
			PropertyID: chi.URLParam(r, "propertyID"),
			From:       from,
			To:         to,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newBoardResponse(board))
	}
}

type boardDayResponse struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

type dayCountsResponse struct {
	Date         string `json:"date"`
	TotalRooms   int    `json:"total_rooms"`
	Booked       int    `json:"booked"`
	Blocked      int    `json:"blocked"`
	Maintenance  int    `json:"maintenance"`
	OutOfService int    `json:"out_of_service"`
	Available    int    `json:"available"`
}

type boardSlotResponse struct {
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	BookingID     string  `json:"booking_id,omitempty"`
	BookingNumber string  `json:"booking_number,omitempty"`
	GuestName     string  `json:"guest_name,omitempty"`
	StayStart     string  `json:"stay_start,omitempty"`
	StayEnd       string  `json:"stay_end,omitempty"`
	RecordID      string  `json:"record_id,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	BlockedBy     string  `json:"blocked_by,omitempty"`
	HoldExpiresAt *string `json:"hold_expires_at,omitempty"`
}

type boardRoomResponse struct {
	ID    string              `json:"id"`
	Label string              `json:"label"`
	Slots []boardSlotResponse `json:"slots"`
}

type boardRoomTypeResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Availability []dayCountsResponse `json:"availability"`
	Rooms        []boardRoomResponse `json:"rooms"`
}

type boardResponse struct {
	PropertyID string                  `json:"property_id"`
	From       string                  `json:"from"`
	To         string                  `json:"to"`
	TotalRooms int                     `json:"total_rooms"`
	Days       []boardDayResponse      `json:"days"`
	Summary    []dayCountsResponse     `json:"summary"`
	RoomTypes  []boardRoomTypeResponse `json:"room_types"`
}

func newBoardResponse(b app.Board) boardResponse {
	resp := boardResponse{
		PropertyID: b.PropertyID,
		From:       domain.FormatDate(b.From),
		To:         domain.FormatDate(b.To),
		TotalRooms: b.TotalRooms,
		Days:       make([]boardDayResponse, 0, len(b.Days)),
		Summary:    newDayCounts(b.Summary),
		RoomTypes:  make([]boardRoomTypeResponse, 0, len(b.RoomTypes)),
	}
	for _, d := range b.Days {
		resp.Days = append(resp.Days, boardDayResponse{Date: domain.FormatDate(d.Date), Weekday: d.Weekday})
	}
	for _, rt := range b.RoomTypes {
		rooms := make([]boardRoomResponse, 0, len(rt.Rooms))
		for _, room := range rt.Rooms {
			slots := make([]boardSlotResponse, 0, len(room.Slots))
			for _, s := range room.Slots {
				slots = append(slots, boardSlotResponse{
					Date:          domain.FormatDate(s.Date),
					Status:        string(s.Status),
					BookingID:     s.BookingID,
					BookingNumber: s.BookingNumber,
					GuestName:     s.GuestName,
					StayStart:     optionalDate(s.StayStart),
					StayEnd:       optionalDate(s.StayEnd),
					RecordID:      s.RecordID,
					Reason:        s.Reason,
					BlockedBy:     s.BlockedBy,
					HoldExpiresAt: formatOptionalTime(s.HoldExpiresAt),
				})
			}
			rooms = append(rooms, boardRoomResponse{ID: room.ID, Label: room.Label, Slots: slots})
		}
		resp.RoomTypes = append(resp.RoomTypes, boardRoomTypeResponse{
			ID:           rt.ID,
			Name:         rt.Name,
			Availability: newDayCounts(rt.Availability),
			Rooms:        rooms,
		})
	}
	return resp
}

func newDayCounts(in []app.DayCounts) []dayCountsResponse {
	out := make([]dayCountsResponse, 0, len(in))
	for _, c := range in {
		out = append(out, dayCountsResponse{
			Date:         domain.FormatDate(c.Date),
			TotalRooms:   c.TotalRooms,
			Booked:       c.Booked,
			Blocked:      c.Blocked,
			Maintenance:  c.Maintenance,
			OutOfService: c.OutOfService,
			Available:    c.Available,
		})
	}
	return out
}

func optionalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return domain.FormatDate(t)
}

package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/app"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// InventoryAdmin is the minimal interface needed for inventory seeding endpoints.
type InventoryAdmin interface {
	CreateRoomType(ctx context.Context, in app.CreateRoomTypeInput) (domain.RoomType, error)
	ListRoomTypes(ctx context.Context, propertyID string) ([]domain.RoomType, error)
	AddRoom(ctx context.Context, in app.AddRoomInput) (domain.Room, error)
}

// HandleRoomTypes lists or creates the room types of a property.
func HandleRoomTypes(svc InventoryAdmin, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID := chi.URLParam(r, "propertyID")
		switch r.Method {
		case http.MethodGet:
			roomTypes, err := svc.ListRoomTypes(r.Context(), propertyID)
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}
			resp := make([]roomTypeResponse, 0, len(roomTypes))
			for _, rt := range roomTypes {
				resp = append(resp, newRoomTypeResponse(rt))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			var req createRoomTypeRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			rt, err := svc.CreateRoomType(r.Context(), app.CreateRoomTypeInput{
				PropertyID: propertyID,
				Name:       req.Name,
			})
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}
			writeJSON(w, http.StatusCreated, newRoomTypeResponse(rt))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAddRoom adds a physical room to a room type.
func HandleAddRoom(svc InventoryAdmin, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addRoomRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		room, err := svc.AddRoom(r.Context(), app.AddRoomInput{
			RoomTypeID: chi.URLParam(r, "roomTypeID"),
			Label:      req.Label,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newRoomResponse(room))
	}
}

type createRoomTypeRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type addRoomRequest struct {
	Label string `json:"label" validate:"required,max=100"`
}

type roomResponse struct {
	ID         string `json:"id"`
	RoomTypeID string `json:"room_type_id"`
	Label      string `json:"label"`
	Active     bool   `json:"active"`
}

type roomTypeResponse struct {
	ID         string         `json:"id"`
	PropertyID string         `json:"property_id"`
	Name       string         `json:"name"`
	Active     bool           `json:"active"`
	Rooms      []roomResponse `json:"rooms"`
}

func newRoomResponse(room domain.Room) roomResponse {
	return roomResponse{
		ID:         room.ID,
		RoomTypeID: room.RoomTypeID,
		Label:      room.Label,
		Active:     room.Active,
	}
}

func newRoomTypeResponse(rt domain.RoomType) roomTypeResponse {
	rooms := make([]roomResponse, 0, len(rt.Rooms))
	for _, room := range rt.Rooms {
		rooms = append(rooms, newRoomResponse(room))
	}
	return roomTypeResponse{
		ID:         rt.ID,
		PropertyID: rt.PropertyID,
		Name:       rt.Name,
		Active:     rt.Active,
		Rooms:      rooms,
	}
}

package domain

import "time"

// RoomType groups physical rooms of one kind within a property.
type RoomType struct {
	ID         string
	PropertyID string
	Name       string
	Active     bool
	Rooms      []Room
	CreatedAt  time.Time
}

// Room is a bookable physical unit.
type Room struct {
	ID         string
	RoomTypeID string
	Label      string
	Active     bool
}

// ActiveRoom reports whether roomID is an active room of the type.
func (rt RoomType) ActiveRoom(roomID string) bool {
	for _, r := range rt.Rooms {
		if r.ID == roomID {
			return r.Active
		}
	}
	return false
}

func (rt RoomType) ActiveRooms() []Room {
	out := make([]Room, 0, len(rt.Rooms))
	for _, r := range rt.Rooms {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

package app

import (
	"context"
	"strings"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/clock"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// AdminService seeds the room inventory the ledger and board work against.
type AdminService struct {
	rooms RoomRepository
	clock clock.Clock
}

func NewAdminService(rooms RoomRepository, clk clock.Clock) *AdminService {
	return &AdminService{
		rooms: rooms,
		clock: clk,
	}
}

type CreateRoomTypeInput struct {
	PropertyID string
	Name       string
}

func (s *AdminService) CreateRoomType(ctx context.Context, in CreateRoomTypeInput) (domain.RoomType, error) {
	if strings.TrimSpace(in.PropertyID) == "" {
		return domain.RoomType{}, domain.ErrInvalidID
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.RoomType{}, domain.Invalid("name", domain.ErrNameRequired)
	}

	rt := domain.RoomType{
		ID:         newID(),
		PropertyID: in.PropertyID,
		Name:       name,
		Active:     true,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.rooms.CreateRoomType(ctx, rt); err != nil {
		return domain.RoomType{}, err
	}
	return rt, nil
}

func (s *AdminService) ListRoomTypes(ctx context.Context, propertyID string) ([]domain.RoomType, error) {
	if strings.TrimSpace(propertyID) == "" {
		return nil, domain.ErrInvalidID
	}
	return s.rooms.ListRoomTypes(ctx, propertyID)
}

type AddRoomInput struct {
	RoomTypeID string
	Label      string
}

func (s *AdminService) AddRoom(ctx context.Context, in AddRoomInput) (domain.Room, error) {
	if strings.TrimSpace(in.RoomTypeID) == "" {
		return domain.Room{}, domain.ErrInvalidID
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return domain.Room{}, domain.Invalid("label", domain.ErrNameRequired)
	}

	room := domain.Room{
		ID:         newID(),
		RoomTypeID: in.RoomTypeID,
		Label:      label,
		Active:     true,
	}
	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

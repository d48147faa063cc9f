package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// RoomRepository reads room types and their rooms.
type RoomRepository struct {
	conn
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{conn{pool: pool}}
}

func (r *RoomRepository) GetRoomType(ctx context.Context, propertyID, roomTypeID string) (domain.RoomType, error) {
	const query = `
SELECT id, property_id, name, active, created_at
FROM room_types
WHERE id = $1 AND property_id = $2`

	var rt domain.RoomType
	err := r.queryRow(ctx, query, roomTypeID, propertyID).
		Scan(&rt.ID, &rt.PropertyID, &rt.Name, &rt.Active, &rt.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.RoomType{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RoomType{}, domain.ErrRoomTypeNotFound
		}
		return domain.RoomType{}, fmt.Errorf("get room type: %w", err)
	}

	rooms, err := r.roomsByType(ctx, []string{rt.ID})
	if err != nil {
		return domain.RoomType{}, err
	}
	rt.Rooms = rooms[rt.ID]
	return rt, nil
}

func (r *RoomRepository) ListRoomTypes(ctx context.Context, propertyID string) ([]domain.RoomType, error) {
	const query = `
SELECT id, property_id, name, active, created_at
FROM room_types
WHERE property_id = $1
ORDER BY name, id`

	rows, err := r.query(ctx, query, propertyID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list room types: %w", err)
	}
	defer rows.Close()

	var (
		types []domain.RoomType
		ids   []string
	)
	for rows.Next() {
		var rt domain.RoomType
		if err := rows.Scan(&rt.ID, &rt.PropertyID, &rt.Name, &rt.Active, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room type: %w", err)
		}
		types = append(types, rt)
		ids = append(ids, rt.ID)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate room types: %w", err)
	}
	if len(types) == 0 {
		return nil, nil
	}

	rooms, err := r.roomsByType(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range types {
		types[i].Rooms = rooms[types[i].ID]
	}
	return types, nil
}

func (r *RoomRepository) roomsByType(ctx context.Context, typeIDs []string) (map[string][]domain.Room, error) {
	const query = `
SELECT id, room_type_id, label, active
FROM rooms
WHERE room_type_id = ANY($1::text[]::uuid[])
ORDER BY label, id`

	rows, err := r.query(ctx, query, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Room, len(typeIDs))
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.RoomTypeID, &room.Label, &room.Active); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out[room.RoomTypeID] = append(out[room.RoomTypeID], room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return out, nil
}

func (r *RoomRepository) CreateRoomType(ctx context.Context, rt domain.RoomType) error {
	const stmt = `
INSERT INTO room_types (id, property_id, name, active, created_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, rt.ID, rt.PropertyID, rt.Name, rt.Active, rt.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create room type: %w", err)
	}
	return nil
}

func (r *RoomRepository) CreateRoom(ctx context.Context, room domain.Room) error {
	const stmt = `
INSERT INTO rooms (id, room_type_id, label, active)
VALUES ($1, $2, $3, $4)`

	_, err := r.exec(ctx, stmt, room.ID, room.RoomTypeID, room.Label, room.Active)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrRoomTypeNotFound
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

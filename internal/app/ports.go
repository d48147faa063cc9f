package app

import (
	"context"
	"time"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/events"
)

// Transactor runs fn inside one storage transaction carried by ctx.
// Nested calls join the outer transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerRepository reads and writes availability rows.
type LedgerRepository interface {
	ListRecords(ctx context.Context, roomIDs []string, from, toExclusive time.Time) ([]domain.AvailabilityRecord, error)
	GetRecord(ctx context.Context, id string) (domain.AvailabilityRecord, error)
	GetRecordsForUpdate(ctx context.Context, ids []string) ([]domain.AvailabilityRecord, error)
	GetRecordByKeyForUpdate(ctx context.Context, roomID string, date time.Time) (*domain.AvailabilityRecord, error)
	ListHeldByOwner(ctx context.Context, owner string) ([]domain.AvailabilityRecord, error)
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]domain.AvailabilityRecord, error)
	InsertRecords(ctx context.Context, records []domain.AvailabilityRecord) error
	UpsertStatus(ctx context.Context, record domain.AvailabilityRecord) (domain.AvailabilityRecord, error)
	PurgeExpiredHolds(ctx context.Context, roomIDs []string, from, toExclusive, now time.Time) (int64, error)
	RetargetHolds(ctx context.Context, ids []string, owner string, expiresAt time.Time) error
	ExtendHolds(ctx context.Context, ids []string, expiresAt time.Time) (int64, error)
	MarkBooked(ctx context.Context, owner, bookingID, reason string) (int64, error)
	DeleteRecords(ctx context.Context, ids []string) (int64, error)
	DeleteRecordWithStatus(ctx context.Context, propertyID, id string, status domain.AvailabilityStatus) (int64, error)
	DeleteHeldByOwner(ctx context.Context, owner string) (int64, error)
	DeleteExpiredHolds(ctx context.Context, ids []string, now time.Time) (int64, error)
}

// RoomRepository exposes the room inventory owned by property CRUD.
type RoomRepository interface {
	GetRoomType(ctx context.Context, propertyID, roomTypeID string) (domain.RoomType, error)
	ListRoomTypes(ctx context.Context, propertyID string) ([]domain.RoomType, error)
	CreateRoomType(ctx context.Context, rt domain.RoomType) error
	CreateRoom(ctx context.Context, room domain.Room) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error)
	GetOrderByExternalRef(ctx context.Context, ref string) (domain.Order, error)
	ListOrdersByIDs(ctx context.Context, ids []string) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, method domain.PaymentMethod, gatewayPaymentID string, at time.Time) error
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking domain.Booking) error
	GetBookingByOrderID(ctx context.Context, orderID string) (domain.Booking, error)
	ListActiveBookings(ctx context.Context, propertyID string, from, toExclusive time.Time) ([]domain.Booking, error)
	CreatePayment(ctx context.Context, payment domain.Payment) error
	PaymentExists(ctx context.Context, transactionID string) (bool, error)
}

// EventPublisher delivers domain events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

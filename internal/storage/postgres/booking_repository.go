package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// BookingRepository stores bookings, their room lines and payments.
type BookingRepository struct {
	conn
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{conn{pool: pool}}
}

const bookingColumns = `id, booking_number, order_id, property_id,
	guest_name, guest_email, guest_phone, guest_address,
	start_date, end_date, nights, adults, children, total_guests, rooms,
	total_amount::text, currency, payment_status, payment_method, payment_reference,
	status, confirmation_date, rate_snapshot, created_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var (
		b        domain.Booking
		amount   string
		method   string
		status   string
		snapshot []byte
	)
	err := row.Scan(
		&b.ID, &b.Number, &b.OrderID, &b.PropertyID,
		&b.Guest.Name, &b.Guest.Email, &b.Guest.Phone, &b.Guest.Address,
		&b.StartDate, &b.EndDate, &b.Nights, &b.Adults, &b.Children, &b.TotalGuests, &b.Rooms,
		&amount, &b.Currency, &b.PaymentStatus, &method, &b.PaymentReference,
		&status, &b.ConfirmationDate, &snapshot, &b.CreatedAt,
	)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.TotalAmount, err = decimal.NewFromString(amount); err != nil {
		return domain.Booking{}, fmt.Errorf("parse booking amount: %w", err)
	}
	b.PaymentMethod = domain.PaymentMethod(method)
	b.Status = domain.BookingStatus(status)
	b.StartDate = domain.DateOnly(b.StartDate)
	b.EndDate = domain.DateOnly(b.EndDate)
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &b.RateSnapshot); err != nil {
			return domain.Booking{}, fmt.Errorf("decode rate snapshot: %w", err)
		}
	}
	return b, nil
}

// CreateBooking writes the booking with its room lines. A second booking
// for the same order or number surfaces as ErrIdempotencyConflict.
func (r *BookingRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (
	id, booking_number, order_id, property_id,
	guest_name, guest_email, guest_phone, guest_address,
	start_date, end_date, nights, adults, children, total_guests, rooms,
	total_amount, currency, payment_status, payment_method, payment_reference,
	status, confirmation_date, rate_snapshot, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	$16::numeric, $17, $18, $19, $20, $21, $22, $23, $24)`

	snapshot, err := json.Marshal(b.RateSnapshot)
	if err != nil {
		return fmt.Errorf("encode rate snapshot: %w", err)
	}

	_, err = r.exec(ctx, stmt,
		b.ID, b.Number, b.OrderID, b.PropertyID,
		b.Guest.Name, b.Guest.Email, b.Guest.Phone, b.Guest.Address,
		domain.DateOnly(b.StartDate), domain.DateOnly(b.EndDate), b.Nights, b.Adults, b.Children, b.TotalGuests, b.Rooms,
		b.TotalAmount.StringFixed(2), b.Currency, b.PaymentStatus, string(b.PaymentMethod), b.PaymentReference,
		string(b.Status), b.ConfirmationDate, snapshot, b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("create booking: %w", err)
	}

	const lineStmt = `
INSERT INTO booking_room_selections (
	id, booking_id, position, room_type_id, room_type_name, room_ids, rooms, guests, children,
	meal_plan_id, base_price, tax, total_price, check_in, check_out, dates_reserved
)
VALUES ($1, $2, $3, $4, $5, $6::text[]::uuid[], $7, $8, $9, $10,
	$11::numeric, $12::numeric, $13::numeric, $14, $15, $16)`

	for i, sel := range b.Selections {
		dates := make([]time.Time, len(sel.DatesReserved))
		for j, d := range sel.DatesReserved {
			dates[j] = domain.DateOnly(d)
		}
		_, err := r.exec(ctx, lineStmt,
			sel.ID, b.ID, i, sel.RoomTypeID, sel.RoomTypeName, sel.RoomIDs, sel.Rooms, sel.Guests, sel.Children,
			sel.MealPlanID, sel.BasePrice.StringFixed(2), sel.Tax.StringFixed(2), sel.TotalPrice.StringFixed(2),
			domain.DateOnly(sel.CheckIn), domain.DateOnly(sel.CheckOut), dates,
		)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("create booking selection: %w", err)
		}
	}
	return nil
}

func (r *BookingRepository) GetBookingByOrderID(ctx context.Context, orderID string) (domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE order_id = $1`

	b, err := scanBooking(r.queryRow(ctx, query, orderID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}

	lines, err := r.selections(ctx, []string{b.ID})
	if err != nil {
		return domain.Booking{}, err
	}
	b.Selections = lines[b.ID]
	return b, nil
}

// ListActiveBookings returns pending or confirmed bookings whose stay
// overlaps [from, toExclusive).
func (r *BookingRepository) ListActiveBookings(ctx context.Context, propertyID string, from, toExclusive time.Time) ([]domain.Booking, error) {
	query := `
SELECT ` + bookingColumns + `
FROM bookings
WHERE property_id = $1
	AND status IN ('pending', 'confirmed')
	AND start_date < $3 AND end_date > $2
ORDER BY start_date, booking_number`

	rows, err := r.query(ctx, query, propertyID, domain.DateOnly(from), domain.DateOnly(toExclusive))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var (
		bookings []domain.Booking
		ids      []string
	)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	if len(bookings) == 0 {
		return nil, nil
	}

	lines, err := r.selections(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		bookings[i].Selections = lines[bookings[i].ID]
	}
	return bookings, nil
}

func (r *BookingRepository) selections(ctx context.Context, bookingIDs []string) (map[string][]domain.BookingRoomSelection, error) {
	const query = `
SELECT booking_id, id, room_type_id, room_type_name, room_ids::text[], rooms, guests, children,
	meal_plan_id, base_price::text, tax::text, total_price::text, check_in, check_out, dates_reserved
FROM booking_room_selections
WHERE booking_id = ANY($1::text[]::uuid[])
ORDER BY booking_id, position`

	rows, err := r.query(ctx, query, bookingIDs)
	if err != nil {
		return nil, fmt.Errorf("list booking selections: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.BookingRoomSelection, len(bookingIDs))
	for rows.Next() {
		var (
			bookingID            string
			s                    domain.BookingRoomSelection
			base, tax, totalText string
		)
		err := rows.Scan(&bookingID, &s.ID, &s.RoomTypeID, &s.RoomTypeName, &s.RoomIDs, &s.Rooms, &s.Guests, &s.Children,
			&s.MealPlanID, &base, &tax, &totalText, &s.CheckIn, &s.CheckOut, &s.DatesReserved)
		if err != nil {
			return nil, fmt.Errorf("scan booking selection: %w", err)
		}
		if s.BasePrice, err = decimal.NewFromString(base); err != nil {
			return nil, fmt.Errorf("parse base price: %w", err)
		}
		if s.Tax, err = decimal.NewFromString(tax); err != nil {
			return nil, fmt.Errorf("parse tax: %w", err)
		}
		if s.TotalPrice, err = decimal.NewFromString(totalText); err != nil {
			return nil, fmt.Errorf("parse total price: %w", err)
		}
		s.CheckIn = domain.DateOnly(s.CheckIn)
		s.CheckOut = domain.DateOnly(s.CheckOut)
		for i, d := range s.DatesReserved {
			s.DatesReserved[i] = domain.DateOnly(d)
		}
		out[bookingID] = append(out[bookingID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking selections: %w", err)
	}
	return out, nil
}

func (r *BookingRepository) CreatePayment(ctx context.Context, p domain.Payment) error {
	const stmt = `
INSERT INTO payments (
	id, transaction_id, property_id, booking_id, amount, currency, method, status, paid_at,
	guest_name, guest_email, guest_phone, received_by, receipt_number, created_at
)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.exec(ctx, stmt,
		p.ID, p.TransactionID, p.PropertyID, p.BookingID, p.Amount.StringFixed(2), p.Currency,
		string(p.Method), p.Status, p.PaidAt,
		p.Guest.Name, p.Guest.Email, p.Guest.Phone, p.ReceivedBy, p.ReceiptNumber, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrBookingNotFound
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *BookingRepository) PaymentExists(ctx context.Context, transactionID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM payments WHERE transaction_id = $1)`

	var exists bool
	if err := r.queryRow(ctx, query, transactionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check payment: %w", err)
	}
	return exists, nil
}

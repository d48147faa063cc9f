package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

type OrderRepository struct {
	conn
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{conn{pool: pool}}
}

const orderColumns = `id, external_ref, property_id, status, amount, currency,
	guest_name, guest_email, guest_phone, guest_address, adults, children,
	check_in, check_out, expires_at, payment_method, gateway_payment_id,
	created_by_type, created_by_id, metadata, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o        domain.Order
		status   string
		method   string
		metadata []byte
	)
	err := row.Scan(
		&o.ID, &o.ExternalRef, &o.PropertyID, &status, &o.Amount, &o.Currency,
		&o.Guest.Name, &o.Guest.Email, &o.Guest.Phone, &o.Guest.Address, &o.Adults, &o.Children,
		&o.CheckIn, &o.CheckOut, &o.ExpiresAt, &method, &o.GatewayPaymentID,
		&o.CreatedBy.Type, &o.CreatedBy.ID, &metadata, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentMethod = domain.PaymentMethod(method)
	o.CheckIn = domain.DateOnly(o.CheckIn)
	o.CheckOut = domain.DateOnly(o.CheckOut)
	o.ExpiresAt = o.ExpiresAt.UTC()
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &o.Metadata); err != nil {
			return domain.Order{}, fmt.Errorf("decode order metadata: %w", err)
		}
	}
	return o, nil
}

// CreateOrder writes the order and its selections. A reused external
// reference surfaces as ErrIdempotencyConflict.
func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	metadata := order.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	rawMetadata, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode order metadata: %w", err)
	}

	_, err = r.exec(ctx, stmt,
		order.ID, order.ExternalRef, order.PropertyID, string(order.Status), order.Amount, order.Currency,
		order.Guest.Name, order.Guest.Email, order.Guest.Phone, order.Guest.Address, order.Adults, order.Children,
		domain.DateOnly(order.CheckIn), domain.DateOnly(order.CheckOut), order.ExpiresAt,
		string(order.PaymentMethod), order.GatewayPaymentID,
		order.CreatedBy.Type, order.CreatedBy.ID, rawMetadata, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == "orders_external_ref_key" {
			return domain.ErrIdempotencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create order: %w", err)
	}

	const selStmt = `
INSERT INTO order_room_selections (
	id, order_id, position, room_type_id, room_type_name, room_ids, guests, children,
	meal_plan_id, price, tax, total_price, check_in, check_out
)
VALUES ($1, $2, $3, $4, $5, $6::text[]::uuid[], $7, $8, $9, $10, $11, $12, $13, $14)`

	for i, sel := range order.Selections {
		_, err := r.exec(ctx, selStmt,
			sel.ID, order.ID, i, sel.RoomTypeID, sel.RoomTypeName, sel.RoomIDs, sel.Guests, sel.Children,
			sel.MealPlanID, sel.Price, sel.Tax, sel.TotalPrice,
			domain.DateOnly(sel.CheckIn), domain.DateOnly(sel.CheckOut),
		)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("create order selection: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepository) GetOrderByExternalRef(ctx context.Context, ref string) (domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE external_ref = $1`, ref)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, arg any) (domain.Order, error) {
	o, err := scanOrder(r.queryRow(ctx, query, arg))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}

	selections, err := r.selections(ctx, []string{o.ID})
	if err != nil {
		return domain.Order{}, err
	}
	o.Selections = selections[o.ID]
	return o, nil
}

// ListOrdersByIDs skips ids that are not orders, including hold
// correlation ids that are not UUIDs.
func (r *OrderRepository) ListOrdersByIDs(ctx context.Context, ids []string) ([]domain.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id::text = ANY($1::text[]) ORDER BY created_at, id`

	rows, err := r.query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders   []domain.Order
		orderIDs []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}

	selections, err := r.selections(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Selections = selections[orders[i].ID]
	}
	return orders, nil
}

func (r *OrderRepository) selections(ctx context.Context, orderIDs []string) (map[string][]domain.OrderSelection, error) {
	const query = `
SELECT order_id, id, room_type_id, room_type_name, room_ids::text[], guests, children,
	meal_plan_id, price, tax, total_price, check_in, check_out
FROM order_room_selections
WHERE order_id = ANY($1::text[]::uuid[])
ORDER BY order_id, position`

	rows, err := r.query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list order selections: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderSelection, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			s       domain.OrderSelection
		)
		err := rows.Scan(&orderID, &s.ID, &s.RoomTypeID, &s.RoomTypeName, &s.RoomIDs, &s.Guests, &s.Children,
			&s.MealPlanID, &s.Price, &s.Tax, &s.TotalPrice, &s.CheckIn, &s.CheckOut)
		if err != nil {
			return nil, fmt.Errorf("scan order selection: %w", err)
		}
		s.CheckIn = domain.DateOnly(s.CheckIn)
		s.CheckOut = domain.DateOnly(s.CheckOut)
		out[orderID] = append(out[orderID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order selections: %w", err)
	}
	return out, nil
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, method domain.PaymentMethod, gatewayPaymentID string, at time.Time) error {
	const stmt = `
UPDATE orders
SET status = $2, payment_method = $3, gateway_payment_id = $4, updated_at = $5
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, string(status), string(method), gatewayPaymentID, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/clock"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

type OrderService struct {
	tx       Transactor
	rooms    RoomRepository
	ledger   LedgerRepository
	orders   OrderRepository
	clock    clock.Clock
	orderTTL time.Duration
	logger   logrus.FieldLogger
}

const (
	defaultOrderTTL = 30 * time.Minute
	defaultCurrency = "INR"
)

func NewOrderService(tx Transactor, rooms RoomRepository, ledger LedgerRepository, orders OrderRepository, clk clock.Clock, opts ...OrderServiceOption) *OrderService {
	svc := &OrderService{
		tx:       tx,
		rooms:    rooms,
		ledger:   ledger,
		orders:   orders,
		clock:    clk,
		orderTTL: defaultOrderTTL,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type OrderServiceOption func(*OrderService)

// WithOrderTTL overrides how long a pending order keeps its rooms.
func WithOrderTTL(d time.Duration) OrderServiceOption {
	return func(s *OrderService) {
		if d > 0 {
			s.orderTTL = d
		}
	}
}

func WithOrderLogger(l logrus.FieldLogger) OrderServiceOption {
	return func(s *OrderService) {
		if l != nil {
			s.logger = l
		}
	}
}

type SelectionInput struct {
	RoomTypeID string
	RoomIDs    []string
	Guests     int
	Children   int
	MealPlanID string
	Price      int64
	Tax        int64
	TotalPrice int64
	// Zero dates inherit the order's stay.
	CheckIn  time.Time
	CheckOut time.Time
}

type CreateOrderInput struct {
	PropertyID    string
	ExternalRef   string
	HoldRecordIDs []string
	Guest         domain.Guest
	Adults        int
	Children      int
	Amount        int64
	Currency      string
	CheckIn       time.Time
	CheckOut      time.Time
	ExpiresAt     *time.Time
	PaymentMethod domain.PaymentMethod
	CreatedBy     domain.Actor
	Metadata      map[string]string
	Selections    []SelectionInput
}

// CreateOrder attaches a live hold to a new pending order awaiting payment.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	ref := strings.TrimSpace(in.ExternalRef)
	if ref == "" {
		return domain.Order{}, domain.Invalid("external_ref", domain.ErrExternalRefRequired)
	}
	if in.Amount <= 0 {
		return domain.Order{}, domain.Invalid("amount", domain.ErrInvalidAmount)
	}
	if len(in.HoldRecordIDs) == 0 {
		return domain.Order{}, domain.Invalid("hold_record_ids", domain.ErrRecordIDsRequired)
	}
	if len(in.Selections) == 0 {
		return domain.Order{}, domain.Invalid("selections", domain.ErrSelectionsRequired)
	}
	if err := domain.ValidateStay(in.CheckIn, in.CheckOut); err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.orderTTL)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return domain.Order{}, domain.Invalid("expires_at", domain.ErrInvalidHoldExpiry)
		}
		expiresAt = in.ExpiresAt.UTC()
	}

	selections := make([]domain.OrderSelection, 0, len(in.Selections))
	for _, sel := range in.Selections {
		built, err := s.buildSelection(ctx, in, sel)
		if err != nil {
			return domain.Order{}, err
		}
		selections = append(selections, built)
	}

	order := domain.Order{
		ID:            newID(),
		ExternalRef:   ref,
		PropertyID:    in.PropertyID,
		Status:        domain.OrderStatusPending,
		Amount:        in.Amount,
		Currency:      orDefault(in.Currency, defaultCurrency),
		Guest:         in.Guest,
		Adults:        in.Adults,
		Children:      in.Children,
		CheckIn:       domain.DateOnly(in.CheckIn),
		CheckOut:      domain.DateOnly(in.CheckOut),
		ExpiresAt:     expiresAt,
		PaymentMethod: in.PaymentMethod,
		CreatedBy:     in.CreatedBy,
		Metadata:      in.Metadata,
		Selections:    selections,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = domain.PaymentMethodPaymentLink
	}

	var replayed bool
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		prior, err := s.orders.GetOrderByExternalRef(txCtx, ref)
		switch {
		case err == nil:
			if err := s.matchReplay(txCtx, prior, in); err != nil {
				return err
			}
			order, replayed = prior, true
			return nil
		case !errors.Is(err, domain.ErrOrderNotFound):
			return err
		}

		owner, records, err := lockHold(txCtx, s.ledger, in.HoldRecordIDs, now)
		if err != nil {
			return err
		}
		if err := ensureNotAttached(txCtx, s.orders, owner); err != nil {
			return err
		}
		if err := attachHold(txCtx, s.ledger, order, records, owner, now, false); err != nil {
			return err
		}
		return s.orders.CreateOrder(txCtx, order)
	})
	if err != nil {
		return domain.Order{}, err
	}

	if replayed {
		s.logger.WithFields(logrus.Fields{
			"order_id":     order.ID,
			"external_ref": order.ExternalRef,
		}).Info("order replayed")
		return order, nil
	}
	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"external_ref": order.ExternalRef,
		"amount":       order.Amount,
		"expires_at":   order.ExpiresAt,
	}).Info("order created")
	return order, nil
}

// matchReplay accepts a retried request for prior: same property and amount,
// and while prior is pending the hold rows must already belong to it.
func (s *OrderService) matchReplay(ctx context.Context, prior domain.Order, in CreateOrderInput) error {
	if prior.PropertyID != in.PropertyID || prior.Amount != in.Amount {
		return fmt.Errorf("%w: external ref %s already used for a different order", domain.ErrIdempotencyConflict, prior.ExternalRef)
	}
	if prior.Status != domain.OrderStatusPending {
		return nil
	}
	ids, err := normalizeIDs(in.HoldRecordIDs, domain.ErrRecordIDsRequired)
	if err != nil {
		return err
	}
	records, err := s.ledger.GetRecordsForUpdate(ctx, sortedCopy(ids))
	if err != nil {
		return err
	}
	if len(records) != len(ids) {
		return fmt.Errorf("%w: external ref %s holds different rooms", domain.ErrIdempotencyConflict, prior.ExternalRef)
	}
	for _, r := range records {
		if r.BlockedBy != prior.ID {
			return fmt.Errorf("%w: external ref %s holds different rooms", domain.ErrIdempotencyConflict, prior.ExternalRef)
		}
	}
	return nil
}

func (s *OrderService) buildSelection(ctx context.Context, in CreateOrderInput, sel SelectionInput) (domain.OrderSelection, error) {
	roomIDs, err := normalizeIDs(sel.RoomIDs, domain.ErrRoomIDsRequired)
	if err != nil {
		return domain.OrderSelection{}, domain.Invalid("selections.room_ids", err)
	}
	checkIn, checkOut := sel.CheckIn, sel.CheckOut
	if checkIn.IsZero() {
		checkIn = in.CheckIn
	}
	if checkOut.IsZero() {
		checkOut = in.CheckOut
	}
	if err := domain.ValidateStay(checkIn, checkOut); err != nil {
		return domain.OrderSelection{}, err
	}
	if domain.DateOnly(checkIn).Before(domain.DateOnly(in.CheckIn)) {
		return domain.OrderSelection{}, domain.Invalid("selections.check_in", domain.ErrInvalidDateRange)
	}
	if domain.DateOnly(checkOut).After(domain.DateOnly(in.CheckOut)) {
		return domain.OrderSelection{}, domain.Invalid("selections.check_out", domain.ErrInvalidDateRange)
	}
	rt, err := requireRoomsInType(ctx, s.rooms, in.PropertyID, sel.RoomTypeID, roomIDs)
	if err != nil {
		return domain.OrderSelection{}, err
	}
	total := sel.TotalPrice
	if total == 0 {
		total = sel.Price + sel.Tax
	}
	return domain.OrderSelection{
		ID:           newID(),
		RoomTypeID:   rt.ID,
		RoomTypeName: rt.Name,
		RoomIDs:      roomIDs,
		Guests:       sel.Guests,
		Children:     sel.Children,
		MealPlanID:   sel.MealPlanID,
		Price:        sel.Price,
		Tax:          sel.Tax,
		TotalPrice:   total,
		CheckIn:      domain.DateOnly(checkIn),
		CheckOut:     domain.DateOnly(checkOut),
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/clock"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/events"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/metrics"
)

// ReconciliationService turns payment outcomes into bookings or releases.
// Every entry point funnels into finalize, which is idempotent per order.
type ReconciliationService struct {
	tx        Transactor
	rooms     RoomRepository
	ledger    LedgerRepository
	orders    OrderRepository
	bookings  BookingRepository
	publisher EventPublisher

	// publishTimeout bounds the post-commit publish of one finalization.
	publishTimeout time.Duration
	clock          clock.Clock
	logger         logrus.FieldLogger
}

const defaultPublishTimeout = 2 * time.Second

func NewReconciliationService(tx Transactor, rooms RoomRepository, ledger LedgerRepository, orders OrderRepository, bookings BookingRepository, clk clock.Clock, opts ...ReconciliationOption) *ReconciliationService {
	svc := &ReconciliationService{
		tx:             tx,
		rooms:          rooms,
		ledger:         ledger,
		orders:         orders,
		bookings:       bookings,
		publishTimeout: defaultPublishTimeout,
		clock:          clk,
		logger:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReconciliationOption func(*ReconciliationService)

func WithPublisher(p EventPublisher) ReconciliationOption {
	return func(s *ReconciliationService) {
		s.publisher = p
	}
}

func WithPublishTimeout(d time.Duration) ReconciliationOption {
	return func(s *ReconciliationService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func WithReconciliationLogger(l logrus.FieldLogger) ReconciliationOption {
	return func(s *ReconciliationService) {
		if l != nil {
			s.logger = l
		}
	}
}

type SelectionSummary struct {
	RoomTypeID   string
	RoomTypeName string
	RoomIDs      []string
	CheckIn      time.Time
	CheckOut     time.Time
	TotalPrice   decimal.Decimal
}

type FinalizeResult struct {
	OrderID       string
	Outcome       domain.Outcome
	Status        domain.OrderStatus
	Skipped       bool
	BookingID     string
	BookingNumber string
	Selections    []SelectionSummary
	RecordsBooked int64
	Released      int64
}

// Finalize applies a payment outcome to an order in one transaction and
// publishes the resulting event after commit.
func (s *ReconciliationService) Finalize(ctx context.Context, orderID string, outcome domain.Outcome, payment domain.PaymentDetails) (FinalizeResult, error) {
	var (
		result FinalizeResult
		out    []events.Event
	)
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		result, out, err = s.finalize(txCtx, orderID, outcome, payment)
		return err
	})
	s.observe(orderID, outcome, result, err)
	if err != nil {
		return FinalizeResult{}, err
	}
	s.publish(ctx, out)
	return result, nil
}

func (s *ReconciliationService) finalize(ctx context.Context, orderID string, outcome domain.Outcome, payment domain.PaymentDetails) (FinalizeResult, []events.Event, error) {
	status, ok := outcome.TerminalStatus()
	if !ok {
		return FinalizeResult{}, nil, domain.Invalid("outcome", domain.ErrInvalidOutcome)
	}
	now := s.clock.Now()

	order, err := s.orders.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return FinalizeResult{}, nil, err
	}
	if outcome == domain.OutcomePaid {
		return s.applyPaid(ctx, order, payment, now)
	}
	return s.applyRelease(ctx, order, outcome, status, now)
}

func (s *ReconciliationService) applyPaid(ctx context.Context, order domain.Order, payment domain.PaymentDetails, now time.Time) (FinalizeResult, []events.Event, error) {
	result := FinalizeResult{OrderID: order.ID, Outcome: domain.OutcomePaid, Status: order.Status}

	if order.Status == domain.OrderStatusSuccess {
		result.Skipped = true
		booking, err := s.bookings.GetBookingByOrderID(ctx, order.ID)
		if err != nil && !errors.Is(err, domain.ErrBookingNotFound) {
			return FinalizeResult{}, nil, err
		}
		if err == nil {
			result.BookingID = booking.ID
			result.BookingNumber = booking.Number
			result.Selections = summarize(booking.Selections)
		}
		return result, nil, nil
	}
	if order.Status != domain.OrderStatusPending {
		return FinalizeResult{}, nil, &domain.ConsistencyError{
			OrderID: order.ID,
			Err:     domain.ErrOrderNotPending,
			Detail:  "status is " + string(order.Status),
		}
	}
	if payment.TransactionID != "" {
		exists, err := s.bookings.PaymentExists(ctx, payment.TransactionID)
		if err != nil {
			return FinalizeResult{}, nil, err
		}
		if exists {
			result.Skipped = true
			return result, nil, nil
		}
	}
	if len(order.Selections) == 0 {
		return FinalizeResult{}, nil, fmt.Errorf("order %s: %w", order.ID, domain.ErrSelectionsRequired)
	}

	held, err := s.ledger.ListHeldByOwner(ctx, order.ID)
	if err != nil {
		return FinalizeResult{}, nil, err
	}
	if len(held) == 0 {
		return FinalizeResult{}, nil, &domain.ConsistencyError{
			OrderID: order.ID,
			Err:     domain.ErrHoldVanished,
			Detail:  "no held rows remain",
		}
	}
	heldKeys := keySet(held)
	var missing []domain.SlotKey
	for _, k := range order.Slots() {
		if _, ok := heldKeys[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return FinalizeResult{}, nil, &domain.ConsistencyError{
			OrderID: order.ID,
			Err:     domain.ErrHoldVanished,
			Missing: missing,
			Detail:  "held rows no longer cover the stay",
		}
	}

	if payment.Amount > 0 && payment.Amount != order.Amount {
		s.logger.WithFields(logrus.Fields{
			"order_id":     order.ID,
			"order_amount": order.Amount,
			"paid_amount":  payment.Amount,
		}).Warn("payment amount differs from order amount")
	}
	if payment.Method == "" {
		payment.Method = order.PaymentMethod
	}
	if payment.Method == "" {
		payment.Method = domain.PaymentMethodPaymentLink
	}

	booking := BuildBooking(order, payment, now, NewBookingNumber(now))
	if lines := selectionTotal(booking.Selections); !lines.IsZero() && !lines.Equal(booking.TotalAmount) {
		s.logger.WithFields(logrus.Fields{
			"order_id":    order.ID,
			"lines_total": lines.StringFixed(2),
			"order_total": booking.TotalAmount.StringFixed(2),
		}).Debug("line totals differ from order total")
	}

	if err := s.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusSuccess, payment.Method, payment.TransactionID, now); err != nil {
		return FinalizeResult{}, nil, err
	}
	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		return FinalizeResult{}, nil, err
	}
	booked, err := s.ledger.MarkBooked(ctx, order.ID, booking.ID, "Confirmed booking "+booking.Number)
	if err != nil {
		return FinalizeResult{}, nil, err
	}
	if err := s.bookings.CreatePayment(ctx, buildPayment(order, booking, payment, now)); err != nil {
		return FinalizeResult{}, nil, err
	}

	result.Status = domain.OrderStatusSuccess
	result.BookingID = booking.ID
	result.BookingNumber = booking.Number
	result.Selections = summarize(booking.Selections)
	result.RecordsBooked = booked
	return result, []events.Event{bookingConfirmedEvent(booking, now)}, nil
}

func (s *ReconciliationService) applyRelease(ctx context.Context, order domain.Order, outcome domain.Outcome, status domain.OrderStatus, now time.Time) (FinalizeResult, []events.Event, error) {
	result := FinalizeResult{OrderID: order.ID, Outcome: outcome, Status: order.Status}
	// A success order is never un-booked from here.
	if order.Status != domain.OrderStatusPending {
		result.Skipped = true
		return result, nil, nil
	}
	if err := s.orders.UpdateOrderStatus(ctx, order.ID, status, order.PaymentMethod, order.GatewayPaymentID, now); err != nil {
		return FinalizeResult{}, nil, err
	}
	released, err := s.ledger.DeleteHeldByOwner(ctx, order.ID)
	if err != nil {
		return FinalizeResult{}, nil, err
	}
	result.Status = status
	result.Released = released
	return result, []events.Event{holdReleasedEvent(order.ID, outcome, released, now)}, nil
}

func (s *ReconciliationService) publish(ctx context.Context, out []events.Event) {
	if s.publisher == nil || len(out) == 0 {
		return
	}
	// The ledger change is committed; a slow broker must not hold the caller.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	for _, evt := range out {
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"event": evt.Type,
				"key":   evt.Key,
			}).Error("publish event")
		}
	}
}

func (s *ReconciliationService) observe(orderID string, outcome domain.Outcome, result FinalizeResult, err error) {
	label := "applied"
	switch {
	case err == nil && result.Skipped:
		label = "skipped"
	case domain.IsConsistency(err):
		label = "consistency"
		var cerr *domain.ConsistencyError
		fields := logrus.Fields{"order_id": orderID, "outcome": outcome}
		if errors.As(err, &cerr) && len(cerr.Missing) > 0 {
			fields["missing"] = len(cerr.Missing)
		}
		s.logger.WithError(err).WithFields(fields).Error("reconciliation inconsistency")
	case domain.IsConflict(err):
		label = "conflict"
	case err != nil:
		label = "error"
	}
	metrics.FinalizeTotal.WithLabelValues(string(outcome), label).Inc()

	if err == nil && !result.Skipped {
		s.logger.WithFields(logrus.Fields{
			"order_id":       orderID,
			"outcome":        outcome,
			"booking_number": result.BookingNumber,
			"released":       result.Released,
		}).Info("order finalized")
	}
}

func summarize(lines []domain.BookingRoomSelection) []SelectionSummary {
	out := make([]SelectionSummary, 0, len(lines))
	for _, l := range lines {
		out = append(out, SelectionSummary{
			RoomTypeID:   l.RoomTypeID,
			RoomTypeName: l.RoomTypeName,
			RoomIDs:      l.RoomIDs,
			CheckIn:      l.CheckIn,
			CheckOut:     l.CheckOut,
			TotalPrice:   l.TotalPrice,
		})
	}
	return out
}

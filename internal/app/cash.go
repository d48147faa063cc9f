package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/events"
)

// cashTolerance is the largest accepted gap between total and received, in major units.
var cashTolerance = decimal.NewFromInt(1)

const minNameLength = 2

type CashConfirmInput struct {
	PropertyID    string
	RoomTypeID    string
	HoldRecordIDs []string
	RoomIDs       []string
	From          time.Time
	To            time.Time
	Guest         domain.Guest
	Adults        int
	Children      int
	MealPlanID    string
	Total         decimal.Decimal
	Tax           decimal.Decimal
	Received      decimal.Decimal
	Currency      string
	PaidAt        *time.Time
	ReceivedBy    string
	ReceiptNumber string
	CreatedBy     domain.Actor
}

func (in CashConfirmInput) validate(now time.Time) error {
	if !in.Total.IsPositive() {
		return domain.Invalid("total", domain.ErrInvalidAmount)
	}
	if in.Received.Sub(in.Total).Abs().GreaterThan(cashTolerance) {
		return domain.Invalid("received", domain.ErrPaymentMismatch)
	}
	if in.PaidAt != nil && in.PaidAt.After(now) {
		return domain.Invalid("paid_at", domain.ErrPaymentInFuture)
	}
	if len(strings.TrimSpace(in.ReceivedBy)) < minNameLength {
		return domain.Invalid("received_by", domain.ErrReceivedByRequired)
	}
	if len(strings.TrimSpace(in.Guest.Name)) < minNameLength {
		return domain.Invalid("guest.name", domain.ErrGuestNameRequired)
	}
	if len(in.HoldRecordIDs) == 0 {
		return domain.Invalid("hold_record_ids", domain.ErrRecordIDsRequired)
	}
	if len(in.RoomIDs) == 0 {
		return domain.Invalid("room_ids", domain.ErrRoomIDsRequired)
	}
	return domain.ValidateStay(in.From, in.To)
}

// ConfirmCash books a front-desk hold against cash received at the desk.
// It builds a cash order around the hold and runs the paid path in the same transaction.
func (s *ReconciliationService) ConfirmCash(ctx context.Context, in CashConfirmInput) (FinalizeResult, error) {
	now := s.clock.Now()
	if err := in.validate(now); err != nil {
		return FinalizeResult{}, err
	}
	roomIDs, err := normalizeIDs(in.RoomIDs, domain.ErrRoomIDsRequired)
	if err != nil {
		return FinalizeResult{}, err
	}
	paidAt := now
	if in.PaidAt != nil {
		paidAt = in.PaidAt.UTC()
	}
	from, to := domain.DateOnly(in.From), domain.DateOnly(in.To)

	var (
		result FinalizeResult
		out    []events.Event
	)
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		owner, records, err := lockHold(txCtx, s.ledger, in.HoldRecordIDs, now)
		if err != nil {
			return err
		}
		inHold := make(map[string]struct{}, len(records))
		for _, r := range records {
			inHold[r.RoomID] = struct{}{}
		}
		for _, id := range roomIDs {
			if _, ok := inHold[id]; !ok {
				return fmt.Errorf("%w: room %s is not in the hold", domain.ErrHoldMismatch, id)
			}
		}
		if err := ensureNotAttached(txCtx, s.orders, owner); err != nil {
			return err
		}
		rt, err := requireRoomsInType(txCtx, s.rooms, in.PropertyID, in.RoomTypeID, roomIDs)
		if err != nil {
			return err
		}

		order := s.cashOrder(in, rt, roomIDs, from, to, now)
		if err := attachHold(txCtx, s.ledger, order, records, owner, now, true); err != nil {
			return err
		}
		if err := s.orders.CreateOrder(txCtx, order); err != nil {
			return err
		}

		result, out, err = s.finalize(txCtx, order.ID, domain.OutcomePaid, domain.PaymentDetails{
			TransactionID: newCashTransactionID(now),
			Method:        domain.PaymentMethodCash,
			Amount:        domain.MajorToMinor(in.Received),
			PaidAt:        paidAt,
			ReceivedBy:    strings.TrimSpace(in.ReceivedBy),
			ReceiptNumber: strings.TrimSpace(in.ReceiptNumber),
		})
		return err
	})
	s.observe(result.OrderID, domain.OutcomePaid, result, err)
	if err != nil {
		return FinalizeResult{}, err
	}
	s.publish(ctx, out)

	s.logger.WithFields(logrus.Fields{
		"booking_number": result.BookingNumber,
		"received_by":    in.ReceivedBy,
		"rooms":          len(roomIDs),
	}).Info("cash booking confirmed")
	return result, nil
}

func (s *ReconciliationService) cashOrder(in CashConfirmInput, rt domain.RoomType, roomIDs []string, from, to, now time.Time) domain.Order {
	total := domain.MajorToMinor(in.Total)
	tax := domain.MajorToMinor(in.Tax)
	metadata := map[string]string{
		"source":      "front_desk",
		"received_by": strings.TrimSpace(in.ReceivedBy),
	}
	if in.ReceiptNumber != "" {
		metadata["receipt_number"] = in.ReceiptNumber
	}
	return domain.Order{
		ID:            newID(),
		ExternalRef:   newCashOrderRef(now),
		PropertyID:    in.PropertyID,
		Status:        domain.OrderStatusPending,
		Amount:        total,
		Currency:      orDefault(in.Currency, defaultCurrency),
		Guest:         in.Guest,
		Adults:        in.Adults,
		Children:      in.Children,
		CheckIn:       from,
		CheckOut:      to,
		ExpiresAt:     now.Add(defaultOrderTTL),
		PaymentMethod: domain.PaymentMethodCash,
		CreatedBy:     in.CreatedBy,
		Metadata:      metadata,
		Selections: []domain.OrderSelection{{
			ID:           newID(),
			RoomTypeID:   rt.ID,
			RoomTypeName: rt.Name,
			RoomIDs:      roomIDs,
			Guests:       in.Adults,
			Children:     in.Children,
			MealPlanID:   in.MealPlanID,
			Price:        total - tax,
			Tax:          tax,
			TotalPrice:   total,
			CheckIn:      from,
			CheckOut:     to,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

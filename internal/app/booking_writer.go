package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/events"
)

// BuildBooking derives the booking aggregate from a paid order. It has no side effects.
func BuildBooking(order domain.Order, payment domain.PaymentDetails, now time.Time, number string) domain.Booking {
	var adults, children, rooms int
	lines := make([]domain.BookingRoomSelection, 0, len(order.Selections))
	breakdown := make([]domain.RateSnapshotLine, 0, len(order.Selections))
	for _, sel := range order.Selections {
		adults += sel.Guests
		children += sel.Children
		rooms += len(sel.RoomIDs)

		base := domain.MinorToMajor(sel.Price)
		tax := domain.MinorToMajor(sel.Tax)
		total := domain.MinorToMajor(sel.TotalPrice)
		lines = append(lines, domain.BookingRoomSelection{
			ID:            newID(),
			RoomTypeID:    sel.RoomTypeID,
			RoomTypeName:  sel.RoomTypeName,
			RoomIDs:       append([]string(nil), sel.RoomIDs...),
			Rooms:         len(sel.RoomIDs),
			Guests:        sel.Guests,
			Children:      sel.Children,
			MealPlanID:    sel.MealPlanID,
			BasePrice:     base,
			Tax:           tax,
			TotalPrice:    total,
			CheckIn:       sel.CheckIn,
			CheckOut:      sel.CheckOut,
			DatesReserved: domain.DateRange(sel.CheckIn, sel.CheckOut),
		})
		breakdown = append(breakdown, domain.RateSnapshotLine{
			RoomTypeID:   sel.RoomTypeID,
			RoomTypeName: sel.RoomTypeName,
			MealPlanID:   sel.MealPlanID,
			Rooms:        len(sel.RoomIDs),
			BasePrice:    base,
			Tax:          tax,
			TotalPrice:   total,
		})
	}
	// Orders placed without per-line guest counts fall back to the order header.
	if adults == 0 {
		adults = order.Adults
	}
	if children == 0 {
		children = order.Children
	}

	method := payment.Method
	if method == "" {
		method = order.PaymentMethod
	}
	reference := payment.TransactionID
	if reference == "" {
		reference = order.ExternalRef
	}

	return domain.Booking{
		ID:               newID(),
		Number:           number,
		OrderID:          order.ID,
		PropertyID:       order.PropertyID,
		Guest:            order.Guest,
		StartDate:        order.CheckIn,
		EndDate:          order.CheckOut,
		Nights:           domain.Nights(order.CheckIn, order.CheckOut),
		Adults:           adults,
		Children:         children,
		TotalGuests:      adults + children,
		Rooms:            rooms,
		TotalAmount:      domain.MinorToMajor(order.Amount),
		Currency:         order.Currency,
		PaymentStatus:    domain.PaymentStatusPaid,
		PaymentMethod:    method,
		PaymentReference: reference,
		Status:           domain.BookingStatusConfirmed,
		ConfirmationDate: now,
		RateSnapshot: domain.RateSnapshot{
			OrderAmount:   order.Amount,
			Currency:      order.Currency,
			OrderRef:      order.ExternalRef,
			OrderedAt:     order.CreatedAt,
			TotalRooms:    rooms,
			TotalAdults:   adults,
			TotalChildren: children,
			Breakdown:     breakdown,
		},
		Selections: lines,
		CreatedAt:  now,
	}
}

func buildPayment(order domain.Order, booking domain.Booking, details domain.PaymentDetails, now time.Time) domain.Payment {
	txnID := details.TransactionID
	if txnID == "" {
		txnID = "TXN-" + booking.Number
	}
	amount := booking.TotalAmount
	if details.Amount > 0 {
		amount = domain.MinorToMajor(details.Amount)
	}
	paidAt := details.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}
	return domain.Payment{
		ID:            newID(),
		TransactionID: txnID,
		PropertyID:    order.PropertyID,
		BookingID:     booking.ID,
		Amount:        amount,
		Currency:      order.Currency,
		Method:        booking.PaymentMethod,
		Status:        domain.PaymentStatusPaid,
		PaidAt:        paidAt,
		Guest:         order.Guest,
		ReceivedBy:    details.ReceivedBy,
		ReceiptNumber: details.ReceiptNumber,
		CreatedAt:     now,
	}
}

func bookingConfirmedEvent(b domain.Booking, now time.Time) events.Event {
	lines := make([]events.BookedLine, 0, len(b.Selections))
	for _, sel := range b.Selections {
		lines = append(lines, events.BookedLine{
			RoomTypeID:   sel.RoomTypeID,
			RoomTypeName: sel.RoomTypeName,
			RoomIDs:      sel.RoomIDs,
			TotalPrice:   sel.TotalPrice.StringFixed(2),
		})
	}
	return events.Event{
		ID:         newID(),
		Type:       events.TypeBookingConfirmed,
		Key:        b.OrderID,
		OccurredAt: now,
		Payload: events.BookingConfirmed{
			BookingID:     b.ID,
			BookingNumber: b.Number,
			OrderID:       b.OrderID,
			PropertyID:    b.PropertyID,
			GuestName:     b.Guest.Name,
			GuestEmail:    b.Guest.Email,
			GuestPhone:    b.Guest.Phone,
			CheckIn:       domain.FormatDate(b.StartDate),
			CheckOut:      domain.FormatDate(b.EndDate),
			TotalAmount:   b.TotalAmount.StringFixed(2),
			Currency:      b.Currency,
			PaymentMethod: string(b.PaymentMethod),
			Lines:         lines,
		},
	}
}

func holdReleasedEvent(orderID string, outcome domain.Outcome, released int64, now time.Time) events.Event {
	return events.Event{
		ID:         newID(),
		Type:       events.TypeHoldReleased,
		Key:        orderID,
		OccurredAt: now,
		Payload: events.HoldReleased{
			OrderID:  orderID,
			Outcome:  string(outcome),
			Released: released,
		},
	}
}

// selectionTotal sums line totals, used to cross-check the order amount.
func selectionTotal(lines []domain.BookingRoomSelection) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.TotalPrice)
	}
	return total
}

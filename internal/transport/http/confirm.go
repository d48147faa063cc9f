package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/app"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// CashConfirmer is the minimal interface needed to book a hold against cash.
type CashConfirmer interface {
	ConfirmCash(ctx context.Context, in app.CashConfirmInput) (app.FinalizeResult, error)
}

// HandleConfirmCash books a front-desk hold paid in person.
func HandleConfirmCash(svc CashConfirmer, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmCashRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		from, err := parseDate("from", req.From)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		to, err := parseDate("to", req.To)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		paidAt, err := parseOptionalTime("paid_at", req.PaidAt)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		res, err := svc.ConfirmCash(r.Context(), app.CashConfirmInput{
			PropertyID:    chi.URLParam(r, "propertyID"),
			RoomTypeID:    req.RoomTypeID,
			HoldRecordIDs: req.HoldRecordIDs,
			RoomIDs:       req.RoomIDs,
			From:          from,
			To:            to,
			Guest:         req.Guest.toDomain(),
			Adults:        req.Adults,
			Children:      req.Children,
			MealPlanID:    req.MealPlanID,
			Total:         req.Total,
			Tax:           req.Tax,
			Received:      req.Received,
			Currency:      req.Currency,
			PaidAt:        paidAt,
			ReceivedBy:    req.ReceivedBy,
			ReceiptNumber: req.ReceiptNumber,
			CreatedBy:     domain.Actor{Type: req.CreatedBy.Type, ID: req.CreatedBy.ID},
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		status := http.StatusCreated
		if res.Skipped {
			status = http.StatusOK
		}
		writeJSON(w, status, newFinalizeResponse(res))
	}
}

type confirmCashRequest struct {
	RoomTypeID    string          `json:"room_type_id" validate:"required"`
	HoldRecordIDs []string        `json:"hold_record_ids" validate:"required,min=1,dive,required"`
	RoomIDs       []string        `json:"room_ids" validate:"required,min=1,dive,required"`
	From          string          `json:"from" validate:"required"`
	To            string          `json:"to" validate:"required"`
	Guest         guestRequest    `json:"guest"`
	Adults        int             `json:"adults" validate:"min=0"`
	Children      int             `json:"children" validate:"min=0"`
	MealPlanID    string          `json:"meal_plan_id"`
	Total         decimal.Decimal `json:"total"`
	Tax           decimal.Decimal `json:"tax"`
	Received      decimal.Decimal `json:"received"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	PaidAt        string          `json:"paid_at"`
	ReceivedBy    string          `json:"received_by" validate:"required"`
	ReceiptNumber string          `json:"receipt_number"`
	CreatedBy     actorRequest    `json:"created_by"`
}

type selectionSummaryResponse struct {
	RoomTypeID   string   `json:"room_type_id"`
	RoomTypeName string   `json:"room_type_name"`
	RoomIDs      []string `json:"room_ids"`
	CheckIn      string   `json:"check_in"`
	CheckOut     string   `json:"check_out"`
	TotalPrice   string   `json:"total_price"`
}

type finalizeResponse struct {
	OrderID       string                     `json:"order_id"`
	Outcome       string                     `json:"outcome"`
	Status        string                     `json:"status"`
	Skipped       bool                       `json:"skipped"`
	BookingID     string                     `json:"booking_id,omitempty"`
	BookingNumber string                     `json:"booking_number,omitempty"`
	Selections    []selectionSummaryResponse `json:"selections,omitempty"`
	RecordsBooked int64                      `json:"records_booked"`
	Released      int64                      `json:"released"`
}

func newFinalizeResponse(res app.FinalizeResult) finalizeResponse {
	var sels []selectionSummaryResponse
	for _, s := range res.Selections {
		sels = append(sels, selectionSummaryResponse{
			RoomTypeID:   s.RoomTypeID,
			RoomTypeName: s.RoomTypeName,
			RoomIDs:      s.RoomIDs,
			CheckIn:      domain.FormatDate(s.CheckIn),
			CheckOut:     domain.FormatDate(s.CheckOut),
			TotalPrice:   s.TotalPrice.StringFixed(2),
		})
	}
	return finalizeResponse{
		OrderID:       res.OrderID,
		Outcome:       string(res.Outcome),
		Status:        string(res.Status),
		Skipped:       res.Skipped,
		BookingID:     res.BookingID,
		BookingNumber: res.BookingNumber,
		Selections:    sels,
		RecordsBooked: res.RecordsBooked,
		Released:      res.Released,
	}
}

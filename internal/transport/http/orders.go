package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/app"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// OrderCreator is the minimal interface needed to open a payment order.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
}

// HandleCreateOrder attaches a hold to a pending order awaiting payment.
func HandleCreateOrder(svc OrderCreator, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in, err := req.toInput(chi.URLParam(r, "propertyID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, newOrderResponse(order))
	}
}

type guestRequest struct {
	Name    string `json:"name" validate:"required,min=2"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (g guestRequest) toDomain() domain.Guest {
	return domain.Guest{Name: g.Name, Email: g.Email, Phone: g.Phone, Address: g.Address}
}

type actorRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type selectionRequest struct {
	RoomTypeID string   `json:"room_type_id" validate:"required"`
	RoomIDs    []string `json:"room_ids" validate:"required,min=1,dive,required"`
	Guests     int      `json:"guests" validate:"min=0"`
	Children   int      `json:"children" validate:"min=0"`
	MealPlanID string   `json:"meal_plan_id"`
	Price      int64    `json:"price" validate:"min=0"`
	Tax        int64    `json:"tax" validate:"min=0"`
	TotalPrice int64    `json:"total_price" validate:"min=0"`
	CheckIn    string   `json:"check_in"`
	CheckOut   string   `json:"check_out"`
}

type createOrderRequest struct {
	ExternalRef   string             `json:"external_ref" validate:"required"`
	HoldRecordIDs []string           `json:"hold_record_ids" validate:"required,min=1,dive,required"`
	Guest         guestRequest       `json:"guest"`
	Adults        int                `json:"adults" validate:"min=0"`
	Children      int                `json:"children" validate:"min=0"`
	Amount        int64              `json:"amount" validate:"gt=0"`
	Currency      string             `json:"currency" validate:"omitempty,len=3"`
	CheckIn       string             `json:"check_in" validate:"required"`
	CheckOut      string             `json:"check_out" validate:"required"`
	ExpiresAt     string             `json:"expires_at"`
	PaymentMethod string             `json:"payment_method" validate:"omitempty,oneof=payment_link razorpay"`
	CreatedBy     actorRequest       `json:"created_by"`
	Metadata      map[string]string  `json:"metadata"`
	Selections    []selectionRequest `json:"selections" validate:"required,min=1,dive"`
}

func (req createOrderRequest) toInput(propertyID string) (app.CreateOrderInput, error) {
	checkIn, err := parseDate("check_in", req.CheckIn)
	if err != nil {
		return app.CreateOrderInput{}, err
	}
	checkOut, err := parseDate("check_out", req.CheckOut)
	if err != nil {
		return app.CreateOrderInput{}, err
	}
	expiresAt, err := parseOptionalTime("expires_at", req.ExpiresAt)
	if err != nil {
		return app.CreateOrderInput{}, err
	}

	selections := make([]app.SelectionInput, 0, len(req.Selections))
	for _, sel := range req.Selections {
		in := app.SelectionInput{
			RoomTypeID: sel.RoomTypeID,
			RoomIDs:    sel.RoomIDs,
			Guests:     sel.Guests,
			Children:   sel.Children,
			MealPlanID: sel.MealPlanID,
			Price:      sel.Price,
			Tax:        sel.Tax,
			TotalPrice: sel.TotalPrice,
		}
		if d, err := parseOptionalDate("selections.check_in", sel.CheckIn); err != nil {
			return app.CreateOrderInput{}, err
		} else if d != nil {
			in.CheckIn = *d
		}
		if d, err := parseOptionalDate("selections.check_out", sel.CheckOut); err != nil {
			return app.CreateOrderInput{}, err
		} else if d != nil {
			in.CheckOut = *d
		}
		selections = append(selections, in)
	}

	return app.CreateOrderInput{
		PropertyID:    propertyID,
		ExternalRef:   req.ExternalRef,
		HoldRecordIDs: req.HoldRecordIDs,
		Guest:         req.Guest.toDomain(),
		Adults:        req.Adults,
		Children:      req.Children,
		Amount:        req.Amount,
		Currency:      req.Currency,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		ExpiresAt:     expiresAt,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		CreatedBy:     domain.Actor{Type: req.CreatedBy.Type, ID: req.CreatedBy.ID},
		Metadata:      req.Metadata,
		Selections:    selections,
	}, nil
}

type orderSelectionResponse struct {
	RoomTypeID   string   `json:"room_type_id"`
	RoomTypeName string   `json:"room_type_name"`
	RoomIDs      []string `json:"room_ids"`
	CheckIn      string   `json:"check_in"`
	CheckOut     string   `json:"check_out"`
	TotalPrice   int64    `json:"total_price"`
}

type orderResponse struct {
	ID          string                   `json:"id"`
	ExternalRef string                   `json:"external_ref"`
	PropertyID  string                   `json:"property_id"`
	Status      string                   `json:"status"`
	Amount      int64                    `json:"amount"`
	Currency    string                   `json:"currency"`
	CheckIn     string                   `json:"check_in"`
	CheckOut    string                   `json:"check_out"`
	ExpiresAt   string                   `json:"expires_at"`
	Selections  []orderSelectionResponse `json:"selections"`
	CreatedAt   string                   `json:"created_at"`
}

func newOrderResponse(o domain.Order) orderResponse {
	sels := make([]orderSelectionResponse, 0, len(o.Selections))
	for _, s := range o.Selections {
		sels = append(sels, orderSelectionResponse{
			RoomTypeID:   s.RoomTypeID,
			RoomTypeName: s.RoomTypeName,
			RoomIDs:      s.RoomIDs,
			CheckIn:      domain.FormatDate(s.CheckIn),
			CheckOut:     domain.FormatDate(s.CheckOut),
			TotalPrice:   s.TotalPrice,
		})
	}
	return orderResponse{
		ID:          o.ID,
		ExternalRef: o.ExternalRef,
		PropertyID:  o.PropertyID,
		Status:      string(o.Status),
		Amount:      o.Amount,
		Currency:    o.Currency,
		CheckIn:     domain.FormatDate(o.CheckIn),
		CheckOut:    domain.FormatDate(o.CheckOut),
		ExpiresAt:   formatTime(o.ExpiresAt),
		Selections:  sels,
		CreatedAt:   formatTime(o.CreatedAt),
	}
}

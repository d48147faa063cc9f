package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/app"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// AvailabilityChecker is the minimal interface needed to query the ledger.
type AvailabilityChecker interface {
	CheckRange(ctx context.Context, q app.RangeQuery) (domain.RangeCheck, error)
}

// HoldManager is the minimal interface needed for hold endpoints.
type HoldManager interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Hold, error)
	ExtendHold(ctx context.Context, recordIDs []string, expiresAt time.Time) (int64, error)
	ReleaseHold(ctx context.Context, recordIDs []string) (app.ReleaseResult, error)
}

// HandleCheckAvailability answers whether rooms are free for [from, to).
func HandleCheckAvailability(svc AvailabilityChecker, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, err := parseDate("from", q.Get("from"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		to, err := parseDate("to", q.Get("to"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		check, err := svc.CheckRange(r.Context(), app.RangeQuery{
			RoomIDs:      splitCSV(q.Get("room_ids")),
			From:         from,
			To:           to,
			ExcludeOwner: q.Get("exclude_owner"),
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, availabilityResponse{
			PropertyID: chi.URLParam(r, "propertyID"),
			Free:       check.Free,
			Conflicts:  conflictDetails(check.Conflicts),
		})
	}
}

// HandleCreateHold places a time-boxed hold on rooms for a stay.
func HandleCreateHold(svc HoldManager, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createHoldRequest
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
		expiresAt, err := parseOptionalTime("expires_at", req.ExpiresAt)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		hold, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
			PropertyID: chi.URLParam(r, "propertyID"),
			RoomTypeID: req.RoomTypeID,
			RoomIDs:    req.RoomIDs,
			From:       from,
			To:         to,
			TTL:        time.Duration(req.TTLSeconds) * time.Second,
			ExpiresAt:  expiresAt,
			PlacedBy:   req.PlacedBy,
			Reason:     req.Reason,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, newHoldResponse(hold))
	}
}

// HandleReleaseHold deletes hold rows; booked rows are reported as skipped.
func HandleReleaseHold(svc HoldManager, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordIDsRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.ReleaseHold(r.Context(), req.RecordIDs)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		skipped := res.Skipped
		if skipped == nil {
			skipped = []string{}
		}
		writeJSON(w, http.StatusOK, releaseHoldResponse{Released: res.Released, Skipped: skipped})
	}
}

// HandleExtendHold moves the expiry of live hold rows.
func HandleExtendHold(svc HoldManager, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req extendHoldRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		expiresAt, err := parseTime("expires_at", req.ExpiresAt)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		n, err := svc.ExtendHold(r.Context(), req.RecordIDs, expiresAt)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, extendHoldResponse{Extended: n, ExpiresAt: formatTime(expiresAt)})
	}
}

type createHoldRequest struct {
	RoomTypeID string   `json:"room_type_id" validate:"required"`
	RoomIDs    []string `json:"room_ids" validate:"required,min=1,dive,required"`
	From       string   `json:"from" validate:"required"`
	To         string   `json:"to" validate:"required"`
	TTLSeconds int      `json:"ttl_seconds" validate:"omitempty,min=1"`
	ExpiresAt  string   `json:"expires_at"`
	PlacedBy   string   `json:"placed_by"`
	Reason     string   `json:"reason" validate:"max=500"`
}

type recordIDsRequest struct {
	RecordIDs []string `json:"record_ids" validate:"required,min=1,dive,required"`
}

type extendHoldRequest struct {
	RecordIDs []string `json:"record_ids" validate:"required,min=1,dive,required"`
	ExpiresAt string   `json:"expires_at" validate:"required"`
}

type availabilityResponse struct {
	PropertyID string           `json:"property_id"`
	Free       bool             `json:"free"`
	Conflicts  []conflictDetail `json:"conflicts"`
}

type holdRecordResponse struct {
	ID     string `json:"id"`
	RoomID string `json:"room_id"`
	Date   string `json:"date"`
}

type holdResponse struct {
	CorrelationID string               `json:"correlation_id"`
	PropertyID    string               `json:"property_id"`
	RoomTypeID    string               `json:"room_type_id"`
	RoomIDs       []string             `json:"room_ids"`
	From          string               `json:"from"`
	To            string               `json:"to"`
	ExpiresAt     string               `json:"expires_at"`
	Records       []holdRecordResponse `json:"records"`
}

func newHoldResponse(h domain.Hold) holdResponse {
	records := make([]holdRecordResponse, 0, len(h.Records))
	for _, rec := range h.Records {
		records = append(records, holdRecordResponse{
			ID:     rec.ID,
			RoomID: rec.RoomID,
			Date:   domain.FormatDate(rec.Date),
		})
	}
	return holdResponse{
		CorrelationID: h.CorrelationID,
		PropertyID:    h.PropertyID,
		RoomTypeID:    h.RoomTypeID,
		RoomIDs:       h.RoomIDs,
		From:          domain.FormatDate(h.From),
		To:            domain.FormatDate(h.To),
		ExpiresAt:     formatTime(h.ExpiresAt),
		Records:       records,
	}
}

type releaseHoldResponse struct {
	Released int64    `json:"released"`
	Skipped  []string `json:"skipped"`
}

type extendHoldResponse struct {
	Extended  int64  `json:"extended"`
	ExpiresAt string `json:"expires_at"`
}

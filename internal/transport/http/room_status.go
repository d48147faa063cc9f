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

// StatusManager is the minimal interface needed for staff room-status endpoints.
type StatusManager interface {
	PlaceStatus(ctx context.Context, in app.PlaceStatusInput) (domain.AvailabilityRecord, error)
	ReleaseStatus(ctx context.Context, propertyID, recordID string, status domain.AvailabilityStatus) error
}

// HandlePlaceStatus marks a room-night blocked, under maintenance or out of service.
func HandlePlaceStatus(svc StatusManager, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		date, err := parseDate("date", req.Date)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		rec, err := svc.PlaceStatus(r.Context(), app.PlaceStatusInput{
			PropertyID:   chi.URLParam(r, "propertyID"),
			RoomTypeID:   req.RoomTypeID,
			RoomID:       req.RoomID,
			Date:         date,
			Status:       domain.AvailabilityStatus(req.Status),
			Reason:       req.Reason,
			BlockedBy:    req.BlockedBy,
			ReleaseAfter: time.Duration(req.ReleaseAfterSeconds) * time.Second,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newRecordResponse(rec))
	}
}

// HandleReleaseStatus deletes a staff status row of the given kind.
func HandleReleaseStatus(svc StatusManager, logger logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := domain.AvailabilityStatus(r.URL.Query().Get("status"))
		recordID := chi.URLParam(r, "recordID")
		if err := svc.ReleaseStatus(r.Context(), chi.URLParam(r, "propertyID"), recordID, status); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, releaseStatusResponse{Released: true, RecordID: recordID, Status: string(status)})
	}
}

type placeStatusRequest struct {
	RoomTypeID          string `json:"room_type_id" validate:"required"`
	RoomID              string `json:"room_id" validate:"required"`
	Date                string `json:"date" validate:"required"`
	Status              string `json:"status" validate:"required,oneof=blocked maintenance out_of_service"`
	Reason              string `json:"reason" validate:"max=500"`
	BlockedBy           string `json:"blocked_by"`
	ReleaseAfterSeconds int    `json:"release_after_seconds" validate:"min=0"`
}

type recordResponse struct {
	ID            string  `json:"id"`
	RoomID        string  `json:"room_id"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	Reason        string  `json:"reason,omitempty"`
	BlockedBy     string  `json:"blocked_by,omitempty"`
	HoldExpiresAt *string `json:"hold_expires_at,omitempty"`
}

func newRecordResponse(rec domain.AvailabilityRecord) recordResponse {
	return recordResponse{
		ID:            rec.ID,
		RoomID:        rec.RoomID,
		Date:          domain.FormatDate(rec.Date),
		Status:        string(rec.Status),
		Reason:        rec.Reason,
		BlockedBy:     rec.BlockedBy,
		HoldExpiresAt: formatOptionalTime(rec.HoldExpiresAt),
	}
}

type releaseStatusResponse struct {
	Released bool   `json:"released"`
	RecordID string `json:"record_id"`
	Status   string `json:"status"`
}

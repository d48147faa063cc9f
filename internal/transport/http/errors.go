package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeValidationFailed    = "validation_failed"
	codeInvalidID           = "invalid_id"
	codeInvalidDate         = "invalid_date"
	codeInvalidDateRange    = "invalid_date_range"
	codeInvalidSignature    = "invalid_signature"
	codeRoomBooked          = "room_booked"
	codeRoomBlocked         = "room_blocked"
	codeHoldExpired         = "hold_expired"
	codeHoldMismatch        = "hold_mismatch"
	codeHoldAlreadyAttached = "hold_already_attached"
	codeIdempotencyConflict = "idempotency_conflict"
	codeHoldVanished        = "hold_vanished"
	codeOrderNotPending     = "order_not_pending"
	codeRoomTypeNotFound    = "room_type_not_found"
	codeRoomNotInRoomType   = "room_not_in_room_type"
	codeRecordNotFound      = "record_not_found"
	codeOrderNotFound       = "order_not_found"
	codeBookingNotFound     = "booking_not_found"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

type conflictDetail struct {
	RecordID      string  `json:"record_id"`
	RoomID        string  `json:"room_id"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	BlockedBy     string  `json:"blocked_by,omitempty"`
	HoldExpiresAt *string `json:"hold_expires_at,omitempty"`
}

type slotDetail struct {
	RoomID string `json:"room_id"`
	Date   string `json:"date"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorDetails(w, status, code, msg, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:   msg,
		Code:    code,
		Details: details,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// classify maps a service error to an HTTP status, a stable code and optional details.
func classify(err error) (int, string, any) {
	var (
		conflictErr    *domain.ConflictError
		consistencyErr *domain.ConsistencyError
		validationErr  *domain.ValidationError
	)

	switch {
	case errors.As(err, &conflictErr):
		code := codeRoomBlocked
		if errors.Is(err, domain.ErrRoomBooked) {
			code = codeRoomBooked
		}
		return http.StatusConflict, code, conflictDetails(conflictErr.Conflicts)
	case errors.As(err, &consistencyErr):
		code := codeOrderNotPending
		if errors.Is(err, domain.ErrHoldVanished) {
			code = codeHoldVanished
		}
		var details any
		if len(consistencyErr.Missing) > 0 {
			details = slotDetails(consistencyErr.Missing)
		}
		return http.StatusConflict, code, details

	case errors.Is(err, domain.ErrRoomBooked):
		return http.StatusConflict, codeRoomBooked, nil
	case errors.Is(err, domain.ErrRoomBlocked), errors.Is(err, domain.ErrDuplicateRecord):
		return http.StatusConflict, codeRoomBlocked, nil
	case errors.Is(err, domain.ErrHoldExpired):
		return http.StatusConflict, codeHoldExpired, nil
	case errors.Is(err, domain.ErrHoldMismatch):
		return http.StatusConflict, codeHoldMismatch, nil
	case errors.Is(err, domain.ErrHoldAlreadyAttached):
		return http.StatusConflict, codeHoldAlreadyAttached, nil
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, codeIdempotencyConflict, nil

	case errors.Is(err, domain.ErrRoomTypeNotFound):
		return http.StatusNotFound, codeRoomTypeNotFound, nil
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, codeRecordNotFound, nil
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, codeOrderNotFound, nil
	case errors.Is(err, domain.ErrBookingNotFound):
		return http.StatusNotFound, codeBookingNotFound, nil

	case errors.Is(err, domain.ErrRoomNotInRoomType):
		return http.StatusBadRequest, codeRoomNotInRoomType, fieldDetails(err)
	case errors.Is(err, domain.ErrInvalidDateRange):
		return http.StatusBadRequest, codeInvalidDateRange, nil
	case errors.Is(err, domain.ErrInvalidDate):
		return http.StatusBadRequest, codeInvalidDate, fieldDetails(err)
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, codeInvalidID, nil
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, codeValidationFailed, map[string]string{"field": validationErr.Field}
	case isDomainValidation(err):
		return http.StatusBadRequest, codeValidationFailed, nil
	}
	return http.StatusInternalServerError, codeInternalError, nil
}

func isDomainValidation(err error) bool {
	for _, target := range []error{
		domain.ErrRoomIDsRequired,
		domain.ErrRecordIDsRequired,
		domain.ErrInvalidStatus,
		domain.ErrInvalidHoldExpiry,
		domain.ErrReleaseAfterRequired,
		domain.ErrInvalidAmount,
		domain.ErrSelectionsRequired,
		domain.ErrExternalRefRequired,
		domain.ErrInvalidOutcome,
		domain.ErrPaymentMismatch,
		domain.ErrPaymentInFuture,
		domain.ErrReceivedByRequired,
		domain.ErrGuestNameRequired,
		domain.ErrNameRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func fieldDetails(err error) any {
	var target *domain.ValidationError
	if errors.As(err, &target) {
		return map[string]string{"field": target.Field}
	}
	return nil
}

// writeServiceError writes the mapped response. Internal errors are logged
// and their message is not exposed.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	status, code, details := classify(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, status, code, "internal error")
		return
	}
	writeErrorDetails(w, status, code, err.Error(), details)
}

func conflictDetails(conflicts []domain.Conflict) []conflictDetail {
	out := make([]conflictDetail, 0, len(conflicts))
	for _, c := range conflicts {
		d := conflictDetail{
			RecordID:  c.RecordID,
			RoomID:    c.RoomID,
			Date:      domain.FormatDate(c.Date),
			Status:    string(c.Status),
			BlockedBy: c.BlockedBy,
		}
		if c.HoldExpiresAt != nil {
			exp := c.HoldExpiresAt.UTC().Format(timeLayout)
			d.HoldExpiresAt = &exp
		}
		out = append(out, d)
	}
	return out
}

func slotDetails(keys []domain.SlotKey) []slotDetail {
	out := make([]slotDetail, 0, len(keys))
	for _, k := range keys {
		out = append(out, slotDetail{RoomID: k.RoomID, Date: k.Day})
	}
	return out
}

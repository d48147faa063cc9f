package app

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/clock"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// StatusService places and lifts staff-driven room statuses for single days.
type StatusService struct {
	tx     Transactor
	rooms  RoomRepository
	ledger LedgerRepository
	orders OrderRepository
	clock  clock.Clock
	logger logrus.FieldLogger
}

func NewStatusService(tx Transactor, rooms RoomRepository, ledger LedgerRepository, orders OrderRepository, clk clock.Clock, logger logrus.FieldLogger) *StatusService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StatusService{tx: tx, rooms: rooms, ledger: ledger, orders: orders, clock: clk, logger: logger}
}

type PlaceStatusInput struct {
	PropertyID   string
	RoomTypeID   string
	RoomID       string
	Date         time.Time
	Status       domain.AvailabilityStatus
	Reason       string
	BlockedBy    string
	ReleaseAfter time.Duration
}

func (s *StatusService) PlaceStatus(ctx context.Context, in PlaceStatusInput) (domain.AvailabilityRecord, error) {
	if !in.Status.StaffSettable() {
		return domain.AvailabilityRecord{}, domain.Invalid("status", domain.ErrInvalidStatus)
	}
	if in.Date.IsZero() {
		return domain.AvailabilityRecord{}, domain.Invalid("date", domain.ErrInvalidDate)
	}
	if in.Status == domain.StatusBlocked && in.ReleaseAfter <= 0 {
		return domain.AvailabilityRecord{}, domain.Invalid("release_after", domain.ErrReleaseAfterRequired)
	}
	if strings.TrimSpace(in.RoomID) == "" {
		return domain.AvailabilityRecord{}, domain.Invalid("room_id", domain.ErrRoomIDsRequired)
	}
	if _, err := requireRoomsInType(ctx, s.rooms, in.PropertyID, in.RoomTypeID, []string{in.RoomID}); err != nil {
		return domain.AvailabilityRecord{}, err
	}

	now := s.clock.Now()
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = domain.DefaultReason(in.Status)
	}
	owner := strings.TrimSpace(in.BlockedBy)
	if owner == "" {
		owner = "Front desk"
		if in.Status == domain.StatusMaintenance {
			owner = "Maintenance"
		}
	}
	record := domain.AvailabilityRecord{
		ID:        newID(),
		RoomID:    in.RoomID,
		Date:      domain.DateOnly(in.Date),
		Status:    in.Status,
		Reason:    reason,
		BlockedBy: owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Status == domain.StatusBlocked {
		exp := now.Add(in.ReleaseAfter)
		record.HoldExpiresAt = &exp
	}

	var saved domain.AvailabilityRecord
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.ledger.GetRecordByKeyForUpdate(txCtx, record.RoomID, record.Date)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == domain.StatusBooked {
				return domain.NewConflictError([]domain.Conflict{domain.ConflictFrom(*existing)})
			}
			if existing.IsHold() && !existing.Expired(now) && existing.BlockedBy != owner {
				return domain.NewConflictError([]domain.Conflict{domain.ConflictFrom(*existing)})
			}
		}
		saved, err = s.ledger.UpsertStatus(txCtx, record)
		return err
	})
	if err != nil {
		return domain.AvailabilityRecord{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"room_id": saved.RoomID,
		"date":    domain.FormatDate(saved.Date),
		"status":  saved.Status,
	}).Info("room status placed")
	return saved, nil
}

// ReleaseStatus deletes recordID when it belongs to the property and has exactly status.
// A live block owned by an order awaiting payment stays put.
func (s *StatusService) ReleaseStatus(ctx context.Context, propertyID, recordID string, status domain.AvailabilityStatus) error {
	if !status.StaffSettable() {
		return domain.Invalid("status", domain.ErrInvalidStatus)
	}
	if strings.TrimSpace(recordID) == "" {
		return domain.ErrRecordNotFound
	}
	err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if status == domain.StatusBlocked {
			locked, err := s.ledger.GetRecordsForUpdate(txCtx, []string{recordID})
			if err != nil {
				return err
			}
			if len(locked) == 1 && locked[0].IsHold() && !locked[0].Expired(s.clock.Now()) {
				if err := ensureNotAttached(txCtx, s.orders, locked[0].BlockedBy); err != nil {
					return err
				}
			}
		}
		n, err := s.ledger.DeleteRecordWithStatus(txCtx, propertyID, recordID, status)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"record_id": recordID, "status": status}).Info("room status released")
	return nil
}

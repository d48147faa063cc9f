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
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/metrics"
)

type HoldService struct {
	tx       Transactor
	rooms    RoomRepository
	ledger   LedgerRepository
	detector *ConflictDetector
	clock    clock.Clock
	holdTTL  time.Duration
	logger   logrus.FieldLogger
}

const defaultHoldTTL = 15 * time.Minute

func NewHoldService(tx Transactor, rooms RoomRepository, ledger LedgerRepository, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		tx:       tx,
		rooms:    rooms,
		ledger:   ledger,
		detector: NewConflictDetector(ledger, clk),
		clock:    clk,
		holdTTL:  defaultHoldTTL,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

func WithHoldLogger(l logrus.FieldLogger) HoldServiceOption {
	return func(s *HoldService) {
		if l != nil {
			s.logger = l
		}
	}
}

// Detector exposes the read-only conflict check used by the hold path.
func (s *HoldService) Detector() *ConflictDetector {
	return s.detector
}

type CreateHoldInput struct {
	PropertyID string
	RoomTypeID string
	RoomIDs    []string
	From       time.Time
	To         time.Time
	// TTL overrides the service default; ExpiresAt wins over both.
	TTL       time.Duration
	ExpiresAt *time.Time
	PlacedBy  string
	Reason    string
}

func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	roomIDs, err := normalizeIDs(in.RoomIDs, domain.ErrRoomIDsRequired)
	if err != nil {
		return domain.Hold{}, err
	}
	if err := domain.ValidateStay(in.From, in.To); err != nil {
		return domain.Hold{}, err
	}
	from, to := domain.DateOnly(in.From), domain.DateOnly(in.To)

	now := s.clock.Now()
	expiresAt := now.Add(s.holdTTL)
	if in.TTL > 0 {
		expiresAt = now.Add(in.TTL)
	}
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return domain.Hold{}, domain.Invalid("expires_at", domain.ErrInvalidHoldExpiry)
		}
		expiresAt = in.ExpiresAt.UTC()
	}

	owner := strings.TrimSpace(in.PlacedBy)
	if owner == "" {
		owner = newHoldCorrelationID()
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = domain.DefaultReason(domain.StatusBlocked)
	}

	if _, err := requireRoomsInType(ctx, s.rooms, in.PropertyID, in.RoomTypeID, roomIDs); err != nil {
		return domain.Hold{}, err
	}

	hold := domain.Hold{
		CorrelationID: owner,
		PropertyID:    in.PropertyID,
		RoomTypeID:    in.RoomTypeID,
		RoomIDs:       roomIDs,
		From:          from,
		To:            to,
		ExpiresAt:     expiresAt,
	}

	var replayed bool
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.ledger.PurgeExpiredHolds(txCtx, roomIDs, from, to, now); err != nil {
			return err
		}
		existing, err := s.ledger.ListRecords(txCtx, roomIDs, from, to)
		if err != nil {
			return err
		}
		keys := domain.Slots(sortedCopy(roomIDs), from, to)
		if in.PlacedBy != "" && sameHold(existing, keys, owner, now) {
			hold.Records = existing
			hold.ExpiresAt = *existing[0].HoldExpiresAt
			replayed = true
			return nil
		}
		if check := detectConflicts(existing, now, ""); !check.Free {
			return domain.NewConflictError(check.Conflicts)
		}

		records := make([]domain.AvailabilityRecord, 0, len(keys))
		for _, k := range keys {
			day, _ := domain.ParseDate(k.Day)
			exp := expiresAt
			records = append(records, domain.AvailabilityRecord{
				ID:            newID(),
				RoomID:        k.RoomID,
				Date:          day,
				Status:        domain.StatusBlocked,
				Reason:        reason,
				BlockedBy:     owner,
				HoldExpiresAt: &exp,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		if err := s.ledger.InsertRecords(txCtx, records); err != nil {
			return err
		}
		hold.Records = records
		return nil
	})
	if err != nil {
		// A concurrent hold won the unique key; re-read outside the aborted tx to report it.
		if errors.Is(err, domain.ErrDuplicateRecord) {
			check, cerr := s.detector.CheckRange(ctx, RangeQuery{RoomIDs: roomIDs, From: from, To: to})
			if cerr == nil && !check.Free {
				err = domain.NewConflictError(check.Conflicts)
			}
		}
		metrics.HoldsTotal.WithLabelValues(holdResultLabel(err)).Inc()
		return domain.Hold{}, err
	}

	if replayed {
		metrics.HoldsTotal.WithLabelValues("replayed").Inc()
		s.logger.WithField("hold", owner).Info("hold replayed")
		return hold, nil
	}
	metrics.HoldsTotal.WithLabelValues("created").Inc()
	metrics.HoldRowsTotal.Add(float64(len(hold.Records)))
	s.logger.WithFields(logrus.Fields{
		"hold":       owner,
		"rooms":      len(roomIDs),
		"nights":     domain.Nights(from, to),
		"expires_at": expiresAt,
	}).Info("hold created")
	return hold, nil
}

// sameHold reports whether rows are exactly the live hold owner already placed on keys.
func sameHold(rows []domain.AvailabilityRecord, keys []domain.SlotKey, owner string, now time.Time) bool {
	if len(rows) == 0 || len(rows) != len(keys) {
		return false
	}
	want := make(map[domain.SlotKey]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	for _, r := range rows {
		if !r.IsHold() || r.Expired(now) || r.BlockedBy != owner {
			return false
		}
		if _, ok := want[r.Key()]; !ok {
			return false
		}
		delete(want, r.Key())
	}
	return len(want) == 0
}

func holdResultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomBooked):
		return "room_booked"
	case errors.Is(err, domain.ErrRoomBlocked), errors.Is(err, domain.ErrDuplicateRecord):
		return "room_blocked"
	case domain.IsClientError(err), domain.IsNotFound(err):
		return "invalid"
	default:
		return "error"
	}
}

// ExtendHold moves the expiry of live held rows to expiresAt.
func (s *HoldService) ExtendHold(ctx context.Context, recordIDs []string, expiresAt time.Time) (int64, error) {
	ids, err := normalizeIDs(recordIDs, domain.ErrRecordIDsRequired)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	if !expiresAt.After(now) {
		return 0, domain.Invalid("expires_at", domain.ErrInvalidHoldExpiry)
	}

	var extended int64
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		records, err := s.ledger.GetRecordsForUpdate(txCtx, sortedCopy(ids))
		if err != nil {
			return err
		}
		if len(records) != len(ids) {
			return domain.ErrRecordNotFound
		}
		for _, r := range records {
			if !r.IsHold() {
				return fmt.Errorf("%w: record %s is not a hold", domain.ErrHoldMismatch, r.ID)
			}
			if r.Expired(now) {
				return fmt.Errorf("%w: record %s", domain.ErrHoldExpired, r.ID)
			}
		}
		extended, err = s.ledger.ExtendHolds(txCtx, ids, expiresAt.UTC())
		return err
	})
	if err != nil {
		return 0, err
	}
	return extended, nil
}

type ReleaseResult struct {
	Released int64
	// Skipped lists booked records that were left in place.
	Skipped []string
}

// ReleaseHold deletes the given rows. Booked rows are never touched.
func (s *HoldService) ReleaseHold(ctx context.Context, recordIDs []string) (ReleaseResult, error) {
	ids, err := normalizeIDs(recordIDs, domain.ErrRecordIDsRequired)
	if err != nil {
		return ReleaseResult{}, err
	}

	var result ReleaseResult
	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		records, err := s.ledger.GetRecordsForUpdate(txCtx, sortedCopy(ids))
		if err != nil {
			return err
		}
		deletable := make([]string, 0, len(records))
		for _, r := range records {
			if r.Status == domain.StatusBooked {
				result.Skipped = append(result.Skipped, r.ID)
				continue
			}
			deletable = append(deletable, r.ID)
		}
		if len(deletable) == 0 {
			return nil
		}
		result.Released, err = s.ledger.DeleteRecords(txCtx, deletable)
		return err
	})
	if err != nil {
		return ReleaseResult{}, err
	}
	if result.Released > 0 {
		s.logger.WithField("released", result.Released).Info("hold released")
	}
	return result, nil
}

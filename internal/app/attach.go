package app

import (
	"context"
	"fmt"
	"time"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// lockHold locks the hold rows and checks they form one live hold.
func lockHold(ctx context.Context, ledger LedgerRepository, recordIDs []string, now time.Time) (string, []domain.AvailabilityRecord, error) {
	ids, err := normalizeIDs(recordIDs, domain.ErrRecordIDsRequired)
	if err != nil {
		return "", nil, err
	}
	records, err := ledger.GetRecordsForUpdate(ctx, sortedCopy(ids))
	if err != nil {
		return "", nil, err
	}
	if len(records) != len(ids) {
		return "", nil, domain.ErrRecordNotFound
	}

	owner := records[0].BlockedBy
	for _, r := range records {
		if !r.IsHold() {
			return "", nil, fmt.Errorf("%w: record %s is not a hold", domain.ErrHoldMismatch, r.ID)
		}
		if r.Expired(now) {
			return "", nil, fmt.Errorf("%w: record %s", domain.ErrHoldExpired, r.ID)
		}
		if r.BlockedBy != owner {
			return "", nil, fmt.Errorf("%w: records belong to different holds", domain.ErrHoldMismatch)
		}
	}
	return owner, records, nil
}

// ensureNotAttached rejects holds already owned by a live or paid order.
func ensureNotAttached(ctx context.Context, orders OrderRepository, owner string) error {
	found, err := orders.ListOrdersByIDs(ctx, []string{owner})
	if err != nil {
		return err
	}
	for _, o := range found {
		if o.Status == domain.OrderStatusPending || o.Status == domain.OrderStatusSuccess {
			return fmt.Errorf("%w: order %s", domain.ErrHoldAlreadyAttached, o.ID)
		}
	}
	return nil
}

// attachHold hands the hold rows over to order. Every row must fall inside
// the order's stay. With fillGaps, uncovered nights get new rows owned by the
// order; without it they are a mismatch.
func attachHold(ctx context.Context, ledger LedgerRepository, order domain.Order, records []domain.AvailabilityRecord, owner string, now time.Time, fillGaps bool) error {
	slots := order.Slots()
	wanted := make(map[domain.SlotKey]struct{}, len(slots))
	for _, k := range slots {
		wanted[k] = struct{}{}
	}
	for _, r := range records {
		if _, ok := wanted[r.Key()]; !ok {
			return fmt.Errorf("%w: record %s is outside the order's stay", domain.ErrHoldMismatch, r.ID)
		}
	}

	held := keySet(records)
	var missing []domain.SlotKey
	for _, k := range slots {
		if _, ok := held[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 && !fillGaps {
		return fmt.Errorf("%w: %d night(s) not held", domain.ErrHoldMismatch, len(missing))
	}

	roomIDs, from, to := orderSpan(order)
	if len(missing) > 0 {
		if _, err := ledger.PurgeExpiredHolds(ctx, roomIDs, from, to, now); err != nil {
			return err
		}
	}
	existing, err := ledger.ListRecords(ctx, roomIDs, from, to)
	if err != nil {
		return err
	}
	var inStay []domain.AvailabilityRecord
	for _, r := range existing {
		if _, ok := wanted[r.Key()]; ok {
			inStay = append(inStay, r)
		}
	}
	if check := detectConflicts(inStay, now, owner); !check.Free {
		return domain.NewConflictError(check.Conflicts)
	}

	if len(missing) > 0 {
		rows := make([]domain.AvailabilityRecord, 0, len(missing))
		for _, k := range missing {
			day, err := domain.ParseDate(k.Day)
			if err != nil {
				return err
			}
			exp := order.ExpiresAt
			rows = append(rows, domain.AvailabilityRecord{
				ID:            newID(),
				RoomID:        k.RoomID,
				Date:          day,
				Status:        domain.StatusBlocked,
				Reason:        domain.DefaultReason(domain.StatusBlocked),
				BlockedBy:     order.ID,
				HoldExpiresAt: &exp,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		if err := ledger.InsertRecords(ctx, rows); err != nil {
			return err
		}
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ledger.RetargetHolds(ctx, sortedCopy(ids), order.ID, order.ExpiresAt)
}

// orderSpan returns the distinct rooms and the widest stay across selections.
func orderSpan(order domain.Order) ([]string, time.Time, time.Time) {
	seen := make(map[string]struct{})
	var roomIDs []string
	from, to := order.CheckIn, order.CheckOut
	for _, sel := range order.Selections {
		for _, id := range sel.RoomIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				roomIDs = append(roomIDs, id)
			}
		}
		if from.IsZero() || sel.CheckIn.Before(from) {
			from = sel.CheckIn
		}
		if sel.CheckOut.After(to) {
			to = sel.CheckOut
		}
	}
	return roomIDs, from, to
}

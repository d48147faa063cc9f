package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/clock"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

// ConflictDetector answers whether rooms are free over a stay. It never writes.
type ConflictDetector struct {
	ledger LedgerRepository
	clock  clock.Clock
}

func NewConflictDetector(ledger LedgerRepository, clk clock.Clock) *ConflictDetector {
	return &ConflictDetector{ledger: ledger, clock: clk}
}

type RangeQuery struct {
	RoomIDs []string
	From    time.Time
	To      time.Time
	// ExcludeOwner ignores blocked rows held by this owner reference.
	ExcludeOwner string
}

// CheckRange reports every row that blocks any room on any night in [From, To).
func (d *ConflictDetector) CheckRange(ctx context.Context, q RangeQuery) (domain.RangeCheck, error) {
	roomIDs, err := normalizeIDs(q.RoomIDs, domain.ErrRoomIDsRequired)
	if err != nil {
		return domain.RangeCheck{}, err
	}
	if err := domain.ValidateStay(q.From, q.To); err != nil {
		return domain.RangeCheck{}, err
	}

	records, err := d.ledger.ListRecords(ctx, roomIDs, domain.DateOnly(q.From), domain.DateOnly(q.To))
	if err != nil {
		return domain.RangeCheck{}, fmt.Errorf("check range: %w", err)
	}
	return detectConflicts(records, d.clock.Now(), q.ExcludeOwner), nil
}

func detectConflicts(records []domain.AvailabilityRecord, now time.Time, excludeOwner string) domain.RangeCheck {
	conflicts := make([]domain.Conflict, 0)
	for _, r := range records {
		if !r.Blocks(now) {
			continue
		}
		if excludeOwner != "" && r.Status == domain.StatusBlocked && r.BlockedBy == excludeOwner {
			continue
		}
		conflicts = append(conflicts, domain.ConflictFrom(r))
	}
	sort.Slice(conflicts, func(i, j int) bool {
		if !conflicts[i].Date.Equal(conflicts[j].Date) {
			return conflicts[i].Date.Before(conflicts[j].Date)
		}
		return conflicts[i].RoomID < conflicts[j].RoomID
	})
	return domain.RangeCheck{Free: len(conflicts) == 0, Conflicts: conflicts}
}

// normalizeIDs trims, drops blanks and duplicates, and keeps first-seen order.
func normalizeIDs(ids []string, emptyErr error) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, emptyErr
	}
	return out, nil
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func keySet(records []domain.AvailabilityRecord) map[domain.SlotKey]domain.AvailabilityRecord {
	m := make(map[domain.SlotKey]domain.AvailabilityRecord, len(records))
	for _, r := range records {
		m[r.Key()] = r
	}
	return m
}

// requireRoomsInType loads the room type and checks every room is an active member.
func requireRoomsInType(ctx context.Context, rooms RoomRepository, propertyID, roomTypeID string, roomIDs []string) (domain.RoomType, error) {
	rt, err := rooms.GetRoomType(ctx, propertyID, roomTypeID)
	if err != nil {
		return domain.RoomType{}, err
	}
	if !rt.Active {
		return domain.RoomType{}, domain.ErrRoomTypeNotFound
	}
	for _, id := range roomIDs {
		if !rt.ActiveRoom(id) {
			return domain.RoomType{}, domain.Invalid("room_ids", fmt.Errorf("%w: %s", domain.ErrRoomNotInRoomType, id))
		}
	}
	return rt, nil
}

package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

func TestHoldService_CreateHold(t *testing.T) {
	t.Parallel()

	t.Run("creates one row per room and night", func(t *testing.T) {
		h := newHarness(t)

		hold := h.hold(t, []string{roomR2, roomR1}, "2025-12-24", "2025-12-26")

		require.Len(t, hold.Records, 4)
		assert.True(t, strings.HasPrefix(hold.CorrelationID, "hold_"))
		assert.Equal(t, testNow.Add(defaultHoldTTL), hold.ExpiresAt)
		assert.Equal(t, []time.Time{day("2025-12-24"), day("2025-12-25")}, hold.Dates())

		// Rows come out room-major in sorted order.
		assert.Equal(t, roomR1, hold.Records[0].RoomID)
		assert.Equal(t, day("2025-12-24"), hold.Records[0].Date)
		assert.Equal(t, roomR2, hold.Records[3].RoomID)
		assert.Equal(t, day("2025-12-25"), hold.Records[3].Date)

		for _, r := range hold.Records {
			assert.Equal(t, domain.StatusBlocked, r.Status)
			assert.Equal(t, hold.CorrelationID, r.BlockedBy)
			assert.Equal(t, "Front desk block", r.Reason)
			require.NotNil(t, r.HoldExpiresAt)
		}
		assert.Len(t, h.store.allRecords(), 4)
	})

	t.Run("honours ttl and placed-by", func(t *testing.T) {
		h := newHarness(t)

		hold, err := h.holds.CreateHold(context.Background(), CreateHoldInput{
			PropertyID: testProperty,
			RoomTypeID: deluxeType,
			RoomIDs:    []string{roomR1},
			From:       day("2025-12-24"),
			To:         day("2025-12-25"),
			TTL:        5 * time.Minute,
			PlacedBy:   "user-42",
			Reason:     "Phone enquiry",
		})
		require.NoError(t, err)
		assert.Equal(t, "user-42", hold.CorrelationID)
		assert.Equal(t, testNow.Add(5*time.Minute), hold.ExpiresAt)
		assert.Equal(t, "Phone enquiry", hold.Records[0].Reason)
	})

	t.Run("retry by the same owner returns the existing hold", func(t *testing.T) {
		h := newHarness(t)
		in := CreateHoldInput{
			PropertyID: testProperty,
			RoomTypeID: deluxeType,
			RoomIDs:    []string{roomR1},
			From:       day("2025-12-24"),
			To:         day("2025-12-26"),
			PlacedBy:   "cart-42",
		}
		first, err := h.holds.CreateHold(context.Background(), in)
		require.NoError(t, err)

		h.clock.Advance(time.Minute)
		again, err := h.holds.CreateHold(context.Background(), in)

		require.NoError(t, err)
		require.Len(t, again.Records, 2)
		assert.Equal(t, "cart-42", again.CorrelationID)
		assert.Equal(t, first.ExpiresAt, again.ExpiresAt)
		assert.ElementsMatch(t, first.RecordIDs(), again.RecordIDs())
		assert.Len(t, h.store.allRecords(), 2)
	})

	t.Run("same owner with a different range still conflicts", func(t *testing.T) {
		h := newHarness(t)
		in := CreateHoldInput{
			PropertyID: testProperty,
			RoomTypeID: deluxeType,
			RoomIDs:    []string{roomR1},
			From:       day("2025-12-24"),
			To:         day("2025-12-26"),
			PlacedBy:   "cart-42",
		}
		_, err := h.holds.CreateHold(context.Background(), in)
		require.NoError(t, err)

		in.To = day("2025-12-27")
		_, err = h.holds.CreateHold(context.Background(), in)

		require.ErrorIs(t, err, domain.ErrRoomBlocked)
		assert.Len(t, h.store.allRecords(), 2)
	})

	t.Run("conflict names the blocking hold", func(t *testing.T) {
		h := newHarness(t)
		first := h.hold(t, []string{roomR1, roomR2}, "2025-12-24", "2025-12-26")

		_, err := h.holds.CreateHold(context.Background(), CreateHoldInput{
			PropertyID: testProperty,
			RoomTypeID: deluxeType,
			RoomIDs:    []string{roomR1},
			From:       day("2025-12-24"),
			To:         day("2025-12-26"),
		})

		require.ErrorIs(t, err, domain.ErrRoomBlocked)
		var conflict *domain.ConflictError
		require.True(t, errors.As(err, &conflict))
		require.Len(t, conflict.Conflicts, 2)
		assert.Equal(t, roomR1, conflict.Conflicts[0].RoomID)
		assert.Equal(t, day("2025-12-24"), conflict.Conflicts[0].Date)
		assert.Equal(t, domain.StatusBlocked, conflict.Conflicts[0].Status)
		assert.Equal(t, first.CorrelationID, conflict.Conflicts[0].BlockedBy)
		assert.Len(t, h.store.allRecords(), 4)
	})

	t.Run("maintenance conflict carries status and record", func(t *testing.T) {
		h := newHarness(t)
		h.store.seedRecord(domain.AvailabilityRecord{
			ID: "rec-maint", RoomID: roomR3, Date: day("2025-12-25"),
			Status: domain.StatusMaintenance, Reason: "Leaking tap", BlockedBy: "Maintenance",
		})

		_, err := h.holds.CreateHold(context.Background(), CreateHoldInput{
			PropertyID: testProperty,
			RoomTypeID: deluxeType,
			RoomIDs:    []string{roomR1, roomR3},
			From:       day("2025-12-24"),
			To:         day("2025-12-27"),
		})

		require.ErrorIs(t, err, domain.ErrRoomBlocked)
		var conflict *domain.ConflictError
		require.True(t, errors.As(err, &conflict))
		require.Len(t, conflict.Conflicts, 1)
		c := conflict.Conflicts[0]
		assert.Equal(t, "rec-maint", c.RecordID)
		assert.Equal(t, roomR3, c.RoomID)
		assert.Equal(t, day("2025-12-25"), c.Date)
		assert.Equal(t, domain.StatusMaintenance, c.Status)
		assert.Len(t, h.store.allRecords(), 1)
	})

	t.Run("booked rows report room booked", func(t *testing.T) {
		h := newHarness(t)
		h.store.seedRecord(domain.AvailabilityRecord{
			ID: "rec-booked", RoomID: roomR1, Date: day("2025-12-24"), Status: domain.StatusBooked,
		})
		h.store.seedRecord(domain.AvailabilityRecord{
			ID: "rec-block", RoomID: roomR2, Date: day("2025-12-24"), Status: domain.StatusBlocked,
		})

		_, err := h.holds.CreateHold(context.Background(), CreateHoldInput{
			PropertyID: testProperty,
			RoomTypeID: deluxeType,
			RoomIDs:    []string{roomR1, roomR2},
			From:       day("2025-12-24"),
			To:         day("2025-12-25"),
		})
		assert.ErrorIs(t, err, domain.ErrRoomBooked)
	})

	t.Run("lapsed hold does not block and is replaced", func(t *testing.T) {
		h := newHarness(t)
		stale := h.hold(t, []string{roomR1}, "2025-12-24", "2025-12-25")
		h.clock.Advance(defaultHoldTTL)

		fresh := h.hold(t, []string{roomR1}, "2025-12-24", "2025-12-25")

		_, stillThere := h.store.record(stale.Records[0].ID)
		assert.False(t, stillThere)
		records := h.store.allRecords()
		require.Len(t, records, 1)
		assert.Equal(t, fresh.CorrelationID, records[0].BlockedBy)
	})

	t.Run("failure mid-insert leaves no rows", func(t *testing.T) {
		h := newHarness(t)
		h.store.failInsertAfter = 2

		_, err := h.holds.CreateHold(context.Background(), CreateHoldInput{
			PropertyID: testProperty,
			RoomTypeID: deluxeType,
			RoomIDs:    []string{roomR1, roomR2},
			From:       day("2025-12-24"),
			To:         day("2025-12-26"),
		})

		require.ErrorIs(t, err, errInjected)
		assert.Empty(t, h.store.allRecords())
	})

	t.Run("validation happens before the ledger", func(t *testing.T) {
		h := newHarness(t)
		past := testNow.Add(-time.Minute)

		tests := []struct {
			name string
			in   CreateHoldInput
			want error
		}{
			{"no rooms", CreateHoldInput{RoomTypeID: deluxeType, From: day("2025-12-24"), To: day("2025-12-25")}, domain.ErrRoomIDsRequired},
			{"empty range", CreateHoldInput{RoomTypeID: deluxeType, RoomIDs: []string{roomR1}, From: day("2025-12-24"), To: day("2025-12-24")}, domain.ErrInvalidDateRange},
			{"past expiry", CreateHoldInput{RoomTypeID: deluxeType, RoomIDs: []string{roomR1}, From: day("2025-12-24"), To: day("2025-12-25"), ExpiresAt: &past}, domain.ErrInvalidHoldExpiry},
			{"unknown room type", CreateHoldInput{RoomTypeID: "rt-missing", RoomIDs: []string{roomR1}, From: day("2025-12-24"), To: day("2025-12-25")}, domain.ErrRoomTypeNotFound},
			{"room of another type", CreateHoldInput{RoomTypeID: deluxeType, RoomIDs: []string{roomS1}, From: day("2025-12-24"), To: day("2025-12-25")}, domain.ErrRoomNotInRoomType},
			{"inactive room", CreateHoldInput{RoomTypeID: deluxeType, RoomIDs: []string{roomClosed}, From: day("2025-12-24"), To: day("2025-12-25")}, domain.ErrRoomNotInRoomType},
		}
		for _, tt := range tests {
			tt.in.PropertyID = testProperty
			_, err := h.holds.CreateHold(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want, tt.name)
		}
		assert.Empty(t, h.store.allRecords())
	})

	t.Run("concurrent holds on one slot admit exactly one", func(t *testing.T) {
		h := newHarness(t)
		const racers = 8

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.holds.CreateHold(context.Background(), CreateHoldInput{
					PropertyID: testProperty,
					RoomTypeID: deluxeType,
					RoomIDs:    []string{roomR1},
					From:       day("2025-12-24"),
					To:         day("2025-12-26"),
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case domain.IsConflict(err):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, racers-1, conflicts)
		assert.Len(t, h.store.allRecords(), 2)
	})
}

func TestHoldService_ExtendHold(t *testing.T) {
	t.Parallel()

	t.Run("moves expiry of live rows", func(t *testing.T) {
		h := newHarness(t)
		hold := h.hold(t, []string{roomR1}, "2025-12-24", "2025-12-26")
		target := testNow.Add(time.Hour)

		n, err := h.holds.ExtendHold(context.Background(), hold.RecordIDs(), target)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		rec, _ := h.store.record(hold.Records[0].ID)
		require.NotNil(t, rec.HoldExpiresAt)
		assert.Equal(t, target, *rec.HoldExpiresAt)
	})

	t.Run("rejects lapsed holds", func(t *testing.T) {
		h := newHarness(t)
		hold := h.hold(t, []string{roomR1}, "2025-12-24", "2025-12-25")
		h.clock.Advance(time.Hour)

		_, err := h.holds.ExtendHold(context.Background(), hold.RecordIDs(), h.clock.Now().Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrHoldExpired)
	})

	t.Run("rejects rows that are not holds", func(t *testing.T) {
		h := newHarness(t)
		h.store.seedRecord(domain.AvailabilityRecord{ID: "rec-booked", RoomID: roomR1, Date: day("2025-12-24"), Status: domain.StatusBooked})

		_, err := h.holds.ExtendHold(context.Background(), []string{"rec-booked"}, testNow.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrHoldMismatch)
	})

	t.Run("rejects unknown ids and past targets", func(t *testing.T) {
		h := newHarness(t)
		hold := h.hold(t, []string{roomR1}, "2025-12-24", "2025-12-25")

		_, err := h.holds.ExtendHold(context.Background(), []string{"missing"}, testNow.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)

		_, err = h.holds.ExtendHold(context.Background(), hold.RecordIDs(), testNow)
		assert.ErrorIs(t, err, domain.ErrInvalidHoldExpiry)
	})
}

func TestHoldService_ReleaseHold(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	hold := h.hold(t, []string{roomR1}, "2025-12-24", "2025-12-26")
	h.store.seedRecord(domain.AvailabilityRecord{ID: "rec-booked", RoomID: roomR2, Date: day("2025-12-24"), Status: domain.StatusBooked})

	ids := append(hold.RecordIDs(), "rec-booked", "unknown")
	res, err := h.holds.ReleaseHold(context.Background(), ids)
	require.NoError(t, err)

	assert.EqualValues(t, 2, res.Released)
	assert.Equal(t, []string{"rec-booked"}, res.Skipped)
	records := h.store.allRecords()
	require.Len(t, records, 1)
	assert.Equal(t, domain.StatusBooked, records[0].Status)

	_, err = h.holds.ReleaseHold(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrRecordIDsRequired)
}

func TestConflictDetector_CheckRange(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	lapsed := testNow.Add(-time.Minute)
	h.store.seedRecord(domain.AvailabilityRecord{ID: "a", RoomID: roomR1, Date: day("2025-12-25"), Status: domain.StatusOutOfService})
	h.store.seedRecord(domain.AvailabilityRecord{ID: "b", RoomID: roomR2, Date: day("2025-12-24"), Status: domain.StatusBlocked, HoldExpiresAt: &lapsed})
	h.store.seedRecord(domain.AvailabilityRecord{ID: "c", RoomID: roomR2, Date: day("2025-12-26"), Status: domain.StatusBooked})

	detector := h.holds.Detector()

	check, err := detector.CheckRange(context.Background(), RangeQuery{
		RoomIDs: []string{roomR1, roomR2, roomR1},
		From:    day("2025-12-24"),
		To:      day("2025-12-26"),
	})
	require.NoError(t, err)
	assert.False(t, check.Free)
	require.Len(t, check.Conflicts, 1)
	assert.Equal(t, "a", check.Conflicts[0].RecordID)

	check, err = detector.CheckRange(context.Background(), RangeQuery{
		RoomIDs: []string{roomR2},
		From:    day("2025-12-24"),
		To:      day("2025-12-26"),
	})
	require.NoError(t, err)
	assert.True(t, check.Free)
	assert.Empty(t, check.Conflicts)

	_, err = detector.CheckRange(context.Background(), RangeQuery{RoomIDs: []string{" "}, From: day("2025-12-24"), To: day("2025-12-25")})
	assert.ErrorIs(t, err, domain.ErrRoomIDsRequired)
}

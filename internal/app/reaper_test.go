package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
)

func TestHoldReaper_ReapExpiredHolds(t *testing.T) {
	t.Parallel()

	t.Run("deletes lapsed holds without an order", func(t *testing.T) {
		h := newHarness(t)
		h.hold(t, []string{roomR1, roomR2}, "2025-12-24", "2025-12-26")
		live := h.hold(t, []string{roomR3}, "2025-12-24", "2025-12-25")
		_, err := h.holds.ExtendHold(context.Background(), live.RecordIDs(), testNow.Add(time.Hour))
		require.NoError(t, err)
		h.clock.Advance(defaultHoldTTL)

		res, err := h.reaper.ReapExpiredHolds(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 4, res.Scanned)
		assert.EqualValues(t, 4, res.Deleted)
		records := h.store.allRecords()
		require.Len(t, records, 1)
		assert.Equal(t, live.Records[0].ID, records[0].ID)
	})

	t.Run("protects pending orders inside the grace window", func(t *testing.T) {
		h := newHarness(t)
		order := h.order(t, h.hold(t, []string{roomR1}, "2025-12-24", "2025-12-26"), "plink_reap")
		h.clock.Advance(defaultOrderTTL + 10*time.Minute)

		res, err := h.reaper.ReapExpiredHolds(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, res.Protected)
		assert.Zero(t, res.Deleted)
		assert.Len(t, h.store.allRecords(), 2)
		assert.Equal(t, domain.OrderStatusPending, h.store.order(order.ID).Status)
	})

	t.Run("expires overdue pending orders", func(t *testing.T) {
		h := newHarness(t)
		order := h.order(t, h.hold(t, []string{roomR1}, "2025-12-24", "2025-12-26"), "plink_overdue")
		h.clock.Advance(defaultOrderTTL + defaultReaperGrace)

		res, err := h.reaper.ReapExpiredHolds(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, res.ExpiredOrders)
		assert.EqualValues(t, 2, res.Deleted)
		assert.Empty(t, h.store.allRecords())
		assert.Equal(t, domain.OrderStatusExpired, h.store.order(order.ID).Status)
	})

	t.Run("clears leftovers of terminal orders", func(t *testing.T) {
		h := newHarness(t)
		order := h.order(t, h.hold(t, []string{roomR1}, "2025-12-24", "2025-12-25"), "plink_gone")
		o := h.store.order(order.ID)
		o.Status = domain.OrderStatusFailed
		h.store.seedOrder(o)
		h.clock.Advance(defaultOrderTTL)

		res, err := h.reaper.ReapExpiredHolds(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 1, res.Deleted)
		assert.Empty(t, h.store.allRecords())
	})

	t.Run("leaves rows of successful orders alone", func(t *testing.T) {
		h := newHarness(t)
		order := h.order(t, h.hold(t, []string{roomR1}, "2025-12-24", "2025-12-25"), "plink_ok")
		o := h.store.order(order.ID)
		o.Status = domain.OrderStatusSuccess
		h.store.seedOrder(o)
		h.clock.Advance(defaultOrderTTL)

		res, err := h.reaper.ReapExpiredHolds(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Protected)
		assert.Len(t, h.store.allRecords(), 1)
	})

	t.Run("respects batch size", func(t *testing.T) {
		h := newHarness(t)
		h.hold(t, []string{roomR1, roomR2, roomR3}, "2025-12-24", "2025-12-26")
		h.clock.Advance(defaultHoldTTL)
		reaper := NewHoldReaper(h.store, h.store, h.recon, h.clock, WithReaperBatchSize(4))

		res, err := reaper.ReapExpiredHolds(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, res.Scanned)
		assert.Len(t, h.store.allRecords(), 2)
	})
}

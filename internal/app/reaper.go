package app

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/clock"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/domain"
	"github.com/zomestaydeveloper/Zomestay-sub001/internal/metrics"
)

// OrderFinalizer drives an order to a terminal state.
type OrderFinalizer interface {
	Finalize(ctx context.Context, orderID string, outcome domain.Outcome, payment domain.PaymentDetails) (FinalizeResult, error)
}

// HoldReaper clears lapsed hold rows so the ledger does not grow without bound.
type HoldReaper struct {
	ledger    LedgerRepository
	orders    OrderRepository
	finalizer OrderFinalizer
	clock     clock.Clock
	grace     time.Duration
	batchSize int
	logger    logrus.FieldLogger
}

const (
	defaultReaperGrace = time.Hour
	defaultReaperBatch = 500
)

func NewHoldReaper(ledger LedgerRepository, orders OrderRepository, finalizer OrderFinalizer, clk clock.Clock, opts ...HoldReaperOption) *HoldReaper {
	r := &HoldReaper{
		ledger:    ledger,
		orders:    orders,
		finalizer: finalizer,
		clock:     clk,
		grace:     defaultReaperGrace,
		batchSize: defaultReaperBatch,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type HoldReaperOption func(*HoldReaper)

// WithReaperGrace sets how long past its expiry a pending order stays protected.
func WithReaperGrace(d time.Duration) HoldReaperOption {
	return func(r *HoldReaper) {
		if d >= 0 {
			r.grace = d
		}
	}
}

func WithReaperBatchSize(n int) HoldReaperOption {
	return func(r *HoldReaper) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithReaperLogger(l logrus.FieldLogger) HoldReaperOption {
	return func(r *HoldReaper) {
		if l != nil {
			r.logger = l
		}
	}
}

type ReapResult struct {
	Scanned       int
	Deleted       int64
	Protected     int
	ExpiredOrders int
}

// ReapExpiredHolds handles one batch of lapsed hold rows, grouped by owner.
func (r *HoldReaper) ReapExpiredHolds(ctx context.Context) (ReapResult, error) {
	now := r.clock.Now()
	records, err := r.ledger.ListExpiredHolds(ctx, now, r.batchSize)
	if err != nil {
		return ReapResult{}, err
	}
	result := ReapResult{Scanned: len(records)}
	if len(records) == 0 {
		return result, nil
	}

	groups := make(map[string][]domain.AvailabilityRecord)
	for _, rec := range records {
		groups[rec.BlockedBy] = append(groups[rec.BlockedBy], rec)
	}
	owners := make([]string, 0, len(groups))
	for owner := range groups {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	found, err := r.orders.ListOrdersByIDs(ctx, owners)
	if err != nil {
		return result, err
	}
	orders := make(map[string]domain.Order, len(found))
	for _, o := range found {
		orders[o.ID] = o
	}

	var deletable []string
	for _, owner := range owners {
		rows := groups[owner]
		order, ok := orders[owner]
		switch {
		case !ok, order.Status.Released():
			for _, rec := range rows {
				deletable = append(deletable, rec.ID)
			}
		case order.Status == domain.OrderStatusPending && now.Before(order.ExpiresAt.Add(r.grace)):
			result.Protected += len(rows)
		case order.Status == domain.OrderStatusPending:
			res, err := r.finalizer.Finalize(ctx, order.ID, domain.OutcomeExpired, domain.PaymentDetails{})
			if err != nil {
				r.logger.WithError(err).WithField("order_id", order.ID).Error("expire overdue order")
				continue
			}
			result.ExpiredOrders++
			result.Deleted += res.Released
		default:
			result.Protected += len(rows)
			r.logger.WithFields(logrus.Fields{
				"order_id": order.ID,
				"status":   order.Status,
				"rows":     len(rows),
			}).Warn("expired hold rows owned by a finalized order")
		}
	}

	if len(deletable) > 0 {
		sort.Strings(deletable)
		n, err := r.ledger.DeleteExpiredHolds(ctx, deletable, now)
		if err != nil {
			return result, err
		}
		result.Deleted += n
	}

	metrics.ReaperRowsTotal.WithLabelValues("deleted").Add(float64(result.Deleted))
	metrics.ReaperRowsTotal.WithLabelValues("protected").Add(float64(result.Protected))
	metrics.ReaperRowsTotal.WithLabelValues("expired_order").Add(float64(result.ExpiredOrders))
	if result.Deleted > 0 || result.ExpiredOrders > 0 {
		r.logger.WithFields(logrus.Fields{
			"scanned":        result.Scanned,
			"deleted":        result.Deleted,
			"protected":      result.Protected,
			"expired_orders": result.ExpiredOrders,
		}).Info("reaped expired holds")
	}
	return result, nil
}

package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zomestaydeveloper/Zomestay-sub001/internal/app"
)

// Reaper is the part of app.HoldReaper the worker drives.
type Reaper interface {
	ReapExpiredHolds(ctx context.Context) (app.ReapResult, error)
}

// HoldReaperWorker runs the reaper on a fixed interval until its context ends.
type HoldReaperWorker struct {
	reaper   Reaper
	interval time.Duration
	logger   logrus.FieldLogger
}

func NewHoldReaperWorker(reaper Reaper, interval time.Duration, logger logrus.FieldLogger) *HoldReaperWorker {
	return &HoldReaperWorker{
		reaper:   reaper,
		interval: interval,
		logger:   logger.WithField("worker", "hold_reaper"),
	}
}

// Start sweeps once immediately, then on every tick. It blocks.
func (w *HoldReaperWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.WithField("interval", w.interval.String()).Info("hold reaper started")
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("hold reaper stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce drains expired rows batch by batch. A batch that changes
// nothing ends the sweep, so protected rows do not spin the loop.
func (w *HoldReaperWorker) RunOnce(ctx context.Context) app.ReapResult {
	var total app.ReapResult
	for ctx.Err() == nil {
		res, err := w.reaper.ReapExpiredHolds(ctx)
		if err != nil {
			w.logger.WithError(err).Error("reap expired holds")
			break
		}
		total.Scanned += res.Scanned
		total.Deleted += res.Deleted
		total.Protected += res.Protected
		total.ExpiredOrders += res.ExpiredOrders
		if res.Deleted == 0 && res.ExpiredOrders == 0 {
			break
		}
	}

	if total.Scanned > 0 {
		w.logger.WithFields(logrus.Fields{
			"scanned":        total.Scanned,
			"deleted":        total.Deleted,
			"protected":      total.Protected,
			"expired_orders": total.ExpiredOrders,
		}).Info("hold reaper sweep")
	}
	return total
}

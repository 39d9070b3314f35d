package gift

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Joel009brave/ref-bot/database"
	"github.com/Joel009brave/ref-bot/metrics"
	"github.com/Joel009brave/ref-bot/models"
)

// Sweeper auto-approves pending requests whose decision window has passed.
// Settlement goes through the same compare-and-set transition as admin
// decisions, so overlapping sweeps or a racing admin action settle each
// request at most once.
type Sweeper struct {
	store    *database.Store
	notify   Notifier
	window   time.Duration
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(store *database.Store, notify Notifier, window, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{store: store, notify: notify, window: window, interval: interval, log: log}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// Sweep settles every expired pending request and returns how many were
// auto-approved this pass.
func (s *Sweeper) Sweep(now time.Time) int {
	expired, err := s.store.ListPendingExpired(now, s.window)
	if err != nil {
		s.log.Error("failed to list expired gift requests", zap.Error(err))
		return 0
	}

	swept := 0
	for i := range expired {
		req := expired[i]
		applied, err := s.store.TransitionGiftRequest(req.ID, models.GiftPending, models.GiftAutoApproved, now)
		if err != nil {
			s.log.Error("failed to auto-approve gift request", zap.Int64("request_id", req.ID), zap.Error(err))
			continue
		}
		if !applied {
			// An admin got there first.
			continue
		}

		req.Status = models.GiftAutoApproved
		req.DecidedAt = &now
		s.notify.GiftAutoApproved(&req)
		metrics.GiftSettlements.WithLabelValues(string(models.GiftAutoApproved)).Inc()
		s.log.Info("gift request auto-approved",
			zap.Int64("request_id", req.ID),
			zap.Int64("user_id", req.UserID))
		swept++
	}
	return swept
}

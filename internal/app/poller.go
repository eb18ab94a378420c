package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultPollInterval = 10 * time.Second

// StartPoller launches a background goroutine that re-probes the last device
// at a fixed cadence while it is disconnected. When the device comes back
// and files are waiting, it starts a sync pass. It returns immediately.
func StartPoller(ctx context.Context, ctrl *Controller, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick(ctx, ctrl)
			}
		}
	}()
}

func tick(ctx context.Context, ctrl *Controller) {
	if !ctrl.poll(ctx) {
		return
	}
	if ctrl.QueueLen() == 0 {
		return
	}
	pass, err := ctrl.Sync(ctx)
	if err != nil {
		if !IsNoop(err) {
			ctrl.logger.Warn("auto-sync failed", zap.Error(err))
		}
		return
	}
	ctrl.logger.Info("auto-sync finished",
		zap.String("pass", pass.ID),
		zap.Int("files", len(pass.Results)),
		zap.Int("failed", pass.Failed()))
}

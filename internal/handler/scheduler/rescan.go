// Package scheduler wires cron-triggered jobs to their use cases.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	infrascheduler "github.com/threatcanvas/integrations/internal/infra/scheduler"
	"github.com/threatcanvas/integrations/internal/usecase/rescan"
)

// RescanLockKey names the advisory lock that keeps concurrently deployed
// scheduler instances from running overlapping sweeps.
const RescanLockKey = "threatcanvas:rescan"

const defaultJobTimeout = 10 * time.Minute

type RescanHandler struct {
	lock      *infrascheduler.DistributedLock
	rescanner *rescan.Rescanner
}

// Pass nil for lock to disable distributed locking (single-instance only).
func NewRescanHandler(rescanner *rescan.Rescanner, lock *infrascheduler.DistributedLock) *RescanHandler {
	return &RescanHandler{
		lock:      lock,
		rescanner: rescanner,
	}
}

func (h *RescanHandler) Run() {
	h.RunWithContext(context.Background())
}

func (h *RescanHandler) RunWithContext(parentCtx context.Context) {
	ctx, cancel := context.WithTimeout(parentCtx, defaultJobTimeout)
	defer cancel()

	start := time.Now()

	if h.lock != nil {
		acquired, err := h.lock.TryAcquire(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "rescan lock acquisition failed", "error", err)
			return
		}
		if !acquired {
			slog.DebugContext(ctx, "rescan skipped: another instance is running")
			return
		}

		defer func() {
			if err := h.lock.Release(ctx); err != nil {
				slog.WarnContext(ctx, "rescan lock release failed", "error", err)
			}
		}()
	}

	slog.InfoContext(ctx, "rescan job started")

	if err := h.rescanner.Execute(ctx); err != nil {
		slog.ErrorContext(ctx, "rescan job failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	slog.InfoContext(ctx, "rescan job completed",
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

// AutoSubmitSweeper is the safety net behind client-driven submission: it
// periodically finds in-progress sessions whose end time has passed and
// finalizes them. Students who close the browser mid-exam still get a
// scored result.
//
// The sweeper is a singleton within the process. Start is a no-op after
// the first call, and a TryLock keeps ticks from overlapping when one
// sweep runs longer than the interval.
type AutoSubmitSweeper struct {
	repo      repositories.Repository
	logger    *slog.Logger
	finalizer FinalizeService

	interval  time.Duration
	batchSize int

	started  atomic.Bool
	ticking  sync.Mutex
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewAutoSubmitSweeper(repo repositories.Repository, logger *slog.Logger, finalizer FinalizeService, interval time.Duration, batchSize int) *AutoSubmitSweeper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &AutoSubmitSweeper{
		repo:      repo,
		logger:    logger.With("component", "auto_submit_sweeper"),
		finalizer: finalizer,
		interval:  interval,
		batchSize: batchSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop. Subsequent calls do nothing.
func (w *AutoSubmitSweeper) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer close(w.done)
		w.logger.Info("sweeper started", "interval", w.interval, "batch_size", w.batchSize)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.RunTick(context.Background())
			case <-w.stop:
				w.logger.Info("sweeper stopped")
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for it to exit. Safe to call even if
// Start never ran, and safe to call from concurrent goroutines.
func (w *AutoSubmitSweeper) Stop() {
	if !w.started.Load() {
		return
	}
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

// RunTick performs one sweep pass. Exposed so tests and operators can
// trigger a sweep without waiting for the ticker.
func (w *AutoSubmitSweeper) RunTick(ctx context.Context) {
	if !w.ticking.TryLock() {
		w.logger.Warn("previous sweep still running, skipping tick")
		return
	}
	defer w.ticking.Unlock()

	sessions, err := w.repo.Session().GetOverdueSessions(ctx, nil, time.Now(), w.batchSize)
	if err != nil {
		w.logger.Error("failed to query overdue sessions", "error", err)
		return
	}
	if len(sessions) == 0 {
		return
	}

	w.logger.Info("sweeping overdue sessions", "count", len(sessions))

	// One bad session must not block the rest of the batch.
	for _, session := range sessions {
		if _, err := w.finalizer.Finalize(ctx, session.ID); err != nil {
			w.logger.Error("failed to finalize overdue session",
				"session_id", session.ID,
				"exam_id", session.ExamID,
				"error", err)
			continue
		}
		w.logger.Info("auto-submitted overdue session",
			"session_id", session.ID,
			"exam_id", session.ExamID,
			"student_id", session.StudentID)
	}
}

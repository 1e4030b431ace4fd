package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultReconcileInterval = 10 * time.Second

// Reconciler periodically asks the owner thread to resynchronize state.
// It never touches state itself.
type Reconciler struct {
	interval time.Duration
	post     func(Event) error
	log      *zap.SugaredLogger
}

// NewReconciler creates a reconciler. A non-positive interval uses the
// default.
func NewReconciler(interval time.Duration, post func(Event) error, log *zap.SugaredLogger) *Reconciler {
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	return &Reconciler{interval: interval, post: post, log: log}
}

// Interval returns the tick period.
func (r *Reconciler) Interval() time.Duration {
	return r.interval
}

// Run posts a ReconcileEvent every interval. Blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Debugw("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.log.Debug("reconciler stopped")
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Reconciler) tick() {
	defer func() {
		if err := recover(); err != nil {
			r.log.Errorw("reconciler panic recovered", "error", err)
		}
	}()
	if err := r.post(ReconcileEvent{}); err != nil {
		r.log.Debugw("reconciler: event not queued", "error", err)
	}
}

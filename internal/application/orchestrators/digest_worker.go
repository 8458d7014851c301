package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"repcount/internal/domain/gym"
	"repcount/internal/domain/lifecycle"
)

// GymLister lists every gym for the digest sweep.
type GymLister interface {
	List(ctx context.Context) ([]gym.Gym, error)
}

// DigestSweepDeps holds dependencies for QueueAllDigests.
type DigestSweepDeps struct {
	Gyms   GymLister
	Digest QueueReminderDigestDeps
}

// ExecuteQueueAllDigests queues today's digest for every gym.
// POST: a failing gym is logged and the sweep continues; returns the number
// of outbox entries created
func ExecuteQueueAllDigests(ctx context.Context, today lifecycle.Date, deps DigestSweepDeps) (int, error) {
	gyms, err := deps.Gyms.List(ctx)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, g := range gyms {
		res, err := ExecuteQueueReminderDigest(ctx, QueueReminderDigestInput{GymID: g.ID, Today: today}, deps.Digest)
		if err != nil {
			slog.Error("digest_event", "event", "digest_failed", "gym_id", g.ID, "error", err)
			continue
		}
		queued += len(res.Queued)
	}
	return queued, nil
}

// StartDigestWorker queues digests on every tick. Re-queuing on later ticks
// the same day is a no-op because digest entry IDs are per gym and day.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed
func StartDigestWorker(deps DigestSweepDeps, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				today := lifecycle.DateOf(deps.Digest.Now())
				if _, err := ExecuteQueueAllDigests(ctx, today, deps); err != nil {
					slog.Error("digest_event", "event", "sweep_failed", "error", err)
				}
				cancel()
			case <-stopCh:
				slog.Info("digest_event", "event", "background_worker_stopped")
				return
			}
		}
	}()
}

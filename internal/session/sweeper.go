package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes expired sessions.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// StartSweeper sweeps expired sessions every interval until ctx is done.
func StartSweeper(ctx context.Context, s Sweeper, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				removed, err := s.Sweep(ctx, now)
				if err != nil {
					log.Error("failed to sweep sessions", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("expired sessions removed", zap.Int("removed", removed))
				}
			}
		}
	}()
}

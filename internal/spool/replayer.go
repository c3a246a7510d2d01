package spool

import (
	"context"
	"time"

	"github.com/atinyakov/fasogadget/internal/models"
	"go.uber.org/zap"
)

// OrderWriter stores a replayed order.
type OrderWriter interface {
	Insert(ctx context.Context, order models.Order) (string, error)
}

// StartReplayer drains the spool into w every interval until ctx is done.
// onReplayed, when set, receives the number of orders written per pass.
func StartReplayer(
	ctx context.Context,
	s *Spool,
	w OrderWriter,
	interval time.Duration,
	log *zap.Logger,
	onReplayed func(int),
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.Drain(ctx, func(ctx context.Context, o models.Order) error {
					_, err := w.Insert(ctx, o)
					return err
				})
				if n > 0 {
					log.Info("replayed spooled orders", zap.Int("count", n))
					if onReplayed != nil {
						onReplayed(n)
					}
				}
				if err != nil {
					log.Warn("failed to replay spooled orders", zap.Error(err))
				}
			}
		}
	}()
}

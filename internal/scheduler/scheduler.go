package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/tablebook/internal/slots"
)

// Marker moves overdue bookings to Unattended.
type Marker interface {
	MarkUnattended(ctx context.Context, day slots.Date, now slots.TimeOfDay) (int64, error)
}

// Sweeper periodically marks open bookings whose entry time, plus Grace,
// has passed in the engine's time zone.
type Sweeper struct {
	Store    Marker
	Engine   *slots.Engine
	Interval time.Duration
	Grace    time.Duration
	Logger   *zap.Logger
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately
	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many bookings changed.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	cutoff := s.Engine.Now().Add(-s.Grace)
	day := slots.DateOf(cutoff)
	at := slots.At(cutoff.Hour(), cutoff.Minute())

	n, err := s.Store.MarkUnattended(ctx, day, at)
	if err != nil {
		s.logger().Error("sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.logger().Info("marked bookings unattended",
			zap.Int64("count", n),
			zap.String("before", day.String()+" "+at.String()),
		)
	}
	return n
}

func (s *Sweeper) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

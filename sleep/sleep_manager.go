package sleep

import (
	"context"
	"time"

	"github.com/serayd61/stacks-tx-runner/log"
)

// Sleeper pauses the caller between attempts.
type Sleeper interface {
	Sleep(ctx context.Context, duration time.Duration)
}

type sleeper struct {
	log *log.Logger
}

// Ensure that sleeper implements Sleeper
var _ Sleeper = (*sleeper)(nil)

func NewSleeper(log *log.Logger) Sleeper {
	return &sleeper{log: log}
}

// Sleep blocks for the duration, returning early if the context is done.
func (s *sleeper) Sleep(ctx context.Context, duration time.Duration) {
	s.log.Info().Dur("duration", duration).Msg("💤 Sleeping before next transaction")

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

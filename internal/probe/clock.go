package probe

import (
	"context"
	"time"
)

// Clock abstracts wall-clock reads and timed suspension so that the loop can
// be driven deterministically.
type Clock interface {
	Now() time.Time

	// Sleep suspends for d. It returns early with ctx.Err() if ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

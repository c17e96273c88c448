// Package control repeats refresh cycles until a shutdown is requested
// through the database signal row.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/hltvscan/internal/database"
	"github.com/TobiSchelling/hltvscan/internal/ingest"
)

// DefaultPollInterval bounds shutdown latency while waiting between cycles.
const DefaultPollInterval = 5 * time.Second

// Signals is the persisted control state the loop reads and writes.
type Signals interface {
	RequestEnd(enable bool) error
	EndRequested() (bool, error)
	RefreshMinutes() (int, error)
}

// Cycler runs one refresh cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (*ingest.CycleResult, error)
}

// Loop schedules refresh cycles.
type Loop struct {
	signals Signals
	cycler  Cycler

	PollInterval time.Duration

	// TotalBytes accumulates downloaded bytes over all cycles run so far.
	TotalBytes int64
	Cycles     int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a loop polling the End signal every DefaultPollInterval.
func New(signals Signals, cycler Cycler) *Loop {
	return &Loop{
		signals:      signals,
		cycler:       cycler,
		PollInterval: DefaultPollInterval,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// Run clears End and runs cycles until End is set or ctx is cancelled.
// Cancellation is only observed between cycles; a running cycle always
// finishes. Fetch failures end the current cycle early and the loop waits for
// the next one; persistence failures stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.signals.RequestEnd(false); err != nil {
		return fmt.Errorf("clearing shutdown signal: %w", err)
	}

	for {
		start := l.now()
		r, err := l.cycler.RunCycle(context.WithoutCancel(ctx))
		l.Cycles++
		if r != nil {
			l.TotalBytes += r.Bytes
		}
		if err != nil {
			var pe *database.PersistenceError
			if errors.As(err, &pe) {
				return fmt.Errorf("refresh cycle: %w", err)
			}
			log.Printf("Refresh cycle aborted: %v", err)
		}
		log.Printf("Total downloaded: %.2f MB", float64(l.TotalBytes)/1e6)

		minutes, err := l.signals.RefreshMinutes()
		if err != nil {
			return err
		}
		next := start.Add(time.Duration(minutes) * time.Minute)
		log.Printf("Next refresh at %s", next.Format("2006-01-02 15:04:05"))

		stop, err := l.waitUntil(ctx, next)
		if err != nil {
			return err
		}
		if stop {
			log.Printf("Shutdown requested, stopping after %d cycle(s)", l.Cycles)
			return nil
		}
	}
}

// waitUntil polls End until next is reached. It reports true when the loop
// should stop.
func (l *Loop) waitUntil(ctx context.Context, next time.Time) (bool, error) {
	for {
		end, err := l.signals.EndRequested()
		if err != nil {
			return false, err
		}
		if end || ctx.Err() != nil {
			return true, nil
		}

		remaining := next.Sub(l.now())
		if remaining <= 0 {
			return false, nil
		}
		l.sleep(ctx, min(remaining, l.PollInterval))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

package serve

import (
	"context"
	"time"
)

// debouncer coalesces bursts of change notifications into single rebuild
// triggers: a trigger fires after the quiet window with no new changes, or
// after maxDelay when changes keep arriving.
type debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration

	in  chan struct{}
	out chan struct{}
}

func newDebouncer(quiet, maxDelay time.Duration) *debouncer {
	if quiet <= 0 {
		quiet = 300 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	return &debouncer{
		quiet:    quiet,
		maxDelay: maxDelay,
		in:       make(chan struct{}, 64),
		out:      make(chan struct{}, 1),
	}
}

// Notify records one change. Never blocks.
func (d *debouncer) Notify() {
	select {
	case d.in <- struct{}{}:
	default:
	}
}

// Triggers is the coalesced output channel.
func (d *debouncer) Triggers() <-chan struct{} { return d.out }

// Run drives the debounce loop until the context ends.
func (d *debouncer) Run(ctx context.Context) {
	var (
		quietTimer *time.Timer
		maxTimer   *time.Timer
		quietC     <-chan time.Time
		maxC       <-chan time.Time
	)
	stop := func(t *time.Timer) {
		if t != nil && !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
	}
	fire := func() {
		stop(quietTimer)
		stop(maxTimer)
		quietC, maxC = nil, nil
		select {
		case d.out <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop(quietTimer)
			stop(maxTimer)
			return
		case <-d.in:
			if quietTimer == nil {
				quietTimer = time.NewTimer(d.quiet)
			} else {
				stop(quietTimer)
				quietTimer.Reset(d.quiet)
			}
			quietC = quietTimer.C
			if maxC == nil {
				if maxTimer == nil {
					maxTimer = time.NewTimer(d.maxDelay)
				} else {
					maxTimer.Reset(d.maxDelay)
				}
				maxC = maxTimer.C
			}
		case <-quietC:
			fire()
		case <-maxC:
			fire()
		}
	}
}

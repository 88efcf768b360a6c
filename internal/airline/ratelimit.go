package airline

import (
	"context"
	"sync"
	"time"
)

// Per-minute quotas for each operation class, per the airline API
// documentation.
const (
	searchPerMinute = 120
	orderPerMinute  = 60
	otherPerMinute  = 300

	limitWindow  = time.Minute
	limitPollGap = time.Second
)

// CallLimiter gates outbound calls by operation class.
type CallLimiter interface {
	Wait(ctx context.Context, op Op) error
}

// WindowLimiter keeps an independent sliding 60-second window per
// operation class. Wait is a cooperative poll, not a reservation, so
// modest overshoot under concurrent callers is acceptable.
type WindowLimiter struct {
	mu     sync.Mutex
	limits map[Op]int
	calls  map[Op][]time.Time
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	onWait func(time.Duration)
}

// NewWindowLimiter constructs a limiter with the documented quotas.
// onWait, if non-nil, is invoked with each poll delay for metrics.
func NewWindowLimiter(onWait func(time.Duration)) *WindowLimiter {
	return &WindowLimiter{
		limits: map[Op]int{
			OpSearch: searchPerMinute,
			OpOrder:  orderPerMinute,
			OpOther:  otherPerMinute,
		},
		calls:  make(map[Op][]time.Time),
		now:    time.Now,
		sleep:  sleepWithContext,
		onWait: onWait,
	}
}

// Wait blocks until the window for op has capacity or ctx ends.
func (l *WindowLimiter) Wait(ctx context.Context, op Op) error {
	if l == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.allow(op) {
			return nil
		}
		if l.onWait != nil {
			l.onWait(limitPollGap)
		}
		if err := l.sleep(ctx, limitPollGap); err != nil {
			return err
		}
	}
}

func (l *WindowLimiter) allow(op Op) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit, ok := l.limits[op]
	if !ok {
		limit = otherPerMinute
	}

	now := l.now()
	cutoff := now.Add(-limitWindow)
	recent := l.calls[op][:0]
	for _, t := range l.calls[op] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= limit {
		l.calls[op] = recent
		return false
	}
	l.calls[op] = append(recent, now)
	return true
}

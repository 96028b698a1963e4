package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Trigger turns a burst of change notifications into one deferred backup.
//
// Every notification moves the pending fire time to now+cooldown; the wait loop
// fires once the tree has been quiet for a full cooldown. The fire time is the
// only state shared with the notifier goroutine.
type Trigger struct {
	cooldown time.Duration
	poll     time.Duration
	now      func() time.Time
	log      logrus.FieldLogger

	mu     sync.Mutex
	fireAt time.Time // zero when nothing is pending
}

type Option func(*Trigger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Trigger) { t.now = now }
}

// WithPollInterval sets how often Run checks the pending fire time.
func WithPollInterval(d time.Duration) Option {
	return func(t *Trigger) {
		if d > 0 {
			t.poll = d
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(t *Trigger) { t.log = log }
}

func New(cooldown time.Duration, opts ...Option) *Trigger {
	t := &Trigger{
		cooldown: cooldown,
		poll:     time.Second,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Notify records a change observed now. Safe for concurrent use; never blocks on I/O.
func (t *Trigger) Notify() {
	t.NotifyAt(t.now())
}

// NotifyAt records a change observed at the given time.
func (t *Trigger) NotifyAt(at time.Time) {
	t.mu.Lock()
	t.fireAt = at.Add(t.cooldown)
	t.mu.Unlock()
}

// Pending returns the scheduled fire time, if any.
func (t *Trigger) Pending() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fireAt, !t.fireAt.IsZero()
}

// Take consumes the pending fire time if it is due at now. Notifications that
// arrive after Take schedule a new fire.
func (t *Trigger) Take(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fireAt.IsZero() || now.Before(t.fireAt) {
		return false
	}
	t.fireAt = time.Time{}
	return true
}

// Run is the wait loop. It checks the fire time every poll interval and calls
// fire synchronously when due, so fire is never re-entered. Run returns nil when
// ctx is cancelled and returns the error of fire otherwise; fire decides which
// failures are fatal.
func (t *Trigger) Run(ctx context.Context, fire func(context.Context) error) error {
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !t.Take(t.now()) {
				continue
			}
			t.log.Debug("cooldown elapsed, starting backup")
			if err := fire(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

package progress

import (
	"io"
	"sync"
	"time"
)

// Counter accumulates the bytes read through the readers it wraps and reports
// the running total at most once per interval.
type Counter struct {
	mu         sync.Mutex
	total      int64
	interval   time.Duration
	onProgress func(total int64)
	lastReport time.Time
}

// NewCounter creates a Counter. onProgress may be nil; interval <= 0 reports on every read.
func NewCounter(interval time.Duration, onProgress func(total int64)) *Counter {
	return &Counter{interval: interval, onProgress: onProgress, lastReport: time.Now()}
}

// Reader wraps r so that bytes read from it are added to the counter.
func (c *Counter) Reader(r io.Reader) io.Reader {
	return &reader{r: r, c: c}
}

// Total returns the number of bytes counted so far.
func (c *Counter) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *Counter) add(n int) {
	c.mu.Lock()
	c.total += int64(n)
	var report bool
	if c.onProgress != nil {
		now := time.Now()
		if now.Sub(c.lastReport) >= c.interval {
			report = true
			c.lastReport = now
		}
	}
	total := c.total
	c.mu.Unlock()
	if report {
		c.onProgress(total)
	}
}

type reader struct {
	r io.Reader
	c *Counter
}

func (p *reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.c.add(n)
	}
	return n, err
}

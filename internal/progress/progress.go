// Package progress carries completion callbacks into long-running design
// steps.
package progress

import (
	"sync"

	"go.uber.org/zap"
)

// Reporter receives completion updates in whole percent.
type Reporter interface {
	OnProgress(percentDone int)
}

// Func adapts a function to Reporter.
type Func func(percentDone int)

// OnProgress implements Reporter.
func (f Func) OnProgress(percentDone int) { f(percentDone) }

// Nop discards updates.
var Nop Reporter = Func(func(int) {})

// OrNop returns r, or Nop when r is nil.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop
	}
	return r
}

// Log returns a Reporter that logs each update at info level.
func Log(log *zap.Logger, task string) Reporter {
	return Func(func(p int) {
		log.Info("progress", zap.String("task", task), zap.Int("percent", p))
	})
}

// Counter turns unit completions into decile updates. It is safe for
// concurrent use so parallel workers can share one counter.
type Counter struct {
	mu    sync.Mutex
	total int
	done  int
	last  int
	r     Reporter
}

// NewCounter reports to r as total units complete.
func NewCounter(total int, r Reporter) *Counter {
	return &Counter{total: total, r: OrNop(r)}
}

// Step records one completed unit and emits an update whenever another 10%
// has been crossed.
func (c *Counter) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done++
	if c.total <= 0 {
		return
	}
	pct := c.done * 100 / c.total
	pct -= pct % 10
	if pct > c.last {
		c.last = pct
		c.r.OnProgress(pct)
	}
}

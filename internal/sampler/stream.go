package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/Dicklesworthstone/perfmon/internal/model"
)

// Control carries per-tick options from a renderer goroutine to Stream and
// lets it request an early tick.
type Control struct {
	mu      sync.Mutex
	opts    Options
	refresh chan struct{}
}

func NewControl(opts Options) *Control {
	return &Control{opts: opts, refresh: make(chan struct{}, 1)}
}

func (c *Control) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// Update changes the options and requests an immediate tick.
func (c *Control) Update(fn func(*Options)) {
	c.mu.Lock()
	fn(&c.opts)
	c.mu.Unlock()
	c.Refresh()
}

// Refresh requests an immediate tick. Requests coalesce.
func (c *Control) Refresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// Stream returns a channel that will receive snapshots until ctx is done.
// The first snapshot is taken immediately, then one per interval or per
// Refresh request. Ticks never overlap. A nil ctl samples with
// DefaultOptions.
func (s *Sampler) Stream(ctx context.Context, interval time.Duration, ctl *Control) <-chan model.Snapshot {
	if ctl == nil {
		ctl = NewControl(DefaultOptions())
	}
	ch := make(chan model.Snapshot)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)

		emit := func(now time.Time) bool {
			snap, err := s.Sample(ctx, now, ctl.Options())
			if err != nil {
				return false
			}
			select {
			case ch <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(time.Now()) {
			return
		}
		for {
			select {
			case t := <-ticker.C:
				if !emit(t) {
					return
				}
			case <-ctl.refresh:
				if !emit(time.Now()) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Package procs ranks the live process table by CPU or memory usage.
package procs

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Dicklesworthstone/perfmon/internal/logging"
	"github.com/Dicklesworthstone/perfmon/internal/model"
	"github.com/Dicklesworthstone/perfmon/internal/source"
)

const (
	// PrimeInterval is the minimum wall-clock gap between priming passes.
	PrimeInterval = 5 * time.Second
	// PrimeDelay separates a priming pass from the ranked read so a CPU
	// delta can accumulate.
	PrimeDelay = 200 * time.Millisecond
)

// Ranker keeps one handle per live PID across calls; per-process CPU usage
// is a delta against the previous read on the same handle. Not safe for
// concurrent use.
type Ranker struct {
	src    source.ProcessSource
	logger *slog.Logger

	handles  map[int32]tracked
	primedAt time.Time

	primeInterval time.Duration
	primeDelay    time.Duration
	sleep         func(context.Context, time.Duration) error
}

// New creates a Ranker. If logger is nil, a no-op logger is used.
func New(src source.ProcessSource, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Ranker{
		src:           src,
		logger:        logger,
		handles:       make(map[int32]tracked),
		primeInterval: PrimeInterval,
		primeDelay:    PrimeDelay,
		sleep:         sleepCtx,
	}
}

// TopN returns at most n processes in descending order of key, ties kept in
// enumeration order. Processes that vanish or deny access mid-read are left
// out, so fewer than n may be returned. A nil result with a non-nil error
// only happens when ctx is cancelled.
func (r *Ranker) TopN(ctx context.Context, n int, key SortKey, now time.Time) ([]model.Process, error) {
	if n <= 0 {
		return nil, nil
	}

	live, err := r.enumerate(ctx)
	if err != nil {
		r.logger.Debug("procs: enumerate failed", "error", err)
		return nil, ctx.Err()
	}

	if key == ByCPU && (r.primedAt.IsZero() || now.Sub(r.primedAt) > r.primeInterval) {
		for _, h := range live {
			_, _ = h.CPUPercent(ctx)
		}
		if err := r.sleep(ctx, r.primeDelay); err != nil {
			return nil, err
		}
		r.primedAt = now
	}

	records := make([]model.Process, 0, len(live))
	for _, h := range live {
		rec, ok := r.read(ctx, h)
		if !ok {
			delete(r.handles, h.PID())
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if key == ByMemory {
			return records[i].Memory > records[j].Memory
		}
		return records[i].CPU > records[j].CPU
	})
	if len(records) > n {
		records = records[:n]
	}
	return records, nil
}

// tracked is a handle plus the start time of the process it was opened on.
type tracked struct {
	h       source.ProcessHandle
	created int64
}

// enumerate lists PIDs and reuses handles for PIDs seen before, unless the
// PID now belongs to a different process. Handles of exited processes are
// dropped.
func (r *Ranker) enumerate(ctx context.Context) ([]source.ProcessHandle, error) {
	pids, err := r.src.PIDs(ctx)
	if err != nil {
		return nil, err
	}
	next := make(map[int32]tracked, len(pids))
	live := make([]source.ProcessHandle, 0, len(pids))
	for _, pid := range pids {
		if _, dup := next[pid]; dup {
			continue
		}
		created, err := r.src.CreateTime(ctx, pid)
		if err != nil {
			continue
		}
		t, ok := r.handles[pid]
		if !ok || t.created != created {
			h, err := r.src.Open(ctx, pid)
			if err != nil {
				continue
			}
			t = tracked{h: h, created: created}
		}
		next[pid] = t
		live = append(live, t.h)
	}
	r.handles = next
	return live, nil
}

func (r *Ranker) read(ctx context.Context, h source.ProcessHandle) (model.Process, bool) {
	name, err := h.Name(ctx)
	if err != nil {
		return model.Process{}, false
	}
	cpuPct, err := h.CPUPercent(ctx)
	if err != nil {
		return model.Process{}, false
	}
	memPct, err := h.MemoryPercent(ctx)
	if err != nil {
		return model.Process{}, false
	}
	user, _ := h.Username(ctx)

	if cpuPct < 0 {
		cpuPct = 0
	}
	mem := float64(memPct)
	if mem < 0 {
		mem = 0
	} else if mem > 100 {
		mem = 100
	}
	return model.Process{
		PID:    int(h.PID()),
		Name:   name,
		CPU:    cpuPct,
		Memory: mem,
		User:   user,
	}, true
}

// Tracked returns how many process handles are kept for priming.
func (r *Ranker) Tracked() int { return len(r.handles) }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

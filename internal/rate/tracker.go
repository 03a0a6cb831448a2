// Package rate turns cumulative counters into per-second rates.
package rate

import "time"

// MinElapsed is the smallest denominator used when two snapshots are not
// strictly ordered in time.
const MinElapsed = 1e-6

// Snapshot is a reading of a family of cumulative counters. Field order must
// stay the same for every snapshot fed to one Tracker.
type Snapshot struct {
	Values     []uint64
	ObservedAt time.Time
}

// NewSnapshot copies values so later mutation by the caller cannot leak in.
func NewSnapshot(at time.Time, values ...uint64) Snapshot {
	v := make([]uint64, len(values))
	copy(v, values)
	return Snapshot{Values: v, ObservedAt: at}
}

// Sample is the rate derived from two snapshots.
type Sample struct {
	PerSecond []float64
	Elapsed   float64 // seconds, floored to MinElapsed
	Resets    int     // counters that went backwards and were clamped to zero
	Baseline  bool    // true when there was no previous snapshot
}

// Tracker keeps the previous snapshot of one counter family.
type Tracker struct {
	prev *Snapshot
}

// Update derives per-second rates against the stored baseline and then
// replaces the baseline with s. The first call returns zero rates.
func (t *Tracker) Update(s Snapshot) Sample {
	out := Sample{PerSecond: make([]float64, len(s.Values))}
	if t.prev == nil {
		out.Baseline = true
		t.store(s)
		return out
	}

	dt := s.ObservedAt.Sub(t.prev.ObservedAt).Seconds()
	if dt < MinElapsed {
		dt = MinElapsed
	}
	out.Elapsed = dt

	for i, cur := range s.Values {
		if i >= len(t.prev.Values) {
			continue
		}
		prev := t.prev.Values[i]
		if cur < prev {
			out.Resets++
			continue
		}
		out.PerSecond[i] = float64(cur-prev) / dt
	}

	t.store(s)
	return out
}

// Reset drops the baseline; the next Update behaves like the first.
func (t *Tracker) Reset() { t.prev = nil }

func (t *Tracker) store(s Snapshot) {
	cp := NewSnapshot(s.ObservedAt, s.Values...)
	t.prev = &cp
}

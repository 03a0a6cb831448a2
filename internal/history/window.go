// Package history keeps bounded, chronological windows of scalar samples
// for trend display.
package history

import "math"

// Levels is the number of intensity steps a trend is quantized into.
const Levels = 8

// Level is one quantized trend bucket, 0 (lowest) to Levels-1.
type Level int8

// Flat marks buckets of a window whose samples are all equal.
const Flat Level = -1

// Window is a fixed-capacity ring buffer. When full, Push evicts the oldest
// sample. Not safe for concurrent use.
type Window struct {
	buf   []float64
	start int
	n     int
}

// New returns a window holding at most capacity samples. Capacities below
// one are raised to one.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

func (w *Window) Cap() int { return len(w.buf) }
func (w *Window) Len() int { return w.n }

// Push appends v, evicting the oldest sample if the window is full.
func (w *Window) Push(v float64) {
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = v
		w.n++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

// Snapshot returns a copy of the samples, oldest first.
func (w *Window) Snapshot() []float64 {
	out := make([]float64, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Last returns the newest sample.
func (w *Window) Last() (float64, bool) {
	if w.n == 0 {
		return 0, false
	}
	return w.buf[(w.start+w.n-1)%len(w.buf)], true
}

// Stats summarizes the window.
type Stats struct {
	Len int
	Avg float64
	Min float64
	Max float64
}

func (w *Window) Stats() Stats { return Summarize(w.Snapshot()) }

// Summarize is Stats for an arbitrary sample slice.
func Summarize(samples []float64) Stats {
	if len(samples) == 0 {
		return Stats{}
	}
	s := Stats{Len: len(samples), Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range samples {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Avg = sum / float64(len(samples))
	return s
}

// Trend reduces the window to width quantized levels. Bucket i takes the
// sample at index floor(i*len/width) and normalizes it against the window's
// min and max. An empty window has no trend (nil); a window whose samples
// are all equal yields width Flat buckets.
func (w *Window) Trend(width int) []Level {
	return Quantize(w.Snapshot(), width)
}

// Quantize is Trend for an arbitrary oldest-first sample slice.
func Quantize(samples []float64, width int) []Level {
	if len(samples) == 0 || width <= 0 {
		return nil
	}

	lo, hi := samples[0], samples[0]
	for _, v := range samples[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]Level, width)
	if lo == hi {
		for i := range out {
			out[i] = Flat
		}
		return out
	}

	span := hi - lo
	n := len(samples)
	for i := range out {
		v := samples[i*n/width]
		lvl := int((v - lo) / span * Levels)
		if lvl >= Levels {
			lvl = Levels - 1
		}
		out[i] = Level(lvl)
	}
	return out
}

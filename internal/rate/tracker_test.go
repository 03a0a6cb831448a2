package rate

import (
	"math"
	"testing"
	"time"
)

func approx(a, b float64) bool { return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b)) }

func TestUpdateFirstCallIsBaseline(t *testing.T) {
	var tr Tracker
	got := tr.Update(NewSnapshot(time.Unix(100, 0), 500, 700))
	if !got.Baseline {
		t.Fatal("first update should be a baseline")
	}
	for i, r := range got.PerSecond {
		if r != 0 {
			t.Errorf("rate[%d] = %f, want 0", i, r)
		}
	}
}

func TestUpdateRates(t *testing.T) {
	t0 := time.Unix(0, 0)
	tests := []struct {
		name  string
		first []uint64
		next  []uint64
		dt    time.Duration
		want  []float64
		reset int
	}{
		{
			name:  "one MiB over one second",
			first: []uint64{0},
			next:  []uint64{1048576},
			dt:    time.Second,
			want:  []float64{1048576},
		},
		{
			name:  "half second doubles rate",
			first: []uint64{100, 200},
			next:  []uint64{200, 200},
			dt:    500 * time.Millisecond,
			want:  []float64{200, 0},
		},
		{
			name:  "reset clamps only the affected counter",
			first: []uint64{1000, 1000},
			next:  []uint64{10, 3000},
			dt:    2 * time.Second,
			want:  []float64{0, 1000},
			reset: 1,
		},
		{
			name:  "extra counter without baseline reports zero",
			first: []uint64{1},
			next:  []uint64{11, 99},
			dt:    time.Second,
			want:  []float64{10, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr Tracker
			tr.Update(NewSnapshot(t0, tt.first...))
			got := tr.Update(NewSnapshot(t0.Add(tt.dt), tt.next...))
			if len(got.PerSecond) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got.PerSecond), len(tt.want))
			}
			for i := range tt.want {
				if !approx(got.PerSecond[i], tt.want[i]) {
					t.Errorf("rate[%d] = %f, want %f", i, got.PerSecond[i], tt.want[i])
				}
			}
			if got.Resets != tt.reset {
				t.Errorf("resets = %d, want %d", got.Resets, tt.reset)
			}
		})
	}
}

func TestUpdateFloorsNonIncreasingTime(t *testing.T) {
	var tr Tracker
	at := time.Unix(50, 0)
	tr.Update(NewSnapshot(at, 0))

	got := tr.Update(NewSnapshot(at.Add(-time.Second), 1))
	if got.Elapsed != MinElapsed {
		t.Errorf("elapsed = %g, want %g", got.Elapsed, MinElapsed)
	}
	if math.IsInf(got.PerSecond[0], 0) || math.IsNaN(got.PerSecond[0]) {
		t.Errorf("rate must be finite, got %f", got.PerSecond[0])
	}
}

func TestUpdateAlwaysReplacesBaseline(t *testing.T) {
	var tr Tracker
	t0 := time.Unix(0, 0)
	tr.Update(NewSnapshot(t0, 5000))
	tr.Update(NewSnapshot(t0.Add(time.Second), 10)) // reset

	got := tr.Update(NewSnapshot(t0.Add(2*time.Second), 110))
	if !approx(got.PerSecond[0], 100) {
		t.Errorf("rate after reset = %f, want 100", got.PerSecond[0])
	}
}

func TestSnapshotIsCopied(t *testing.T) {
	vals := []uint64{10}
	s := NewSnapshot(time.Unix(0, 0), vals...)
	vals[0] = 99
	if s.Values[0] != 10 {
		t.Errorf("snapshot aliased caller slice")
	}

	var tr Tracker
	tr.Update(s)
	s.Values[0] = 0
	got := tr.Update(NewSnapshot(time.Unix(1, 0), 20))
	if !approx(got.PerSecond[0], 10) {
		t.Errorf("baseline aliased snapshot slice: rate = %f", got.PerSecond[0])
	}
}

func TestResetDropsBaseline(t *testing.T) {
	var tr Tracker
	tr.Update(NewSnapshot(time.Unix(0, 0), 1))
	tr.Reset()
	if got := tr.Update(NewSnapshot(time.Unix(1, 0), 2)); !got.Baseline {
		t.Error("update after Reset should be a baseline")
	}
}

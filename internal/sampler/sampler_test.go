package sampler

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/Dicklesworthstone/perfmon/internal/model"
	"github.com/Dicklesworthstone/perfmon/internal/procs"
	"github.com/Dicklesworthstone/perfmon/internal/source"
)

var errMissing = errors.New("missing")

type fakeCounters struct {
	net     []source.NetCounters
	disk    []source.DiskCounters
	netErr  error
	diskErr error
	netN    int
	diskN   int
}

func (f *fakeCounters) NetCounters(context.Context) (source.NetCounters, error) {
	if f.netErr != nil {
		return source.NetCounters{}, f.netErr
	}
	i := min(f.netN, len(f.net)-1)
	f.netN++
	return f.net[i], nil
}

func (f *fakeCounters) DiskCounters(context.Context) (source.DiskCounters, error) {
	if f.diskErr != nil {
		return source.DiskCounters{}, f.diskErr
	}
	i := min(f.diskN, len(f.disk)-1)
	f.diskN++
	return f.disk[i], nil
}

type fakeGauges struct {
	cpu          []float64
	cpuN         int
	mem          float64
	memErr       error
	battery      *model.Battery
	batteryCalls int
	boot         time.Time
}

func (f *fakeGauges) CPU(context.Context) (model.CPU, error) {
	i := min(f.cpuN, len(f.cpu)-1)
	f.cpuN++
	return model.CPU{Total: f.cpu[i], LogicalCores: 8}, nil
}

func (f *fakeGauges) Memory(context.Context) (model.Memory, error) {
	if f.memErr != nil {
		return model.Memory{}, f.memErr
	}
	return model.Memory{Percent: f.mem, TotalBytes: 16 << 30}, nil
}

func (f *fakeGauges) Partitions(context.Context) ([]model.Partition, error) {
	return []model.Partition{{Mountpoint: "/", Percent: 40}}, nil
}

func (f *fakeGauges) Battery(context.Context) (*model.Battery, error) {
	f.batteryCalls++
	if f.battery == nil {
		return nil, nil
	}
	b := *f.battery
	return &b, nil
}

func (f *fakeGauges) BootTime(context.Context) (time.Time, error) { return f.boot, nil }

type fakeHandle struct {
	pid int32
	mem float32
}

func (h fakeHandle) PID() int32 { return h.pid }
func (h fakeHandle) Name(context.Context) (string, error) { return "proc", nil }
func (h fakeHandle) Username(context.Context) (string, error) { return "root", nil }
func (h fakeHandle) CPUPercent(context.Context) (float64, error) { return 1, nil }
func (h fakeHandle) MemoryPercent(context.Context) (float32, error) { return h.mem, nil }

type fakeProcs struct{ handles []fakeHandle }

func (f *fakeProcs) PIDs(context.Context) ([]int32, error) {
	out := make([]int32, len(f.handles))
	for i, h := range f.handles {
		out[i] = h.pid
	}
	return out, nil
}

func (f *fakeProcs) Open(_ context.Context, pid int32) (source.ProcessHandle, error) {
	for _, h := range f.handles {
		if h.pid == pid {
			return h, nil
		}
	}
	return nil, errMissing
}

func (f *fakeProcs) CreateTime(_ context.Context, pid int32) (int64, error) {
	for _, h := range f.handles {
		if h.pid == pid {
			return 1, nil
		}
	}
	return 0, errMissing
}

type fakeProbe struct {
	calls  int
	value  float64
	err    error
	during func()
}

func (p *fakeProbe) Name() string { return "fake" }

func (p *fakeProbe) Temperature(context.Context) (float64, error) {
	p.calls++
	if p.during != nil {
		p.during()
	}
	return p.value, p.err
}

type fixture struct {
	counters *fakeCounters
	gauges   *fakeGauges
	procs    *fakeProcs
	probe    *fakeProbe
	t0       time.Time
}

func newFixture() *fixture {
	t0 := time.Unix(1_700_000_000, 0)
	return &fixture{
		counters: &fakeCounters{
			net:  []source.NetCounters{{}},
			disk: []source.DiskCounters{{}},
		},
		gauges: &fakeGauges{cpu: []float64{10}, mem: 50, boot: t0.Add(-26 * time.Hour)},
		procs:  &fakeProcs{},
		probe:  &fakeProbe{value: 42},
		t0:     t0,
	}
}

func (f *fixture) sampler(t *testing.T, historySize int) *Sampler {
	t.Helper()
	s, err := New(context.Background(), Deps{
		Counters:    f.counters,
		Gauges:      f.gauges,
		Processes:   f.procs,
		Probe:       f.probe,
		HistorySize: historySize,
		TempTTL:     5 * time.Second,
		Now:         func() time.Time { return f.t0 },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func quiet() Options {
	return Options{TopN: 5, SortBy: procs.ByMemory}
}

func mustSample(t *testing.T, s *Sampler, now time.Time, opts Options) model.Snapshot {
	t.Helper()
	snap, err := s.Sample(context.Background(), now, opts)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	return snap
}

func TestNewRequiresSources(t *testing.T) {
	if _, err := New(context.Background(), Deps{}); err == nil {
		t.Fatal("New without sources should fail")
	}
}

func TestSampleNetworkRate(t *testing.T) {
	f := newFixture()
	f.counters.net = []source.NetCounters{
		{BytesSent: 0, BytesRecv: 0},
		{BytesSent: 1048576, BytesRecv: 2 * 1048576},
	}
	s := f.sampler(t, 20)

	snap := mustSample(t, s, f.t0.Add(time.Second), quiet())
	if snap.Network == nil {
		t.Fatal("network missing")
	}
	if mib := snap.Network.SendBytesSec / (1 << 20); math.Abs(mib-1.0) > 1e-9 {
		t.Errorf("send rate = %f MiB/s, want 1.0", mib)
	}
	if mib := snap.Network.RecvBytesSec / (1 << 20); math.Abs(mib-2.0) > 1e-9 {
		t.Errorf("recv rate = %f MiB/s, want 2.0", mib)
	}
	if got := snap.History.Network; len(got) != 1 || got[0] != 3*1048576 {
		t.Errorf("network history = %v, want [3 MiB/s]", got)
	}
}

func TestSampleCounterResetClampsToZero(t *testing.T) {
	f := newFixture()
	f.counters.disk = []source.DiskCounters{
		{ReadBytes: 5000, WriteBytes: 100},
		{ReadBytes: 10, WriteBytes: 300},
	}
	s := f.sampler(t, 20)

	snap := mustSample(t, s, f.t0.Add(2*time.Second), quiet())
	if snap.Disk.IO == nil {
		t.Fatal("disk io missing")
	}
	if snap.Disk.IO.ReadBytesSec != 0 {
		t.Errorf("read rate after reset = %f, want 0", snap.Disk.IO.ReadBytesSec)
	}
	if snap.Disk.IO.WriteBytesSec != 100 {
		t.Errorf("write rate = %f, want 100", snap.Disk.IO.WriteBytesSec)
	}
}

func TestSampleMissingCountersAreAbsent(t *testing.T) {
	f := newFixture()
	f.counters.netErr = errMissing
	f.counters.diskErr = errMissing
	s := f.sampler(t, 20)

	snap := mustSample(t, s, f.t0.Add(time.Second), quiet())
	if snap.Network != nil || snap.Disk.IO != nil {
		t.Errorf("expected absent network and disk io, got %+v %+v", snap.Network, snap.Disk.IO)
	}
	if len(snap.History.Network) != 0 {
		t.Errorf("network history = %v, want empty", snap.History.Network)
	}
}

func TestSampleHistoryWindows(t *testing.T) {
	f := newFixture()
	f.gauges.cpu = []float64{10, 20, 30, 40, 50, 60}
	s := f.sampler(t, 5)

	var snap model.Snapshot
	for i := 0; i < 6; i++ {
		snap = mustSample(t, s, f.t0.Add(time.Duration(i+1)*time.Second), quiet())
	}
	if want := []float64{20, 30, 40, 50, 60}; !reflect.DeepEqual(snap.History.CPU, want) {
		t.Errorf("cpu history = %v, want %v", snap.History.CPU, want)
	}
	if len(snap.History.Memory) != 5 {
		t.Errorf("memory history len = %d, want 5", len(snap.History.Memory))
	}
}

func TestSampleTemperatureCache(t *testing.T) {
	f := newFixture()
	s := f.sampler(t, 20)
	opts := quiet()
	opts.TemperatureEnabled = true

	snap := mustSample(t, s, f.t0, opts)
	if snap.Temperature == nil || snap.Temperature.CPUCelsius != 42 || snap.Temperature.Source != "fake" {
		t.Fatalf("temperature = %+v, want 42 from fake", snap.Temperature)
	}

	f.probe.value = 50
	snap = mustSample(t, s, f.t0.Add(3*time.Second), opts)
	if f.probe.calls != 1 || snap.Temperature.CPUCelsius != 42 {
		t.Errorf("t=3: calls = %d, temp = %v; want cached 42", f.probe.calls, snap.Temperature.CPUCelsius)
	}

	snap = mustSample(t, s, f.t0.Add(6*time.Second), opts)
	if f.probe.calls != 2 || snap.Temperature.CPUCelsius != 50 {
		t.Errorf("t=6: calls = %d, temp = %v; want refreshed 50", f.probe.calls, snap.Temperature.CPUCelsius)
	}
}

func TestSampleTemperatureFailureIsCached(t *testing.T) {
	f := newFixture()
	f.probe.err = errMissing
	s := f.sampler(t, 20)
	opts := quiet()
	opts.TemperatureEnabled = true

	for i := 0; i < 3; i++ {
		snap := mustSample(t, s, f.t0.Add(time.Duration(i)*time.Second), opts)
		if snap.Temperature != nil {
			t.Fatalf("temperature = %+v, want nil", snap.Temperature)
		}
	}
	if f.probe.calls != 1 {
		t.Errorf("probe calls = %d, want 1", f.probe.calls)
	}
}

func TestSampleTemperatureDisabled(t *testing.T) {
	f := newFixture()
	s := f.sampler(t, 20)
	snap := mustSample(t, s, f.t0, quiet())
	if snap.Temperature != nil || f.probe.calls != 0 {
		t.Errorf("disabled temperature probed %d times, got %+v", f.probe.calls, snap.Temperature)
	}
}

func TestSampleBattery(t *testing.T) {
	f := newFixture()
	s := f.sampler(t, 20)

	opts := quiet()
	opts.IncludeBattery = true
	if snap := mustSample(t, s, f.t0, opts); snap.Battery != nil {
		t.Errorf("no battery should be absent, got %+v", snap.Battery)
	}

	f.gauges.battery = &model.Battery{Percent: 80, PluggedIn: true}
	if snap := mustSample(t, s, f.t0, opts); snap.Battery == nil || snap.Battery.Percent != 80 {
		t.Errorf("battery = %+v, want 80%%", snap.Battery)
	}

	calls := f.gauges.batteryCalls
	mustSample(t, s, f.t0, quiet())
	if f.gauges.batteryCalls != calls {
		t.Error("battery read although excluded")
	}
}

func TestSampleUptime(t *testing.T) {
	f := newFixture()
	s := f.sampler(t, 20)
	snap := mustSample(t, s, f.t0, quiet())
	d, h, m := snap.Uptime.Parts()
	if d != 1 || h != 2 || m != 0 {
		t.Errorf("uptime parts = %dd %dh %dm, want 1d 2h 0m", d, h, m)
	}
}

func TestSampleProcesses(t *testing.T) {
	f := newFixture()
	f.procs.handles = []fakeHandle{{pid: 10, mem: 5}, {pid: 11, mem: 20}, {pid: 12, mem: 1}}
	s := f.sampler(t, 20)

	opts := quiet()
	if snap := mustSample(t, s, f.t0, opts); snap.TopProcesses != nil || snap.SortedBy != "" {
		t.Errorf("processes included although disabled: %+v", snap.TopProcesses)
	}

	opts.IncludeProcesses = true
	opts.TopN = 2
	snap := mustSample(t, s, f.t0, opts)
	if len(snap.TopProcesses) != 2 || snap.TopProcesses[0].PID != 11 || snap.TopProcesses[1].PID != 10 {
		t.Errorf("top processes = %+v", snap.TopProcesses)
	}
	if snap.SortedBy != "memory" {
		t.Errorf("SortedBy = %q, want memory", snap.SortedBy)
	}
}

func TestSampleCancelled(t *testing.T) {
	f := newFixture()
	s := f.sampler(t, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Sample(ctx, f.t0, quiet()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestStream(t *testing.T) {
	f := newFixture()
	s := f.sampler(t, 20)
	ctl := NewControl(quiet())

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Stream(ctx, time.Hour, ctl)

	first := recv(t, ch)
	if first.SortedBy != "" {
		t.Errorf("first snapshot sorted by %q, want no processes", first.SortedBy)
	}

	ctl.Update(func(o *Options) {
		o.IncludeProcesses = true
		o.SortBy = procs.ByMemory
	})
	second := recv(t, ch)
	if second.SortedBy != "memory" {
		t.Errorf("refreshed snapshot sorted by %q, want memory", second.SortedBy)
	}

	cancel()
	for range ch {
	}
}

func TestStreamNilControl(t *testing.T) {
	f := newFixture()
	s := f.sampler(t, 20)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap := recv(t, s.Stream(ctx, time.Hour, nil))
	if snap.SortedBy != "cpu" {
		t.Errorf("sorted by %q, want default cpu", snap.SortedBy)
	}
}

func recv(t *testing.T, ch <-chan model.Snapshot) model.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("stream closed early")
		}
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return model.Snapshot{}
}

func TestCancelledProbeAbandonsTick(t *testing.T) {
	f := newFixture()
	s := f.sampler(t, 20)
	opts := quiet()
	opts.TemperatureEnabled = true

	ctx, cancel := context.WithCancel(context.Background())
	f.probe.during = cancel
	if _, err := s.Sample(ctx, f.t0, opts); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sample with probe cancelled = %v, want context.Canceled", err)
	}
	f.probe.during = nil

	snap := mustSample(t, s, f.t0.Add(time.Second), opts)
	if snap.Temperature == nil || snap.Temperature.CPUCelsius != 42 {
		t.Errorf("temperature after abandoned tick = %+v, want 42", snap.Temperature)
	}
	if f.probe.calls != 2 {
		t.Errorf("probe calls = %d, want 2", f.probe.calls)
	}
	if got := snap.History.CPU; len(got) != 1 {
		t.Errorf("cpu history = %v, abandoned tick must not push", got)
	}
}

func TestHistorySkipsFailedReadings(t *testing.T) {
	f := newFixture()
	f.counters.net = []source.NetCounters{{}, {BytesSent: 1000}}
	s := f.sampler(t, 20)

	mustSample(t, s, f.t0.Add(time.Second), quiet())
	f.counters.netErr = errMissing
	f.gauges.memErr = errMissing
	snap := mustSample(t, s, f.t0.Add(2*time.Second), quiet())

	if snap.Network != nil {
		t.Errorf("network = %+v, want nil", snap.Network)
	}
	if got, want := snap.History.Network, []float64{1000}; !reflect.DeepEqual(got, want) {
		t.Errorf("network history = %v, want %v", got, want)
	}
	if got, want := snap.History.Memory, []float64{50}; !reflect.DeepEqual(got, want) {
		t.Errorf("memory history = %v, want %v", got, want)
	}
	if got := snap.History.CPU; len(got) != 2 {
		t.Errorf("cpu history = %v, want 2 samples", got)
	}
}

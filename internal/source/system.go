package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Dicklesworthstone/perfmon/internal/model"
)

var errNoDevices = errors.New("source: no counters reported")

// System reads counters, gauges and the process table through gopsutil.
// It keeps the previous CPU times for busy-percent deltas, so one System
// belongs to one sampler.
type System struct {
	physical int
	logical  int
	cpuModel string
	mhz      float64

	prevTotal float64
	prevIdle  float64
	prevCore  []cpu.TimesStat

	battery func(context.Context) (*model.Battery, error)
}

var (
	_ CounterSource = (*System)(nil)
	_ GaugeSource   = (*System)(nil)
	_ ProcessSource = (*System)(nil)
)

// NewSystem checks that the platform query layer works and primes the CPU
// busy counters so the first sample reports a real percentage.
func NewSystem(ctx context.Context) (*System, error) {
	if _, err := host.BootTimeWithContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: boot time: %v", ErrUnsupported, err)
	}
	if _, err := cpu.TimesWithContext(ctx, false); err != nil {
		return nil, fmt.Errorf("%w: cpu times: %v", ErrUnsupported, err)
	}

	s := &System{battery: readBattery}
	s.logical, _ = cpu.CountsWithContext(ctx, true)
	s.physical, _ = cpu.CountsWithContext(ctx, false)
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		s.cpuModel = strings.TrimSpace(infos[0].ModelName)
		s.mhz = infos[0].Mhz
	}
	s.cpuPercents(ctx)
	return s, nil
}

func (s *System) CPU(ctx context.Context) (model.CPU, error) {
	total, perCore := s.cpuPercents(ctx)
	out := model.CPU{
		Total:         total,
		PerCore:       perCore,
		PhysicalCores: s.physical,
		LogicalCores:  s.logical,
		Model:         s.cpuModel,
		FrequencyMHz:  s.mhz,
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		out.Load1, out.Load5, out.Load15 = avg.Load1, avg.Load5, avg.Load15
	}
	return out, nil
}

// CPU percentages from times delta.
func (s *System) cpuPercents(ctx context.Context) (total float64, perCore []float64) {
	times, _ := cpu.TimesWithContext(ctx, false)
	if len(times) == 0 {
		return 0, nil
	}
	cur := times[0]
	curTotal := cur.Total()
	curIdle := cur.Idle + cur.Iowait
	if s.prevTotal > 0 {
		dt := curTotal - s.prevTotal
		di := curIdle - s.prevIdle
		if dt > 0 {
			total = clampPercent(100 * (1 - di/dt))
		}
	}
	s.prevTotal, s.prevIdle = curTotal, curIdle

	coreTimes, _ := cpu.TimesWithContext(ctx, true)
	perCore = make([]float64, len(coreTimes))
	for i, c := range coreTimes {
		if i >= len(s.prevCore) {
			continue
		}
		prev := s.prevCore[i]
		dt := c.Total() - prev.Total()
		di := (c.Idle + c.Iowait) - (prev.Idle + prev.Iowait)
		if dt > 0 {
			perCore[i] = clampPercent(100 * (1 - di/dt))
		}
	}
	s.prevCore = coreTimes
	return
}

func (s *System) Memory(ctx context.Context) (model.Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return model.Memory{}, fmt.Errorf("virtual memory: %w", err)
	}
	out := model.Memory{
		TotalBytes:     vm.Total,
		AvailableBytes: vm.Available,
		UsedBytes:      vm.Used,
		Percent:        vm.UsedPercent,
		Cached:         vm.Cached,
		Buffers:        vm.Buffers,
	}
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		out.SwapTotal, out.SwapUsed, out.SwapPercent = sw.Total, sw.Used, sw.UsedPercent
	}
	return out, nil
}

// Partitions skips mounts whose usage cannot be read (permission denied,
// vanished mountpoint).
func (s *System) Partitions(ctx context.Context) ([]model.Partition, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil && len(parts) == 0 {
		return nil, fmt.Errorf("partitions: %w", err)
	}
	out := make([]model.Partition, 0, len(parts))
	for _, p := range parts {
		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || u.Total == 0 {
			continue
		}
		out = append(out, model.Partition{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			Fstype:     p.Fstype,
			TotalBytes: u.Total,
			UsedBytes:  u.Used,
			FreeBytes:  u.Free,
			Percent:    u.UsedPercent,
		})
	}
	return out, nil
}

func (s *System) Battery(ctx context.Context) (*model.Battery, error) {
	return s.battery(ctx)
}

func (s *System) BootTime(ctx context.Context) (time.Time, error) {
	secs, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("boot time: %w", err)
	}
	return time.Unix(int64(secs), 0), nil
}

func (s *System) NetCounters(ctx context.Context) (NetCounters, error) {
	stats, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return NetCounters{}, fmt.Errorf("net counters: %w", err)
	}
	if len(stats) == 0 {
		return NetCounters{}, errNoDevices
	}
	all := stats[0]
	return NetCounters{
		BytesSent:   all.BytesSent,
		BytesRecv:   all.BytesRecv,
		PacketsSent: all.PacketsSent,
		PacketsRecv: all.PacketsRecv,
	}, nil
}

// DiskCounters sums whole disks. Partitions and stacked devices repeat the
// I/O of the disks beneath them and are left out.
func (s *System) DiskCounters(ctx context.Context) (DiskCounters, error) {
	stats, err := disk.IOCountersWithContext(ctx)
	if err != nil && len(stats) == 0 {
		return DiskCounters{}, fmt.Errorf("disk counters: %w", err)
	}
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	var out DiskCounters
	seen := 0
	for _, name := range wholeDisks(names) {
		st := stats[name]
		out.ReadBytes += st.ReadBytes
		out.WriteBytes += st.WriteBytes
		out.ReadCount += st.ReadCount
		out.WriteCount += st.WriteCount
		seen++
	}
	if seen == 0 {
		return DiskCounters{}, errNoDevices
	}
	return out, nil
}

// virtualDisks are device prefixes that never represent physical media.
var virtualDisks = []string{"loop", "ram", "zram", "dm-", "md", "sr"}

// wholeDisks drops virtual devices and any name that is a partition of
// another listed device (sda1 of sda, nvme0n1p2 of nvme0n1).
func wholeDisks(names []string) []string {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if hasAnyPrefix(n, virtualDisks) || isPartition(n, present) {
			continue
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func isPartition(name string, present map[string]bool) bool {
	end := len(name)
	for end > 0 && name[end-1] >= '0' && name[end-1] <= '9' {
		end--
	}
	if end == len(name) || end == 0 {
		return false
	}
	if present[name[:end]] {
		return true
	}
	return name[end-1] == 'p' && present[name[:end-1]]
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (s *System) PIDs(ctx context.Context) ([]int32, error) {
	return process.PidsWithContext(ctx)
}

func (s *System) Open(ctx context.Context, pid int32) (ProcessHandle, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, err
	}
	return &procHandle{p: p}, nil
}

// CreateTime uses a throwaway Process so gopsutil's cached start time on
// long-lived handles is not consulted.
func (s *System) CreateTime(ctx context.Context, pid int32) (int64, error) {
	return (&process.Process{Pid: pid}).CreateTimeWithContext(ctx)
}

type procHandle struct {
	p *process.Process
}

func (h *procHandle) PID() int32 { return h.p.Pid }

func (h *procHandle) Name(ctx context.Context) (string, error) {
	return h.p.NameWithContext(ctx)
}

func (h *procHandle) Username(ctx context.Context) (string, error) {
	return h.p.UsernameWithContext(ctx)
}

// CPUPercent uses gopsutil's interval-0 mode, which compares against the
// times stored on the same *process.Process by the previous call.
func (h *procHandle) CPUPercent(ctx context.Context) (float64, error) {
	return h.p.PercentWithContext(ctx, 0)
}

func (h *procHandle) MemoryPercent(ctx context.Context) (float32, error) {
	return h.p.MemoryPercentWithContext(ctx)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

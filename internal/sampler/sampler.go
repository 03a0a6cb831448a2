package sampler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dicklesworthstone/perfmon/internal/history"
	"github.com/Dicklesworthstone/perfmon/internal/logging"
	"github.com/Dicklesworthstone/perfmon/internal/model"
	"github.com/Dicklesworthstone/perfmon/internal/probe"
	"github.com/Dicklesworthstone/perfmon/internal/procs"
	"github.com/Dicklesworthstone/perfmon/internal/rate"
	"github.com/Dicklesworthstone/perfmon/internal/source"
	"github.com/Dicklesworthstone/perfmon/internal/ttlcache"
)

const (
	DefaultHistorySize = 20
	DefaultTempTTL     = 5 * time.Second
)

// Options select what one tick gathers.
type Options struct {
	IncludeProcesses   bool
	TopN               int
	SortBy             procs.SortKey
	IncludeBattery     bool
	TemperatureEnabled bool
}

func DefaultOptions() Options {
	return Options{
		IncludeProcesses: true,
		TopN:             10,
		SortBy:           procs.ByCPU,
		IncludeBattery:   true,
	}
}

// Deps are the collaborators and tunables a Sampler is built from. Probe
// may be nil, in which case temperature is never available.
type Deps struct {
	Counters     source.CounterSource
	Gauges       source.GaugeSource
	Processes    source.ProcessSource
	Probe        source.ProbeSource
	Logger       *slog.Logger
	HistorySize  int
	TempTTL      time.Duration
	ProbeTimeout time.Duration
	Now          func() time.Time
}

// Sampler converts raw OS readings into Snapshots. It owns the rate
// baselines, the temperature cache, the trend windows and the process
// ranker, so exactly one Sample call may run at a time.
type Sampler struct {
	counters source.CounterSource
	gauges   source.GaugeSource
	probe    source.ProbeSource
	logger   *slog.Logger

	netRate  rate.Tracker
	diskRate rate.Tracker

	temp         *ttlcache.Cache[model.Temperature]
	probeTimeout time.Duration

	cpuHist *history.Window
	memHist *history.Window
	netHist *history.Window

	ranker *procs.Ranker
}

// New builds a Sampler and seeds the I/O baselines so the first Sample
// reports rates over the time since construction.
func New(ctx context.Context, d Deps) (*Sampler, error) {
	if d.Counters == nil || d.Gauges == nil || d.Processes == nil {
		return nil, errors.New("sampler: counter, gauge and process sources are required")
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.HistorySize <= 0 {
		d.HistorySize = DefaultHistorySize
	}
	if d.TempTTL <= 0 {
		d.TempTTL = DefaultTempTTL
	}
	if d.ProbeTimeout <= 0 {
		d.ProbeTimeout = probe.DefaultTimeout
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	s := &Sampler{
		counters:     d.Counters,
		gauges:       d.Gauges,
		probe:        d.Probe,
		logger:       d.Logger,
		temp:         ttlcache.New[model.Temperature](d.TempTTL),
		probeTimeout: d.ProbeTimeout,
		cpuHist:      history.New(d.HistorySize),
		memHist:      history.New(d.HistorySize),
		netHist:      history.New(d.HistorySize),
		ranker:       procs.New(d.Processes, d.Logger),
	}

	now := d.Now()
	if net, err := s.counters.NetCounters(ctx); err == nil {
		s.netRate.Update(netSnapshot(now, net))
	}
	if dc, err := s.counters.DiskCounters(ctx); err == nil {
		s.diskRate.Update(diskSnapshot(now, dc))
	}
	return s, nil
}

// NewSystem wires the gopsutil-backed sources and the platform probe. It
// fails when the platform query layer is unusable.
func NewSystem(ctx context.Context, d Deps) (*Sampler, error) {
	sys, err := source.NewSystem(ctx)
	if err != nil {
		return nil, err
	}
	d.Counters, d.Gauges, d.Processes = sys, sys, sys
	if d.Probe == nil {
		d.Probe = probe.Default()
	}
	return New(ctx, d)
}

// Sample runs one tick. Unavailable metrics show up as nil or empty fields;
// the only error is ctx's, in which case the tick is abandoned.
func (s *Sampler) Sample(ctx context.Context, now time.Time, opts Options) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}

	network := s.network(ctx, now)
	diskIO := s.diskIO(ctx, now)

	cpuStat, cpuErr := s.gauges.CPU(ctx)
	if cpuErr != nil {
		s.logger.Debug("sampler: cpu unavailable", "error", cpuErr)
	}
	memStat, memErr := s.gauges.Memory(ctx)
	if memErr != nil {
		s.logger.Debug("sampler: memory unavailable", "error", memErr)
	}
	parts, err := s.gauges.Partitions(ctx)
	if err != nil {
		s.logger.Debug("sampler: partitions unavailable", "error", err)
	}

	var batt *model.Battery
	if opts.IncludeBattery {
		if batt, err = s.gauges.Battery(ctx); err != nil {
			s.logger.Debug("sampler: battery unavailable", "error", err)
		}
	}

	var uptime model.Uptime
	if boot, err := s.gauges.BootTime(ctx); err == nil {
		uptime = model.NewUptime(boot, now)
	}

	var temp *model.Temperature
	if opts.TemperatureEnabled {
		t, ok, err := s.temperature(ctx, now)
		if err != nil {
			return model.Snapshot{}, err
		}
		if ok {
			temp = &t
		}
	}

	var top []model.Process
	sortedBy := ""
	if opts.IncludeProcesses {
		top, err = s.ranker.TopN(ctx, opts.TopN, opts.SortBy, now)
		if err != nil {
			return model.Snapshot{}, err
		}
		sortedBy = opts.SortBy.String()
	}

	// Nothing below may run for an abandoned tick.
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}

	// Windows only hold real readings.
	if cpuErr == nil {
		s.cpuHist.Push(cpuStat.Total)
	}
	if memErr == nil {
		s.memHist.Push(memStat.Percent)
	}
	if network != nil {
		s.netHist.Push(network.Throughput())
	}

	return model.Snapshot{
		Timestamp:    now,
		Uptime:       uptime,
		CPU:          cpuStat,
		Memory:       memStat,
		Disk:         model.Disk{Partitions: parts, IO: diskIO},
		Network:      network,
		Battery:      batt,
		Temperature:  temp,
		TopProcesses: top,
		SortedBy:     sortedBy,
		History: model.History{
			CPU:     s.cpuHist.Snapshot(),
			Memory:  s.memHist.Snapshot(),
			Network: s.netHist.Snapshot(),
		},
	}, nil
}

func (s *Sampler) network(ctx context.Context, now time.Time) *model.Network {
	net, err := s.counters.NetCounters(ctx)
	if err != nil {
		s.logger.Debug("sampler: network counters unavailable", "error", err)
		return nil
	}
	r := s.netRate.Update(netSnapshot(now, net))
	if r.Resets > 0 {
		s.logger.Debug("sampler: network counter reset", "counters", r.Resets)
	}
	return &model.Network{
		BytesSent:    net.BytesSent,
		BytesRecv:    net.BytesRecv,
		PacketsSent:  net.PacketsSent,
		PacketsRecv:  net.PacketsRecv,
		SendBytesSec: r.PerSecond[0],
		RecvBytesSec: r.PerSecond[1],
	}
}

func (s *Sampler) diskIO(ctx context.Context, now time.Time) *model.DiskIO {
	dc, err := s.counters.DiskCounters(ctx)
	if err != nil {
		s.logger.Debug("sampler: disk counters unavailable", "error", err)
		return nil
	}
	r := s.diskRate.Update(diskSnapshot(now, dc))
	if r.Resets > 0 {
		s.logger.Debug("sampler: disk counter reset", "counters", r.Resets)
	}
	return &model.DiskIO{
		ReadBytes:     dc.ReadBytes,
		WriteBytes:    dc.WriteBytes,
		ReadCount:     dc.ReadCount,
		WriteCount:    dc.WriteCount,
		ReadBytesSec:  r.PerSecond[0],
		WriteBytesSec: r.PerSecond[1],
	}
}

// temperature reads through the TTL cache. A probe cut short by ctx leaves
// the cache untouched and abandons the tick.
func (s *Sampler) temperature(ctx context.Context, now time.Time) (model.Temperature, bool, error) {
	probed := false
	t, ok := s.temp.Get(now, func() (model.Temperature, bool) {
		probed = true
		return s.readTemperature(ctx)
	})
	if err := ctx.Err(); err != nil {
		if probed {
			s.temp.Invalidate()
		}
		return model.Temperature{}, false, err
	}
	return t, ok, nil
}

func (s *Sampler) readTemperature(ctx context.Context) (model.Temperature, bool) {
	if s.probe == nil {
		return model.Temperature{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	c, err := s.probe.Temperature(ctx)
	if err != nil {
		s.logger.Debug("sampler: temperature unavailable", "probe", s.probe.Name(), "error", err)
		return model.Temperature{}, false
	}
	return model.Temperature{CPUCelsius: c, Source: s.probe.Name()}, true
}

func netSnapshot(at time.Time, c source.NetCounters) rate.Snapshot {
	return rate.NewSnapshot(at, c.BytesSent, c.BytesRecv, c.PacketsSent, c.PacketsRecv)
}

func diskSnapshot(at time.Time, c source.DiskCounters) rate.Snapshot {
	return rate.NewSnapshot(at, c.ReadBytes, c.WriteBytes, c.ReadCount, c.WriteCount)
}

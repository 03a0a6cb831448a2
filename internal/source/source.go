// Package source defines the narrow OS capabilities the sampler depends on
// and provides the concrete adapters for them.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/Dicklesworthstone/perfmon/internal/model"
)

// ErrUnsupported is returned when the platform query layer cannot be used
// at all. It is a construction-time failure.
var ErrUnsupported = errors.New("source: platform metrics unavailable")

// NetCounters are cumulative interface totals since boot.
type NetCounters struct {
	BytesSent   uint64
	BytesRecv   uint64
	PacketsSent uint64
	PacketsRecv uint64
}

// DiskCounters are cumulative block-device totals since boot.
type DiskCounters struct {
	ReadBytes  uint64
	WriteBytes uint64
	ReadCount  uint64
	WriteCount uint64
}

// CounterSource reads monotonically increasing I/O counters.
type CounterSource interface {
	NetCounters(ctx context.Context) (NetCounters, error)
	DiskCounters(ctx context.Context) (DiskCounters, error)
}

// GaugeSource reads instantaneous values. Battery returns nil, nil when the
// host has no battery.
type GaugeSource interface {
	CPU(ctx context.Context) (model.CPU, error)
	Memory(ctx context.Context) (model.Memory, error)
	Partitions(ctx context.Context) ([]model.Partition, error)
	Battery(ctx context.Context) (*model.Battery, error)
	BootTime(ctx context.Context) (time.Time, error)
}

// ProcessHandle is a live process. CPUPercent reports usage since the
// previous CPUPercent call on the same handle, and 0 on the first call.
type ProcessHandle interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	Username(ctx context.Context) (string, error)
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float32, error)
}

// ProcessSource enumerates the process table. CreateTime reads the start
// time of whichever process holds pid now, so a recycled PID can be told
// apart from the process a handle was opened on.
type ProcessSource interface {
	PIDs(ctx context.Context) ([]int32, error)
	Open(ctx context.Context, pid int32) (ProcessHandle, error)
	CreateTime(ctx context.Context, pid int32) (int64, error)
}

// ProbeSource reads chip temperature from an external, possibly slow or
// privileged collaborator. Any error means unavailable.
type ProbeSource interface {
	Name() string
	Temperature(ctx context.Context) (float64, error)
}

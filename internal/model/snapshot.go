package model

import "time"

// CPU aggregates instantaneous CPU usage.
type CPU struct {
	Total         float64   `json:"overall_usage"` // percent 0-100
	PerCore       []float64 `json:"per_core_usage"`
	PhysicalCores int       `json:"core_count"`
	LogicalCores  int       `json:"thread_count"`
	Model         string    `json:"model,omitempty"`
	FrequencyMHz  float64   `json:"frequency_mhz,omitempty"`
	Load1         float64   `json:"load1"`
	Load5         float64   `json:"load5"`
	Load15        float64   `json:"load15"`
}

// Memory captures RAM and swap usage in bytes for precision.
type Memory struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	Percent        float64 `json:"percent"`
	SwapTotal      uint64  `json:"swap_total_bytes"`
	SwapUsed       uint64  `json:"swap_used_bytes"`
	SwapPercent    float64 `json:"swap_percent"`
	Cached         uint64  `json:"cached_bytes"`
	Buffers        uint64  `json:"buffers_bytes"`
}

// Partition is a mounted filesystem and its usage.
type Partition struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	Fstype     string  `json:"fstype"`
	TotalBytes uint64  `json:"total_bytes"`
	UsedBytes  uint64  `json:"used_bytes"`
	FreeBytes  uint64  `json:"free_bytes"`
	Percent    float64 `json:"percent"`
}

// DiskIO holds cumulative block-device counters and their rates.
type DiskIO struct {
	ReadBytes     uint64  `json:"read_bytes"`
	WriteBytes    uint64  `json:"write_bytes"`
	ReadCount     uint64  `json:"read_count"`
	WriteCount    uint64  `json:"write_count"`
	ReadBytesSec  float64 `json:"read_rate_bytes_s"`
	WriteBytesSec float64 `json:"write_rate_bytes_s"`
}

// Disk is absent-tolerant: IO is nil when counters could not be read.
type Disk struct {
	Partitions []Partition `json:"partitions"`
	IO         *DiskIO     `json:"io_stats"`
}

// Network holds cumulative interface counters and their rates.
type Network struct {
	BytesSent    uint64  `json:"bytes_sent"`
	BytesRecv    uint64  `json:"bytes_recv"`
	PacketsSent  uint64  `json:"packets_sent"`
	PacketsRecv  uint64  `json:"packets_recv"`
	SendBytesSec float64 `json:"send_rate_bytes_s"`
	RecvBytesSec float64 `json:"recv_rate_bytes_s"`
}

// Throughput is the combined send and receive rate in bytes per second.
func (n Network) Throughput() float64 { return n.SendBytesSec + n.RecvBytesSec }

// Battery shows power state. SecondsLeft is nil when the remaining time is
// unknown or unlimited.
type Battery struct {
	Percent     float64 `json:"percent"`
	PluggedIn   bool    `json:"plugged_in"`
	State       string  `json:"state"`
	SecondsLeft *int64  `json:"seconds_left"`
}

// Temperature is a single chip reading from the privileged probe.
type Temperature struct {
	CPUCelsius float64 `json:"cpu_temp_c"`
	Source     string  `json:"source"`
}

// Uptime is derived from the boot time at sample time.
type Uptime struct {
	BootTime time.Time     `json:"boot_time"`
	Uptime   time.Duration `json:"uptime_ns"`
	Days     int           `json:"uptime_days"`
	Hours    int           `json:"uptime_hours"`
	Minutes  int           `json:"uptime_minutes"`
}

// NewUptime fills in the breakdown for a host booted at boot.
func NewUptime(boot, now time.Time) Uptime {
	u := Uptime{BootTime: boot, Uptime: now.Sub(boot)}
	u.Days, u.Hours, u.Minutes = u.Parts()
	return u
}

// Parts splits the uptime into whole days, hours and minutes.
func (u Uptime) Parts() (days, hours, minutes int) {
	s := int64(u.Uptime / time.Second)
	return int(s / 86400), int(s % 86400 / 3600), int(s % 3600 / 60)
}

// Process is a lightweight top entry.
type Process struct {
	PID    int     `json:"pid"`
	Name   string  `json:"name"`
	CPU    float64 `json:"cpu_percent"`
	Memory float64 `json:"memory_percent"`
	User   string  `json:"username"`
}

// History carries oldest-first copies of the trend windows.
type History struct {
	CPU     []float64 `json:"cpu"`
	Memory  []float64 `json:"memory"`
	Network []float64 `json:"network"`
}

// Snapshot is the full, immutable result of one engine tick, exchanged
// between sampler, UI, and JSON exporter. Nil pointers mean not present.
type Snapshot struct {
	Timestamp    time.Time    `json:"timestamp"`
	Uptime       Uptime       `json:"uptime"`
	CPU          CPU          `json:"cpu"`
	Memory       Memory       `json:"memory"`
	Disk         Disk         `json:"disk"`
	Network      *Network     `json:"network"`
	Battery      *Battery     `json:"battery,omitempty"`
	Temperature  *Temperature `json:"temperature"`
	TopProcesses []Process    `json:"top_processes,omitempty"`
	SortedBy     string       `json:"sorted_by,omitempty"`
	History      History      `json:"history"`
}

// Zero returns an empty snapshot for initialization.
func Zero() Snapshot { return Snapshot{Timestamp: time.Now()} }

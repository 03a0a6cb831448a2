package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

// cpuSensors are substrings of kernel sensor keys that belong to the CPU
// package or cores.
var cpuSensors = []string{
	"coretemp",
	"k10temp",
	"zenpower",
	"cpu",
	"package",
	"tdie",
	"tctl",
}

// Sensors reads hardware monitor sensors through gopsutil and reports the
// hottest CPU sensor.
type Sensors struct {
	Timeout time.Duration

	read func(context.Context) ([]host.TemperatureStat, error)
}

func NewSensors() *Sensors {
	return &Sensors{Timeout: DefaultTimeout, read: host.SensorsTemperaturesWithContext}
}

func (s *Sensors) Name() string { return "sensors" }

func (s *Sensors) Temperature(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	// gopsutil returns partial readings alongside a warnings error.
	stats, err := s.read(ctx)
	if v, ok := hottestCPU(stats); ok {
		return v, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: sensors: %v", ErrUnavailable, err)
	}
	return 0, fmt.Errorf("%w: no cpu sensor", ErrUnavailable)
}

func hottestCPU(stats []host.TemperatureStat) (float64, bool) {
	var best float64
	found := false
	for _, st := range stats {
		key := strings.ToLower(st.SensorKey)
		if !containsAny(key, cpuSensors) || st.Temperature <= 0 {
			continue
		}
		if !found || st.Temperature > best {
			best = st.Temperature
			found = true
		}
	}
	return best, found
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

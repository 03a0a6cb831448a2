package procs

import "strings"

// SortKey selects the metric processes are ranked by.
type SortKey int

const (
	ByCPU SortKey = iota
	ByMemory
)

// ParseSortKey maps user input to a SortKey. Anything unrecognized ranks
// by CPU.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memory", "mem":
		return ByMemory
	default:
		return ByCPU
	}
}

func (k SortKey) String() string {
	if k == ByMemory {
		return "memory"
	}
	return "cpu"
}

// Toggle returns the other key.
func (k SortKey) Toggle() SortKey {
	if k == ByMemory {
		return ByCPU
	}
	return ByMemory
}

// MarshalText lets SortKey round-trip through YAML and JSON as its name.
func (k SortKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *SortKey) UnmarshalText(b []byte) error {
	*k = ParseSortKey(string(b))
	return nil
}

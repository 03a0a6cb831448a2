package source

import (
	"context"
	"fmt"

	"github.com/distatus/battery"

	"github.com/Dicklesworthstone/perfmon/internal/model"
)

// cell is the part of a battery reading the summary needs. Energies are in
// mWh and the rate in mW.
type cell struct {
	current float64
	full    float64
	rate    float64
	state   string
}

func readBattery(_ context.Context) (*model.Battery, error) {
	bats, err := battery.GetAll()
	cells := make([]cell, 0, len(bats))
	for _, b := range bats {
		if b == nil {
			continue
		}
		cells = append(cells, cell{
			current: b.Current,
			full:    b.Full,
			rate:    b.ChargeRate,
			state:   b.State.String(),
		})
	}
	out := summarizeBattery(cells)
	if out == nil && err != nil {
		return nil, fmt.Errorf("battery: %w", err)
	}
	return out, nil
}

// summarizeBattery folds all cells into one reading. It returns nil when no
// cell reports a capacity.
func summarizeBattery(cells []cell) *model.Battery {
	var current, full, rate float64
	state := ""
	for _, c := range cells {
		if c.full <= 0 {
			continue
		}
		current += c.current
		full += c.full
		rate += c.rate
		switch {
		case c.state == "Charging":
			state = c.state
		case c.state == "Discharging" && state != "Charging":
			state = c.state
		case state == "":
			state = c.state
		}
	}
	if full == 0 {
		return nil
	}

	out := &model.Battery{
		Percent: clampPercent(current / full * 100),
		State:   state,
	}
	switch state {
	case "Charging", "Full", "Idle":
		out.PluggedIn = true
	}
	if state == "Discharging" && rate > 0 {
		secs := int64(current / rate * 3600)
		out.SecondsLeft = &secs
	}
	return out
}

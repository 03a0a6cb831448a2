package probe

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var numberExtractor = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// Powermetrics reads the SMC sampler of macOS powermetrics through a
// non-interactive sudo, so it only works when sudo has been pre-authorized.
type Powermetrics struct {
	Path    string
	Sudo    bool
	Timeout time.Duration

	run runner
}

func NewPowermetrics() *Powermetrics {
	return &Powermetrics{
		Path:    "powermetrics",
		Sudo:    true,
		Timeout: DefaultTimeout,
		run:     execRunner,
	}
}

func (p *Powermetrics) Name() string { return "powermetrics" }

func (p *Powermetrics) command() (string, []string) {
	args := []string{"--samplers", "smc", "-i", "1", "-n", "1"}
	if p.Sudo {
		return "sudo", append([]string{"-n", p.Path}, args...)
	}
	return p.Path, args
}

func (p *Powermetrics) Temperature(ctx context.Context) (float64, error) {
	name, args := p.command()
	out, err := runCmd(ctx, p.Timeout, p.run, name, args...)
	if err != nil {
		return 0, err
	}
	if v, ok := parseDieTemperature(out); ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: no CPU die temperature in powermetrics output", ErrUnavailable)
}

// parseDieTemperature finds a line like "CPU die temperature: 52.34 C".
func parseDieTemperature(out string) (float64, bool) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, "CPU die temperature") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx == -1 {
			continue
		}
		match := numberExtractor.FindString(line[idx+1:])
		if match == "" {
			continue
		}
		v, err := strconv.ParseFloat(match, 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

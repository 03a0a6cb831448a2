// Package probe implements the temperature collaborators. Every failure
// mode (missing binary, non-zero exit, timeout, unparsable output) is
// reported as an error wrapping ErrUnavailable.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/Dicklesworthstone/perfmon/internal/source"
)

// ErrUnavailable means no reading could be produced.
var ErrUnavailable = errors.New("probe: temperature unavailable")

// DefaultTimeout bounds a single probe invocation.
const DefaultTimeout = 3 * time.Second

// runner executes a command and returns its stdout.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCmd(ctx context.Context, timeout time.Duration, run runner, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := run(ctx, name, args...)
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w: %s timed out after %v", ErrUnavailable, name, timeout)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
	}
	return string(out), nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Default returns the platform's probe: powermetrics on macOS, kernel
// sensors elsewhere.
func Default() source.ProbeSource {
	if runtime.GOOS == "darwin" {
		return NewPowermetrics()
	}
	return NewSensors()
}

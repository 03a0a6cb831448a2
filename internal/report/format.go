package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/perfmon/internal/history"
)

var (
	ColorCritical = lipgloss.Color("196")
	ColorWarn     = lipgloss.Color("214")
	ColorBusy     = lipgloss.Color("39")
	ColorOK       = lipgloss.Color("42")
)

// StatusColor grades a utilization percentage.
func StatusColor(pct float64) lipgloss.Color {
	switch {
	case pct >= 90:
		return ColorCritical
	case pct >= 75:
		return ColorWarn
	case pct >= 50:
		return ColorBusy
	default:
		return ColorOK
	}
}

func StatusEmoji(pct float64) string {
	switch {
	case pct >= 90:
		return "🔴"
	case pct >= 75:
		return "🟡"
	default:
		return "🟢"
	}
}

const (
	barFill  = "█"
	barEmpty = "░"
)

// Bar draws a width-cell progress bar for pct, clamped to [0, 100].
func Bar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	pct = clamp(pct, 0, 100)
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat(barFill, filled) + strings.Repeat(barEmpty, width-filled)
}

// Gauge is a bracketed Bar followed by the percentage.
func Gauge(pct float64, width int) string {
	return fmt.Sprintf("[%s] %5.1f%%", Bar(pct, width), clamp(pct, 0, 100))
}

var sparkGlyphs = []rune("▁▂▃▄▅▆▇█")

const sparkFlat = "─"

// Sparkline renders samples as width glyphs. Empty or flat input draws a
// neutral line.
func Sparkline(samples []float64, width int) string {
	if width <= 0 {
		return ""
	}
	levels := history.Quantize(samples, width)
	if levels == nil {
		return strings.Repeat(sparkFlat, width)
	}
	var b strings.Builder
	for _, l := range levels {
		if l == history.Flat {
			b.WriteString(sparkFlat)
			continue
		}
		b.WriteRune(sparkGlyphs[l])
	}
	return b.String()
}

// Bytes formats n with binary prefixes, e.g. "1.5MiB".
func Bytes(n float64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	for _, u := range units {
		if n < 1024 && n > -1024 {
			return fmt.Sprintf("%.1f%s", n, u)
		}
		n /= 1024
	}
	return fmt.Sprintf("%.1fPiB", n)
}

// Rate formats a bytes-per-second value.
func Rate(bps float64) string { return Bytes(bps) + "/s" }

func GiB(b uint64) float64 { return float64(b) / (1 << 30) }
func MiB(b uint64) float64 { return float64(b) / (1 << 20) }

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-1]) + "…"
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/perfmon/internal/model"
)

// TextOptions selects which report sections are drawn and how.
type TextOptions struct {
	Compact bool
	DiskIO  bool
}

const (
	gaugeWidth = 25
	sparkWidth = 15
	coreLimit  = 16
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	boldStyle   = lipgloss.NewStyle().Bold(true)
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			MarginRight(1)
)

// Card draws a titled, rounded box whose border takes the given color.
func Card(title string, border lipgloss.Color, body string) string {
	return cardStyle.BorderForeground(border).Render(labelStyle.Render(title) + "\n" + body)
}

func colored(c lipgloss.Color, s string) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

// Text renders a full static report for one snapshot.
func Text(s model.Snapshot, opts TextOptions) string {
	header := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("33")).
		Padding(0, 1).
		Render(titleStyle.Render("🖥️  System Performance Monitor") + "\n" +
			subtleStyle.Render("📅 "+s.Timestamp.Format("2006-01-02 15:04:05")))

	uptime := uptimeCard(s.Uptime)
	cpu := cpuCard(s.CPU, s.History.CPU)
	mem := memoryCard(s.Memory, s.History.Memory)
	disk := diskCard(s.Disk, opts.DiskIO)
	netw := networkCard(s.Network, s.History.Network)

	var extras []string
	if s.Battery != nil {
		extras = append(extras, batteryCard(*s.Battery))
	}
	if s.Temperature != nil {
		extras = append(extras, temperatureCard(*s.Temperature))
	}

	rows := []string{header, uptime}
	if opts.Compact {
		rows = append(rows, cpu, mem, disk, netw)
		rows = append(rows, extras...)
	} else {
		rows = append(rows,
			lipgloss.JoinHorizontal(lipgloss.Top, cpu, mem),
			lipgloss.JoinHorizontal(lipgloss.Top, disk, netw))
		if len(extras) > 0 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, extras...))
		}
	}
	if s.SortedBy != "" {
		rows = append(rows, processCard(s.TopProcesses, s.SortedBy))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

func uptimeCard(u model.Uptime) string {
	d, h, m := u.Parts()
	body := boldStyle.Render("⏰ Boot Time: ") + u.BootTime.Format("2006-01-02 15:04:05") + "\n" +
		boldStyle.Render("⏱️  Uptime: ") + colored(ColorOK, fmt.Sprintf("%dd %dh %dm", d, h, m))
	return Card("System Uptime", ColorOK, body)
}

func cpuCard(c model.CPU, trend []float64) string {
	color := StatusColor(c.Total)
	var b strings.Builder
	fmt.Fprintf(&b, "%s Overall: %s\n", StatusEmoji(c.Total), colored(color, fmt.Sprintf("%.1f%%", c.Total)))
	b.WriteString(colored(color, Bar(c.Total, gaugeWidth)) + "\n")
	fmt.Fprintf(&b, "📊 Trend: %s\n\n", Sparkline(trend, sparkWidth))
	fmt.Fprintf(&b, "🔢 Cores: %d physical, %d logical\n", c.PhysicalCores, c.LogicalCores)
	if c.FrequencyMHz > 0 {
		fmt.Fprintf(&b, "⚡ Frequency: %.0f MHz\n", c.FrequencyMHz)
	}
	fmt.Fprintf(&b, "📈 Load: %.2f %.2f %.2f", c.Load1, c.Load5, c.Load15)
	if n := len(c.PerCore); n > 0 && n <= coreLimit {
		b.WriteString("\n\n💻 Per-Core Usage:")
		for i, p := range c.PerCore {
			fmt.Fprintf(&b, "\n  Core %2d: %s", i, colored(StatusColor(p), fmt.Sprintf("%s %5.1f%%", Bar(p, 10), p)))
		}
	}
	return Card("CPU Usage", color, b.String())
}

func memoryCard(m model.Memory, trend []float64) string {
	color := StatusColor(m.Percent)
	var b strings.Builder
	fmt.Fprintf(&b, "%s Usage: %s\n", StatusEmoji(m.Percent), colored(color, fmt.Sprintf("%.1f%%", m.Percent)))
	b.WriteString(colored(color, Bar(m.Percent, gaugeWidth)) + "\n")
	fmt.Fprintf(&b, "📊 Trend: %s\n\n", Sparkline(trend, sparkWidth))
	fmt.Fprintf(&b, "📦 Used: %.2f GiB / %.2f GiB\n", GiB(m.UsedBytes), GiB(m.TotalBytes))
	fmt.Fprintf(&b, "✨ Available: %.2f GiB", GiB(m.AvailableBytes))
	if m.SwapUsed > 0 {
		b.WriteString("\n" + colored(StatusColor(m.SwapPercent),
			fmt.Sprintf("💾 Swap: %.2f / %.2f GiB (%.1f%%)", GiB(m.SwapUsed), GiB(m.SwapTotal), m.SwapPercent)))
	}
	return Card("Memory Usage", color, b.String())
}

func diskCard(d model.Disk, showIO bool) string {
	var b strings.Builder
	for i, p := range d.Partitions {
		if i > 0 {
			b.WriteString("\n")
		}
		color := StatusColor(p.Percent)
		fmt.Fprintf(&b, "%s %s\n", StatusEmoji(p.Percent), p.Mountpoint)
		fmt.Fprintf(&b, "   %s\n", colored(color, fmt.Sprintf("%s %.1f%%", Bar(p.Percent, 20), p.Percent)))
		fmt.Fprintf(&b, "   %.2f / %.2f GiB (%.2f GiB free)", GiB(p.UsedBytes), GiB(p.TotalBytes), GiB(p.FreeBytes))
	}
	if len(d.Partitions) == 0 {
		b.WriteString(subtleStyle.Render("no partitions"))
	}
	if showIO && d.IO != nil {
		fmt.Fprintf(&b, "\n\n📊 I/O Statistics:\n")
		fmt.Fprintf(&b, "   Read:  %.2f MiB (%s)\n", MiB(d.IO.ReadBytes), Rate(d.IO.ReadBytesSec))
		fmt.Fprintf(&b, "   Write: %.2f MiB (%s)", MiB(d.IO.WriteBytes), Rate(d.IO.WriteBytesSec))
	}
	return Card("Disk Usage", ColorBusy, b.String())
}

func networkCard(n *model.Network, trend []float64) string {
	if n == nil {
		return Card("Network", lipgloss.Color("244"), subtleStyle.Render("unavailable"))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Activity: %s\n\n", Sparkline(trend, sparkWidth))
	fmt.Fprintf(&b, "⬆️  Sent:     %.2f MiB (%s)\n", MiB(n.BytesSent), Rate(n.SendBytesSec))
	fmt.Fprintf(&b, "⬇️  Received: %.2f MiB (%s)\n", MiB(n.BytesRecv), Rate(n.RecvBytesSec))
	fmt.Fprintf(&b, "📦 Packets:  ↑%d / ↓%d", n.PacketsSent, n.PacketsRecv)
	return Card("Network", lipgloss.Color("51"), b.String())
}

func batteryCard(bt model.Battery) string {
	color := ColorOK
	switch {
	case bt.Percent <= 20:
		color = ColorCritical
	case bt.Percent <= 50:
		color = ColorWarn
	}
	icon := "🔋"
	if bt.PluggedIn {
		icon = "🔌"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s Level: %s\n", icon, colored(color, fmt.Sprintf("%.0f%%", bt.Percent)))
	b.WriteString(colored(color, Bar(bt.Percent, 15)) + "\n")
	fmt.Fprintf(&b, "Status: %s", bt.State)
	if bt.SecondsLeft != nil {
		fmt.Fprintf(&b, "\n⏱️  Time: %d min", *bt.SecondsLeft/60)
	}
	return Card("Battery", color, b.String())
}

func temperatureCard(t model.Temperature) string {
	color := ColorOK
	switch {
	case t.CPUCelsius > 80:
		color = ColorCritical
	case t.CPUCelsius > 60:
		color = ColorWarn
	}
	body := "🌡️  CPU: " + colored(color, fmt.Sprintf("%.1f°C", t.CPUCelsius))
	if t.Source != "" {
		body += "\n" + subtleStyle.Render("via "+t.Source)
	}
	return Card("Temperature", color, body)
}

func processCard(ps []model.Process, sortedBy string) string {
	title := fmt.Sprintf("Top %d Processes (by %s)", len(ps), sortLabel(sortedBy))
	return Card(title, lipgloss.Color("201"), ProcessTable(ps))
}

func sortLabel(key string) string {
	if key == "memory" {
		return "Memory"
	}
	return "CPU"
}

// ProcessTable lays out process rows as fixed-width text.
func ProcessTable(ps []model.Process) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%7s %6s %-10s %6s %-10s %-30s %s", "PID", "CPU %", "CPU Bar", "MEM %", "MEM Bar", "Process Name", "User")
	for _, p := range ps {
		fmt.Fprintf(&b, "\n%7d %6.1f %s %6.1f %s %-30s %s",
			p.PID,
			p.CPU, colored(StatusColor(p.CPU), Bar(p.CPU, 10)),
			p.Memory, colored(StatusColor(p.Memory), Bar(p.Memory, 10)),
			Truncate(p.Name, 30), Truncate(p.User, 15))
	}
	return b.String()
}

// Package ui is the interactive terminal front end. It renders snapshots
// from a sampler stream and sends option changes back through a Control.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/perfmon/internal/history"
	"github.com/Dicklesworthstone/perfmon/internal/model"
	"github.com/Dicklesworthstone/perfmon/internal/report"
	"github.com/Dicklesworthstone/perfmon/internal/sampler"
)

// Tab identifies the active view.
type Tab int

const (
	TabOverview Tab = iota
	TabCPU
	TabMemory
	TabNetwork
	TabProcesses
	tabCount
)

var tabNames = [tabCount]string{"Overview", "CPU", "Memory", "Network", "Processes"}

func (t Tab) String() string { return tabNames[t] }

// topSteps is the cycle for the top-N key.
var topSteps = []int{10, 20, 50}

// Model renders live samples from the sampler.
type Model struct {
	ctl    *sampler.Control
	latest model.Snapshot
	have   bool
	now    time.Time

	tab    Tab
	procs  table.Model
	help   help.Model
	width  int
	height int
}

func New(ctl *sampler.Control) *Model {
	t := table.New(
		table.WithColumns(processColumns),
		table.WithFocused(true),
		table.WithHeight(12),
		table.WithWidth(72),
	)
	return &Model{
		ctl:    ctl,
		latest: model.Zero(),
		procs:  t,
		help:   help.New(),
		width:  120,
		height: 40,
	}
}

var processColumns = []table.Column{
	{Title: "PID", Width: 7},
	{Title: "Name", Width: 28},
	{Title: "CPU %", Width: 7},
	{Title: "MEM %", Width: 7},
	{Title: "User", Width: 14},
}

// Messages
type (
	tickMsg     time.Time
	snapshotMsg model.Snapshot
)

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/5, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.procs.SetHeight(max(5, msg.Height-8))
		m.procs.SetWidth(max(40, msg.Width-4))
		m.help.Width = msg.Width
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case snapshotMsg:
		m.latest = model.Snapshot(msg)
		m.have = true
		m.procs.SetRows(processRows(m.latest.TopProcesses))
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, keys.NextTab):
			m.tab = (m.tab + 1) % tabCount
		case key.Matches(msg, keys.PrevTab):
			m.tab = (m.tab - 1 + tabCount) % tabCount
		case key.Matches(msg, keys.Tab1):
			m.tab = TabOverview
		case key.Matches(msg, keys.Tab2):
			m.tab = TabCPU
		case key.Matches(msg, keys.Tab3):
			m.tab = TabMemory
		case key.Matches(msg, keys.Tab4):
			m.tab = TabNetwork
		case key.Matches(msg, keys.Tab5):
			m.tab = TabProcesses
		case key.Matches(msg, keys.Sort):
			m.ctl.Update(func(o *sampler.Options) { o.SortBy = o.SortBy.Toggle() })
		case key.Matches(msg, keys.Top):
			m.ctl.Update(func(o *sampler.Options) { o.TopN = nextTop(o.TopN) })
		case key.Matches(msg, keys.Refresh):
			m.ctl.Refresh()
		default:
			if m.tab == TabProcesses {
				var cmd tea.Cmd
				m.procs, cmd = m.procs.Update(msg)
				return m, cmd
			}
		}
	}
	return m, nil
}

func nextTop(n int) int {
	for i, s := range topSteps {
		if n == s {
			return topSteps[(i+1)%len(topSteps)]
		}
	}
	return topSteps[0]
}

func processRows(ps []model.Process) []table.Row {
	rows := make([]table.Row, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, table.Row{
			strconv.Itoa(p.PID),
			report.Truncate(p.Name, 28),
			fmt.Sprintf("%.1f", p.CPU),
			fmt.Sprintf("%.1f", p.Memory),
			report.Truncate(p.User, 14),
		})
	}
	return rows
}

// Styles
var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Padding(0, 1)
)

func (m *Model) View() string {
	header := titleStyle.Render("System Performance Monitor") + "  " +
		subtleStyle.Render(m.clock().Format("Mon Jan 2 15:04:05 MST 2006"))

	tabs := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		label := fmt.Sprintf("%d %s", t+1, t)
		if t == m.tab {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	var body string
	switch {
	case !m.have:
		body = subtleStyle.Render("Collecting first sample...")
	case m.tab == TabCPU:
		body = m.cpuView()
	case m.tab == TabMemory:
		body = m.memoryView()
	case m.tab == TabNetwork:
		body = m.networkView()
	case m.tab == TabProcesses:
		body = m.processView()
	default:
		body = m.overview()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, tabBar, body, m.help.View(keys))
}

func (m *Model) clock() time.Time {
	if !m.now.IsZero() {
		return m.now
	}
	return m.latest.Timestamp
}

func (m *Model) trendWidth() int { return max(10, min(60, m.width/2-10)) }

func (m *Model) overview() string {
	s := m.latest
	w := 20

	cpu := report.Card("CPU", report.StatusColor(s.CPU.Total), fmt.Sprintf("%s\n%s  load %.2f %.2f %.2f",
		report.Gauge(s.CPU.Total, w), report.Sparkline(s.History.CPU, w+9), s.CPU.Load1, s.CPU.Load5, s.CPU.Load15))
	mem := report.Card("Memory", report.StatusColor(s.Memory.Percent), fmt.Sprintf("%s\n%s  %.1f/%.1f GiB",
		report.Gauge(s.Memory.Percent, w), report.Sparkline(s.History.Memory, w+9),
		report.GiB(s.Memory.UsedBytes), report.GiB(s.Memory.TotalBytes)))

	netBody := subtleStyle.Render("unavailable")
	if s.Network != nil {
		netBody = fmt.Sprintf("↑ %s  ↓ %s\n%s",
			report.Rate(s.Network.SendBytesSec), report.Rate(s.Network.RecvBytesSec),
			report.Sparkline(s.History.Network, w+9))
	}
	netw := report.Card("Network", lipgloss.Color("51"), netBody)

	cards := []string{cpu, mem, netw}
	var extra []string
	d, h, mi := s.Uptime.Parts()
	extra = append(extra, fmt.Sprintf("up %dd %dh %dm", d, h, mi))
	if s.Battery != nil {
		extra = append(extra, fmt.Sprintf("battery %.0f%% (%s)", s.Battery.Percent, s.Battery.State))
	}
	if s.Temperature != nil {
		extra = append(extra, fmt.Sprintf("cpu %.1f°C", s.Temperature.CPUCelsius))
	}
	if s.Disk.IO != nil {
		extra = append(extra, fmt.Sprintf("disk r %s w %s", report.Rate(s.Disk.IO.ReadBytesSec), report.Rate(s.Disk.IO.WriteBytesSec)))
	}
	cards = append(cards, report.Card("System", lipgloss.Color("60"), strings.Join(extra, "\n")))

	row := lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	top := s.TopProcesses
	if len(top) > 5 {
		top = top[:5]
	}
	return lipgloss.JoinVertical(lipgloss.Left, row, report.Card(m.processTitle(), lipgloss.Color("201"), report.ProcessTable(top)))
}

func (m *Model) cpuView() string {
	s := m.latest
	st := history.Summarize(s.History.CPU)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", report.Gauge(s.CPU.Total, 40))
	fmt.Fprintf(&b, "Trend  %s\n", report.Sparkline(s.History.CPU, m.trendWidth()))
	fmt.Fprintf(&b, "Stats  avg %.1f%%  min %.1f%%  max %.1f%%  (%d samples)\n\n", st.Avg, st.Min, st.Max, st.Len)
	fmt.Fprintf(&b, "Cores  %d physical, %d logical", s.CPU.PhysicalCores, s.CPU.LogicalCores)
	if s.CPU.FrequencyMHz > 0 {
		fmt.Fprintf(&b, "  %.0f MHz", s.CPU.FrequencyMHz)
	}
	if s.CPU.Model != "" {
		fmt.Fprintf(&b, "\nModel  %s", s.CPU.Model)
	}
	fmt.Fprintf(&b, "\nLoad   %.2f %.2f %.2f\n", s.CPU.Load1, s.CPU.Load5, s.CPU.Load15)
	for i, p := range s.CPU.PerCore {
		fmt.Fprintf(&b, "\ncore %2d %s", i, lipgloss.NewStyle().Foreground(report.StatusColor(p)).Render(report.Gauge(p, 20)))
	}
	return report.Card("CPU", report.StatusColor(s.CPU.Total), b.String())
}

func (m *Model) memoryView() string {
	mem := m.latest.Memory
	st := history.Summarize(m.latest.History.Memory)
	var b strings.Builder
	fmt.Fprintf(&b, "RAM   %s\n", report.Gauge(mem.Percent, 40))
	fmt.Fprintf(&b, "Swap  %s\n\n", report.Gauge(mem.SwapPercent, 40))
	fmt.Fprintf(&b, "Trend %s\n", report.Sparkline(m.latest.History.Memory, m.trendWidth()))
	fmt.Fprintf(&b, "Stats avg %.1f%%  min %.1f%%  max %.1f%%\n\n", st.Avg, st.Min, st.Max)
	fmt.Fprintf(&b, "Used      %6.2f GiB\n", report.GiB(mem.UsedBytes))
	fmt.Fprintf(&b, "Available %6.2f GiB\n", report.GiB(mem.AvailableBytes))
	fmt.Fprintf(&b, "Total     %6.2f GiB\n", report.GiB(mem.TotalBytes))
	fmt.Fprintf(&b, "Cached    %6.2f GiB\n", report.GiB(mem.Cached))
	fmt.Fprintf(&b, "Buffers   %6.2f GiB\n", report.GiB(mem.Buffers))
	fmt.Fprintf(&b, "Swap      %6.2f / %.2f GiB", report.GiB(mem.SwapUsed), report.GiB(mem.SwapTotal))
	return report.Card("Memory", report.StatusColor(mem.Percent), b.String())
}

func (m *Model) networkView() string {
	n := m.latest.Network
	if n == nil {
		return report.Card("Network", lipgloss.Color("244"), subtleStyle.Render("network counters unavailable"))
	}
	st := history.Summarize(m.latest.History.Network)
	var b strings.Builder
	fmt.Fprintf(&b, "Activity %s\n", report.Sparkline(m.latest.History.Network, m.trendWidth()))
	fmt.Fprintf(&b, "Peak     %s\n\n", report.Rate(st.Max))
	fmt.Fprintf(&b, "Upload   %s  total %s\n", report.Rate(n.SendBytesSec), report.Bytes(float64(n.BytesSent)))
	fmt.Fprintf(&b, "Download %s  total %s\n", report.Rate(n.RecvBytesSec), report.Bytes(float64(n.BytesRecv)))
	fmt.Fprintf(&b, "Packets  ↑%d / ↓%d", n.PacketsSent, n.PacketsRecv)
	if io := m.latest.Disk.IO; io != nil {
		fmt.Fprintf(&b, "\n\nDisk     read %s  write %s", report.Rate(io.ReadBytesSec), report.Rate(io.WriteBytesSec))
	}
	return report.Card("Network", lipgloss.Color("51"), b.String())
}

func (m *Model) processView() string {
	if m.latest.SortedBy == "" {
		return report.Card("Processes", lipgloss.Color("244"), subtleStyle.Render("process collection disabled"))
	}
	return report.Card(m.processTitle(), lipgloss.Color("201"), m.procs.View())
}

func (m *Model) processTitle() string {
	opts := m.ctl.Options()
	return fmt.Sprintf("Top %d by %s", opts.TopN, opts.SortBy)
}

// RunTUI starts the Bubble Tea program fed by s until the user quits or ctx
// is cancelled.
func RunTUI(ctx context.Context, s *sampler.Sampler, interval time.Duration, opts sampler.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctl := sampler.NewControl(opts)
	prog := tea.NewProgram(New(ctl), tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := prog.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		for snap := range s.Stream(gctx, interval, ctl) {
			prog.Send(snapshotMsg(snap))
		}
		return nil
	})
	return g.Wait()
}

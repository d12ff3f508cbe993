// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfgate/pkg/capture"
	"github.com/Thermoquad/rfgate/pkg/rflink"
)

var monitorRFDebug bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live terminal view of decoded sensors",
	Long: `Decode a live receiver and show the latest reading of every sensor, the
decoder statistics, and a log of events (new sensors, testing-state
readings, protocol reloads, connection loss).

Protocol states are re-read from the state file on SIGHUP.

Readings are also published to NATS when --nats-url is set.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorRFDebug, "rfdebug", true, "Send 10;RFDEBUG=ON; after connecting")
}

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// Latest reading of one sensor
type sensorRow struct {
	reading rflink.Reading
	count   int
}

// TUI model
type monitorModel struct {
	connInfo      string
	stats         *rflink.Statistics
	startTime     time.Time
	sensors       map[string]*sensorRow
	table         table.Model
	eventLog      []eventLogEntry
	maxLogEntries int
	connected     bool
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type readingMsg rflink.Reading
type connectionLostMsg struct {
	err error
}
type protocolsReloadedMsg struct {
	err error
}

func sensorKey(r *rflink.Reading) string {
	return fmt.Sprintf("%d/%s", r.Protocol, r.Device)
}

// formatUptime formats a duration in milliseconds to a human-friendly string
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	parts := []string{}
	for _, u := range []struct {
		n    uint64
		name string
	}{
		{days, "day"},
		{hours, "hour"},
		{minutes, "minute"},
	} {
		switch {
		case u.n == 1:
			parts = append(parts, "1 "+u.name)
		case u.n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", u.n, u.name))
		}
	}
	if seconds > 0 || len(parts) == 0 {
		if seconds == 1 {
			parts = append(parts, "1 second")
		} else {
			parts = append(parts, fmt.Sprintf("%d seconds", seconds))
		}
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialMonitorModel(connInfo string, stats *rflink.Statistics) monitorModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Protocol", Width: 12},
			{Title: "ID", Width: 6},
			{Title: "Values", Width: 36},
			{Title: "Count", Width: 6},
			{Title: "Last seen", Width: 12},
		}),
		table.WithHeight(8),
	)

	return monitorModel{
		connInfo:      connInfo,
		stats:         stats,
		startTime:     time.Now(),
		sensors:       make(map[string]*sensorRow),
		table:         t,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		connected:     true,
		width:         100,
		height:        30,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		rows := m.height - 20
		if rows < 3 {
			rows = 3
		}
		m.table.SetHeight(rows)

	case tickMsg:
		m.refreshTable()
		return m, tickCmd()

	case readingMsg:
		r := rflink.Reading(msg)
		key := sensorKey(&r)
		row, ok := m.sensors[key]
		if !ok {
			row = &sensorRow{}
			m.sensors[key] = row
			m.addLogEntry(fmt.Sprintf("New sensor: %s %s", r.Name, r.Device), false)
		}
		row.reading = r
		row.count++
		if r.Testing {
			m.addLogEntry(fmt.Sprintf("%s %s (testing): %s", r.Name, r.Device, describeValues(r.Values)), false)
		}
		m.refreshTable()

	case protocolsReloadedMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Protocol reload failed: %v", msg.err), true)
		} else {
			m.addLogEntry("Protocol states reloaded", false)
		}

	case connectionLostMsg:
		m.connected = false
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("CONNECTION LOST: %v", msg.err), true)
		} else {
			m.addLogEntry("Input ended", true)
		}
	}

	return m, nil
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// refreshTable rebuilds the sensor rows, most recently seen first.
func (m *monitorModel) refreshTable() {
	rows := make([]*sensorRow, 0, len(m.sensors))
	for _, row := range m.sensors {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].reading.Time.After(rows[j].reading.Time)
	})

	out := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		r := row.reading
		name := r.Name
		if r.Testing {
			name += "*"
		}
		out = append(out, table.Row{
			name,
			r.Device,
			describeValues(r.Values),
			fmt.Sprintf("%d", row.count),
			r.Time.Format("15:04:05"),
		})
	}
	m.table.SetRows(out)
}

func describeValues(values []rflink.Value) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v.Kind == rflink.KindWindDirection {
			parts = append(parts, "dir "+rflink.DescribeValue(v))
			continue
		}
		parts = append(parts, rflink.DescribeValue(v))
	}
	return strings.Join(parts, " ")
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("RFGATE - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Up %s | Press 'q' to quit",
		m.connInfo, formatUptime(uint64(time.Since(m.startTime).Milliseconds())))))
	s.WriteString("\n\n")

	if !m.connected {
		s.WriteString(errorStyle.Render("✗ Disconnected"))
		s.WriteString("\n\n")
	}

	// Statistics
	snap := m.stats.Snapshot()
	var acceptedPercent float64
	if snap.TotalFrames > 0 {
		acceptedPercent = float64(snap.Accepted+snap.Duplicates) * 100.0 / float64(snap.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.TotalFrames)),
		statsLabelStyle.Render("Decoded:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", snap.Accepted+snap.Duplicates, acceptedPercent)),
		statsLabelStyle.Render("Reported:"), statsValueStyle.Render(fmt.Sprintf("%d", snap.Accepted)),
		statsLabelStyle.Render("Repeats:"), headerStyle.Render(fmt.Sprintf("%d", snap.Duplicates)),
	))

	rejects := snap.TimingRejects + snap.MalformedRejects + snap.ImplausibleRejects
	if rejects > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Rejected:"), warningStyle.Render(fmt.Sprintf("%d", rejects)),
			headerStyle.Render("timing"), snap.TimingRejects,
			headerStyle.Render("malformed"), snap.MalformedRejects,
			headerStyle.Render("implausible"), snap.ImplausibleRejects,
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", snap.FrameRate)),
		statsLabelStyle.Render("Report Rate:"), statsValueStyle.Render(fmt.Sprintf("%.2f readings/s", snap.ReportRate)),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Sensors
	s.WriteString(statsLabelStyle.Render(fmt.Sprintf("Sensors (%d):", len(m.sensors))))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.table.View()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := 5
	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(settings.Input)
	if err != nil {
		return err
	}
	defer conn.Close()

	if monitorRFDebug {
		if err := SendCommand(conn, rfDebugCommand); err != nil {
			return fmt.Errorf("failed to enable pulse dumps: %w", err)
		}
	}

	// the TUI owns the terminal; keep log output off it
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var prog *tea.Program
	toTUI := rflink.SinkFunc(func(r *rflink.Reading) error {
		prog.Send(readingMsg(*r))
		return nil
	})

	p, err := newPipeline(settings, nil, toTUI)
	if err != nil {
		return err
	}
	defer p.Close()

	prog = tea.NewProgram(initialMonitorModel(connInfo, p.stats), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	p.serveMetrics(ctx, settings.Metrics.Addr)
	p.watchReload(ctx, func(err error) {
		prog.Send(protocolsReloadedMsg{err: err})
	})

	go func() {
		r := capture.New(conn, capture.WithDropWhenBusy())
		err := p.run(ctx, r)
		prog.Send(connectionLostMsg{err: err})
	}()

	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	cancel()
	conn.Close()
	return nil
}

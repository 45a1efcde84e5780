// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danielwippermann/resol-vbus.rs/vbus"
	"github.com/danielwippermann/resol-vbus.rs/vbus/specfile"
	"github.com/danielwippermann/resol-vbus.rs/vbus/specification"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var monitorMaxAge time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive live view of the current DataSet",
	Long: `Continuously decode VBus frames and render the aggregated DataSet as a
live-updating table: one row per identity, most recently updated first.

Packets older than --max-age are evicted from the view; Datagrams and
Telegrams are one-shot events and are never aged out.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorMaxAge, "max-age", 60*time.Second, "Evict Packets older than this from the view")
	rootCmd.AddCommand(monitorCmd)
}

// errorLogEntry records a synchronization or read-side event for display.
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type frameMsg struct {
	data vbus.Data
}

type readErrMsg struct {
	err error
}

type tickMsg time.Time

type monitorModel struct {
	conn     Connection
	connInfo string
	buf      *vbus.LiveDataBuffer
	set      *vbus.DataSet
	spec     *specification.Specification
	table    table.Model
	errorLog []errorLogEntry
	maxLog   int
	frames   uint64
	width    int
	height   int
	quitting bool
}

func newMonitorModel(conn Connection, connInfo string) monitorModel {
	file, err := specfile.Default()
	var spec *specification.Specification
	if err == nil {
		spec = specification.New(file, specfile.LanguageEn)
	}

	columns := []table.Column{
		{Title: "Identity", Width: 24},
		{Title: "Updated", Width: 13},
		{Title: "Value", Width: 40},
	}
	tbl := table.New(table.WithColumns(columns), table.WithFocused(false))
	tbl.SetStyles(table.DefaultStyles())

	return monitorModel{
		conn:     conn,
		connInfo: connInfo,
		buf:      vbus.NewLiveDataBuffer(channel),
		set:      vbus.NewDataSet(),
		spec:     spec,
		table:    tbl,
		maxLog:   50,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(readCmd(m.conn, m.buf), tickCmd(), tea.EnterAltScreen)
}

func readCmd(conn Connection, buf *vbus.LiveDataBuffer) tea.Cmd {
	return func() tea.Msg {
		read := make([]byte, 256)
		n, err := conn.Read(read)
		if err != nil {
			return readErrMsg{err: err}
		}
		buf.ExtendFromSlice(read[:n])
		if d, ok := buf.ReadData(); ok {
			return frameMsg{data: d}
		}
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.errorLog = append(m.errorLog, errorLogEntry{timestamp: time.Now(), message: message, isError: isError})
	if len(m.errorLog) > m.maxLog {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLog:]
	}
}

// refreshRows rebuilds the table's rows from the current DataSet, most
// recently updated entry first.
func (m *monitorModel) refreshRows() {
	entries := append([]vbus.Data(nil), m.set.Iter()...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp().After(entries[j].Timestamp())
	})

	rows := make([]table.Row, 0, len(entries))
	for _, d := range entries {
		rows = append(rows, table.Row{
			d.IDString(),
			d.Timestamp().Format("15:04:05.000"),
			m.summarize(d),
		})
	}
	m.table.SetRows(rows)
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
		m.table.SetHeight(m.height - 14)
		m.table.SetWidth(m.width - 4)

	case tickMsg:
		m.set.ClearPacketsOlderThan(time.Now().Add(-monitorMaxAge))
		m.refreshRows()
		return m, tickCmd()

	case readErrMsg:
		if msg.err == ErrConnectionClosed {
			m.quitting = true
			return m, tea.Quit
		}
		m.addLogEntry(fmt.Sprintf("read error: %v", msg.err), true)
		return m, readCmd(m.conn, m.buf)

	case frameMsg:
		m.frames++
		m.set.AddData(msg.data)
		m.refreshRows()
		return m, readCmd(m.conn, m.buf)

	case nil:
		return m, readCmd(m.conn, m.buf)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Background(lipgloss.Color("235")).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("VBUSCTL MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | channel %d | %d entries | press 'q' to quit",
		m.connInfo, channel, m.set.Len())))
	s.WriteString("\n\n")

	s.WriteString(boxStyle.Render(m.table.View()))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Recent events:"))
	s.WriteString("\n")
	var logBody strings.Builder
	if len(m.errorLog) == 0 {
		logBody.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		start := 0
		if len(m.errorLog) > 8 {
			start = len(m.errorLog) - 8
		}
		for _, e := range m.errorLog[start:] {
			style := headerStyle
			if e.isError {
				style = errorStyle
			}
			logBody.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(e.timestamp.Format("15:04:05")), style.Render(e.message)))
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(strings.TrimRight(logBody.String(), "\n")))

	return s.String()
}

func (m monitorModel) summarize(d vbus.Data) string {
	switch {
	case d.IsPacket():
		if m.spec != nil {
			ps := m.spec.GetPacketSpecByID(d.ID())
			if len(ps.Fields) > 0 {
				f := ps.Fields[0]
				raw, ok := f.RawValueI64(d.Packet.FrameData)
				return fmt.Sprintf("%s: %s", f.Name, f.FmtRawValue(raw, ok, true))
			}
			return ps.Name
		}
		return fmt.Sprintf("Packet frame_count=%d", d.Packet.FrameCount)
	case d.IsDatagram():
		return fmt.Sprintf("Datagram param16=%d param32=%d", d.Datagram.Param16, d.Datagram.Param32)
	case d.IsTelegram():
		return "Telegram"
	default:
		return ""
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	p := tea.NewProgram(newMonitorModel(conn, connInfo))
	_, err = p.Run()
	return err
}

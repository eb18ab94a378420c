package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap/zapcore"

	"github.com/five82/cpsync/internal/logtail"
	"github.com/five82/cpsync/internal/queue"
	"github.com/five82/cpsync/internal/state"
)

// renderMain renders header, command bar, the current view and the notice line.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent(m.width, max(m.height-3, 4)))
	b.WriteString("\n")
	b.WriteString(m.renderNotice())
	return b.String()
}

func (m Model) renderContent(width, height int) string {
	switch m.currentView {
	case ViewConnect:
		return m.renderTitledBox("Connect", m.renderConnect(), width, height, true)
	case ViewQueue:
		return m.renderTitledBox(m.queueTitle(), m.renderQueue(width-2, height-2), width, height, true)
	case ViewProgress:
		return m.renderTitledBox("Sending", m.renderProgress(), width, height, true)
	case ViewHistory:
		return m.renderTitledBox("Sync complete", m.renderHistory(height-2), width, height, true)
	case ViewLogs:
		return m.renderTitledBox("Logs", m.renderLogs(width-2, height-2), width, height, false)
	default:
		return ""
	}
}

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	conn := m.snapshot.Connection
	status := m.snapshot.StatusText
	if status == "" {
		status = "Disconnected"
	}
	dot := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.ConnectionColor(conn.State))).
		Bold(true)

	parts := []string{
		bg.Render("cpsync", styles.Logo),
		bg.Render("● "+status, dot),
	}
	if conn.BaseURL != "" && m.width >= 80 {
		parts = append(parts, bg.Render(conn.BaseURL, styles.MutedText))
	}
	parts = append(parts,
		bg.Render("Queue:", styles.MutedText)+bg.Spaces(1)+
			bg.Render(strconv.Itoa(len(m.entries)), styles.Text))
	if m.snapshot.Syncing {
		parts = append(parts, bg.Render("Syncing", styles.WarningText.Bold(true)))
	}
	return styles.Header.Width(m.width).Render(bg.Join(parts, bg.Spaces(2)))
}

// renderCommandBar lists the keys that apply to the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Warning))

	var parts []string
	for _, binding := range m.commandBindings() {
		help := binding.Help()
		parts = append(parts,
			bg.Render("<"+help.Key+">", keyStyle)+bg.Spaces(1)+bg.Render(help.Desc, styles.MutedText))
	}
	return styles.Footer.Width(m.width).Render(bg.Join(parts, bg.Spaces(2)))
}

func (m Model) commandBindings() []key.Binding {
	k := m.keys
	switch m.currentView {
	case ViewConnect:
		return []key.Binding{k.Confirm, k.Escape}
	case ViewQueue:
		if m.adding {
			return []key.Binding{k.Confirm, k.Escape}
		}
		return []key.Binding{k.AddFile, k.Remove, k.Clear, k.Sync, k.ViewConnect, k.ViewLogs, k.Help}
	case ViewProgress:
		return []key.Binding{k.ViewLogs, k.Help, k.Quit}
	case ViewHistory:
		return []key.Binding{k.NewSync, k.ViewConnect, k.ViewLogs, k.Quit}
	case ViewLogs:
		return []key.Binding{k.Escape, k.Quit}
	}
	return nil
}

func (m Model) renderNotice() string {
	if m.notice == "" {
		return ""
	}
	styles := m.theme.Styles()
	if m.noticeError {
		return styles.DangerText.Render(m.notice)
	}
	return styles.InfoText.Render(m.notice)
}

func (m Model) renderConnect() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)

	lines := []string{
		styles.MutedText.Render("Enter the address shown on the reader's WiFi sync screen."),
		"",
		m.addressInput.View(),
		"",
	}
	switch {
	case m.connecting:
		lines = append(lines, styles.WarningText.Render("Connecting..."))
	case m.snapshot.Connection.State == state.Connected:
		lines = append(lines, styles.SuccessText.Render("Connected to "+m.snapshot.Connection.BaseURL))
	case m.snapshot.StatusText != "" && m.snapshot.StatusText != "Disconnected":
		lines = append(lines, styles.DangerText.Render(m.snapshot.StatusText))
	}
	return strings.Join(lines, "\n")
}

func (m Model) queueTitle() string {
	if len(m.entries) == 0 {
		return "Queue"
	}
	var total int64
	for _, e := range m.entries {
		total += e.SizeBytes
	}
	return fmt.Sprintf("Queue (%d, %s)", len(m.entries), humanize.IBytes(uint64(total)))
}

func (m Model) renderQueue(width, height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)

	var lines []string
	if m.adding {
		lines = append(lines, m.pathInput.View(), "")
		height -= 2
	}
	if len(m.entries) == 0 {
		lines = append(lines, styles.MutedText.Render("No files queued. Press a to add a file."))
		return strings.Join(lines, "\n")
	}

	// Keep the selection on screen.
	visible := max(height, 1)
	start := 0
	if m.selectedRow >= visible {
		start = m.selectedRow - visible + 1
	}
	end := min(start+visible, len(m.entries))
	for i := start; i < end; i++ {
		lines = append(lines, m.renderQueueRow(m.entries[i], width, i == m.selectedRow))
	}
	return strings.Join(lines, "\n")
}

// renderQueueRow draws one entry: icon, literal name and size.
func (m Model) renderQueueRow(e queue.Entry, width int, selected bool) string {
	name := sanitizeName(e.DisplayName)
	size := formatSize(e.SizeBytes)
	icon := fileIcon(name)

	nameWidth := max(width-lipgloss.Width(icon)-lipgloss.Width(size)-4, 8)
	row := icon + " " +
		lipgloss.NewStyle().Width(nameWidth).Render(truncate(name, nameWidth)) +
		"  " + size

	if selected {
		return m.theme.Styles().Selected.Width(width).Render(row)
	}
	return m.theme.Styles().Text.Render(row)
}

func (m Model) renderProgress() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	p := m.snapshot.Progress
	if !m.snapshot.HasProgress {
		return styles.MutedText.Render("Starting sync...")
	}

	percent := p.PercentBefore
	if p.Done {
		percent = p.PercentAfter
	}
	name := sanitizeName(p.CurrentName)
	return strings.Join([]string{
		styles.MutedText.Render(fmt.Sprintf("File %d of %d", p.Index+1, p.Total)),
		styles.Text.Render(fileIcon(name) + " " + name),
		"",
		m.progress.ViewAs(percent),
	}, "\n")
}

func (m Model) renderHistory(height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	results := m.snapshot.Results

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	summary := fmt.Sprintf("Sent %d of %d %s", len(results)-failed, len(results), plural(len(results), "file", "files"))
	if !m.snapshot.LastUpdated.IsZero() {
		summary += ", " + humanize.Time(m.snapshot.LastUpdated)
	}

	lines := []string{styles.MutedText.Render(summary), ""}
	limit := max(height-len(lines), 1)
	for i, r := range results {
		if i == limit-1 && len(results) > limit {
			lines = append(lines, styles.FaintText.Render(fmt.Sprintf("… %d more", len(results)-i)))
			break
		}
		lines = append(lines, m.renderResult(r))
	}
	return strings.Join(lines, "\n")
}

// renderResult draws a history line. Failed uploads carry a " (failed)" mark.
func (m Model) renderResult(r state.Result) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	name := sanitizeName(r.DisplayName)
	if r.Success {
		return styles.SuccessText.Render("✓") + " " + styles.Text.Render(fileIcon(name)+" "+name)
	}
	return styles.DangerText.Render("✗") + " " + styles.Text.Render(fileIcon(name)+" "+name) +
		styles.DangerText.Render(" (failed)")
}

func (m Model) renderLogs(width, height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	if m.logPath == "" {
		return styles.MutedText.Render("No log file configured.")
	}
	if len(m.logLines) == 0 {
		return styles.MutedText.Render("Log is empty: " + m.logPath)
	}

	lines := m.logLines
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	out := make([]string, 0, len(lines))
	style := styles.Text
	for _, line := range lines {
		if level, ok := logtail.LevelOf(line); ok {
			style = m.levelStyle(styles, level)
		}
		out = append(out, style.Render(truncate(sanitizeName(line), width)))
	}
	return strings.Join(out, "\n")
}

func (m Model) levelStyle(styles Styles, level zapcore.Level) lipgloss.Style {
	switch {
	case level >= zapcore.ErrorLevel:
		return styles.DangerText
	case level == zapcore.WarnLevel:
		return styles.WarningText
	case level == zapcore.DebugLevel:
		return styles.FaintText
	default:
		return styles.Text
	}
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)

	titles := []string{"Views", "Navigation", "Queue", "History", "General"}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	groups := m.keys.FullHelp()
	for i, group := range groups {
		if i < len(titles) {
			b.WriteString(styles.AccentText.Bold(true).Render(titles[i]))
			b.WriteString("\n")
		}
		for _, binding := range group {
			help := binding.Help()
			b.WriteString(keyStyle.Render(help.Key))
			b.WriteString(styles.Text.Render(help.Desc))
			b.WriteString("\n")
		}
		if i < len(groups)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(40)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitorui implements the bubbletea model for the Rewind
// monitor: a timeline of recorded actions per connected application on
// the left, the selected snapshot on the right, and key-driven time
// travel (jump, commit, reset, export, import) against the embedded
// server.
package monitorui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rewind-foundation/rewind/remote"
	"github.com/rewind-foundation/rewind/store"
)

// SessionUpdateMsg signals that some session's history changed. The
// monitor binary forwards the server's OnSessionUpdate callback into
// the bubbletea loop as this message.
type SessionUpdateMsg struct{}

// statusFadeMsg clears the status bar notice after a short delay.
type statusFadeMsg struct{}

// statusFadeDelay is how long a status notice stays visible.
const statusFadeDelay = 4 * time.Second

// timelineWidth is the fixed width of the action timeline pane.
const timelineWidth = 40

// Model is the top-level bubbletea model for the monitor TUI.
type Model struct {
	server    *remote.Server
	exportDir string
	theme     Theme
	keys      KeyMap

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	// sessionIndex selects among server.Sessions(), clamped on every
	// update since sessions come and go.
	sessionIndex int

	// cursor is the selected timeline index (0 is the baseline).
	cursor int

	// followHead keeps the cursor pinned to the newest action as new
	// actions arrive. Moving the cursor manually releases it; moving
	// back to the head re-engages it.
	followHead bool

	stateView viewport.Model

	status      string
	statusError bool
}

// NewModel returns a monitor model over the given server. Exported
// archives are written to exportDir.
func NewModel(server *remote.Server, exportDir string) Model {
	return Model{
		server:     server,
		exportDir:  exportDir,
		theme:      DefaultTheme,
		keys:       DefaultKeyMap,
		followHead: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.stateView.Width = m.stateWidth()
		m.stateView.Height = m.contentHeight()
		m.ready = true
		m.refreshStateView()
		return m, nil

	case SessionUpdateMsg:
		m.clampSession()
		if m.followHead {
			m.cursor = m.timelineLen() - 1
		}
		m.clampCursor()
		m.refreshStateView()
		return m, nil

	case statusFadeMsg:
		m.status = ""
		m.statusError = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
		m.followHead = false
		m.refreshStateView()
	case key.Matches(msg, m.keys.End):
		m.cursor = m.timelineLen() - 1
		m.followHead = true
		m.refreshStateView()

	case key.Matches(msg, m.keys.NextSession):
		m.switchSession(1)
	case key.Matches(msg, m.keys.PrevSession):
		m.switchSession(-1)

	case key.Matches(msg, m.keys.Jump):
		return m.withSession(func(session *remote.Session) (string, error) {
			return fmt.Sprintf("jumped to #%d", m.cursor), session.JumpTo(m.cursor)
		})
	case key.Matches(msg, m.keys.Commit):
		return m.withSession(func(session *remote.Session) (string, error) {
			return "committed: head is the new baseline", session.Commit()
		})
	case key.Matches(msg, m.keys.Reset):
		return m.withSession(func(session *remote.Session) (string, error) {
			return "reset to baseline", session.Reset()
		})
	case key.Matches(msg, m.keys.Export):
		return m.withSession(m.exportSession)
	case key.Matches(msg, m.keys.Import):
		return m.withSession(m.importSession)
	}

	return m, nil
}

// withSession runs an action against the selected session and routes
// the outcome to the status bar.
func (m Model) withSession(action func(*remote.Session) (string, error)) (tea.Model, tea.Cmd) {
	session := m.selectedSession()
	if session == nil {
		return m.notice("no application connected", true)
	}
	message, err := action(session)
	if err != nil {
		return m.notice(err.Error(), true)
	}
	m.clampCursor()
	m.refreshStateView()
	return m.notice(message, false)
}

// exportSession writes the selected session's history to a timestamped
// archive file in the export directory.
func (m Model) exportSession(session *remote.Session) (string, error) {
	encoded, err := session.Export()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(m.exportDir, 0755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.rewind", session.App(), time.Now().Format("20060102-150405"))
	path := filepath.Join(m.exportDir, name)
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return "", err
	}
	return "exported " + path, nil
}

// importSession loads the newest archive in the export directory back
// into the selected session, replaying it into the application.
func (m Model) importSession(session *remote.Session) (string, error) {
	path, err := newestArchive(m.exportDir)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if err := session.ImportArchive(data); err != nil {
		return "", err
	}
	return "imported " + path, nil
}

// newestArchive returns the most recently modified .rewind file in dir.
func newestArchive(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".rewind" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no .rewind archives in %s", dir)
	}
	return newest, nil
}

func (m Model) notice(message string, isError bool) (tea.Model, tea.Cmd) {
	m.status = message
	m.statusError = isError
	return m, tea.Tick(statusFadeDelay, func(time.Time) tea.Msg {
		return statusFadeMsg{}
	})
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	m.followHead = m.cursor == m.timelineLen()-1
	m.refreshStateView()
}

func (m *Model) switchSession(delta int) {
	sessions := m.server.Sessions()
	if len(sessions) == 0 {
		return
	}
	m.sessionIndex = (m.sessionIndex + delta + len(sessions)) % len(sessions)
	m.cursor = m.timelineLen() - 1
	m.followHead = true
	m.refreshStateView()
}

func (m *Model) clampSession() {
	count := len(m.server.Sessions())
	if m.sessionIndex >= count {
		m.sessionIndex = count - 1
	}
	if m.sessionIndex < 0 {
		m.sessionIndex = 0
	}
}

func (m *Model) clampCursor() {
	last := m.timelineLen() - 1
	if m.cursor > last {
		m.cursor = last
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// selectedSession returns the session under the session cursor, or nil
// when nothing is connected.
func (m Model) selectedSession() *remote.Session {
	sessions := m.server.Sessions()
	if len(sessions) == 0 || m.sessionIndex >= len(sessions) {
		return nil
	}
	return sessions[m.sessionIndex]
}

// timelineLen is the number of timeline rows: baseline plus actions.
func (m Model) timelineLen() int {
	session := m.selectedSession()
	if session == nil {
		return 1
	}
	return session.Log().Len() + 1
}

// refreshStateView re-renders the selected snapshot into the viewport.
func (m *Model) refreshStateView() {
	if !m.ready {
		return
	}
	m.stateView.Width = m.stateWidth()
	m.stateView.Height = m.contentHeight()

	session := m.selectedSession()
	if session == nil {
		m.stateView.SetContent("waiting for an application to connect...")
		return
	}
	state, err := session.Log().StateAt(m.cursor)
	if err != nil {
		m.stateView.SetContent("state unavailable: " + err.Error())
		return
	}
	m.stateView.SetContent(RenderState(state))
}

func (m Model) stateWidth() int {
	width := m.width - timelineWidth - 3
	if width < 20 {
		width = 20
	}
	return width
}

func (m Model) contentHeight() int {
	// Header and status bar take one row each.
	height := m.height - 2
	if height < 3 {
		height = 3
	}
	return height
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	header := m.renderHeader()
	timeline := m.renderTimeline()
	divider := lipgloss.NewStyle().
		Foreground(m.theme.BorderColor).
		Render(strings.Repeat("│\n", m.contentHeight()))
	content := lipgloss.JoinHorizontal(lipgloss.Top, timeline, divider, m.stateView.View())
	status := m.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left, header, content, status)
}

func (m Model) renderHeader() string {
	sessions := m.server.Sessions()
	title := "rewind monitor"
	if session := m.selectedSession(); session != nil {
		title = fmt.Sprintf("rewind monitor — %s (session %d/%d)",
			session.App(), m.sessionIndex+1, len(sessions))
	}
	return lipgloss.NewStyle().
		Foreground(m.theme.HeaderForeground).
		Bold(true).
		Width(m.width).
		Render(title)
}

// renderTimeline renders the action list with the cursor row
// highlighted. Row 0 is the baseline.
func (m Model) renderTimeline() string {
	session := m.selectedSession()
	height := m.contentHeight()

	normal := lipgloss.NewStyle().Foreground(m.theme.NormalText).Width(timelineWidth)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText).Width(timelineWidth)
	baseline := lipgloss.NewStyle().Foreground(m.theme.BaselineText).Width(timelineWidth)
	selected := lipgloss.NewStyle().
		Foreground(m.theme.SelectedForeground).
		Background(m.theme.SelectedBackground).
		Width(timelineWidth)

	var rows []string
	appendRow := func(index int, text string, style lipgloss.Style) {
		if index == m.cursor {
			style = selected
		}
		rows = append(rows, style.Render(text))
	}

	appendRow(0, "  0  @@INIT", baseline)
	if session != nil {
		for i, entry := range session.Log().Entries() {
			text := fmt.Sprintf("%3d  %s  %s %s",
				i+1, FormatTimestamp(entry.Timestamp), entry.Label, entry.Digest)
			appendRow(i+1, text, normal)
		}
	}

	// Keep the cursor visible: trim rows to the pane height around it.
	if len(rows) > height {
		start := m.cursor - height/2
		if start < 0 {
			start = 0
		}
		if start+height > len(rows) {
			start = len(rows) - height
		}
		rows = rows[start : start+height]
	}
	for len(rows) < height {
		rows = append(rows, faint.Render(""))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderStatusBar() string {
	style := lipgloss.NewStyle().Foreground(m.theme.HelpText).Width(m.width)
	if m.status != "" {
		color := m.theme.StatusOK
		if m.statusError {
			color = m.theme.StatusError
		}
		style = style.Foreground(color)
		return style.Render(m.status)
	}
	help := "j/k move · Enter jump · c commit · r reset · e export · i import · Tab session · q quit"
	return style.Render(help)
}

// FormatTimestamp renders a millisecond epoch timestamp as local
// wall-clock time for the timeline. Zero renders as blanks.
func FormatTimestamp(millis int64) string {
	if millis == 0 {
		return "        "
	}
	return time.UnixMilli(millis).Local().Format("15:04:05")
}

// RenderState pretty-prints a snapshot for the state pane.
func RenderState(state store.Snapshot) string {
	if len(state) == 0 {
		return "{}"
	}
	rendered, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Sprintf("unrenderable state: %v", err)
	}
	return string(rendered)
}

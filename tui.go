package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"studymate/recorder"
	"studymate/transcriber"
)

type tickMsg time.Time

type actionDoneMsg struct {
	op   string
	path string
	err  error
}

type tuiTab int

const (
	tabRecord tuiTab = iota
	tabNotes
)

const (
	toastTTL  = 5 * time.Second
	maxToasts = 3
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type toast struct {
	title, desc string
	status      recorder.Status
	until       time.Time
}

type levelSource interface {
	Level() float64
	Voice() bool
}

type tuiModel struct {
	ctx      context.Context
	acts     actions
	mon      levelSource
	copyNote func(transcriber.Note) error
	now      func() time.Time

	snap          recorder.Snapshot
	tab           tuiTab
	frame         int
	width, height int
	recStart      time.Time
	recDuration   time.Duration
	level         float64
	voice         bool
	hasCapture    bool
	fetching      bool
	toasts        []toast
	cursor        int
	flash         string
	deviceLine    string
	endpoint      string
	minDuration   time.Duration
}

func newTUIModel(ctx context.Context, acts actions, mon levelSource) tuiModel {
	return tuiModel{
		ctx:  ctx,
		acts: acts,
		mon:  mon,
		now:  time.Now,
		snap: acts.Snapshot(),
	}
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) startCmd() tea.Cmd {
	return func() tea.Msg { return actionDoneMsg{op: "start", err: m.acts.Start(m.ctx)} }
}

func (m tuiModel) stopCmd() tea.Cmd {
	return func() tea.Msg { return actionDoneMsg{op: "stop", err: m.acts.Stop(m.ctx)} }
}

func (m tuiModel) refreshCmd() tea.Cmd {
	return func() tea.Msg { return actionDoneMsg{op: "refresh", err: m.acts.Refresh(m.ctx)} }
}

func (m tuiModel) saveCmd() tea.Cmd {
	return func() tea.Msg {
		path, err := m.acts.SaveLast("")
		return actionDoneMsg{op: "save", path: path, err: err}
	}
}

func (m tuiModel) copyCmd(n transcriber.Note) tea.Cmd {
	return func() tea.Msg {
		if m.copyNote == nil {
			return actionDoneMsg{op: "copy", err: fmt.Errorf("clipboard unavailable")}
		}
		return actionDoneMsg{op: "copy", err: m.copyNote(n)}
	}
}

func (m tuiModel) openNotes() (tuiModel, tea.Cmd) {
	m.tab = tabNotes
	if m.fetching {
		return m, nil
	}
	m.fetching = true
	return m, m.refreshCmd()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.frame++
		now := m.now()
		live := m.toasts[:0]
		for _, t := range m.toasts {
			if now.Before(t.until) {
				live = append(live, t)
			}
		}
		m.toasts = live
		if m.snap.State == recorder.Recording {
			m.recDuration = now.Sub(m.recStart)
			if m.mon != nil {
				m.level = m.mon.Level()
				m.voice = m.mon.Voice()
			}
		}
		return m, tuiTick()

	case snapshotMsg:
		if msg.Snapshot.Seq < m.snap.Seq {
			return m, nil
		}
		prev := m.snap.State
		m.snap = msg.Snapshot
		switch {
		case m.snap.State == recorder.Recording && prev != recorder.Recording:
			m.recStart = m.now()
			m.recDuration = 0
			m.level = 0
			m.voice = false
			m.flash = ""
		case prev == recorder.Recording && m.snap.State != recorder.Recording:
			m.recDuration = m.now().Sub(m.recStart)
			m.level = 0
			if m.minDuration > 0 && m.recDuration < m.minDuration {
				m.flash = fmt.Sprintf("Very short recording (%.1fs)", m.recDuration.Seconds())
			}
		}
		if m.snap.State == recorder.Encoding {
			m.hasCapture = true
		}
		if m.cursor >= len(m.snap.Notes) {
			m.cursor = max(len(m.snap.Notes)-1, 0)
		}

	case toastMsg:
		m.toasts = append(m.toasts, toast{
			title:  msg.Title,
			desc:   msg.Description,
			status: msg.Status,
			until:  m.now().Add(toastTTL),
		})
		if len(m.toasts) > maxToasts {
			m.toasts = m.toasts[len(m.toasts)-maxToasts:]
		}

	case actionDoneMsg:
		switch msg.op {
		case "refresh":
			m.fetching = false
		case "save":
			if msg.err != nil {
				m.flash = "Save failed: " + msg.err.Error()
			} else {
				m.flash = "Saved " + msg.path
			}
		case "copy":
			if msg.err != nil {
				m.flash = "Copy failed: " + msg.err.Error()
			} else {
				m.flash = "Note copied to clipboard"
			}
		}
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.tab == tabRecord {
			return m.openNotes()
		}
		m.tab = tabRecord
	case "1":
		m.tab = tabRecord
	case "2":
		return m.openNotes()
	case "r":
		if !m.fetching {
			m.fetching = true
			return m, m.refreshCmd()
		}
	case " ", "enter":
		if m.tab != tabRecord {
			return m, nil
		}
		if m.snap.State == recorder.Recording {
			return m, m.stopCmd()
		}
		if m.snap.State == recorder.Idle {
			return m, m.startCmd()
		}
	case "d":
		if m.hasCapture && !m.snap.Loading {
			return m, m.saveCmd()
		}
	case "c":
		if m.tab == tabNotes && m.cursor < len(m.snap.Notes) {
			return m, m.copyCmd(m.snap.Notes[m.cursor])
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.snap.Notes)-1 {
			m.cursor++
		}
	}
	return m, nil
}

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	activeTab    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("24")).Padding(0, 1)
	inactiveTab  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)

	toastColors = map[recorder.Status]string{
		recorder.StatusInfo:    "33",
		recorder.StatusSuccess: "42",
		recorder.StatusError:   "196",
	}
)

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	for _, t := range m.toasts {
		b.WriteString(renderToast(t, m.width))
		b.WriteString("\n")
	}
	if len(m.toasts) > 0 {
		b.WriteString("\n")
	}

	if m.tab == tabRecord {
		b.WriteString(m.renderRecord())
	} else {
		b.WriteString(m.renderNotes())
	}

	b.WriteString("\n")
	if m.flash != "" {
		b.WriteString(warnStyle.Render(m.flash) + "\n")
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m tuiModel) renderTabs() string {
	rec, notes := inactiveTab, inactiveTab
	if m.tab == tabRecord {
		rec = activeTab
	} else {
		notes = activeTab
	}
	title := lipgloss.NewStyle().Bold(true).Render("studymate")
	return title + "  " + rec.Render("1 Record") + " " + notes.Render(fmt.Sprintf("2 My Notes (%d)", len(m.snap.Notes)))
}

func renderToast(t toast, width int) string {
	color := toastColors[t.status]
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(color)).
		Padding(0, 1).
		MaxWidth(max(width, 20))
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(t.title)
	return style.Render(head + "\n" + t.desc)
}

func levelBar(level float64, width int) string {
	filled := min(int(level*10*float64(width)), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m tuiModel) renderRecord() string {
	var lines []string
	switch {
	case m.snap.State == recorder.Recording:
		lines = append(lines, recStyle.Render(fmt.Sprintf("● REC %.1fs", m.recDuration.Seconds())))
		lines = append(lines, dimStyle.Render("level ")+levelBar(m.level, 30))
		if m.recDuration > 1500*time.Millisecond && !m.voice {
			lines = append(lines, warnStyle.Render("⚠ no voice detected"))
		}
	case m.snap.Loading:
		spin := spinnerFrames[m.frame%len(spinnerFrames)]
		lines = append(lines, textStyle.Render(spin+" submitting"))
	case m.snap.State != recorder.Idle:
		lines = append(lines, dimStyle.Render("◌ "+m.snap.State.String()))
	default:
		lines = append(lines, dimStyle.Render("○ STANDBY"))
	}

	lines = append(lines, "", textStyle.Render(m.snap.StatusText))

	if err := m.snap.LastError; err != nil {
		lines = append(lines, "", errorStyle.Render(fmt.Sprintf("Last error (%s): %v", recorder.KindOf(err), err)))
	}

	lines = append(lines, "")
	if m.deviceLine != "" {
		lines = append(lines, dimStyle.Render(m.deviceLine))
	}
	if m.endpoint != "" {
		lines = append(lines, dimStyle.Render("endpoint: "+m.endpoint))
	}
	if m.snap.Completed > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("recordings sent: %d", m.snap.Completed)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m tuiModel) renderNotes() string {
	if m.fetching && !m.snap.NotesLoaded {
		return dimStyle.Render(spinnerFrames[m.frame%len(spinnerFrames)]+" Loading notes...") + "\n"
	}
	if len(m.snap.Notes) == 0 {
		return dimStyle.Render("No transcribed notes yet. Record something!") + "\n"
	}

	wrapWidth := max(m.width-4, 10)
	var b strings.Builder
	for i, n := range m.snap.Notes {
		marker := "  "
		if i == m.cursor {
			marker = "▶ "
		}
		header := fmt.Sprintf("%s%s  %s", marker, n.Time().Format("Jan 2 15:04"), dimStyle.Render(n.NoteID))
		b.WriteString(header + "\n")
		for _, line := range wrapText(n.NoteContent, wrapWidth) {
			b.WriteString("    " + textStyle.Render(line) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m tuiModel) renderHelp() string {
	var parts []string
	key := func(k, what string) {
		parts = append(parts, helpKeyStyle.Render(k)+helpStyle.Render(" "+what))
	}
	if m.tab == tabRecord {
		if m.snap.State == recorder.Recording {
			key("space", "stop")
		} else {
			key("space", "record")
		}
		key("tab", "notes")
	} else {
		key("↑/↓", "select")
		key("c", "copy")
		key("tab", "record")
	}
	key("r", "refresh")
	if m.hasCapture && !m.snap.Loading {
		key("d", "save audio")
	}
	key("q", "quit")
	return strings.Join(parts, helpStyle.Render(" · ")) + "\n" + helpStyle.Render("studymate "+version)
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

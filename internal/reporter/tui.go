package reporter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/grayforge/internal/task"
)

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TUI styles
var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	runStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pauseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

type tickMsg time.Time

// TUIModel is the Bubbletea model for the grayforge live display.
type TUIModel struct {
	getSnapshot func() Snapshot
	cancelRun   func() // called on 'q' to cancel the batch context

	snap         Snapshot
	scrollOffset int
	paused       bool
	frame        int
	width        int
	height       int
	done         bool
}

// NewTUIModel creates a new TUI model polling getSnapshot.
func NewTUIModel(getSnapshot func() Snapshot, cancelRun func()) TUIModel {
	return TUIModel{
		getSnapshot: getSnapshot,
		cancelRun:   cancelRun,
	}
}

// Init implements tea.Model.
func (m TUIModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancelRun != nil {
				m.cancelRun()
			}
			m.done = true
			return m, tea.Quit

		case "p", " ":
			m.paused = !m.paused

		case "j", "down":
			m.scrollDown(1)

		case "k", "up":
			m.scrollUp(1)

		case "g", "home":
			m.scrollOffset = 0

		case "G", "end":
			m.scrollOffset = m.maxScroll()

		case "pgdown":
			m.scrollDown(m.visibleImages())

		case "pgup":
			m.scrollUp(m.visibleImages())
		}

	case tickMsg:
		if !m.paused {
			m.snap = m.getSnapshot()
		}
		m.frame++
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func (m *TUIModel) scrollDown(n int) {
	m.scrollOffset += n
	if max := m.maxScroll(); m.scrollOffset > max {
		m.scrollOffset = max
	}
}

func (m *TUIModel) scrollUp(n int) {
	m.scrollOffset -= n
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m TUIModel) visibleImages() int {
	// header(1) + progress(1) + blank(1) + help(1) = 4 reserved lines
	avail := m.height - 4
	if avail < 3 {
		return 3
	}
	return avail
}

func (m TUIModel) maxScroll() int {
	total := len(m.snap.Done) + len(m.snap.Running) + len(m.snap.Pending)
	vis := m.visibleImages()
	if total <= vis {
		return 0
	}
	return total - vis
}

// View implements tea.Model.
func (m TUIModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	header := fmt.Sprintf("grayforge — %d images", m.snap.Total)
	if m.paused {
		header += "  " + pauseStyle.Render("⏸ PAUSED")
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	b.WriteString(m.progressLine())
	b.WriteString("\n")

	imageLines := m.buildImageLines()

	// apply scroll window
	vis := m.visibleImages()
	start := m.scrollOffset
	if start > len(imageLines) {
		start = len(imageLines)
	}
	end := start + vis
	if end > len(imageLines) {
		end = len(imageLines)
	}

	// scroll hints
	if start > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ↑ %d more above", start)))
		b.WriteString("\n")
	}

	for i := start; i < end; i++ {
		b.WriteString(imageLines[i])
		b.WriteString("\n")
	}

	if end < len(imageLines) {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ↓ %d more below", len(imageLines)-end)))
		b.WriteString("\n")
	}

	// pad to fill screen
	used := 2 + (end - start) + 1 // header + progress + images + help
	if start > 0 {
		used++
	}
	if end < len(imageLines) {
		used++
	}
	for i := used; i < m.height-1; i++ {
		b.WriteString("\n")
	}

	// help line
	b.WriteString(helpStyle.Render("  ↑↓/jk: scroll  g/G: top/bottom  p: pause  q: quit"))

	return b.String()
}

func (m TUIModel) buildImageLines() []string {
	spinner := spinnerChars[m.frame%len(spinnerChars)]
	var lines []string

	// failures first, then in-flight, then converted, then queued
	for _, res := range m.snap.Done {
		if res.Failed() {
			lines = append(lines, m.fmtFailed(res))
		}
	}
	for _, img := range m.snap.Running {
		lines = append(lines, m.fmtRunning(img, spinner))
	}
	for _, res := range m.snap.Done {
		if !res.Failed() {
			lines = append(lines, m.fmtDone(res))
		}
	}
	for _, source := range m.snap.Pending {
		lines = append(lines, m.fmtQueued(source))
	}

	return lines
}

func (m TUIModel) fmtFailed(res task.Result) string {
	errMsg := res.Error
	if len(errMsg) > 40 {
		errMsg = errMsg[:40] + "..."
	}
	return failedStyle.Render(fmt.Sprintf("  ✗ %-11s %-30s %s", res.Outcome, filepath.Base(res.Source), errMsg))
}

func (m TUIModel) fmtRunning(img RunningImage, spinner string) string {
	elapsed := time.Since(img.StartedAt).Truncate(time.Second)
	return runStyle.Render(fmt.Sprintf("  %s %-11s %-30s %s", spinner, "converting", filepath.Base(img.Source), elapsed))
}

func (m TUIModel) fmtDone(res task.Result) string {
	size := ""
	if res.Width > 0 {
		size = fmt.Sprintf("%dx%d  ", res.Width, res.Height)
	}
	return doneStyle.Render(fmt.Sprintf("  ✓ %-11s %-30s %s%s",
		"converted", filepath.Base(res.Source), size, res.Duration.Truncate(time.Millisecond)))
}

func (m TUIModel) fmtQueued(source string) string {
	return dimStyle.Render(fmt.Sprintf("  ─ %-11s %s", "queued", filepath.Base(source)))
}

func (m TUIModel) progressLine() string {
	var parts []string
	if m.snap.Succeeded > 0 {
		parts = append(parts, doneStyle.Render(fmt.Sprintf("%d converted", m.snap.Succeeded)))
	}
	if m.snap.Failed > 0 {
		parts = append(parts, failedStyle.Render(fmt.Sprintf("%d failed", m.snap.Failed)))
	}
	if len(m.snap.Running) > 0 {
		parts = append(parts, runStyle.Render(fmt.Sprintf("%d converting", len(m.snap.Running))))
	}
	if len(m.snap.Pending) > 0 {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("%d queued", len(m.snap.Pending))))
	}
	if len(parts) == 0 {
		parts = append(parts, dimStyle.Render("waiting"))
	}
	return fmt.Sprintf("  %s", strings.Join(parts, "  "))
}

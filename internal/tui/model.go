package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"meetflow/internal/api"
	"meetflow/internal/queue"
)

const (
	keyQuit    = "q"
	keyCtrlC   = "ctrl+c"
	keyRefresh = "r"
)

// StatusSource is polled for the queue view.
type StatusSource interface {
	Status(ctx context.Context) (api.QueueStatus, error)
}

type statusMsg struct {
	status api.QueueStatus
	at     time.Time
}

type statusErrMsg struct{ err error }

type tickMsg struct{}

// Model is the queue watcher.
type Model struct {
	source   StatusSource
	interval time.Duration
	remote   bool

	status    api.QueueStatus
	loaded    bool
	updatedAt time.Time
	err       error
	width     int
}

// New builds a watcher that polls source every interval. remote labels
// whether the numbers come from a running daemon.
func New(source StatusSource, interval time.Duration, remote bool) Model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return Model{source: source, interval: interval, remote: remote}
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(source StatusSource, interval time.Duration, remote bool) error {
	_, err := tea.NewProgram(New(source, interval, remote), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.fetch()
}

func (m Model) fetch() tea.Cmd {
	source := m.source
	timeout := m.interval
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		status, err := source.Status(ctx)
		if err != nil {
			return statusErrMsg{err: err}
		}
		return statusMsg{status: status, at: time.Now()}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case keyQuit, keyCtrlC:
			return m, tea.Quit
		case keyRefresh:
			return m, m.fetch()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case statusMsg:
		m.status = msg.status
		m.loaded = true
		m.updatedAt = msg.at
		m.err = nil
		return m, m.tick()

	case statusErrMsg:
		m.err = msg.err
		return m, m.tick()

	case tickMsg:
		return m, m.fetch()
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("meetflow queue"))
	b.WriteString("  ")
	b.WriteString(m.stateLabel())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("status unavailable: " + m.err.Error()))
		b.WriteString("\n\n")
	}
	if !m.loaded {
		b.WriteString(dimStyle.Render("loading..."))
		b.WriteString("\n")
		b.WriteString(m.footer())
		return b.String()
	}

	b.WriteString(panelStyle.Render(m.summary()))
	b.WriteString("\n")
	if len(m.status.RecentTerminal) > 0 {
		b.WriteString(panelStyle.Render(m.recent()))
		b.WriteString("\n")
	}
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) stateLabel() string {
	switch {
	case !m.remote:
		return stoppedStyle.Render("○ daemon offline (reading database)")
	case m.status.Running:
		return runningStyle.Render("● worker running")
	default:
		return stoppedStyle.Render("○ worker stopped")
	}
}

func (m Model) summary() string {
	var lines []string
	if cur := m.status.Current; cur != nil {
		lines = append(lines, labelStyle.Render("Processing ")+currentStyle.Render(jobLabel(*cur)))
	} else {
		lines = append(lines, labelStyle.Render("Processing ")+dimStyle.Render("idle"))
	}
	lines = append(lines, fmt.Sprintf("%s%d", labelStyle.Render("Pending    "), m.status.PendingCount))

	var counts []string
	for _, status := range queue.AllStatuses() {
		counts = append(counts, fmt.Sprintf("%s %d", status, m.status.Counts[string(status)]))
	}
	lines = append(lines, labelStyle.Render("Totals     ")+strings.Join(counts, " · "))
	if m.status.LastError != "" {
		lines = append(lines, labelStyle.Render("Last error ")+failedStyle.Render(m.status.LastError))
	}
	return strings.Join(lines, "\n")
}

func (m Model) recent() string {
	lines := []string{labelStyle.Render("Recent")}
	for _, job := range m.status.RecentTerminal {
		marker := completedStyle.Render("✓")
		detail := job.ResultSummary
		if job.Status == string(queue.StatusFailed) {
			marker = failedStyle.Render("✗")
			detail = job.Error
		}
		line := marker + " " + jobLabel(job)
		if detail != "" {
			line += dimStyle.Render("  " + truncate(detail, 80))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) footer() string {
	updated := "never"
	if !m.updatedAt.IsZero() {
		updated = m.updatedAt.Format("15:04:05")
	}
	return dimStyle.Render("updated "+updated+"  ") +
		footerKeyStyle.Render(keyRefresh) + dimStyle.Render(" refresh  ") +
		footerKeyStyle.Render(keyQuit) + dimStyle.Render(" quit")
}

func jobLabel(job api.Job) string {
	label := job.Title
	if label == "" {
		label = job.SourceID
	}
	return fmt.Sprintf("#%d %s", job.ID, label)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

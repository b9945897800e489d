package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/sheetload/constants"
	"github.com/joseph-ayodele/sheetload/internal/entity"
)

const defaultPollInterval = 5 * time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"),
	Success: lipgloss.Color("#00D787"),
	Error:   lipgloss.Color("#FF005F"),
	Hint:    lipgloss.Color("#6C6C6C"),
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// taskSource is the part of server.Client the watcher polls.
type taskSource interface {
	GetTask(ctx context.Context, taskID string) (*entity.Progress, error)
}

type tickMsg time.Time

type taskUpdateMsg struct {
	task *entity.Progress
	err  error
}

type watchModel struct {
	ctx      context.Context
	source   taskSource
	taskID   string
	interval time.Duration
	task     *entity.Progress
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newWatchModel(ctx context.Context, src taskSource, taskID string, interval time.Duration) watchModel {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return watchModel{
		ctx:      ctx,
		source:   src,
		taskID:   taskID,
		interval: interval,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		theme:    defaultTheme,
	}
}

// Init polls immediately, then every interval.
func (m watchModel) Init() tea.Cmd {
	return m.fetchTask()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchTask()

	case taskUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch task status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}
		m.task = msg.task

		switch m.task.State() {
		case constants.TaskStateCompleted:
			m.done = true
			return m, tea.Quit
		case constants.TaskStateInterrupted:
			m.done = true
			m.err = fmt.Errorf("task interrupted: %s", m.task.Message)
			return m, tea.Quit
		}
		return m, tickCmd(m.interval)

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		if p, ok := pm.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.done || m.quitting {
		return m.finalView()
	}
	if m.task == nil {
		return "Loading task status...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.task.State()))
	bar := m.progress.ViewAs(m.task.Percent())
	counts := fmt.Sprintf("%d/%d rows", m.task.Processed, m.task.Total)
	hint := m.theme.hintStyle().Render("Press q to stop watching; the upload keeps running")
	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, hint)
}

func (m watchModel) finalView() string {
	if m.quitting && !m.done {
		msg := fmt.Sprintf("\nTask %s continues in background.\nUse 'sheetload status %s' to check it.\n", m.taskID, m.taskID)
		return m.theme.hintStyle().Render(msg)
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s\n", m.err))
	}

	var b strings.Builder
	b.WriteString(m.theme.completedStyle().Render("✓ Completed") + "\n\n")
	fmt.Fprintf(&b, "  Rows:       %d\n", m.task.Total)
	fmt.Fprintf(&b, "  Succeeded:  %d\n", m.task.Success)
	fmt.Fprintf(&b, "  Failed:     %d\n", m.task.Processed-m.task.Success)
	if m.task.Message != "" {
		fmt.Fprintf(&b, "  %s\n", m.task.Message)
	}
	return b.String()
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m watchModel) fetchTask() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
		defer cancel()
		task, err := m.source.GetTask(ctx, m.taskID)
		return taskUpdateMsg{task: task, err: err}
	}
}

// runWatch blocks until the task finishes or the user quits.
func runWatch(ctx context.Context, src taskSource, taskID string, interval time.Duration) error {
	final, err := tea.NewProgram(newWatchModel(ctx, src, taskID, interval), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if m, ok := final.(watchModel); ok && m.err != nil {
		return m.err
	}
	return nil
}

func newWatchCmd(opts *options) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <task-id>",
		Short: "Follow an upload task with a progress bar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, closeConn, err := opts.client()
			if err != nil {
				return err
			}
			defer closeConn()
			return runWatch(cmd.Context(), c, args[0], interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", defaultPollInterval, "poll interval")
	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"vs-mods-updater/ui"
	"vs-mods-updater/updater"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// runDoneMsg is sent once the event channel is closed.
type runDoneMsg struct{}

// UpdateModel controls the UI for the update command
type UpdateModel struct {
	spinner spinner.Model
	events  <-chan updater.Event

	// State
	status      string
	downloading []string
	completed   []string
	errors      []string
	summary     string
	done        bool

	// Counters
	totalChecked int
	totalUpdated int
	totalErrors  int
}

func initialUpdateModel(events <-chan updater.Event) UpdateModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = ui.Accent

	return UpdateModel{
		spinner:     s,
		events:      events,
		status:      "Initializing...",
		downloading: []string{},
		completed:   []string{},
		errors:      []string{},
	}
}

// runWithProgress runs the update behind a progress view. Quitting the view
// cancels the run.
func runWithProgress(ctx context.Context, runner *updater.Runner) (*updater.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan updater.Event, 100) // Buffer slightly to avoid blocking
	runner.Events = events

	var (
		res    *updater.Result
		runErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer close(events)
		res, runErr = runner.Run(ctx)
	}()

	_, err := tea.NewProgram(initialUpdateModel(events)).Run()
	cancel()
	<-finished
	if err != nil {
		return res, fmt.Errorf("progress view failed: %w", err)
	}
	return res, runErr
}

func (m UpdateModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForActivity(),
	)
}

func (m UpdateModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.events
		if !ok {
			return runDoneMsg{}
		}
		return msg
	}
}

func (m UpdateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runDoneMsg:
		m.done = true
		m.status = "Finished"
		return m, tea.Quit

	case updater.Event:
		switch msg.Kind {
		case updater.EventStatus:
			m.status = msg.Message

		case updater.EventCheck:
			m.status = fmt.Sprintf("Checking %s...", msg.Mod)
			m.totalChecked++

		case updater.EventDownloadStart:
			m.downloading = append(m.downloading, downloadLabel(msg))

		case updater.EventDownloaded:
			m.downloading = removeDownload(m.downloading, msg.Mod)
			m.completed = append(m.completed, fmt.Sprintf("Updated %s to %s", msg.Mod, msg.Version))
			m.totalUpdated++

		case updater.EventError:
			m.downloading = removeDownload(m.downloading, msg.Mod)
			m.errors = append(m.errors, fmt.Sprintf("%s: %s", msg.Mod, msg.Message))
			m.totalErrors++

		case updater.EventSummary:
			m.summary = msg.Message
		}

		return m, m.waitForActivity()
	}

	return m, nil
}

func downloadLabel(e updater.Event) string {
	return fmt.Sprintf("%s (%s)", e.Mod, e.Version)
}

// removeDownload drops the first in-flight entry of the named mod.
func removeDownload(list []string, mod string) []string {
	for i, v := range list {
		if strings.HasPrefix(v, mod+" (") {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func (m UpdateModel) View() string {
	var symbol string
	if m.done {
		symbol = ui.Success.Render("✓")
	} else {
		symbol = m.spinner.View()
	}

	s := fmt.Sprintf("\n %s %s\n\n", symbol, m.status)

	if len(m.downloading) > 0 {
		s += ui.Header.Render("Downloading:") + "\n"
		for _, d := range m.downloading {
			s += fmt.Sprintf("  • %s\n", d)
		}
		s += "\n"
	}

	if len(m.errors) > 0 {
		s += ui.Failure.Render("Errors:") + "\n"
		for _, e := range m.errors {
			s += fmt.Sprintf("  • %s\n", e)
		}
		s += "\n"
	}

	// Show last few completed
	if len(m.completed) > 0 {
		s += ui.Success.Render("Completed:") + "\n"
		start := 0
		if len(m.completed) > 5 && !m.done {
			start = len(m.completed) - 5
		}
		for i := start; i < len(m.completed); i++ {
			s += fmt.Sprintf("  • %s\n", m.completed[i])
		}
		s += "\n"
	}

	if m.done && m.summary != "" {
		s += ui.Header.Render(m.summary) + "\n"
	}

	return s
}

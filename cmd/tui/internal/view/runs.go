package view

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
)

const pollInterval = 2 * time.Second

// RunsModel shows the latest reconciliation run and starts new ones.
type RunsModel struct {
	CommonModel
	svc *reconciliation.Service

	run     *reconciliation.Run
	phases  table.Model
	spinner spinner.Model
	status  string
	err     error
}

func NewRunsModel(svc *reconciliation.Service) RunsModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return RunsModel{
		svc: svc,
		phases: newTable([]table.Column{
			{Title: "Phase", Width: 16},
			{Title: "Candidates", Width: 11},
			{Title: "Matched", Width: 8},
			{Title: "Open Txns", Width: 10},
			{Title: "Open Stl", Width: 9},
			{Title: "Open Adj", Width: 9},
			{Title: "ms", Width: 7},
		}),
		spinner: s,
	}
}

func (m RunsModel) Title() string { return "Reconciliation Runs" }

func (m RunsModel) ShortHelp() string {
	return "Esc: back | t: trigger run | r: refresh"
}

func (m RunsModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m RunsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runLoadedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, reconciliation.ErrNotFound) {
				m.status = "No runs yet. Press t to start one."
				return m, nil
			}

			m.err = msg.err

			return m, nil
		}

		m.err = nil
		m.run = msg.run
		m.refreshTable()

		if !m.run.Status.Terminal() {
			return m, tea.Tick(pollInterval, func(time.Time) tea.Msg { return pollMsg{} })
		}

		return m, nil

	case runTriggeredMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Could not start run: %v", msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Started run %s", msg.run.ID)
		m.run = msg.run
		m.refreshTable()

		return m, tea.Tick(pollInterval, func(time.Time) tea.Msg { return pollMsg{} })

	case pollMsg:
		return m, m.loadCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			return m, m.loadCmd()
		case "t":
			return m, m.triggerCmd()
		}
	}

	var cmd tea.Cmd
	m.phases, cmd = m.phases.Update(msg)

	return m, cmd
}

func (m *RunsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.run.Phases))
	for _, p := range m.run.Phases {
		rows = append(rows, table.Row{
			string(p.Phase),
			strconv.Itoa(p.Candidates),
			strconv.Itoa(p.Matched),
			strconv.Itoa(p.UnmatchedTransactions),
			strconv.Itoa(p.UnmatchedSettlements),
			strconv.Itoa(p.UnmatchedAdjustments),
			strconv.FormatInt(p.DurationMS, 10),
		})
	}

	m.phases.SetRows(rows)
}

func (m RunsModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)))
	}

	if m.run == nil {
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	}

	state := activeStyle(string(m.run.Status))
	if !m.run.Status.Terminal() {
		state = m.spinner.View() + " " + state
	}

	header := fmt.Sprintf("Run %s  %s\nStarted %s | Cutoff %s | Skipped records: %d",
		m.run.ID, state, FormatTime(m.run.StartedAt), FormatTime(m.run.SnapshotCutoff), m.run.SkippedRecords)

	if m.run.Error != "" {
		header += "\n" + errorStyle(m.run.Error)
	}

	counts := "Discrepancies:"
	for _, c := range matching.Categories {
		counts += fmt.Sprintf("  %s=%d", c, m.run.Counts[c])
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.phases.View()),
		counts,
	)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

// Messages

type runLoadedMsg struct {
	run *reconciliation.Run
	err error
}

type runTriggeredMsg struct {
	run *reconciliation.Run
	err error
}

type pollMsg struct{}

func (m RunsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		run, err := m.svc.LatestRun(ctx)

		return runLoadedMsg{run: run, err: err}
	}
}

func (m RunsModel) triggerCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		run, err := m.svc.Trigger(ctx)

		return runTriggeredMsg{run: run, err: err}
	}
}

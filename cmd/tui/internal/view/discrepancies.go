package view

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
)

const discrepancyPageSize = 200

type DiscrepanciesModel struct {
	CommonModel
	svc *reconciliation.Service

	table   table.Model
	items   []*matching.Discrepancy
	summary *reconciliation.Summary

	// Filter cycling; index 0 means no filter.
	categoryIdx  int
	priorityIdx  int
	timeframeIdx int

	filter  reconciliation.DiscrepancyFilter
	loading bool
	err     error
}

func NewDiscrepanciesModel(svc *reconciliation.Service) DiscrepanciesModel {
	return DiscrepanciesModel{
		svc: svc,
		table: newTable([]table.Column{
			{Title: "Priority", Width: 8},
			{Title: "Category", Width: 26},
			{Title: "Record", Width: 22},
			{Title: "Amount", Width: 16},
			{Title: "Age", Width: 8},
			{Title: "Occurred", Width: 16},
		}),
		filter:       reconciliation.DiscrepancyFilter{Limit: discrepancyPageSize},
		timeframeIdx: int(TimeframeAll),
		loading:      true,
	}
}

func (m DiscrepanciesModel) Title() string { return "Discrepancies" }

func (m DiscrepanciesModel) ShortHelp() string {
	return "Esc: back | c: category | p: priority | d: occurred | r: refresh"
}

func (m DiscrepanciesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DiscrepanciesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case discrepanciesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.items = msg.items
		m.summary = msg.summary
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 12)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "c":
			m.categoryIdx = (m.categoryIdx + 1) % (len(matching.Categories) + 1)
			m.applyFilter(time.Now())

			return m, m.loadCmd()
		case "p":
			m.priorityIdx = (m.priorityIdx + 1) % (len(matching.Priorities) + 1)
			m.applyFilter(time.Now())

			return m, m.loadCmd()
		case "d":
			m.timeframeIdx = (m.timeframeIdx + 1) % int(TimeframeCustom)
			m.applyFilter(time.Now())

			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *DiscrepanciesModel) applyFilter(now time.Time) {
	m.filter.Category = nil
	if m.categoryIdx > 0 {
		m.filter.Category = new(matching.Categories[m.categoryIdx-1])
	}

	m.filter.Priority = nil
	if m.priorityIdx > 0 {
		m.filter.Priority = new(matching.Priorities[m.priorityIdx-1])
	}

	m.filter.From, m.filter.To = nil, nil
	if start, end, ok := Timeframe(m.timeframeIdx).Range(now); ok {
		m.filter.From = &start
		m.filter.To = &end
	}
}

func (m *DiscrepanciesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.items))
	for _, d := range m.items {
		rows = append(rows, table.Row{
			string(d.Priority),
			string(d.Category),
			recordLabel(d),
			FormatAmount(d.Amount, d.Currency),
			FormatAge(d.Age),
			FormatTime(d.OccurredAt),
		})
	}

	m.table.SetRows(rows)
}

func recordLabel(d *matching.Discrepancy) string {
	switch {
	case d.AdjustmentID != "":
		return d.AdjustmentID
	case d.SettlementReference != "" && d.TransactionID != "":
		return d.TransactionID + "/" + d.SettlementReference
	case d.SettlementReference != "":
		return d.SettlementReference
	}

	return d.TransactionID
}

func (m DiscrepanciesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading discrepancies...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)))
	}

	category, priority := "All", "All"
	if m.filter.Category != nil {
		category = string(*m.filter.Category)
	}

	if m.filter.Priority != nil {
		priority = string(*m.filter.Priority)
	}

	header := fmt.Sprintf("Filter: [c] Category: %s | [p] Priority: %s | [d] Occurred: %s",
		activeStyle(category), activeStyle(priority), activeStyle(Timeframe(m.timeframeIdx).String()))

	totals := ""
	if m.summary != nil {
		totals = fmt.Sprintf("Open: %d | high %d, medium %d, low %d | Unmatched value: %s USD",
			m.summary.Total,
			m.summary.ByPriority[matching.PriorityHigh],
			m.summary.ByPriority[matching.PriorityMedium],
			m.summary.ByPriority[matching.PriorityLow],
			m.summary.UnmatchedValueUSD.StringFixed(2),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		totals,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
	)

	if idx := m.table.Cursor(); idx >= 0 && idx < len(m.items) {
		content = lipgloss.JoinVertical(lipgloss.Left, content, lipgloss.NewStyle().Faint(true).Render(m.items[idx].Detail))
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

// Messages

type discrepanciesLoadedMsg struct {
	items   []*matching.Discrepancy
	summary *reconciliation.Summary
	err     error
}

func (m DiscrepanciesModel) loadCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		items, err := m.svc.ListDiscrepancies(ctx, filter)
		if err != nil {
			return discrepanciesLoadedMsg{err: err}
		}

		summary, err := m.svc.DiscrepancySummary(ctx)
		if err != nil {
			return discrepanciesLoadedMsg{err: err}
		}

		return discrepanciesLoadedMsg{items: items, summary: summary}
	}
}

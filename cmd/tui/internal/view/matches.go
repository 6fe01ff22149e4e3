package view

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
)

var confidenceSteps = []int{0, 50, 80, 95}

type matchesState int

const (
	matchesStateBrowse matchesState = iota
	matchesStateLookup
)

type MatchesModel struct {
	CommonModel
	svc *reconciliation.Service

	state   matchesState
	table   table.Model
	matches []*matching.Match

	confidenceIdx int
	reviewOnly    bool

	form      *huh.Form
	lookupID  string
	lookedUp  *matching.Match
	lookupErr error

	loading bool
	err     error
}

func NewMatchesModel(svc *reconciliation.Service) MatchesModel {
	return MatchesModel{
		svc: svc,
		table: newTable([]table.Column{
			{Title: "Type", Width: 15},
			{Title: "Transaction", Width: 18},
			{Title: "Counterpart", Width: 18},
			{Title: "Conf", Width: 5},
			{Title: "Review", Width: 7},
			{Title: "Diff", Width: 10},
			{Title: "Matched", Width: 16},
		}),
		loading: true,
	}
}

func (m MatchesModel) Title() string { return "Matches" }

func (m MatchesModel) ShortHelp() string {
	if m.state == matchesStateLookup {
		return "Enter: look up | Esc: cancel"
	}

	return "Esc: back | c: min confidence | v: needs review | f: find transaction | r: refresh"
}

func (m MatchesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m MatchesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case matchesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.matches = msg.matches
		m.refreshTable()

		return m, nil

	case matchLookupMsg:
		m.state = matchesStateBrowse
		m.form = nil
		m.lookedUp = msg.match
		m.lookupErr = msg.err
		m.table.Focus()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 12)
		return m, nil
	}

	if m.state == matchesStateLookup {
		return m.updateLookup(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "c":
			m.confidenceIdx = (m.confidenceIdx + 1) % len(confidenceSteps)
			return m, m.loadCmd()
		case "v":
			m.reviewOnly = !m.reviewOnly
			return m, m.loadCmd()
		case "f":
			return m.enterLookup()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m MatchesModel) enterLookup() (tea.Model, tea.Cmd) {
	m.lookupID = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("transaction_id").
				Title("Transaction ID").
				Value(&m.lookupID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("transaction id cannot be empty")
					}

					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = matchesStateLookup
	m.table.Blur()

	return m, m.form.Init()
}

func (m MatchesModel) updateLookup(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = matchesStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.lookupCmd(strings.TrimSpace(m.lookupID))
}

func (m *MatchesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.matches))
	for _, mt := range m.matches {
		review := ""
		if mt.RequiresReview {
			review = "yes"
		}

		rows = append(rows, table.Row{
			string(mt.Type),
			mt.TransactionID,
			mt.SourceID(),
			strconv.Itoa(mt.Confidence),
			review,
			mt.AmountDifference.StringFixed(2),
			FormatTime(mt.MatchedAt),
		})
	}

	m.table.SetRows(rows)
}

func (m MatchesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading matches...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)))
	}

	review := "All"
	if m.reviewOnly {
		review = "Needs review"
	}

	header := fmt.Sprintf("Filter: [c] Min confidence: %s | [v] %s",
		activeStyle(strconv.Itoa(confidenceSteps[m.confidenceIdx])), activeStyle(review))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
	)

	if panel := m.sidePanel(); panel != "" {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content,
			lipgloss.NewStyle().
				Padding(1, 2).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Width(48).
				Render(panel),
		)
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m MatchesModel) sidePanel() string {
	if m.state == matchesStateLookup && m.form != nil {
		return "Find Match\n\n" + m.form.View()
	}

	if m.lookupErr != nil {
		if errors.Is(m.lookupErr, reconciliation.ErrNotFound) {
			return "No match for that transaction."
		}

		return errorStyle(fmt.Sprintf("Error: %v", m.lookupErr))
	}

	if m.lookedUp == nil {
		return ""
	}

	mt := m.lookedUp

	return fmt.Sprintf("%s -> %s\n\nType: %s\nConfidence: %d\nDifference: %s (%s%%)\nTime apart: %s\n\n%s",
		mt.TransactionID, mt.SourceID(), mt.Type, mt.Confidence,
		mt.AmountDifference.StringFixed(2), mt.RelativeDifference.Shift(2).StringFixed(2),
		FormatAge(mt.TimeDifference), strings.Join(mt.Reasons, "\n"))
}

// Messages

type matchesLoadedMsg struct {
	matches []*matching.Match
	err     error
}

type matchLookupMsg struct {
	match *matching.Match
	err   error
}

func (m MatchesModel) loadCmd() tea.Cmd {
	filter := reconciliation.MatchFilter{Limit: 200}
	if c := confidenceSteps[m.confidenceIdx]; c > 0 {
		filter.ConfidenceMin = &c
	}

	if m.reviewOnly {
		filter.RequiresReview = new(true)
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		matches, err := m.svc.ListMatches(ctx, filter)

		return matchesLoadedMsg{matches: matches, err: err}
	}
}

func (m MatchesModel) lookupCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		match, err := m.svc.GetMatchForTransaction(ctx, id)

		return matchLookupMsg{match: match, err: err}
	}
}

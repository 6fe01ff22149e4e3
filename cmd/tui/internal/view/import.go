package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/reconciler/internal/importer"
	"github.com/MrJamesThe3rd/reconciler/internal/ingest"
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

const (
	importTimeout  = 2 * time.Minute
	maxShownErrors = 12
)

type importState int

const (
	importStateKindSelect importState = iota
	importStateFilePick
	importStateImporting
	importStateResult
)

type ImportModel struct {
	CommonModel
	importService *importer.Service
	ingestService *ingest.Service

	state        importState
	filePicker   filepicker.Model
	selectedKind record.Kind
	kindCursor   int

	result *ingest.Result
	status string
	err    error
}

func NewImportModel(impSvc *importer.Service, ingestSvc *ingest.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".json", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		importService: impSvc,
		ingestService: ingestSvc,
		filePicker:    fp,
	}
}

func (m ImportModel) Title() string { return "Import Records" }

func (m ImportModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateKindSelect {
			return m.updateKindSelect(msg)
		}

	case importResultMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.result = msg.result
		m.status = fmt.Sprintf("Ingested %d %s, rejected %d.", msg.result.Ingested, m.selectedKind, len(msg.result.Errors))

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing %s from %s...", m.selectedKind, filepath.Base(path))

		return m, m.importCmd(m.selectedKind, path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick:
		m.state = importStateKindSelect
		return m, nil
	case importStateResult:
		m.state = importStateKindSelect
		m.err = nil
		m.result = nil
		m.status = ""

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateKindSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.kindCursor > 0 {
			m.kindCursor--
		}
	case tea.KeyDown:
		if m.kindCursor < len(record.Kinds)-1 {
			m.kindCursor++
		}
	case tea.KeyEnter:
		m.selectedKind = record.Kinds[m.kindCursor]
		m.state = importStateFilePick

		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateKindSelect:
		return m.viewKindSelect()
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select %s file (CSV or JSON):\n\n%s", m.selectedKind, m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewKindSelect() string {
	s := "Select record type:\n\n"

	for i, kind := range record.Kinds {
		cursor := " "
		if i == m.kindCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, kind)
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(errorStyle(m.status) + "\n\n(Esc to go back)")
	}

	var sb strings.Builder

	sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status))

	if m.result != nil && len(m.result.Errors) > 0 {
		sb.WriteString("\n\nRejected:\n")

		for i, e := range m.result.Errors {
			if i == maxShownErrors {
				fmt.Fprintf(&sb, "  ... and %d more\n", len(m.result.Errors)-maxShownErrors)
				break
			}

			sb.WriteString("  " + e + "\n")
		}
	}

	sb.WriteString("\n\n(Esc to go back)")

	return style.Render(sb.String())
}

// Messages

type importResultMsg struct {
	result *ingest.Result
	err    error
}

func (m ImportModel) importCmd(kind record.Kind, path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		batch, err := m.importService.Import(importer.FormatFromFilename(path), kind, f)
		if err != nil {
			return importResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.ingestService.IngestBatch(ctx, batch)
		if err != nil {
			return importResultMsg{err: err}
		}

		return importResultMsg{result: result}
	}
}

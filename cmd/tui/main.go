package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/reconciler/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/reconciler/internal/config"
	"github.com/MrJamesThe3rd/reconciler/internal/database"
	"github.com/MrJamesThe3rd/reconciler/internal/export"
	"github.com/MrJamesThe3rd/reconciler/internal/importer"
	"github.com/MrJamesThe3rd/reconciler/internal/ingest"
	ingestStore "github.com/MrJamesThe3rd/reconciler/internal/ingest/store"
	"github.com/MrJamesThe3rd/reconciler/internal/logging"
	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
	reconStore "github.com/MrJamesThe3rd/reconciler/internal/reconciliation/store"
)

type model struct {
	reconService  *reconciliation.Service
	ingestService *ingest.Service
	importService *importer.Service
	exportService *export.Service

	currentView View

	runsView          view.RunsModel
	discrepanciesView view.DiscrepanciesModel
	matchesView       view.MatchesModel
	importView        view.ImportModel
	exportView        view.ExportModel
}

type View int

const (
	ViewMenu          View = 0
	ViewRuns          View = 1
	ViewDiscrepancies View = 2
	ViewMatches       View = 3
	ViewImport        View = 4
	ViewExport        View = 5
)

func initialModel(cfg *config.Config) model {
	policy, err := cfg.Policy()
	if err != nil {
		slog.Error("failed to build matching policy", "error", err)
		os.Exit(1)
	}

	engine, err := matching.NewEngine(policy)
	if err != nil {
		slog.Error("failed to build matching engine", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.ConnectionString(), database.PoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	reconSvc := reconciliation.NewService(reconStore.New(db), engine,
		reconciliation.WithRetry(cfg.Retry()),
		reconciliation.WithOrphanThreshold(cfg.OrphanThreshold()),
	)
	ingestSvc := ingest.NewService(ingestStore.New(db))
	impSvc := importer.NewService()
	expSvc := export.NewService(reconSvc)

	return model{
		reconService:      reconSvc,
		ingestService:     ingestSvc,
		importService:     impSvc,
		exportService:     expSvc,
		currentView:       ViewMenu,
		runsView:          view.NewRunsModel(reconSvc),
		discrepanciesView: view.NewDiscrepanciesModel(reconSvc),
		matchesView:       view.NewMatchesModel(reconSvc),
		importView:        view.NewImportModel(impSvc, ingestSvc),
		exportView:        view.NewExportModel(expSvc, reconSvc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewRuns
				m.runsView = view.NewRunsModel(m.reconService)

				return m, m.runsView.Init()
			case "2":
				m.currentView = ViewDiscrepancies
				m.discrepanciesView = view.NewDiscrepanciesModel(m.reconService)

				return m, m.discrepanciesView.Init()
			case "3":
				m.currentView = ViewMatches
				m.matchesView = view.NewMatchesModel(m.reconService)

				return m, m.matchesView.Init()
			case "4":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.importService, m.ingestService)

				return m, m.importView.Init()
			case "5":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.exportService, m.reconService)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewRuns:
		var newModel tea.Model
		newModel, cmd = m.runsView.Update(msg)
		m.runsView = newModel.(view.RunsModel)
	case ViewDiscrepancies:
		var newModel tea.Model
		newModel, cmd = m.discrepanciesView.Update(msg)
		m.discrepanciesView = newModel.(view.DiscrepanciesModel)
	case ViewMatches:
		var newModel tea.Model
		newModel, cmd = m.matchesView.Update(msg)
		m.matchesView = newModel.(view.MatchesModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Reconciler\n\n" +
				"1. Reconciliation Runs\n" +
				"2. Discrepancies\n" +
				"3. Matches\n" +
				"4. Import Records\n" +
				"5. Export Discrepancies\n\n" +
				"q. Quit",
		)
	case ViewRuns:
		return m.runsView.View()
	case ViewDiscrepancies:
		return m.discrepanciesView.View()
	case ViewMatches:
		return m.matchesView.View()
	case ViewImport:
		return m.importView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; logs go to stderr only at warn and above.
	slog.SetDefault(logging.New(os.Stderr, "warn", cfg.Log.Format))

	m := initialModel(cfg)

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := m.reconService.Shutdown(ctx); err != nil {
		slog.Error("failed to stop reconciliation run", "error", err)
	}
}
